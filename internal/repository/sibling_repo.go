package repository

import (
	"context"
	"fmt"
)

// SiblingRepository covers the order queries shared by chapters (parent is a
// course) and lessons (parent is a chapter). Only active rows, those with
// deleted_at IS NULL, count as siblings.
type SiblingRepository interface {
	// FindActiveSiblingWithOrder returns the id of the active sibling holding
	// order, ignoring excludeIDs. It returns "" when the slot is free.
	FindActiveSiblingWithOrder(ctx context.Context, parentID string, order int, excludeIDs []string) (string, error)
	// NextOrder returns max(active order)+1, or 1 for an empty parent.
	NextOrder(ctx context.Context, parentID string) (int, error)
	// CountUnderParent counts how many of ids belong to parentID, archived or not.
	CountUnderParent(ctx context.Context, ids []string, parentID string) (int, error)
	// LockActiveSiblings locks every active sibling and returns their ids by order.
	LockActiveSiblings(ctx context.Context, parentID string) ([]string, error)
	// ApplyOrder sets order = index+1 for orderedIDs.
	ApplyOrder(ctx context.Context, parentID string, orderedIDs []string) error
}

// siblingQueries implements SiblingRepository for one child table.
type siblingQueries struct {
	db        DBTX
	table     string
	parentCol string
}

func (q siblingQueries) FindActiveSiblingWithOrder(ctx context.Context, parentID string, order int, excludeIDs []string) (string, error) {
	if excludeIDs == nil {
		excludeIDs = []string{}
	}
	query := fmt.Sprintf(`
		SELECT COALESCE(MIN(id), '')
		FROM %s
		WHERE %s = $1 AND order_number = $2 AND deleted_at IS NULL
		  AND NOT (id = ANY($3::text[]))
	`, q.table, q.parentCol)
	var id string
	if err := q.db.QueryRow(ctx, query, parentID, order, excludeIDs).Scan(&id); err != nil {
		return "", fmt.Errorf("finding %s sibling with order %d under %s: %w", q.table, order, parentID, err)
	}
	return id, nil
}

func (q siblingQueries) NextOrder(ctx context.Context, parentID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(order_number), 0) + 1
		FROM %s
		WHERE %s = $1 AND deleted_at IS NULL
	`, q.table, q.parentCol)
	var next int
	if err := q.db.QueryRow(ctx, query, parentID).Scan(&next); err != nil {
		return 0, fmt.Errorf("computing next %s order under %s: %w", q.table, parentID, err)
	}
	return next, nil
}

func (q siblingQueries) CountUnderParent(ctx context.Context, ids []string, parentID string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE id = ANY($1::text[]) AND %s = $2`, q.table, q.parentCol)
	var n int
	if err := q.db.QueryRow(ctx, query, ids, parentID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s under %s: %w", q.table, parentID, err)
	}
	return n, nil
}

func (q siblingQueries) LockActiveSiblings(ctx context.Context, parentID string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT id
		FROM %s
		WHERE %s = $1 AND deleted_at IS NULL
		ORDER BY order_number
		FOR UPDATE
	`, q.table, q.parentCol)
	rows, err := q.db.Query(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("locking %s under %s: %w", q.table, parentID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning %s id: %w", q.table, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", q.table, err)
	}
	return ids, nil
}

// ApplyOrder parks the current orders of orderedIDs as negatives, then writes
// the dense sequence. The unique active order index is checked per row, so
// writing straight over a permutation would collide midway.
func (q siblingQueries) ApplyOrder(ctx context.Context, parentID string, orderedIDs []string) error {
	if err := q.parkOrders(ctx, orderedIDs); err != nil {
		return err
	}

	orders := make([]int, len(orderedIDs))
	for i := range orderedIDs {
		orders[i] = i + 1
	}
	query := fmt.Sprintf(`
		UPDATE %s AS t
		SET order_number = v.ord, updated_at = NOW()
		FROM unnest($2::text[], $3::int[]) AS v(id, ord)
		WHERE t.id = v.id AND t.%s = $1
	`, q.table, q.parentCol)
	tag, err := q.db.Exec(ctx, query, parentID, orderedIDs, orders)
	if err != nil {
		return wrapWriteErr(err, fmt.Sprintf("applying %s order under %s", q.table, parentID))
	}
	if int(tag.RowsAffected()) != len(orderedIDs) {
		return fmt.Errorf("applying %s order under %s: updated %d of %d rows", q.table, parentID, tag.RowsAffected(), len(orderedIDs))
	}
	return nil
}

func (q siblingQueries) parkOrders(ctx context.Context, ids []string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET order_number = -order_number
		WHERE id = ANY($1::text[]) AND deleted_at IS NULL AND order_number > 0
	`, q.table)
	if _, err := q.db.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("parking %s orders: %w", q.table, err)
	}
	return nil
}
