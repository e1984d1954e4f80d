package service

import (
	"context"
	"fmt"
	"strings"

	"coursecatalog/internal/apperr"
	"coursecatalog/internal/repository"
)

// ConflictKind tells a storage collision from a collision inside one request.
type ConflictKind string

const (
	AlreadyTaken        ConflictKind = "ALREADY_TAKEN"
	IntraBatchDuplicate ConflictKind = "INTRA_BATCH_DUPLICATE"
)

// OrderConflict names the parent and the order value that cannot be used.
type OrderConflict struct {
	Kind       ConflictKind
	ParentKind string
	ParentID   string
	Order      int
	// HolderID is the active sibling holding the slot, for AlreadyTaken.
	HolderID string
}

func (c OrderConflict) Error() string {
	if c.Kind == IntraBatchDuplicate {
		return fmt.Sprintf("Order number %d is used more than once in this request for %s %s", c.Order, c.ParentKind, c.ParentID)
	}
	return fmt.Sprintf("Order number %d is already taken in %s %s", c.Order, c.ParentKind, c.ParentID)
}

// OrderCandidate is an order value requested for an item. ID is empty for
// items that do not exist yet.
type OrderCandidate struct {
	ID    string
	Order int
}

// OrderingPolicy validates and assigns sibling order numbers under one kind
// of parent.
type OrderingPolicy struct {
	siblings   repository.SiblingRepository
	childKind  string
	parentKind string
}

func NewOrderingPolicy(siblings repository.SiblingRepository, childKind, parentKind string) *OrderingPolicy {
	return &OrderingPolicy{siblings: siblings, childKind: childKind, parentKind: parentKind}
}

func (p *OrderingPolicy) checkValue(order int) error {
	if order < 1 {
		return apperr.InvalidRequest("Order number must be at least 1, got %d", order)
	}
	return nil
}

func conflictError(conflicts ...OrderConflict) error {
	msgs := make([]string, len(conflicts))
	for i, c := range conflicts {
		msgs[i] = c.Error()
	}
	return &apperr.Error{Kind: apperr.KindInvalidRequest, Message: strings.Join(msgs, "; "), Err: conflicts[0]}
}

// ValidateOrder checks that order is a valid slot that no active sibling
// other than excludeIDs holds.
func (p *OrderingPolicy) ValidateOrder(ctx context.Context, parentID string, order int, excludeIDs ...string) error {
	if err := p.checkValue(order); err != nil {
		return err
	}
	holder, err := p.siblings.FindActiveSiblingWithOrder(ctx, parentID, order, excludeIDs)
	if err != nil {
		return err
	}
	if holder != "" {
		return conflictError(OrderConflict{
			Kind: AlreadyTaken, ParentKind: p.parentKind, ParentID: parentID, Order: order, HolderID: holder,
		})
	}
	return nil
}

// ValidateBulkOrders checks every candidate against storage and against the
// other candidates. Siblings listed in vacating give up their current slot in
// the same request and are ignored by the storage lookup.
func (p *OrderingPolicy) ValidateBulkOrders(ctx context.Context, parentID string, candidates []OrderCandidate, vacating []string) ([]OrderConflict, error) {
	var conflicts []OrderConflict
	seen := make(map[int]bool, len(candidates))
	for _, c := range candidates {
		if err := p.checkValue(c.Order); err != nil {
			return nil, err
		}
		if seen[c.Order] {
			conflicts = append(conflicts, OrderConflict{
				Kind: IntraBatchDuplicate, ParentKind: p.parentKind, ParentID: parentID, Order: c.Order,
			})
			continue
		}
		seen[c.Order] = true

		exclude := vacating
		if c.ID != "" {
			exclude = append(append([]string{}, vacating...), c.ID)
		}
		holder, err := p.siblings.FindActiveSiblingWithOrder(ctx, parentID, c.Order, exclude)
		if err != nil {
			return nil, err
		}
		if holder != "" {
			conflicts = append(conflicts, OrderConflict{
				Kind: AlreadyTaken, ParentKind: p.parentKind, ParentID: parentID, Order: c.Order, HolderID: holder,
			})
		}
	}
	return conflicts, nil
}

// NextOrder returns the next free slot under parentID.
func (p *OrderingPolicy) NextOrder(ctx context.Context, parentID string) (int, error) {
	return p.siblings.NextOrder(ctx, parentID)
}

// AssignOrders fills in missing orders for new items, starting after the
// current last sibling and skipping values requested explicitly in the same
// batch. A nil entry in requested means auto-assign.
func (p *OrderingPolicy) AssignOrders(ctx context.Context, parentID string, requested []*int) ([]int, error) {
	taken := make(map[int]bool, len(requested))
	for _, o := range requested {
		if o != nil {
			taken[*o] = true
		}
	}
	next, err := p.siblings.NextOrder(ctx, parentID)
	if err != nil {
		return nil, err
	}
	orders := make([]int, len(requested))
	for i, o := range requested {
		if o != nil {
			orders[i] = *o
			continue
		}
		for taken[next] {
			next++
		}
		orders[i] = next
		taken[next] = true
		next++
	}
	return orders, nil
}

// ReorderChildren makes orderedIDs the first len(orderedIDs) positions under
// parentID. Active siblings not listed follow in their current order, so the
// parent always ends with a dense 1..N sequence. It returns the final order.
// Nothing is written unless every id is a distinct active child of parentID.
func (p *OrderingPolicy) ReorderChildren(ctx context.Context, parentID string, orderedIDs []string) ([]string, error) {
	if len(orderedIDs) == 0 {
		return nil, apperr.InvalidRequest("No %s ids provided for reordering", p.childKind)
	}
	named := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if named[id] {
			return nil, apperr.InvalidRequest("Duplicate %s id %s in reorder request", p.childKind, id)
		}
		named[id] = true
	}

	active, err := p.siblings.LockActiveSiblings(ctx, parentID)
	if err != nil {
		return nil, err
	}
	isActive := make(map[string]bool, len(active))
	for _, id := range active {
		isActive[id] = true
	}
	for _, id := range orderedIDs {
		if isActive[id] {
			continue
		}
		n, err := p.siblings.CountUnderParent(ctx, []string{id}, parentID)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, apperr.InvalidRequest("%s %s does not belong to %s %s", capitalize(p.childKind), id, p.parentKind, parentID)
		}
		return nil, apperr.InvalidRequest("%s %s is archived and cannot be reordered", capitalize(p.childKind), id)
	}

	final := append([]string{}, orderedIDs...)
	for _, id := range active {
		if !named[id] {
			final = append(final, id)
		}
	}
	if err := p.siblings.ApplyOrder(ctx, parentID, final); err != nil {
		return nil, err
	}
	return final, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
