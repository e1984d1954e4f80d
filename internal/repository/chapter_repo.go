package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursecatalog/internal/model"

	"github.com/jackc/pgx/v5"
)

// ChapterRepository defines the interface for interacting with chapter data
type ChapterRepository interface {
	SiblingRepository

	Create(ctx context.Context, ch *model.Chapter) error
	// CreateBatch inserts all chapters in one round trip
	CreateBatch(ctx context.Context, chs []*model.Chapter) error
	GetByID(ctx context.Context, chapterID string) (*model.Chapter, error)
	// GetForShare retrieves a chapter and share-locks it for the transaction
	GetForShare(ctx context.Context, chapterID string) (*model.Chapter, error)
	// GetForUpdate locks and returns the chapters found among ids
	GetForUpdate(ctx context.Context, ids []string) ([]*model.Chapter, error)
	Update(ctx context.Context, ch *model.Chapter) error
	UpdateBatch(ctx context.Context, chs []*model.Chapter) error
	// SetLifecycle writes status, deleted_at and cause for every id in one statement
	SetLifecycle(ctx context.Context, ids []string, lc model.Lifecycle) error
	// ListActiveByCourse returns the active chapters of a course by order
	ListActiveByCourse(ctx context.Context, courseID string) ([]*model.Chapter, error)
}

const chapterColumns = `id, course_id, title, description, order_number, status, deleted_at, archived_by_cascade, created_at, updated_at`

type chapterRepo struct {
	siblingQueries
	db DBTX
}

// NewChapterRepo creates a new ChapterRepository
func NewChapterRepo(db DBTX) ChapterRepository {
	return &chapterRepo{
		siblingQueries: siblingQueries{db: db, table: "chapters", parentCol: "course_id"},
		db:             db,
	}
}

const insertChapter = `
	INSERT INTO chapters (id, course_id, title, description, order_number, status, deleted_at, archived_by_cascade)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING created_at, updated_at
`

func insertChapterArgs(ch *model.Chapter) []any {
	status, deletedAt, byCascade := ch.Lifecycle.Columns()
	return []any{ch.ID, ch.CourseID, ch.Title, ch.Description, ch.Order, status, deletedAt, byCascade}
}

// Create inserts a new chapter and fills in generated timestamps
func (r *chapterRepo) Create(ctx context.Context, ch *model.Chapter) error {
	err := r.db.QueryRow(ctx, insertChapter, insertChapterArgs(ch)...).Scan(&ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return wrapWriteErr(err, "creating chapter")
	}
	return nil
}

func (r *chapterRepo) CreateBatch(ctx context.Context, chs []*model.Chapter) error {
	b := &pgx.Batch{}
	for _, ch := range chs {
		b.Queue(insertChapter, insertChapterArgs(ch)...).QueryRow(func(row pgx.Row) error {
			return row.Scan(&ch.CreatedAt, &ch.UpdatedAt)
		})
	}
	if err := r.db.SendBatch(ctx, b).Close(); err != nil {
		return wrapWriteErr(err, "creating chapters")
	}
	return nil
}

func (r *chapterRepo) GetByID(ctx context.Context, chapterID string) (*model.Chapter, error) {
	return r.getOne(ctx, chapterID, "")
}

func (r *chapterRepo) GetForShare(ctx context.Context, chapterID string) (*model.Chapter, error) {
	return r.getOne(ctx, chapterID, "FOR SHARE")
}

func (r *chapterRepo) getOne(ctx context.Context, chapterID, lock string) (*model.Chapter, error) {
	query := `SELECT ` + chapterColumns + ` FROM chapters WHERE id = $1 ` + lock
	ch, err := scanChapter(r.db.QueryRow(ctx, query, chapterID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting chapter by id %s: %w", chapterID, err)
	}
	return ch, nil
}

// GetForUpdate locks rows in id order so concurrent batches cannot deadlock
func (r *chapterRepo) GetForUpdate(ctx context.Context, ids []string) ([]*model.Chapter, error) {
	query := `SELECT ` + chapterColumns + ` FROM chapters WHERE id = ANY($1::text[]) ORDER BY id FOR UPDATE`
	return r.list(ctx, query, ids)
}

func (r *chapterRepo) ListActiveByCourse(ctx context.Context, courseID string) ([]*model.Chapter, error) {
	query := `
		SELECT ` + chapterColumns + `
		FROM chapters
		WHERE course_id = $1 AND deleted_at IS NULL
		ORDER BY order_number ASC
	`
	return r.list(ctx, query, courseID)
}

func (r *chapterRepo) list(ctx context.Context, query string, args ...any) ([]*model.Chapter, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chapters: %w", err)
	}
	defer rows.Close()

	chapters := []*model.Chapter{}
	for rows.Next() {
		ch, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning chapter row: %w", err)
		}
		chapters = append(chapters, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chapter rows: %w", err)
	}
	return chapters, nil
}

const updateChapter = `
	UPDATE chapters
	SET title = $2, description = $3, order_number = $4, status = $5, deleted_at = $6,
	    archived_by_cascade = $7, updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
`

func updateChapterArgs(ch *model.Chapter) []any {
	status, deletedAt, byCascade := ch.Lifecycle.Columns()
	return []any{ch.ID, ch.Title, ch.Description, ch.Order, status, deletedAt, byCascade}
}

func (r *chapterRepo) Update(ctx context.Context, ch *model.Chapter) error {
	if err := r.db.QueryRow(ctx, updateChapter, updateChapterArgs(ch)...).Scan(&ch.UpdatedAt); err != nil {
		return wrapWriteErr(err, fmt.Sprintf("updating chapter %s", ch.ID))
	}
	return nil
}

// UpdateBatch parks the current orders first so chapters can swap slots
func (r *chapterRepo) UpdateBatch(ctx context.Context, chs []*model.Chapter) error {
	ids := make([]string, len(chs))
	for i, ch := range chs {
		ids[i] = ch.ID
	}
	if err := r.parkOrders(ctx, ids); err != nil {
		return err
	}

	b := &pgx.Batch{}
	for _, ch := range chs {
		b.Queue(updateChapter, updateChapterArgs(ch)...).QueryRow(func(row pgx.Row) error {
			return row.Scan(&ch.UpdatedAt)
		})
	}
	if err := r.db.SendBatch(ctx, b).Close(); err != nil {
		return wrapWriteErr(err, "updating chapters")
	}
	return nil
}

func (r *chapterRepo) SetLifecycle(ctx context.Context, ids []string, lc model.Lifecycle) error {
	status, deletedAt, byCascade := lc.Columns()
	query := `
		UPDATE chapters
		SET status = $2, deleted_at = $3, archived_by_cascade = $4, updated_at = NOW()
		WHERE id = ANY($1::text[])
	`
	if _, err := r.db.Exec(ctx, query, ids, status, deletedAt, byCascade); err != nil {
		return wrapWriteErr(err, "setting chapter lifecycle")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChapter(row rowScanner) (*model.Chapter, error) {
	var (
		ch        model.Chapter
		status    string
		deletedAt *time.Time
		byCascade bool
	)
	if err := row.Scan(
		&ch.ID,
		&ch.CourseID,
		&ch.Title,
		&ch.Description,
		&ch.Order,
		&status,
		&deletedAt,
		&byCascade,
		&ch.CreatedAt,
		&ch.UpdatedAt,
	); err != nil {
		return nil, err
	}
	lc, err := model.LifecycleFromColumns(status, deletedAt, byCascade)
	if err != nil {
		return nil, fmt.Errorf("decoding chapter %s lifecycle: %w", ch.ID, err)
	}
	ch.Lifecycle = lc
	return &ch, nil
}
