package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"coursecatalog/internal/model"

	"github.com/jackc/pgx/v5"
)

// LessonRepository defines the interface for interacting with lesson data
type LessonRepository interface {
	SiblingRepository

	Create(ctx context.Context, l *model.Lesson) error
	CreateBatch(ctx context.Context, ls []*model.Lesson) error
	GetByID(ctx context.Context, lessonID string) (*model.Lesson, error)
	// GetForUpdate locks and returns the lessons found among ids
	GetForUpdate(ctx context.Context, ids []string) ([]*model.Lesson, error)
	Update(ctx context.Context, l *model.Lesson) error
	UpdateBatch(ctx context.Context, ls []*model.Lesson) error
	SetLifecycle(ctx context.Context, ids []string, lc model.Lifecycle) error
	// ListActiveByChapter returns the active lessons of a chapter by order
	ListActiveByChapter(ctx context.Context, chapterID string) ([]*model.Lesson, error)

	// ArchiveActiveByChapters archives every active lesson of the chapters
	// with cause cascade and returns their ids by chapter.
	ArchiveActiveByChapters(ctx context.Context, chapterIDs []string, at time.Time) (CascadedLessons, error)
	// RestoreCascadedByChapters restores to DRAFT exactly the lessons that
	// were archived by a chapter cascade and returns their ids by chapter.
	RestoreCascadedByChapters(ctx context.Context, chapterIDs []string) (CascadedLessons, error)
}

// CascadedLessons maps a chapter id to the sorted ids of the lessons a
// cascade moved under it.
type CascadedLessons map[string][]string

// Count returns the number of lessons across all chapters.
func (c CascadedLessons) Count() int {
	n := 0
	for _, ids := range c {
		n += len(ids)
	}
	return n
}

// Under returns the lesson ids of the given chapters, chapter by chapter.
func (c CascadedLessons) Under(chapterIDs ...string) []string {
	var out []string
	for _, id := range chapterIDs {
		out = append(out, c[id]...)
	}
	return out
}

const lessonColumns = `id, chapter_id, title, content, lesson_type, order_number, status, deleted_at, archived_by_cascade, created_at, updated_at`

type lessonRepo struct {
	siblingQueries
	db DBTX
}

// NewLessonRepo creates a new LessonRepository
func NewLessonRepo(db DBTX) LessonRepository {
	return &lessonRepo{
		siblingQueries: siblingQueries{db: db, table: "lessons", parentCol: "chapter_id"},
		db:             db,
	}
}

const insertLesson = `
	INSERT INTO lessons (id, chapter_id, title, content, lesson_type, order_number, status, deleted_at, archived_by_cascade)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING created_at, updated_at
`

func insertLessonArgs(l *model.Lesson) []any {
	status, deletedAt, byCascade := l.Lifecycle.Columns()
	return []any{l.ID, l.ChapterID, l.Title, l.Content, string(l.Type), l.Order, status, deletedAt, byCascade}
}

func (r *lessonRepo) Create(ctx context.Context, l *model.Lesson) error {
	if err := r.db.QueryRow(ctx, insertLesson, insertLessonArgs(l)...).Scan(&l.CreatedAt, &l.UpdatedAt); err != nil {
		return wrapWriteErr(err, "creating lesson")
	}
	return nil
}

func (r *lessonRepo) CreateBatch(ctx context.Context, ls []*model.Lesson) error {
	b := &pgx.Batch{}
	for _, l := range ls {
		b.Queue(insertLesson, insertLessonArgs(l)...).QueryRow(func(row pgx.Row) error {
			return row.Scan(&l.CreatedAt, &l.UpdatedAt)
		})
	}
	if err := r.db.SendBatch(ctx, b).Close(); err != nil {
		return wrapWriteErr(err, "creating lessons")
	}
	return nil
}

func (r *lessonRepo) GetByID(ctx context.Context, lessonID string) (*model.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`
	l, err := scanLesson(r.db.QueryRow(ctx, query, lessonID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting lesson by id %s: %w", lessonID, err)
	}
	return l, nil
}

func (r *lessonRepo) GetForUpdate(ctx context.Context, ids []string) ([]*model.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = ANY($1::text[]) ORDER BY id FOR UPDATE`
	return r.list(ctx, query, ids)
}

func (r *lessonRepo) ListActiveByChapter(ctx context.Context, chapterID string) ([]*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE chapter_id = $1 AND deleted_at IS NULL
		ORDER BY order_number ASC
	`
	return r.list(ctx, query, chapterID)
}

func (r *lessonRepo) list(ctx context.Context, query string, args ...any) ([]*model.Lesson, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying lessons: %w", err)
	}
	defer rows.Close()

	lessons := []*model.Lesson{}
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning lesson row: %w", err)
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lesson rows: %w", err)
	}
	return lessons, nil
}

const updateLesson = `
	UPDATE lessons
	SET title = $2, content = $3, lesson_type = $4, order_number = $5, status = $6, deleted_at = $7,
	    archived_by_cascade = $8, updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
`

func updateLessonArgs(l *model.Lesson) []any {
	status, deletedAt, byCascade := l.Lifecycle.Columns()
	return []any{l.ID, l.Title, l.Content, string(l.Type), l.Order, status, deletedAt, byCascade}
}

func (r *lessonRepo) Update(ctx context.Context, l *model.Lesson) error {
	if err := r.db.QueryRow(ctx, updateLesson, updateLessonArgs(l)...).Scan(&l.UpdatedAt); err != nil {
		return wrapWriteErr(err, fmt.Sprintf("updating lesson %s", l.ID))
	}
	return nil
}

func (r *lessonRepo) UpdateBatch(ctx context.Context, ls []*model.Lesson) error {
	ids := make([]string, len(ls))
	for i, l := range ls {
		ids[i] = l.ID
	}
	if err := r.parkOrders(ctx, ids); err != nil {
		return err
	}

	b := &pgx.Batch{}
	for _, l := range ls {
		b.Queue(updateLesson, updateLessonArgs(l)...).QueryRow(func(row pgx.Row) error {
			return row.Scan(&l.UpdatedAt)
		})
	}
	if err := r.db.SendBatch(ctx, b).Close(); err != nil {
		return wrapWriteErr(err, "updating lessons")
	}
	return nil
}

func (r *lessonRepo) SetLifecycle(ctx context.Context, ids []string, lc model.Lifecycle) error {
	status, deletedAt, byCascade := lc.Columns()
	query := `
		UPDATE lessons
		SET status = $2, deleted_at = $3, archived_by_cascade = $4, updated_at = NOW()
		WHERE id = ANY($1::text[])
	`
	if _, err := r.db.Exec(ctx, query, ids, status, deletedAt, byCascade); err != nil {
		return wrapWriteErr(err, "setting lesson lifecycle")
	}
	return nil
}

func (r *lessonRepo) ArchiveActiveByChapters(ctx context.Context, chapterIDs []string, at time.Time) (CascadedLessons, error) {
	query := `
		UPDATE lessons
		SET status = 'ARCHIVED', deleted_at = $2, archived_by_cascade = TRUE, updated_at = NOW()
		WHERE chapter_id = ANY($1::text[]) AND deleted_at IS NULL
		RETURNING chapter_id, id
	`
	return r.collectIDs(ctx, "archiving lessons by chapter", query, chapterIDs, at.UTC())
}

func (r *lessonRepo) RestoreCascadedByChapters(ctx context.Context, chapterIDs []string) (CascadedLessons, error) {
	query := `
		UPDATE lessons
		SET status = 'DRAFT', deleted_at = NULL, archived_by_cascade = FALSE, updated_at = NOW()
		WHERE chapter_id = ANY($1::text[]) AND deleted_at IS NOT NULL AND archived_by_cascade
		RETURNING chapter_id, id
	`
	return r.collectIDs(ctx, "restoring lessons by chapter", query, chapterIDs)
}

func (r *lessonRepo) collectIDs(ctx context.Context, op, query string, args ...any) (CascadedLessons, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapWriteErr(err, op)
	}
	var chapterID, lessonID string
	out := CascadedLessons{}
	_, err = pgx.ForEachRow(rows, []any{&chapterID, &lessonID}, func() error {
		out[chapterID] = append(out[chapterID], lessonID)
		return nil
	})
	if err != nil {
		return nil, wrapWriteErr(err, op)
	}
	for _, ids := range out {
		sort.Strings(ids)
	}
	return out, nil
}

func scanLesson(row rowScanner) (*model.Lesson, error) {
	var (
		l          model.Lesson
		lessonType string
		status     string
		deletedAt  *time.Time
		byCascade  bool
	)
	if err := row.Scan(
		&l.ID,
		&l.ChapterID,
		&l.Title,
		&l.Content,
		&lessonType,
		&l.Order,
		&status,
		&deletedAt,
		&byCascade,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	l.Type = model.LessonType(lessonType)
	lc, err := model.LifecycleFromColumns(status, deletedAt, byCascade)
	if err != nil {
		return nil, fmt.Errorf("decoding lesson %s lifecycle: %w", l.ID, err)
	}
	l.Lifecycle = lc
	return &l, nil
}
