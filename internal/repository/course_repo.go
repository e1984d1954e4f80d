package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursecatalog/internal/model"

	"github.com/jackc/pgx/v5"
)

// CourseRepository defines the interface for interacting with course data
type CourseRepository interface {
	Create(ctx context.Context, c *model.Course) error
	// GetByID retrieves a course by its ID
	GetByID(ctx context.Context, courseID string) (*model.Course, error)
	// GetForShare retrieves a course and holds a share lock on it until the
	// transaction ends, so it cannot be archived concurrently
	GetForShare(ctx context.Context, courseID string) (*model.Course, error)
	// GetForUpdate retrieves a course and locks it for writing
	GetForUpdate(ctx context.Context, courseID string) (*model.Course, error)
	Update(ctx context.Context, c *model.Course) error
	// List returns the courses matching f, newest first
	List(ctx context.Context, f CourseFilter) ([]*model.Course, error)
}

// CourseFilter selects courses for a listing. Empty InstructorID and nil
// Status match any course. Archived courses are skipped unless
// IncludeArchived is set.
type CourseFilter struct {
	InstructorID    string
	Status          *model.Status
	IncludeArchived bool
	Limit           int
	Offset          int
}

const courseColumns = `id, instructor_id, title, description, status, deleted_at, created_at, updated_at`

type courseRepo struct {
	db DBTX
}

// NewCourseRepo creates a new CourseRepository
func NewCourseRepo(db DBTX) CourseRepository {
	return &courseRepo{db: db}
}

// Create inserts a new course and fills in generated fields
func (r *courseRepo) Create(ctx context.Context, c *model.Course) error {
	status, deletedAt, _ := c.Lifecycle.Columns()
	query := `
		INSERT INTO courses (id, instructor_id, title, description, status, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, c.ID, c.InstructorID, c.Title, c.Description, status, deletedAt).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating course: %w", err)
	}
	return nil
}

func (r *courseRepo) GetByID(ctx context.Context, courseID string) (*model.Course, error) {
	return r.get(ctx, courseID, "")
}

func (r *courseRepo) GetForShare(ctx context.Context, courseID string) (*model.Course, error) {
	return r.get(ctx, courseID, "FOR SHARE")
}

func (r *courseRepo) GetForUpdate(ctx context.Context, courseID string) (*model.Course, error) {
	return r.get(ctx, courseID, "FOR UPDATE")
}

// Update writes title, description and lifecycle of an existing course
func (r *courseRepo) Update(ctx context.Context, c *model.Course) error {
	status, deletedAt, _ := c.Lifecycle.Columns()
	query := `
		UPDATE courses
		SET title = $2, description = $3, status = $4, deleted_at = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, c.ID, c.Title, c.Description, status, deletedAt).Scan(&c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating course %s: %w", c.ID, err)
	}
	return nil
}

func (r *courseRepo) List(ctx context.Context, f CourseFilter) ([]*model.Course, error) {
	query := `
		SELECT ` + courseColumns + `
		FROM courses
		WHERE ($1::text = '' OR instructor_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3 OR deleted_at IS NULL)
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5
	`
	var status *string
	if f.Status != nil {
		s := string(*f.Status)
		status = &s
	}
	rows, err := r.db.Query(ctx, query, f.InstructorID, status, f.IncludeArchived, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("querying courses: %w", err)
	}
	defer rows.Close()

	courses := []*model.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning course row: %w", err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating course rows: %w", err)
	}
	return courses, nil
}

func (r *courseRepo) get(ctx context.Context, courseID, lock string) (*model.Course, error) {
	query := `
		SELECT ` + courseColumns + `
		FROM courses
		WHERE id = $1
	` + lock
	c, err := scanCourse(r.db.QueryRow(ctx, query, courseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting course by id %s: %w", courseID, err)
	}
	return c, nil
}

func scanCourse(row rowScanner) (*model.Course, error) {
	var (
		c         model.Course
		status    string
		deletedAt *time.Time
	)
	if err := row.Scan(
		&c.ID,
		&c.InstructorID,
		&c.Title,
		&c.Description,
		&status,
		&deletedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	lc, err := model.LifecycleFromColumns(status, deletedAt, false)
	if err != nil {
		return nil, fmt.Errorf("decoding course %s lifecycle: %w", c.ID, err)
	}
	c.Lifecycle = lc
	return &c, nil
}
