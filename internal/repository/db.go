package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrOrderTaken is returned when a write collides with the unique active
// order index of chapters or lessons.
var ErrOrderTaken = errors.New("order number already taken")

// OrderTakenError names the parent and order of a violated active order
// index. It matches ErrOrderTaken under errors.Is.
type OrderTakenError struct {
	ParentID string
	Order    int
}

func (e *OrderTakenError) Error() string {
	return fmt.Sprintf("order number %d already taken under %s", e.Order, e.ParentID)
}

func (e *OrderTakenError) Is(target error) bool {
	return target == ErrOrderTaken
}

const uniqueViolation = "23505"

// orderKeyDetail matches the detail of a unique violation on
// (parent_id, order_number), e.g. "Key (course_id, order_number)=(abc, 3) already exists."
var orderKeyDetail = regexp.MustCompile(`^Key \(\w+, order_number\)=\((.+), (-?\d+)\) already exists`)

// DBTX is the part of pgx shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Repos groups the repositories bound to one connection or transaction.
type Repos struct {
	Courses  CourseRepository
	Chapters ChapterRepository
	Lessons  LessonRepository
	Events   EventRepository
}

// Store hands out repositories and runs functions inside a transaction.
type Store interface {
	Repos() Repos
	WithTx(ctx context.Context, fn func(Repos) error) error
}

type pgStore struct {
	pool        *pgxpool.Pool
	eventsQueue string
}

// NewStore creates a Store backed by a pgx pool. Content events are sent to
// the pgmq queue named eventsQueue.
func NewStore(pool *pgxpool.Pool, eventsQueue string) Store {
	return &pgStore{pool: pool, eventsQueue: eventsQueue}
}

func (s *pgStore) Repos() Repos {
	return newRepos(s.pool, s.eventsQueue)
}

// WithTx commits when fn returns nil and rolls back otherwise.
func (s *pgStore) WithTx(ctx context.Context, fn func(Repos) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(newRepos(tx, s.eventsQueue))
	})
}

func newRepos(db DBTX, eventsQueue string) Repos {
	return Repos{
		Courses:  NewCourseRepo(db),
		Chapters: NewChapterRepo(db),
		Lessons:  NewLessonRepo(db),
		Events:   NewEventRepo(db, eventsQueue),
	}
}

// wrapWriteErr maps order index violations to ErrOrderTaken, as an
// *OrderTakenError when the violated key can be read from the detail.
func wrapWriteErr(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation &&
		strings.HasSuffix(pgErr.ConstraintName, "_active_order_key") {
		if taken := parseOrderKey(pgErr.Detail); taken != nil {
			return fmt.Errorf("%s: %w", op, taken)
		}
		return fmt.Errorf("%s: %w", op, ErrOrderTaken)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func parseOrderKey(detail string) *OrderTakenError {
	m := orderKeyDetail.FindStringSubmatch(detail)
	if m == nil {
		return nil
	}
	order, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}
	return &OrderTakenError{ParentID: m[1], Order: order}
}
