// Package memory is an in-process repository.Store. Transactions work on a
// snapshot that replaces the committed state only when the function returns
// nil, and the unique active order rule is checked after every statement.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"coursecatalog/internal/model"
	"coursecatalog/internal/repository"
)

type state struct {
	courses  map[string]model.Course
	chapters map[string]model.Chapter
	lessons  map[string]model.Lesson
	events   []model.ContentEvent
}

func newState() *state {
	return &state{
		courses:  map[string]model.Course{},
		chapters: map[string]model.Chapter{},
		lessons:  map[string]model.Lesson{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.courses {
		c.courses[k] = v
	}
	for k, v := range s.chapters {
		c.chapters[k] = v
	}
	for k, v := range s.lessons {
		c.lessons[k] = v
	}
	c.events = append([]model.ContentEvent(nil), s.events...)
	return c
}

// checkOrders mirrors the partial unique indexes on (parent, order_number).
func (s *state) checkOrders() error {
	seen := map[string]bool{}
	for _, ch := range s.chapters {
		if !ch.Lifecycle.IsActive() {
			continue
		}
		key := "c:" + ch.CourseID + ":" + strconv.Itoa(ch.Order)
		if seen[key] {
			return &repository.OrderTakenError{ParentID: ch.CourseID, Order: ch.Order}
		}
		seen[key] = true
	}
	for _, l := range s.lessons {
		if !l.Lifecycle.IsActive() {
			continue
		}
		key := "l:" + l.ChapterID + ":" + strconv.Itoa(l.Order)
		if seen[key] {
			return &repository.OrderTakenError{ParentID: l.ChapterID, Order: l.Order}
		}
		seen[key] = true
	}
	return nil
}

// Store is a repository.Store kept in memory.
type Store struct {
	mu       sync.Mutex
	st       *state
	failures map[string]error
	now      func() time.Time
	last     time.Time
}

func New() *Store {
	return &Store{st: newState(), failures: map[string]error{}, now: time.Now}
}

// tick returns the write time, strictly after the previous one so rows
// created in a row keep their order. Callers hold mu.
func (s *Store) tick() time.Time {
	now := s.now().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return now
}

// FailOn makes the next call of op return err. Ops are named after the
// repository method, e.g. "chapters.Update", "chapters.UpdateBatch" or
// "lessons.ArchiveActiveByChapters".
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) Repos() repository.Repos {
	return s.repos(&handle{store: s})
}

func (s *Store) WithTx(ctx context.Context, fn func(repository.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.st.clone()
	if err := fn(s.repos(&handle{store: s, tx: snap})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	s.st = snap
	return nil
}

// Events returns the committed outbox contents.
func (s *Store) Events() []model.ContentEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ContentEvent(nil), s.st.events...)
}

func (s *Store) repos(h *handle) repository.Repos {
	return repository.Repos{
		Courses:  &courseRepo{h: h},
		Chapters: &chapterRepo{h: h, siblingTable: chapterSiblings(h)},
		Lessons:  &lessonRepo{h: h, siblingTable: lessonSiblings(h)},
		Events:   &eventRepo{h: h},
	}
}

// handle runs statements against a transaction snapshot, or in autocommit
// mode against the committed state.
type handle struct {
	store *Store
	tx    *state
}

func (h *handle) read(fn func(st *state)) {
	if h.tx != nil {
		fn(h.tx)
		return
	}
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	fn(h.store.st)
}

func (h *handle) write(op string, fn func(st *state, now time.Time) error) error {
	if h.tx == nil {
		h.store.mu.Lock()
		defer h.store.mu.Unlock()
	}
	if err := h.takeFailure(op); err != nil {
		return err
	}

	base := h.tx
	if base == nil {
		base = h.store.st
	}
	working := base.clone()
	if err := fn(working, h.store.tick()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := working.checkOrders(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if h.tx != nil {
		*h.tx = *working
	} else {
		h.store.st = working
	}
	return nil
}

// fail reports an injected failure for a read-only op.
func (h *handle) fail(op string) error {
	if h.tx == nil {
		h.store.mu.Lock()
		defer h.store.mu.Unlock()
	}
	return h.takeFailure(op)
}

func (h *handle) takeFailure(op string) error {
	if err, ok := h.store.failures[op]; ok {
		delete(h.store.failures, op)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

type courseRepo struct {
	h *handle
}

func (r *courseRepo) Create(ctx context.Context, c *model.Course) error {
	return r.h.write("courses.Create", func(st *state, now time.Time) error {
		if _, ok := st.courses[c.ID]; ok {
			return fmt.Errorf("duplicate course id %s", c.ID)
		}
		c.CreatedAt, c.UpdatedAt = now, now
		st.courses[c.ID] = *c
		return nil
	})
}

func (r *courseRepo) GetByID(ctx context.Context, courseID string) (*model.Course, error) {
	if err := r.h.fail("courses.GetByID"); err != nil {
		return nil, err
	}
	var out *model.Course
	r.h.read(func(st *state) {
		if c, ok := st.courses[courseID]; ok {
			out = &c
		}
	})
	return out, nil
}

func (r *courseRepo) GetForShare(ctx context.Context, courseID string) (*model.Course, error) {
	return r.GetByID(ctx, courseID)
}

func (r *courseRepo) GetForUpdate(ctx context.Context, courseID string) (*model.Course, error) {
	return r.GetByID(ctx, courseID)
}

func (r *courseRepo) List(ctx context.Context, f repository.CourseFilter) ([]*model.Course, error) {
	if err := r.h.fail("courses.List"); err != nil {
		return nil, err
	}
	var matched []model.Course
	r.h.read(func(st *state) {
		for _, c := range st.courses {
			if f.InstructorID != "" && c.InstructorID != f.InstructorID {
				continue
			}
			if f.Status != nil && c.Lifecycle.Status() != *f.Status {
				continue
			}
			if !f.IncludeArchived && c.Lifecycle.IsArchived() {
				continue
			}
			matched = append(matched, c)
		}
	})
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	out := []*model.Course{}
	for i := f.Offset; i < len(matched) && len(out) < f.Limit; i++ {
		c := matched[i]
		out = append(out, &c)
	}
	return out, nil
}

func (r *courseRepo) Update(ctx context.Context, c *model.Course) error {
	return r.h.write("courses.Update", func(st *state, now time.Time) error {
		stored, ok := st.courses[c.ID]
		if !ok {
			return fmt.Errorf("course %s does not exist", c.ID)
		}
		stored.Title, stored.Description = c.Title, c.Description
		stored.Lifecycle, stored.UpdatedAt = c.Lifecycle, now
		st.courses[c.ID] = stored
		c.UpdatedAt = now
		return nil
	})
}

type eventRepo struct {
	h *handle
}

func (r *eventRepo) Append(ctx context.Context, ev *model.ContentEvent) error {
	return r.h.write("events.Append", func(st *state, _ time.Time) error {
		st.events = append(st.events, *ev)
		return nil
	})
}

func sortedIDs(ids map[string]bool) []string {
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
