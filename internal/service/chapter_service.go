package service

import (
	"context"

	"coursecatalog/internal/apperr"
	"coursecatalog/internal/metrics"
	"coursecatalog/internal/model"
	"coursecatalog/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ChapterCreate describes a new chapter. A nil Order is auto-assigned.
type ChapterCreate struct {
	CourseID    string
	Title       string
	Description string
	Order       *int
	// Status may only be DRAFT for new chapters; nil means DRAFT.
	Status  *model.Status
	Lessons []LessonCreate
}

// ChapterUpdate is a partial update. Nil fields are left unchanged.
type ChapterUpdate struct {
	Title       *string
	Description *string
	Order       *int
	Status      *model.Status
}

// ChapterService defines the interface for chapter operations
type ChapterService interface {
	Create(ctx context.Context, p model.Principal, in ChapterCreate) (*model.Chapter, error)
	// BulkCreate creates all chapters or none
	BulkCreate(ctx context.Context, p model.Principal, in []ChapterCreate) ([]*model.Chapter, error)
	Update(ctx context.Context, p model.Principal, chapterID string, in ChapterUpdate) (*model.Chapter, error)
	// BulkUpdate applies updates[i] to ids[i], all or nothing
	BulkUpdate(ctx context.Context, p model.Principal, ids []string, updates []ChapterUpdate) ([]*model.Chapter, error)
	// Delete archives the chapter and its active lessons
	Delete(ctx context.Context, p model.Principal, chapterID string) (*model.Chapter, error)
	BulkDelete(ctx context.Context, p model.Principal, ids []string) ([]*model.Chapter, error)
	// Restore brings the chapter back as DRAFT with the lessons its deletion archived
	Restore(ctx context.Context, p model.Principal, chapterID string) (*model.Chapter, error)
	BulkRestore(ctx context.Context, p model.Principal, ids []string) ([]*model.Chapter, error)
	// Reorder makes orderedIDs the leading chapters of the course
	Reorder(ctx context.Context, p model.Principal, courseID string, orderedIDs []string) ([]*model.Chapter, error)
	// Get returns a chapter with its active lessons
	Get(ctx context.Context, p model.Principal, chapterID string) (*model.Chapter, error)
	// List returns the active chapters of a course by order
	List(ctx context.Context, p model.Principal, courseID string) ([]*model.Chapter, error)
}

type chapterService struct {
	contentService
}

// NewChapterService creates a new ChapterService
func NewChapterService(store repository.Store, guard BulkGuard, logger zerolog.Logger) ChapterService {
	return &chapterService{contentService: newContentService("chapter", store, guard, logger)}
}

func (s *chapterService) Create(ctx context.Context, p model.Principal, in ChapterCreate) (ch *model.Chapter, err error) {
	defer func() { err = s.finish("create", err) }()

	var created []*model.Chapter
	err = s.store.WithTx(ctx, func(r repository.Repos) error {
		var txErr error
		created, txErr = s.createChapters(ctx, r, p, []ChapterCreate{in})
		return txErr
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("chapter_id", created[0].ID).Str("course_id", in.CourseID).
		Int("order", created[0].Order).Int("lessons", len(created[0].Lessons)).Msg("Chapter created")
	return created[0], nil
}

func (s *chapterService) BulkCreate(ctx context.Context, p model.Principal, in []ChapterCreate) (chs []*model.Chapter, err error) {
	defer func() { err = s.finish("bulk_create", err) }()

	if err := s.guard.ValidateCreate("chapters", len(in)); err != nil {
		return nil, err
	}
	metrics.BatchSize.WithLabelValues(s.entity, "create").Observe(float64(len(in)))

	err = s.store.WithTx(ctx, func(r repository.Repos) error {
		var txErr error
		chs, txErr = s.createChapters(ctx, r, p, in)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("count", len(chs)).Msg("Chapters created")
	return chs, nil
}

// createChapters validates every chapter and nested lesson, then writes them.
func (s *chapterService) createChapters(ctx context.Context, r repository.Repos, p model.Principal, in []ChapterCreate) ([]*model.Chapter, error) {
	courseIDs := make([]string, len(in))
	for i, c := range in {
		if err := requireTitle("chapter", c.Title); err != nil {
			return nil, err
		}
		if c.Status != nil {
			if err := ValidateTransition(nil, *c.Status); err != nil {
				return nil, err
			}
		}
		courseIDs[i] = c.CourseID
	}
	courseIDs = distinct(courseIDs)
	if _, err := s.authorizeCourses(ctx, r, p, courseIDs); err != nil {
		return nil, err
	}

	policy := NewOrderingPolicy(r.Chapters, "chapter", "course")
	chapters := make([]*model.Chapter, len(in))
	for _, courseID := range courseIDs {
		var (
			idx        []int
			requested  []*int
			candidates []OrderCandidate
		)
		for i, c := range in {
			if c.CourseID != courseID {
				continue
			}
			idx = append(idx, i)
			requested = append(requested, c.Order)
			if c.Order != nil {
				candidates = append(candidates, OrderCandidate{Order: *c.Order})
			}
		}
		if len(in) == 1 && in[0].Order != nil {
			if err := policy.ValidateOrder(ctx, courseID, *in[0].Order); err != nil {
				return nil, err
			}
		} else {
			conflicts, err := policy.ValidateBulkOrders(ctx, courseID, candidates, nil)
			if err != nil {
				return nil, err
			}
			if len(conflicts) > 0 {
				return nil, conflictError(conflicts...)
			}
		}
		orders, err := policy.AssignOrders(ctx, courseID, requested)
		if err != nil {
			return nil, err
		}
		for k, i := range idx {
			chapters[i] = &model.Chapter{
				ID:          uuid.NewString(),
				CourseID:    courseID,
				Title:       in[i].Title,
				Description: in[i].Description,
				Order:       orders[k],
				Lifecycle:   model.Draft(),
			}
		}
	}

	var lessons []*model.Lesson
	for i, c := range in {
		ls, err := planNewLessons(chapters[i].ID, c.Lessons)
		if err != nil {
			return nil, err
		}
		chapters[i].Lessons = ls
		lessons = append(lessons, ls...)
	}

	if len(chapters) == 1 {
		if err := r.Chapters.Create(ctx, chapters[0]); err != nil {
			return nil, orderTaken(err, OrderConflict{ParentKind: "course", ParentID: chapters[0].CourseID, Order: chapters[0].Order})
		}
	} else if err := r.Chapters.CreateBatch(ctx, chapters); err != nil {
		return nil, orderTaken(err, OrderConflict{ParentKind: "course"})
	}
	if len(lessons) > 0 {
		if err := r.Lessons.CreateBatch(ctx, lessons); err != nil {
			return nil, orderTaken(err, OrderConflict{ParentKind: "chapter"})
		}
	}

	for _, courseID := range courseIDs {
		var ids, lessonIDs []string
		for _, ch := range chapters {
			if ch.CourseID != courseID {
				continue
			}
			ids = append(ids, ch.ID)
			for _, l := range ch.Lessons {
				lessonIDs = append(lessonIDs, l.ID)
			}
		}
		if err := s.emit(ctx, r, p, model.EventChaptersCreated, courseID, courseID, ids, lessonIDs); err != nil {
			return nil, err
		}
	}
	return chapters, nil
}

func (s *chapterService) Update(ctx context.Context, p model.Principal, chapterID string, in ChapterUpdate) (ch *model.Chapter, err error) {
	defer func() { err = s.finish("update", err) }()

	var updated []*model.Chapter
	err = s.store.WithTx(ctx, func(r repository.Repos) error {
		var txErr error
		updated, txErr = s.updateChapters(ctx, r, p, []string{chapterID}, []ChapterUpdate{in})
		return txErr
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("chapter_id", chapterID).Str("status", string(updated[0].Lifecycle.Status())).
		Int("order", updated[0].Order).Msg("Chapter updated")
	return updated[0], nil
}

func (s *chapterService) BulkUpdate(ctx context.Context, p model.Principal, ids []string, updates []ChapterUpdate) (chs []*model.Chapter, err error) {
	defer func() { err = s.finish("bulk_update", err) }()

	if err := s.guard.ValidateParallel(len(ids), len(updates)); err != nil {
		return nil, err
	}
	if err := s.guard.ValidateIDs("chapters", ids); err != nil {
		return nil, err
	}
	metrics.BatchSize.WithLabelValues(s.entity, "update").Observe(float64(len(ids)))

	err = s.store.WithTx(ctx, func(r repository.Repos) error {
		var txErr error
		chs, txErr = s.updateChapters(ctx, r, p, ids, updates)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("count", len(chs)).Msg("Chapters updated")
	return chs, nil
}

// lockChapters locks the chapters and returns them in ids order.
func lockChapters(ctx context.Context, r repository.Repos, ids []string) ([]*model.Chapter, error) {
	found, err := r.Chapters.GetForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Chapter, len(found))
	for _, ch := range found {
		byID[ch.ID] = ch
	}
	out := make([]*model.Chapter, len(ids))
	for i, id := range ids {
		ch, ok := byID[id]
		if !ok {
			return nil, apperr.NotFound("Chapter %s not found", id)
		}
		out[i] = ch
	}
	return out, nil
}

func chapterCourseIDs(chs []*model.Chapter) []string {
	ids := make([]string, len(chs))
	for i, ch := range chs {
		ids[i] = ch.CourseID
	}
	return distinct(ids)
}

func (s *chapterService) updateChapters(ctx context.Context, r repository.Repos, p model.Principal, ids []string, updates []ChapterUpdate) ([]*model.Chapter, error) {
	chs, err := lockChapters(ctx, r, ids)
	if err != nil {
		return nil, err
	}
	courseIDs := chapterCourseIDs(chs)
	if _, err := s.authorizeCourses(ctx, r, p, courseIDs); err != nil {
		return nil, err
	}

	now := s.now()
	plans := make([]childPlan, len(chs))
	for i, ch := range chs {
		in := updates[i]
		if in.Title != nil {
			if err := requireTitle("chapter", *in.Title); err != nil {
				return nil, err
			}
		}
		edits := in.Title != nil || in.Description != nil
		pl, err := planChildUpdate("chapter", ch.ID, ch.Lifecycle, ch.Order, in.Order, in.Status, edits, now)
		if err != nil {
			return nil, err
		}
		plans[i] = pl
	}

	policy := NewOrderingPolicy(r.Chapters, "chapter", "course")
	if len(chs) == 1 {
		if plans[0].needsSlot {
			if err := policy.ValidateOrder(ctx, chs[0].CourseID, plans[0].order, chs[0].ID); err != nil {
				return nil, err
			}
		}
	} else {
		for _, courseID := range courseIDs {
			var (
				candidates []OrderCandidate
				vacating   []string
			)
			for i, ch := range chs {
				if ch.CourseID != courseID {
					continue
				}
				if plans[i].vacates {
					vacating = append(vacating, ch.ID)
				}
				if plans[i].needsSlot {
					candidates = append(candidates, OrderCandidate{ID: ch.ID, Order: plans[i].order})
				}
			}
			conflicts, err := policy.ValidateBulkOrders(ctx, courseID, candidates, vacating)
			if err != nil {
				return nil, err
			}
			if len(conflicts) > 0 {
				return nil, conflictError(conflicts...)
			}
		}
	}

	var archivedIDs, restoredIDs []string
	for i, ch := range chs {
		in := updates[i]
		if in.Title != nil {
			ch.Title = *in.Title
		}
		if in.Description != nil {
			ch.Description = *in.Description
		}
		ch.Order = plans[i].order
		ch.Lifecycle = plans[i].lifecycle
		if plans[i].archiving {
			archivedIDs = append(archivedIDs, ch.ID)
		}
		if plans[i].restoring {
			restoredIDs = append(restoredIDs, ch.ID)
		}
	}

	if len(chs) == 1 {
		if err := r.Chapters.Update(ctx, chs[0]); err != nil {
			return nil, orderTaken(err, OrderConflict{ParentKind: "course", ParentID: chs[0].CourseID, Order: chs[0].Order})
		}
	} else if err := r.Chapters.UpdateBatch(ctx, chs); err != nil {
		return nil, orderTaken(err, OrderConflict{ParentKind: "course"})
	}

	archivedLessons, restoredLessons, err := s.cascade.CascadeLessons(ctx, r, archivedIDs, restoredIDs, now)
	if err != nil {
		return nil, err
	}
	if len(archivedIDs) > 0 {
		metrics.CascadedLessons.WithLabelValues("archive").Observe(float64(archivedLessons.Count()))
	}
	if len(restoredIDs) > 0 {
		metrics.CascadedLessons.WithLabelValues("restore").Observe(float64(restoredLessons.Count()))
	}

	if err := s.emitPerCourse(ctx, r, p, model.EventChaptersUpdated, chs, archivedLessons, restoredLessons); err != nil {
		return nil, err
	}
	return chs, nil
}

func (s *chapterService) Delete(ctx context.Context, p model.Principal, chapterID string) (ch *model.Chapter, err error) {
	defer func() { err = s.finish("delete", err) }()

	chs, err := s.deleteChapters(ctx, p, []string{chapterID})
	if err != nil {
		return nil, err
	}
	return chs[0], nil
}

func (s *chapterService) BulkDelete(ctx context.Context, p model.Principal, ids []string) (chs []*model.Chapter, err error) {
	defer func() { err = s.finish("bulk_delete", err) }()

	if err := s.guard.ValidateIDs("chapters", ids); err != nil {
		return nil, err
	}
	metrics.BatchSize.WithLabelValues(s.entity, "delete").Observe(float64(len(ids)))
	return s.deleteChapters(ctx, p, ids)
}

func (s *chapterService) deleteChapters(ctx context.Context, p model.Principal, ids []string) ([]*model.Chapter, error) {
	var (
		chs      []*model.Chapter
		cascaded repository.CascadedLessons
	)
	err := s.store.WithTx(ctx, func(r repository.Repos) error {
		var err error
		if chs, err = lockChapters(ctx, r, ids); err != nil {
			return err
		}
		courseIDs := chapterCourseIDs(chs)
		if _, err := s.authorizeCourses(ctx, r, p, courseIDs); err != nil {
			return err
		}
		if cascaded, err = s.cascade.DeleteChapters(ctx, r, chs, s.now()); err != nil {
			return err
		}
		return s.emitPerCourse(ctx, r, p, model.EventChaptersDeleted, chs, cascaded)
	})
	if err != nil {
		return nil, err
	}
	metrics.CascadedLessons.WithLabelValues("archive").Observe(float64(cascaded.Count()))
	s.logger.Info().Strs("chapter_ids", ids).Int("cascaded_lessons", cascaded.Count()).Msg("Chapters deleted")
	return chs, nil
}

func (s *chapterService) Restore(ctx context.Context, p model.Principal, chapterID string) (ch *model.Chapter, err error) {
	defer func() { err = s.finish("restore", err) }()

	chs, err := s.restoreChapters(ctx, p, []string{chapterID})
	if err != nil {
		return nil, err
	}
	return chs[0], nil
}

func (s *chapterService) BulkRestore(ctx context.Context, p model.Principal, ids []string) (chs []*model.Chapter, err error) {
	defer func() { err = s.finish("bulk_restore", err) }()

	if err := s.guard.ValidateIDs("chapters", ids); err != nil {
		return nil, err
	}
	metrics.BatchSize.WithLabelValues(s.entity, "restore").Observe(float64(len(ids)))
	return s.restoreChapters(ctx, p, ids)
}

func (s *chapterService) restoreChapters(ctx context.Context, p model.Principal, ids []string) ([]*model.Chapter, error) {
	var (
		chs      []*model.Chapter
		cascaded repository.CascadedLessons
	)
	err := s.store.WithTx(ctx, func(r repository.Repos) error {
		var err error
		if chs, err = lockChapters(ctx, r, ids); err != nil {
			return err
		}
		courses, err := s.authorizeCourses(ctx, r, p, chapterCourseIDs(chs))
		if err != nil {
			return err
		}
		if cascaded, err = s.cascade.RestoreChapters(ctx, r, chs, courses); err != nil {
			return err
		}
		return s.emitPerCourse(ctx, r, p, model.EventChaptersRestored, chs, cascaded)
	})
	if err != nil {
		return nil, err
	}
	metrics.CascadedLessons.WithLabelValues("restore").Observe(float64(cascaded.Count()))
	s.logger.Info().Strs("chapter_ids", ids).Int("cascaded_lessons", cascaded.Count()).Msg("Chapters restored")
	return chs, nil
}

// emitPerCourse appends one event per course touched by chs. Each event
// carries only the cascaded lessons of that course's chapters.
func (s *chapterService) emitPerCourse(ctx context.Context, r repository.Repos, p model.Principal, typ model.ContentEventType, chs []*model.Chapter, cascaded ...repository.CascadedLessons) error {
	for _, courseID := range chapterCourseIDs(chs) {
		var ids []string
		for _, ch := range chs {
			if ch.CourseID == courseID {
				ids = append(ids, ch.ID)
			}
		}
		var lessonIDs []string
		for _, c := range cascaded {
			lessonIDs = append(lessonIDs, c.Under(ids...)...)
		}
		if err := s.emit(ctx, r, p, typ, courseID, courseID, ids, lessonIDs); err != nil {
			return err
		}
	}
	return nil
}

func (s *chapterService) Reorder(ctx context.Context, p model.Principal, courseID string, orderedIDs []string) (chs []*model.Chapter, err error) {
	defer func() { err = s.finish("reorder", err) }()

	err = s.store.WithTx(ctx, func(r repository.Repos) error {
		if _, err := s.authorizeCourses(ctx, r, p, []string{courseID}); err != nil {
			return err
		}
		policy := NewOrderingPolicy(r.Chapters, "chapter", "course")
		final, err := policy.ReorderChildren(ctx, courseID, orderedIDs)
		if err != nil {
			return err
		}
		if err := s.emit(ctx, r, p, model.EventChaptersReordered, courseID, courseID, final, nil); err != nil {
			return err
		}
		chs, err = r.Chapters.ListActiveByCourse(ctx, courseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("course_id", courseID).Int("count", len(chs)).Msg("Chapters reordered")
	return chs, nil
}

func (s *chapterService) Get(ctx context.Context, p model.Principal, chapterID string) (ch *model.Chapter, err error) {
	defer func() { err = s.finish("get", err) }()

	r := s.store.Repos()
	ch, err = r.Chapters.GetByID(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, apperr.NotFound("Chapter %s not found", chapterID)
	}
	course, err := r.Courses.GetByID(ctx, ch.CourseID)
	if err != nil {
		return nil, err
	}
	if course == nil || !s.gate.CanView(p, course, ch.Lifecycle) {
		return nil, apperr.NotFound("Chapter %s not found", chapterID)
	}
	lessons, err := r.Lessons.ListActiveByChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	ch.Lessons = []*model.Lesson{}
	for _, l := range lessons {
		if s.gate.CanView(p, course, l.Lifecycle) {
			ch.Lessons = append(ch.Lessons, l)
		}
	}
	return ch, nil
}

func (s *chapterService) List(ctx context.Context, p model.Principal, courseID string) (chs []*model.Chapter, err error) {
	defer func() { err = s.finish("list", err) }()

	r := s.store.Repos()
	course, err := r.Courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, apperr.NotFound("Course %s not found", courseID)
	}
	all, err := r.Chapters.ListActiveByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	chs = []*model.Chapter{}
	for _, ch := range all {
		if s.gate.CanView(p, course, ch.Lifecycle) {
			chs = append(chs, ch)
		}
	}
	return chs, nil
}

// planNewLessons builds the lessons nested in a chapter create request. The
// chapter is new, so only the request itself can hold conflicting orders.
func planNewLessons(chapterID string, in []LessonCreate) ([]*model.Lesson, error) {
	taken := map[int]bool{}
	for _, l := range in {
		if l.Order == nil {
			continue
		}
		if *l.Order < 1 {
			return nil, apperr.InvalidRequest("Order number must be at least 1, got %d", *l.Order)
		}
		if taken[*l.Order] {
			return nil, conflictError(OrderConflict{Kind: IntraBatchDuplicate, ParentKind: "chapter", ParentID: chapterID, Order: *l.Order})
		}
		taken[*l.Order] = true
	}

	lessons := make([]*model.Lesson, 0, len(in))
	next := 1
	for _, l := range in {
		if err := validateLessonCreate(l); err != nil {
			return nil, err
		}
		order := 0
		if l.Order != nil {
			order = *l.Order
		} else {
			for taken[next] {
				next++
			}
			order = next
			taken[next] = true
		}
		lessons = append(lessons, &model.Lesson{
			ID:        uuid.NewString(),
			ChapterID: chapterID,
			Title:     l.Title,
			Content:   l.Content,
			Type:      l.Type,
			Order:     order,
			Lifecycle: model.Draft(),
		})
	}
	return lessons, nil
}
