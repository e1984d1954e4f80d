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

// LessonCreate describes a new lesson. ChapterID is ignored for lessons
// nested in a chapter create request.
type LessonCreate struct {
	ChapterID string
	Title     string
	Content   string
	Type      model.LessonType
	Order     *int
	Status    *model.Status
}

// LessonUpdate is a partial update. Nil fields are left unchanged.
type LessonUpdate struct {
	Title   *string
	Content *string
	Type    *model.LessonType
	Order   *int
	Status  *model.Status
}

func validateLessonCreate(in LessonCreate) error {
	if err := requireTitle("lesson", in.Title); err != nil {
		return err
	}
	if _, err := model.ParseLessonType(string(in.Type)); err != nil {
		return apperr.InvalidRequest("Invalid lesson type %q", in.Type)
	}
	if in.Status != nil {
		return ValidateTransition(nil, *in.Status)
	}
	return nil
}

// LessonService defines the interface for lesson operations
type LessonService interface {
	Create(ctx context.Context, p model.Principal, in LessonCreate) (*model.Lesson, error)
	BulkCreate(ctx context.Context, p model.Principal, in []LessonCreate) ([]*model.Lesson, error)
	Update(ctx context.Context, p model.Principal, lessonID string, in LessonUpdate) (*model.Lesson, error)
	BulkUpdate(ctx context.Context, p model.Principal, ids []string, updates []LessonUpdate) ([]*model.Lesson, error)
	Delete(ctx context.Context, p model.Principal, lessonID string) (*model.Lesson, error)
	BulkDelete(ctx context.Context, p model.Principal, ids []string) ([]*model.Lesson, error)
	Restore(ctx context.Context, p model.Principal, lessonID string) (*model.Lesson, error)
	BulkRestore(ctx context.Context, p model.Principal, ids []string) ([]*model.Lesson, error)
	// Reorder makes orderedIDs the leading lessons of the chapter
	Reorder(ctx context.Context, p model.Principal, chapterID string, orderedIDs []string) ([]*model.Lesson, error)
	Get(ctx context.Context, p model.Principal, lessonID string) (*model.Lesson, error)
	// List returns the active lessons of a chapter by order
	List(ctx context.Context, p model.Principal, chapterID string) ([]*model.Lesson, error)
}

type lessonService struct {
	contentService
}

// NewLessonService creates a new LessonService
func NewLessonService(store repository.Store, guard BulkGuard, logger zerolog.Logger) LessonService {
	return &lessonService{contentService: newContentService("lesson", store, guard, logger)}
}

// lessonScope is the locked parent chain of a set of lessons.
type lessonScope struct {
	chapters map[string]*model.Chapter
	// chapterIDs keeps first-seen order for deterministic events.
	chapterIDs []string
}

// authorizeChapters share-locks the chapters, then authorizes their courses.
func (s *lessonService) authorizeChapters(ctx context.Context, r repository.Repos, p model.Principal, chapterIDs []string) (*lessonScope, error) {
	scope := &lessonScope{chapters: map[string]*model.Chapter{}, chapterIDs: distinct(chapterIDs)}
	var courseIDs []string
	for _, id := range scope.chapterIDs {
		ch, err := r.Chapters.GetForShare(ctx, id)
		if err != nil {
			return nil, err
		}
		if ch == nil {
			return nil, apperr.NotFound("Chapter %s not found", id)
		}
		scope.chapters[id] = ch
		courseIDs = append(courseIDs, ch.CourseID)
	}
	if _, err := s.authorizeCourses(ctx, r, p, distinct(courseIDs)); err != nil {
		return nil, err
	}
	return scope, nil
}

func requireActiveChapter(ch *model.Chapter) error {
	if ch.Lifecycle.IsArchived() {
		return apperr.InvalidRequest("Chapter %s is archived", ch.ID)
	}
	return nil
}

func (s *lessonService) Create(ctx context.Context, p model.Principal, in LessonCreate) (l *model.Lesson, err error) {
	defer func() { err = s.finish("create", err) }()

	var created []*model.Lesson
	err = s.store.WithTx(ctx, func(r repository.Repos) error {
		var txErr error
		created, txErr = s.createLessons(ctx, r, p, []LessonCreate{in})
		return txErr
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("lesson_id", created[0].ID).Str("chapter_id", in.ChapterID).
		Int("order", created[0].Order).Msg("Lesson created")
	return created[0], nil
}

func (s *lessonService) BulkCreate(ctx context.Context, p model.Principal, in []LessonCreate) (ls []*model.Lesson, err error) {
	defer func() { err = s.finish("bulk_create", err) }()

	if err := s.guard.ValidateCreate("lessons", len(in)); err != nil {
		return nil, err
	}
	metrics.BatchSize.WithLabelValues(s.entity, "create").Observe(float64(len(in)))

	err = s.store.WithTx(ctx, func(r repository.Repos) error {
		var txErr error
		ls, txErr = s.createLessons(ctx, r, p, in)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("count", len(ls)).Msg("Lessons created")
	return ls, nil
}

func (s *lessonService) createLessons(ctx context.Context, r repository.Repos, p model.Principal, in []LessonCreate) ([]*model.Lesson, error) {
	chapterIDs := make([]string, len(in))
	for i, l := range in {
		if err := validateLessonCreate(l); err != nil {
			return nil, err
		}
		chapterIDs[i] = l.ChapterID
	}
	scope, err := s.authorizeChapters(ctx, r, p, chapterIDs)
	if err != nil {
		return nil, err
	}

	policy := NewOrderingPolicy(r.Lessons, "lesson", "chapter")
	lessons := make([]*model.Lesson, len(in))
	for _, chapterID := range scope.chapterIDs {
		if err := requireActiveChapter(scope.chapters[chapterID]); err != nil {
			return nil, err
		}
		var (
			idx        []int
			requested  []*int
			candidates []OrderCandidate
		)
		for i, l := range in {
			if l.ChapterID != chapterID {
				continue
			}
			idx = append(idx, i)
			requested = append(requested, l.Order)
			if l.Order != nil {
				candidates = append(candidates, OrderCandidate{Order: *l.Order})
			}
		}
		if len(in) == 1 && in[0].Order != nil {
			if err := policy.ValidateOrder(ctx, chapterID, *in[0].Order); err != nil {
				return nil, err
			}
		} else {
			conflicts, err := policy.ValidateBulkOrders(ctx, chapterID, candidates, nil)
			if err != nil {
				return nil, err
			}
			if len(conflicts) > 0 {
				return nil, conflictError(conflicts...)
			}
		}
		orders, err := policy.AssignOrders(ctx, chapterID, requested)
		if err != nil {
			return nil, err
		}
		for k, i := range idx {
			lessons[i] = &model.Lesson{
				ID:        uuid.NewString(),
				ChapterID: chapterID,
				Title:     in[i].Title,
				Content:   in[i].Content,
				Type:      in[i].Type,
				Order:     orders[k],
				Lifecycle: model.Draft(),
			}
		}
	}

	if len(lessons) == 1 {
		if err := r.Lessons.Create(ctx, lessons[0]); err != nil {
			return nil, orderTaken(err, OrderConflict{ParentKind: "chapter", ParentID: lessons[0].ChapterID, Order: lessons[0].Order})
		}
	} else if err := r.Lessons.CreateBatch(ctx, lessons); err != nil {
		return nil, orderTaken(err, OrderConflict{ParentKind: "chapter"})
	}
	if err := s.emitPerChapter(ctx, r, p, model.EventLessonsCreated, scope, lessons); err != nil {
		return nil, err
	}
	return lessons, nil
}

func (s *lessonService) emitPerChapter(ctx context.Context, r repository.Repos, p model.Principal, typ model.ContentEventType, scope *lessonScope, ls []*model.Lesson) error {
	for _, chapterID := range scope.chapterIDs {
		var ids []string
		for _, l := range ls {
			if l.ChapterID == chapterID {
				ids = append(ids, l.ID)
			}
		}
		if len(ids) == 0 {
			continue
		}
		courseID := scope.chapters[chapterID].CourseID
		if err := s.emit(ctx, r, p, typ, courseID, chapterID, ids, nil); err != nil {
			return err
		}
	}
	return nil
}

// lockLessons locks the lessons and returns them in ids order.
func lockLessons(ctx context.Context, r repository.Repos, ids []string) ([]*model.Lesson, error) {
	found, err := r.Lessons.GetForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Lesson, len(found))
	for _, l := range found {
		byID[l.ID] = l
	}
	out := make([]*model.Lesson, len(ids))
	for i, id := range ids {
		l, ok := byID[id]
		if !ok {
			return nil, apperr.NotFound("Lesson %s not found", id)
		}
		out[i] = l
	}
	return out, nil
}

func lessonChapterIDs(ls []*model.Lesson) []string {
	ids := make([]string, len(ls))
	for i, l := range ls {
		ids[i] = l.ChapterID
	}
	return ids
}

func (s *lessonService) Update(ctx context.Context, p model.Principal, lessonID string, in LessonUpdate) (l *model.Lesson, err error) {
	defer func() { err = s.finish("update", err) }()

	var updated []*model.Lesson
	err = s.store.WithTx(ctx, func(r repository.Repos) error {
		var txErr error
		updated, txErr = s.updateLessons(ctx, r, p, []string{lessonID}, []LessonUpdate{in})
		return txErr
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("lesson_id", lessonID).Str("status", string(updated[0].Lifecycle.Status())).
		Int("order", updated[0].Order).Msg("Lesson updated")
	return updated[0], nil
}

func (s *lessonService) BulkUpdate(ctx context.Context, p model.Principal, ids []string, updates []LessonUpdate) (ls []*model.Lesson, err error) {
	defer func() { err = s.finish("bulk_update", err) }()

	if err := s.guard.ValidateParallel(len(ids), len(updates)); err != nil {
		return nil, err
	}
	if err := s.guard.ValidateIDs("lessons", ids); err != nil {
		return nil, err
	}
	metrics.BatchSize.WithLabelValues(s.entity, "update").Observe(float64(len(ids)))

	err = s.store.WithTx(ctx, func(r repository.Repos) error {
		var txErr error
		ls, txErr = s.updateLessons(ctx, r, p, ids, updates)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("count", len(ls)).Msg("Lessons updated")
	return ls, nil
}

func (s *lessonService) updateLessons(ctx context.Context, r repository.Repos, p model.Principal, ids []string, updates []LessonUpdate) ([]*model.Lesson, error) {
	ls, err := lockLessons(ctx, r, ids)
	if err != nil {
		return nil, err
	}
	scope, err := s.authorizeChapters(ctx, r, p, lessonChapterIDs(ls))
	if err != nil {
		return nil, err
	}

	now := s.now()
	plans := make([]childPlan, len(ls))
	for i, l := range ls {
		in := updates[i]
		if in.Title != nil {
			if err := requireTitle("lesson", *in.Title); err != nil {
				return nil, err
			}
		}
		if in.Type != nil {
			if _, err := model.ParseLessonType(string(*in.Type)); err != nil {
				return nil, apperr.InvalidRequest("Invalid lesson type %q", *in.Type)
			}
		}
		edits := in.Title != nil || in.Content != nil || in.Type != nil
		pl, err := planChildUpdate("lesson", l.ID, l.Lifecycle, l.Order, in.Order, in.Status, edits, now)
		if err != nil {
			return nil, err
		}
		if pl.restoring {
			if err := requireActiveChapter(scope.chapters[l.ChapterID]); err != nil {
				return nil, err
			}
		}
		plans[i] = pl
	}

	policy := NewOrderingPolicy(r.Lessons, "lesson", "chapter")
	if len(ls) == 1 {
		if plans[0].needsSlot {
			if err := policy.ValidateOrder(ctx, ls[0].ChapterID, plans[0].order, ls[0].ID); err != nil {
				return nil, err
			}
		}
	} else {
		for _, chapterID := range scope.chapterIDs {
			var (
				candidates []OrderCandidate
				vacating   []string
			)
			for i, l := range ls {
				if l.ChapterID != chapterID {
					continue
				}
				if plans[i].vacates {
					vacating = append(vacating, l.ID)
				}
				if plans[i].needsSlot {
					candidates = append(candidates, OrderCandidate{ID: l.ID, Order: plans[i].order})
				}
			}
			conflicts, err := policy.ValidateBulkOrders(ctx, chapterID, candidates, vacating)
			if err != nil {
				return nil, err
			}
			if len(conflicts) > 0 {
				return nil, conflictError(conflicts...)
			}
		}
	}

	for i, l := range ls {
		in := updates[i]
		if in.Title != nil {
			l.Title = *in.Title
		}
		if in.Content != nil {
			l.Content = *in.Content
		}
		if in.Type != nil {
			l.Type = *in.Type
		}
		l.Order = plans[i].order
		l.Lifecycle = plans[i].lifecycle
	}

	if len(ls) == 1 {
		if err := r.Lessons.Update(ctx, ls[0]); err != nil {
			return nil, orderTaken(err, OrderConflict{ParentKind: "chapter", ParentID: ls[0].ChapterID, Order: ls[0].Order})
		}
	} else if err := r.Lessons.UpdateBatch(ctx, ls); err != nil {
		return nil, orderTaken(err, OrderConflict{ParentKind: "chapter"})
	}
	if err := s.emitPerChapter(ctx, r, p, model.EventLessonsUpdated, scope, ls); err != nil {
		return nil, err
	}
	return ls, nil
}

func (s *lessonService) Delete(ctx context.Context, p model.Principal, lessonID string) (l *model.Lesson, err error) {
	defer func() { err = s.finish("delete", err) }()

	ls, err := s.deleteLessons(ctx, p, []string{lessonID})
	if err != nil {
		return nil, err
	}
	return ls[0], nil
}

func (s *lessonService) BulkDelete(ctx context.Context, p model.Principal, ids []string) (ls []*model.Lesson, err error) {
	defer func() { err = s.finish("bulk_delete", err) }()

	if err := s.guard.ValidateIDs("lessons", ids); err != nil {
		return nil, err
	}
	metrics.BatchSize.WithLabelValues(s.entity, "delete").Observe(float64(len(ids)))
	return s.deleteLessons(ctx, p, ids)
}

// deleteLessons archives lessons directly. Their chapter restore will not
// bring them back.
func (s *lessonService) deleteLessons(ctx context.Context, p model.Principal, ids []string) ([]*model.Lesson, error) {
	var ls []*model.Lesson
	err := s.store.WithTx(ctx, func(r repository.Repos) error {
		var err error
		if ls, err = lockLessons(ctx, r, ids); err != nil {
			return err
		}
		scope, err := s.authorizeChapters(ctx, r, p, lessonChapterIDs(ls))
		if err != nil {
			return err
		}
		for _, l := range ls {
			if l.Lifecycle.IsArchived() {
				return apperr.InvalidRequest("Lesson %s is already deleted", l.ID)
			}
		}
		lc := model.Archived(s.now(), model.CauseDirect)
		if err := r.Lessons.SetLifecycle(ctx, ids, lc); err != nil {
			return err
		}
		for _, l := range ls {
			l.Lifecycle = lc
		}
		return s.emitPerChapter(ctx, r, p, model.EventLessonsDeleted, scope, ls)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Strs("lesson_ids", ids).Msg("Lessons deleted")
	return ls, nil
}

func (s *lessonService) Restore(ctx context.Context, p model.Principal, lessonID string) (l *model.Lesson, err error) {
	defer func() { err = s.finish("restore", err) }()

	ls, err := s.restoreLessons(ctx, p, []string{lessonID})
	if err != nil {
		return nil, err
	}
	return ls[0], nil
}

func (s *lessonService) BulkRestore(ctx context.Context, p model.Principal, ids []string) (ls []*model.Lesson, err error) {
	defer func() { err = s.finish("bulk_restore", err) }()

	if err := s.guard.ValidateIDs("lessons", ids); err != nil {
		return nil, err
	}
	metrics.BatchSize.WithLabelValues(s.entity, "restore").Observe(float64(len(ids)))
	return s.restoreLessons(ctx, p, ids)
}

func (s *lessonService) restoreLessons(ctx context.Context, p model.Principal, ids []string) ([]*model.Lesson, error) {
	var ls []*model.Lesson
	err := s.store.WithTx(ctx, func(r repository.Repos) error {
		var err error
		if ls, err = lockLessons(ctx, r, ids); err != nil {
			return err
		}
		scope, err := s.authorizeChapters(ctx, r, p, lessonChapterIDs(ls))
		if err != nil {
			return err
		}
		byChapter := map[string][]OrderCandidate{}
		for _, l := range ls {
			if l.Lifecycle.IsActive() {
				return apperr.InvalidRequest("Lesson %s is not deleted", l.ID)
			}
			if err := requireActiveChapter(scope.chapters[l.ChapterID]); err != nil {
				return err
			}
			byChapter[l.ChapterID] = append(byChapter[l.ChapterID], OrderCandidate{ID: l.ID, Order: l.Order})
		}
		policy := NewOrderingPolicy(r.Lessons, "lesson", "chapter")
		for _, chapterID := range scope.chapterIDs {
			conflicts, err := policy.ValidateBulkOrders(ctx, chapterID, byChapter[chapterID], nil)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				return conflictError(conflicts...)
			}
		}
		if err := r.Lessons.SetLifecycle(ctx, ids, model.Draft()); err != nil {
			return err
		}
		for _, l := range ls {
			l.Lifecycle = model.Draft()
		}
		return s.emitPerChapter(ctx, r, p, model.EventLessonsRestored, scope, ls)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Strs("lesson_ids", ids).Msg("Lessons restored")
	return ls, nil
}

func (s *lessonService) Reorder(ctx context.Context, p model.Principal, chapterID string, orderedIDs []string) (ls []*model.Lesson, err error) {
	defer func() { err = s.finish("reorder", err) }()

	err = s.store.WithTx(ctx, func(r repository.Repos) error {
		scope, err := s.authorizeChapters(ctx, r, p, []string{chapterID})
		if err != nil {
			return err
		}
		chapter := scope.chapters[chapterID]
		if err := requireActiveChapter(chapter); err != nil {
			return err
		}
		policy := NewOrderingPolicy(r.Lessons, "lesson", "chapter")
		final, err := policy.ReorderChildren(ctx, chapterID, orderedIDs)
		if err != nil {
			return err
		}
		if err := s.emit(ctx, r, p, model.EventLessonsReordered, chapter.CourseID, chapterID, final, nil); err != nil {
			return err
		}
		ls, err = r.Lessons.ListActiveByChapter(ctx, chapterID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("chapter_id", chapterID).Int("count", len(ls)).Msg("Lessons reordered")
	return ls, nil
}

// viewable loads the chapter and course above a lesson. Both are nil when
// either is missing or the principal may not see the chapter.
func (s *lessonService) viewable(ctx context.Context, r repository.Repos, p model.Principal, chapterID string) (*model.Chapter, *model.Course, error) {
	ch, err := r.Chapters.GetByID(ctx, chapterID)
	if err != nil || ch == nil {
		return nil, nil, err
	}
	course, err := r.Courses.GetByID(ctx, ch.CourseID)
	if err != nil || course == nil {
		return nil, nil, err
	}
	if !s.gate.CanView(p, course, ch.Lifecycle) {
		return nil, nil, nil
	}
	return ch, course, nil
}

func (s *lessonService) Get(ctx context.Context, p model.Principal, lessonID string) (l *model.Lesson, err error) {
	defer func() { err = s.finish("get", err) }()

	r := s.store.Repos()
	l, err = r.Lessons.GetByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, apperr.NotFound("Lesson %s not found", lessonID)
	}
	_, course, err := s.viewable(ctx, r, p, l.ChapterID)
	if err != nil {
		return nil, err
	}
	if course == nil || !s.gate.CanView(p, course, l.Lifecycle) {
		return nil, apperr.NotFound("Lesson %s not found", lessonID)
	}
	return l, nil
}

func (s *lessonService) List(ctx context.Context, p model.Principal, chapterID string) (ls []*model.Lesson, err error) {
	defer func() { err = s.finish("list", err) }()

	r := s.store.Repos()
	_, course, err := s.viewable(ctx, r, p, chapterID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, apperr.NotFound("Chapter %s not found", chapterID)
	}
	all, err := r.Lessons.ListActiveByChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	ls = []*model.Lesson{}
	for _, l := range all {
		if s.gate.CanView(p, course, l.Lifecycle) {
			ls = append(ls, l)
		}
	}
	return ls, nil
}
