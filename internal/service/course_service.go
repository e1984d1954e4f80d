package service

import (
	"context"

	"coursecatalog/internal/apperr"
	"coursecatalog/internal/model"
	"coursecatalog/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CourseCreate describes a new course. The creator becomes its instructor.
type CourseCreate struct {
	Title       string
	Description string
}

// CourseUpdate is a partial update. Nil fields are left unchanged.
type CourseUpdate struct {
	Title       *string
	Description *string
	Status      *model.Status
}

// Listing limits. Latest has no offset, so it is capped lower.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	MaxLatestLimit   = 50
)

// Page is a limit and offset into a newest-first listing. A zero Limit
// means DefaultPageLimit.
type Page struct {
	Limit  int
	Offset int
}

func (pg Page) normalize(ceiling int) (Page, error) {
	if pg.Limit == 0 {
		pg.Limit = min(DefaultPageLimit, ceiling)
	}
	if pg.Limit < 1 || pg.Limit > ceiling {
		return pg, apperr.InvalidRequest("Limit must be between 1 and %d, got %d", ceiling, pg.Limit)
	}
	if pg.Offset < 0 {
		return pg, apperr.InvalidRequest("Offset must not be negative, got %d", pg.Offset)
	}
	return pg, nil
}

// CourseService defines the interface for course operations
type CourseService interface {
	Create(ctx context.Context, p model.Principal, in CourseCreate) (*model.Course, error)
	// Get retrieves a course visible to the principal
	Get(ctx context.Context, p model.Principal, courseID string) (*model.Course, error)
	// Update edits a course. Archiving a course freezes its content without
	// touching chapter or lesson lifecycles.
	Update(ctx context.Context, p model.Principal, courseID string, in CourseUpdate) (*model.Course, error)
	// ListByInstructor lists the courses an instructor teaches. Other
	// principals see only the published ones and cannot include archived.
	ListByInstructor(ctx context.Context, p model.Principal, instructorID string, includeArchived bool, page Page) ([]*model.Course, error)
	// ListByStatus lists courses in one status. Only PUBLISHED lists every
	// course for non-admins; other statuses are narrowed to their own.
	ListByStatus(ctx context.Context, p model.Principal, status model.Status, page Page) ([]*model.Course, error)
	// Latest returns up to limit of the newest active courses the principal
	// can view.
	Latest(ctx context.Context, p model.Principal, limit int) ([]*model.Course, error)
}

// courseService is the implementation of CourseService
type courseService struct {
	contentService
}

// NewCourseService creates a new CourseService
func NewCourseService(store repository.Store, logger zerolog.Logger) CourseService {
	return &courseService{contentService: newContentService("course", store, BulkGuard{}, logger)}
}

func (s *courseService) Create(ctx context.Context, p model.Principal, in CourseCreate) (c *model.Course, err error) {
	defer func() { err = s.finish("create", err) }()

	if !p.Has(model.CapAuthorCourses) {
		return nil, apperr.Forbidden("You do not have permission to create courses")
	}
	if err := requireTitle("course", in.Title); err != nil {
		return nil, err
	}
	c = &model.Course{
		ID:           uuid.NewString(),
		InstructorID: p.UserID,
		Title:        in.Title,
		Description:  in.Description,
		Lifecycle:    model.Draft(),
	}
	err = s.store.WithTx(ctx, func(r repository.Repos) error {
		if err := r.Courses.Create(ctx, c); err != nil {
			return err
		}
		return s.emit(ctx, r, p, model.EventCourseCreated, c.ID, "", []string{c.ID}, nil)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("course_id", c.ID).Str("instructor_id", c.InstructorID).Msg("Course created")
	return c, nil
}

func (s *courseService) Get(ctx context.Context, p model.Principal, courseID string) (c *model.Course, err error) {
	defer func() { err = s.finish("get", err) }()

	c, err = s.store.Repos().Courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if c == nil || !s.gate.CanView(p, c, c.Lifecycle) {
		return nil, apperr.NotFound("Course %s not found", courseID)
	}
	return c, nil
}

func (s *courseService) Update(ctx context.Context, p model.Principal, courseID string, in CourseUpdate) (c *model.Course, err error) {
	defer func() { err = s.finish("update", err) }()

	err = s.store.WithTx(ctx, func(r repository.Repos) error {
		var txErr error
		if c, txErr = r.Courses.GetForUpdate(ctx, courseID); txErr != nil {
			return txErr
		}
		if c == nil {
			return apperr.NotFound("Course %s not found", courseID)
		}
		if !s.gate.CanManage(p, c) {
			return apperr.Forbidden("You do not have permission to modify course %s", courseID)
		}
		if in.Title != nil {
			if err := requireTitle("course", *in.Title); err != nil {
				return err
			}
		}
		lc := c.Lifecycle
		if in.Status != nil && *in.Status != c.Lifecycle.Status() {
			if lc, txErr = Transition(c.Lifecycle, *in.Status, s.now()); txErr != nil {
				return txErr
			}
		}
		edits := in.Title != nil || in.Description != nil
		if c.Lifecycle.IsArchived() && lc.IsArchived() && edits {
			return apperr.InvalidRequest("Course %s is archived", courseID)
		}
		if in.Title != nil {
			c.Title = *in.Title
		}
		if in.Description != nil {
			c.Description = *in.Description
		}
		c.Lifecycle = lc
		if err := r.Courses.Update(ctx, c); err != nil {
			return err
		}
		return s.emit(ctx, r, p, model.EventCourseUpdated, c.ID, "", []string{c.ID}, nil)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("course_id", courseID).Str("status", string(c.Lifecycle.Status())).Msg("Course updated")
	return c, nil
}

func (s *courseService) ListByInstructor(ctx context.Context, p model.Principal, instructorID string, includeArchived bool, page Page) (cs []*model.Course, err error) {
	defer func() { err = s.finish("list_by_instructor", err) }()

	if instructorID == "" {
		return nil, apperr.InvalidRequest("Instructor ID is required")
	}
	if page, err = page.normalize(MaxPageLimit); err != nil {
		return nil, err
	}
	f := repository.CourseFilter{
		InstructorID:    instructorID,
		IncludeArchived: includeArchived,
		Limit:           page.Limit,
		Offset:          page.Offset,
	}
	if !p.Has(model.CapManageAnyCourse) && p.UserID != instructorID {
		if includeArchived {
			return nil, apperr.Forbidden("You do not have permission to view archived courses of instructor %s", instructorID)
		}
		published := model.StatusPublished
		f.Status = &published
	}
	return s.store.Repos().Courses.List(ctx, f)
}

func (s *courseService) ListByStatus(ctx context.Context, p model.Principal, status model.Status, page Page) (cs []*model.Course, err error) {
	defer func() { err = s.finish("list_by_status", err) }()

	if _, err := model.ParseStatus(string(status)); err != nil {
		return nil, apperr.InvalidRequest("Invalid status %q", status)
	}
	if page, err = page.normalize(MaxPageLimit); err != nil {
		return nil, err
	}
	f := repository.CourseFilter{
		Status:          &status,
		IncludeArchived: status == model.StatusArchived,
		Limit:           page.Limit,
		Offset:          page.Offset,
	}
	if status != model.StatusPublished && !p.Has(model.CapManageAnyCourse) {
		f.InstructorID = p.UserID
	}
	return s.store.Repos().Courses.List(ctx, f)
}

func (s *courseService) Latest(ctx context.Context, p model.Principal, limit int) (cs []*model.Course, err error) {
	defer func() { err = s.finish("latest", err) }()

	page, err := Page{Limit: limit}.normalize(MaxLatestLimit)
	if err != nil {
		return nil, err
	}
	f := repository.CourseFilter{Limit: page.Limit}
	if !p.Has(model.CapManageAnyCourse) {
		published := model.StatusPublished
		f.Status = &published
	}
	return s.store.Repos().Courses.List(ctx, f)
}
