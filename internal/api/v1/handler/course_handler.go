package handler

import (
	"context"

	"coursecatalog/internal/api/v1/dto"
	"coursecatalog/internal/api/v1/operation"
	"coursecatalog/internal/model"
	"coursecatalog/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type CourseHandler struct {
	courseService service.CourseService
	validate      *validator.Validate
	logger        zerolog.Logger
}

func NewCourseHandler(courseService service.CourseService, validate *validator.Validate, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{courseService: courseService, validate: validate, logger: logger}
}

func (h *CourseHandler) CreateCourse(ctx context.Context, input *operation.CreateCourseInput) (*operation.CreateCourseOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateBody(h.validate, &input.Body); err != nil {
		return nil, err
	}

	course, err := h.courseService.Create(ctx, p, service.CourseCreate{
		Title:       input.Body.Title,
		Description: deref(input.Body.Description),
	})
	if err != nil {
		return nil, toHumaError(h.logger, err, "create course")
	}
	return &operation.CreateCourseOutput{Body: toCourseDTO(course)}, nil
}

func (h *CourseHandler) GetCourse(ctx context.Context, input *operation.GetCourseInput) (*operation.GetCourseOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	course, err := h.courseService.Get(ctx, p, input.CourseID)
	if err != nil {
		return nil, toHumaError(h.logger, err, "retrieve course")
	}
	return &operation.GetCourseOutput{Body: toCourseDTO(course)}, nil
}

func (h *CourseHandler) UpdateCourse(ctx context.Context, input *operation.UpdateCourseInput) (*operation.UpdateCourseOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateBody(h.validate, &input.Body); err != nil {
		return nil, err
	}
	status, err := parseStatus(input.Body.Status)
	if err != nil {
		return nil, err
	}

	course, err := h.courseService.Update(ctx, p, input.CourseID, service.CourseUpdate{
		Title:       input.Body.Title,
		Description: input.Body.Description,
		Status:      status,
	})
	if err != nil {
		return nil, toHumaError(h.logger, err, "update course")
	}
	return &operation.UpdateCourseOutput{Body: toCourseDTO(course)}, nil
}

func (h *CourseHandler) ListCoursesByStatus(ctx context.Context, input *operation.ListCoursesByStatusInput) (*operation.CoursesOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	status, err := parseStatus(&input.Status)
	if err != nil {
		return nil, err
	}
	courses, err := h.courseService.ListByStatus(ctx, p, *status, service.Page{Limit: input.Limit, Offset: input.Offset})
	if err != nil {
		return nil, toHumaError(h.logger, err, "list courses")
	}
	return &operation.CoursesOutput{Body: toCourseDTOs(courses)}, nil
}

func (h *CourseHandler) ListInstructorCourses(ctx context.Context, input *operation.ListInstructorCoursesInput) (*operation.CoursesOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	courses, err := h.courseService.ListByInstructor(ctx, p, input.InstructorID, input.IncludeArchived,
		service.Page{Limit: input.Limit, Offset: input.Offset})
	if err != nil {
		return nil, toHumaError(h.logger, err, "list instructor courses")
	}
	return &operation.CoursesOutput{Body: toCourseDTOs(courses)}, nil
}

func (h *CourseHandler) LatestCourses(ctx context.Context, input *operation.LatestCoursesInput) (*operation.CoursesOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	courses, err := h.courseService.Latest(ctx, p, input.Limit)
	if err != nil {
		return nil, toHumaError(h.logger, err, "list latest courses")
	}
	return &operation.CoursesOutput{Body: toCourseDTOs(courses)}, nil
}

func toCourseDTOs(cs []*model.Course) []dto.CourseResponseDTO {
	out := make([]dto.CourseResponseDTO, len(cs))
	for i, c := range cs {
		out[i] = toCourseDTO(c)
	}
	return out
}

func toCourseDTO(c *model.Course) dto.CourseResponseDTO {
	return dto.CourseResponseDTO{
		CourseID:     c.ID,
		InstructorID: c.InstructorID,
		Title:        c.Title,
		Description:  c.Description,
		Status:       string(c.Lifecycle.Status()),
		DeletedAt:    c.Lifecycle.DeletedAt(),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}
