package handler

import (
	"context"

	"coursecatalog/internal/api/v1/dto"
	"coursecatalog/internal/api/v1/operation"
	"coursecatalog/internal/model"
	"coursecatalog/internal/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type LessonHandler struct {
	lessonService service.LessonService
	validate      *validator.Validate
	logger        zerolog.Logger
}

func NewLessonHandler(lessonService service.LessonService, validate *validator.Validate, logger zerolog.Logger) *LessonHandler {
	return &LessonHandler{lessonService: lessonService, validate: validate, logger: logger}
}

// Lesson CRUD Operations

func (h *LessonHandler) ListLessons(ctx context.Context, input *operation.ListLessonsInput) (*operation.LessonsOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	lessons, err := h.lessonService.List(ctx, p, input.ChapterID)
	if err != nil {
		return nil, toHumaError(h.logger, err, "retrieve lessons")
	}
	return &operation.LessonsOutput{Body: toLessonDTOs(lessons)}, nil
}

func (h *LessonHandler) GetLesson(ctx context.Context, input *operation.GetLessonInput) (*operation.LessonOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	lesson, err := h.lessonService.Get(ctx, p, input.LessonID)
	if err != nil {
		return nil, toHumaError(h.logger, err, "retrieve lesson")
	}
	return &operation.LessonOutput{Body: toLessonDTO(lesson)}, nil
}

func (h *LessonHandler) CreateLesson(ctx context.Context, input *operation.CreateLessonInput) (*operation.LessonOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateBody(h.validate, &input.Body); err != nil {
		return nil, err
	}
	in, err := toLessonCreate(input.Body)
	if err != nil {
		return nil, err
	}

	lesson, err := h.lessonService.Create(ctx, p, in)
	if err != nil {
		return nil, toHumaError(h.logger, err, "create lesson")
	}
	return &operation.LessonOutput{Body: toLessonDTO(lesson)}, nil
}

func (h *LessonHandler) UpdateLesson(ctx context.Context, input *operation.UpdateLessonInput) (*operation.LessonOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateBody(h.validate, &input.Body); err != nil {
		return nil, err
	}
	in, err := toLessonUpdate(input.Body)
	if err != nil {
		return nil, err
	}

	lesson, err := h.lessonService.Update(ctx, p, input.LessonID, in)
	if err != nil {
		return nil, toHumaError(h.logger, err, "update lesson")
	}
	return &operation.LessonOutput{Body: toLessonDTO(lesson)}, nil
}

func (h *LessonHandler) DeleteLesson(ctx context.Context, input *operation.GetLessonInput) (*operation.LessonOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	lesson, err := h.lessonService.Delete(ctx, p, input.LessonID)
	if err != nil {
		return nil, toHumaError(h.logger, err, "delete lesson")
	}
	return &operation.LessonOutput{Body: toLessonDTO(lesson)}, nil
}

func (h *LessonHandler) RestoreLesson(ctx context.Context, input *operation.GetLessonInput) (*operation.LessonOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	lesson, err := h.lessonService.Restore(ctx, p, input.LessonID)
	if err != nil {
		return nil, toHumaError(h.logger, err, "restore lesson")
	}
	return &operation.LessonOutput{Body: toLessonDTO(lesson)}, nil
}

// Lesson Bulk Operations

func (h *LessonHandler) BulkCreateLessons(ctx context.Context, input *operation.BulkCreateLessonsInput) (*operation.LessonsOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateBody(h.validate, &input.Body); err != nil {
		return nil, err
	}
	in := make([]service.LessonCreate, len(input.Body.Lessons))
	for i, l := range input.Body.Lessons {
		if in[i], err = toLessonCreate(l); err != nil {
			return nil, err
		}
	}

	lessons, err := h.lessonService.BulkCreate(ctx, p, in)
	if err != nil {
		return nil, toHumaError(h.logger, err, "create lessons")
	}
	return &operation.LessonsOutput{Body: toLessonDTOs(lessons)}, nil
}

func (h *LessonHandler) BulkUpdateLessons(ctx context.Context, input *operation.BulkUpdateLessonsInput) (*operation.LessonsOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateBody(h.validate, &input.Body); err != nil {
		return nil, err
	}
	updates := make([]service.LessonUpdate, len(input.Body.Updates))
	for i, u := range input.Body.Updates {
		if updates[i], err = toLessonUpdate(u); err != nil {
			return nil, err
		}
	}

	lessons, err := h.lessonService.BulkUpdate(ctx, p, input.Body.IDs, updates)
	if err != nil {
		return nil, toHumaError(h.logger, err, "update lessons")
	}
	return &operation.LessonsOutput{Body: toLessonDTOs(lessons)}, nil
}

func (h *LessonHandler) BulkDeleteLessons(ctx context.Context, input *operation.BulkLessonIDsInput) (*operation.LessonsOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	lessons, err := h.lessonService.BulkDelete(ctx, p, input.Body.IDs)
	if err != nil {
		return nil, toHumaError(h.logger, err, "delete lessons")
	}
	return &operation.LessonsOutput{Body: toLessonDTOs(lessons)}, nil
}

func (h *LessonHandler) BulkRestoreLessons(ctx context.Context, input *operation.BulkLessonIDsInput) (*operation.LessonsOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	lessons, err := h.lessonService.BulkRestore(ctx, p, input.Body.IDs)
	if err != nil {
		return nil, toHumaError(h.logger, err, "restore lessons")
	}
	return &operation.LessonsOutput{Body: toLessonDTOs(lessons)}, nil
}

func (h *LessonHandler) ReorderLessons(ctx context.Context, input *operation.ReorderLessonsInput) (*operation.LessonsOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	lessons, err := h.lessonService.Reorder(ctx, p, input.ChapterID, input.Body.OrderedIDs)
	if err != nil {
		return nil, toHumaError(h.logger, err, "reorder lessons")
	}
	return &operation.LessonsOutput{Body: toLessonDTOs(lessons)}, nil
}

func parseLessonType(s string) (model.LessonType, error) {
	t, err := model.ParseLessonType(s)
	if err != nil {
		return "", huma.Error400BadRequest(err.Error())
	}
	return t, nil
}

func toLessonCreate(d dto.LessonCreateDTO) (service.LessonCreate, error) {
	typ, err := parseLessonType(d.Type)
	if err != nil {
		return service.LessonCreate{}, err
	}
	status, err := parseStatus(d.Status)
	if err != nil {
		return service.LessonCreate{}, err
	}
	return service.LessonCreate{
		ChapterID: d.ChapterID,
		Title:     d.Title,
		Content:   deref(d.Content),
		Type:      typ,
		Order:     d.Order,
		Status:    status,
	}, nil
}

func toLessonUpdate(d dto.LessonUpdateDTO) (service.LessonUpdate, error) {
	status, err := parseStatus(d.Status)
	if err != nil {
		return service.LessonUpdate{}, err
	}
	in := service.LessonUpdate{
		Title:   d.Title,
		Content: d.Content,
		Order:   d.Order,
		Status:  status,
	}
	if d.Type != nil {
		typ, err := parseLessonType(*d.Type)
		if err != nil {
			return service.LessonUpdate{}, err
		}
		in.Type = &typ
	}
	return in, nil
}

func toLessonDTO(l *model.Lesson) dto.LessonResponseDTO {
	return dto.LessonResponseDTO{
		LessonID:  l.ID,
		ChapterID: l.ChapterID,
		Title:     l.Title,
		Content:   l.Content,
		Type:      string(l.Type),
		Order:     l.Order,
		Status:    string(l.Lifecycle.Status()),
		DeletedAt: l.Lifecycle.DeletedAt(),
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func toLessonDTOs(ls []*model.Lesson) []dto.LessonResponseDTO {
	dtos := make([]dto.LessonResponseDTO, 0, len(ls))
	for _, l := range ls {
		dtos = append(dtos, toLessonDTO(l))
	}
	return dtos
}
