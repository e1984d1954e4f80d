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

type ChapterHandler struct {
	chapterService service.ChapterService
	validate       *validator.Validate
	logger         zerolog.Logger
}

func NewChapterHandler(chapterService service.ChapterService, validate *validator.Validate, logger zerolog.Logger) *ChapterHandler {
	return &ChapterHandler{chapterService: chapterService, validate: validate, logger: logger}
}

// Chapter CRUD Operations

func (h *ChapterHandler) ListChapters(ctx context.Context, input *operation.ListChaptersInput) (*operation.ListChaptersOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	chapters, err := h.chapterService.List(ctx, p, input.CourseID)
	if err != nil {
		return nil, toHumaError(h.logger, err, "retrieve chapters")
	}
	return &operation.ListChaptersOutput{Body: toChapterDTOs(chapters)}, nil
}

func (h *ChapterHandler) GetChapter(ctx context.Context, input *operation.GetChapterInput) (*operation.GetChapterOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	chapter, err := h.chapterService.Get(ctx, p, input.ChapterID)
	if err != nil {
		return nil, toHumaError(h.logger, err, "retrieve chapter")
	}
	return &operation.GetChapterOutput{Body: toChapterDTO(chapter)}, nil
}

func (h *ChapterHandler) CreateChapter(ctx context.Context, input *operation.CreateChapterInput) (*operation.CreateChapterOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateBody(h.validate, &input.Body); err != nil {
		return nil, err
	}
	in, err := toChapterCreate(input.Body)
	if err != nil {
		return nil, err
	}

	chapter, err := h.chapterService.Create(ctx, p, in)
	if err != nil {
		return nil, toHumaError(h.logger, err, "create chapter")
	}
	return &operation.CreateChapterOutput{Body: toChapterDTO(chapter)}, nil
}

func (h *ChapterHandler) UpdateChapter(ctx context.Context, input *operation.UpdateChapterInput) (*operation.UpdateChapterOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateBody(h.validate, &input.Body); err != nil {
		return nil, err
	}
	in, err := toChapterUpdate(input.Body)
	if err != nil {
		return nil, err
	}

	chapter, err := h.chapterService.Update(ctx, p, input.ChapterID, in)
	if err != nil {
		return nil, toHumaError(h.logger, err, "update chapter")
	}
	return &operation.UpdateChapterOutput{Body: toChapterDTO(chapter)}, nil
}

func (h *ChapterHandler) DeleteChapter(ctx context.Context, input *operation.DeleteChapterInput) (*operation.DeleteChapterOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	chapter, err := h.chapterService.Delete(ctx, p, input.ChapterID)
	if err != nil {
		return nil, toHumaError(h.logger, err, "delete chapter")
	}
	return &operation.DeleteChapterOutput{Body: toChapterDTO(chapter)}, nil
}

func (h *ChapterHandler) RestoreChapter(ctx context.Context, input *operation.DeleteChapterInput) (*operation.DeleteChapterOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	chapter, err := h.chapterService.Restore(ctx, p, input.ChapterID)
	if err != nil {
		return nil, toHumaError(h.logger, err, "restore chapter")
	}
	return &operation.DeleteChapterOutput{Body: toChapterDTO(chapter)}, nil
}

// Chapter Bulk Operations

func (h *ChapterHandler) BulkCreateChapters(ctx context.Context, input *operation.BulkCreateChaptersInput) (*operation.ChaptersOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateBody(h.validate, &input.Body); err != nil {
		return nil, err
	}
	in := make([]service.ChapterCreate, len(input.Body.Chapters))
	for i, c := range input.Body.Chapters {
		if in[i], err = toChapterCreate(c); err != nil {
			return nil, err
		}
	}

	chapters, err := h.chapterService.BulkCreate(ctx, p, in)
	if err != nil {
		return nil, toHumaError(h.logger, err, "create chapters")
	}
	return &operation.ChaptersOutput{Body: toChapterDTOs(chapters)}, nil
}

func (h *ChapterHandler) BulkUpdateChapters(ctx context.Context, input *operation.BulkUpdateChaptersInput) (*operation.ChaptersOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateBody(h.validate, &input.Body); err != nil {
		return nil, err
	}
	updates := make([]service.ChapterUpdate, len(input.Body.Updates))
	for i, u := range input.Body.Updates {
		if updates[i], err = toChapterUpdate(u); err != nil {
			return nil, err
		}
	}

	chapters, err := h.chapterService.BulkUpdate(ctx, p, input.Body.IDs, updates)
	if err != nil {
		return nil, toHumaError(h.logger, err, "update chapters")
	}
	return &operation.ChaptersOutput{Body: toChapterDTOs(chapters)}, nil
}

func (h *ChapterHandler) BulkDeleteChapters(ctx context.Context, input *operation.BulkChapterIDsInput) (*operation.ChaptersOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	chapters, err := h.chapterService.BulkDelete(ctx, p, input.Body.IDs)
	if err != nil {
		return nil, toHumaError(h.logger, err, "delete chapters")
	}
	return &operation.ChaptersOutput{Body: toChapterDTOs(chapters)}, nil
}

func (h *ChapterHandler) BulkRestoreChapters(ctx context.Context, input *operation.BulkChapterIDsInput) (*operation.ChaptersOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	chapters, err := h.chapterService.BulkRestore(ctx, p, input.Body.IDs)
	if err != nil {
		return nil, toHumaError(h.logger, err, "restore chapters")
	}
	return &operation.ChaptersOutput{Body: toChapterDTOs(chapters)}, nil
}

func (h *ChapterHandler) ReorderChapters(ctx context.Context, input *operation.ReorderChaptersInput) (*operation.ChaptersOutput, error) {
	p, err := principalFrom(ctx)
	if err != nil {
		return nil, err
	}
	chapters, err := h.chapterService.Reorder(ctx, p, input.CourseID, input.Body.OrderedIDs)
	if err != nil {
		return nil, toHumaError(h.logger, err, "reorder chapters")
	}
	return &operation.ChaptersOutput{Body: toChapterDTOs(chapters)}, nil
}

func toChapterCreate(d dto.ChapterCreateDTO) (service.ChapterCreate, error) {
	status, err := parseStatus(d.Status)
	if err != nil {
		return service.ChapterCreate{}, err
	}
	in := service.ChapterCreate{
		CourseID:    d.CourseID,
		Title:       d.Title,
		Description: deref(d.Description),
		Order:       d.Order,
		Status:      status,
	}
	for _, l := range d.Lessons {
		lc, err := toLessonCreate(l)
		if err != nil {
			return service.ChapterCreate{}, err
		}
		in.Lessons = append(in.Lessons, lc)
	}
	return in, nil
}

func toChapterUpdate(d dto.ChapterUpdateDTO) (service.ChapterUpdate, error) {
	status, err := parseStatus(d.Status)
	if err != nil {
		return service.ChapterUpdate{}, err
	}
	return service.ChapterUpdate{
		Title:       d.Title,
		Description: d.Description,
		Order:       d.Order,
		Status:      status,
	}, nil
}

func toChapterDTO(ch *model.Chapter) dto.ChapterResponseDTO {
	resp := dto.ChapterResponseDTO{
		ChapterID:   ch.ID,
		CourseID:    ch.CourseID,
		Title:       ch.Title,
		Description: ch.Description,
		Order:       ch.Order,
		Status:      string(ch.Lifecycle.Status()),
		DeletedAt:   ch.Lifecycle.DeletedAt(),
		CreatedAt:   ch.CreatedAt,
		UpdatedAt:   ch.UpdatedAt,
	}
	if ch.Lessons != nil {
		resp.Lessons = toLessonDTOs(ch.Lessons)
	}
	return resp
}

func toChapterDTOs(chs []*model.Chapter) []dto.ChapterResponseDTO {
	dtos := make([]dto.ChapterResponseDTO, 0, len(chs))
	for _, ch := range chs {
		dtos = append(dtos, toChapterDTO(ch))
	}
	return dtos
}
