package operation

import "coursecatalog/internal/api/v1/dto"

// Chapter CRUD Operations

type ListChaptersInput struct {
	CourseID string `path:"courseId" doc:"Course ID"`
}

type ListChaptersOutput struct {
	Body []dto.ChapterResponseDTO `json:"body"`
}

type GetChapterInput struct {
	ChapterID string `path:"chapterId" doc:"Chapter ID"`
}

type GetChapterOutput struct {
	Body dto.ChapterResponseDTO `json:"body"`
}

type CreateChapterInput struct {
	Body dto.ChapterCreateDTO `json:"body"`
}

type CreateChapterOutput struct {
	Body dto.ChapterResponseDTO `json:"body"`
}

type UpdateChapterInput struct {
	ChapterID string               `path:"chapterId" doc:"Chapter ID"`
	Body      dto.ChapterUpdateDTO `json:"body"`
}

type UpdateChapterOutput struct {
	Body dto.ChapterResponseDTO `json:"body"`
}

// DeleteChapterInput also serves restore
type DeleteChapterInput struct {
	ChapterID string `path:"chapterId" doc:"Chapter ID"`
}

type DeleteChapterOutput struct {
	Body dto.ChapterResponseDTO `json:"body"`
}

// Chapter Bulk Operations

type BulkCreateChaptersInput struct {
	Body dto.ChapterBulkCreateDTO `json:"body"`
}

type BulkUpdateChaptersInput struct {
	Body dto.ChapterBulkUpdateDTO `json:"body"`
}

// BulkChapterIDsInput serves bulk delete and bulk restore
type BulkChapterIDsInput struct {
	Body dto.IDListDTO `json:"body"`
}

type ReorderChaptersInput struct {
	CourseID string         `path:"courseId" doc:"Course ID"`
	Body     dto.ReorderDTO `json:"body"`
}

// ChaptersOutput is returned by every bulk chapter operation
type ChaptersOutput struct {
	Body []dto.ChapterResponseDTO `json:"body"`
}
