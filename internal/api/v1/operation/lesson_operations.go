package operation

import "coursecatalog/internal/api/v1/dto"

// Lesson CRUD Operations

type ListLessonsInput struct {
	ChapterID string `path:"chapterId" doc:"Chapter ID"`
}

type GetLessonInput struct {
	LessonID string `path:"lessonId" doc:"Lesson ID"`
}

type CreateLessonInput struct {
	Body dto.LessonCreateDTO `json:"body"`
}

type UpdateLessonInput struct {
	LessonID string              `path:"lessonId" doc:"Lesson ID"`
	Body     dto.LessonUpdateDTO `json:"body"`
}

// LessonOutput is returned by every single-lesson operation
type LessonOutput struct {
	Body dto.LessonResponseDTO `json:"body"`
}

// Lesson Bulk Operations

type BulkCreateLessonsInput struct {
	Body dto.LessonBulkCreateDTO `json:"body"`
}

type BulkUpdateLessonsInput struct {
	Body dto.LessonBulkUpdateDTO `json:"body"`
}

type BulkLessonIDsInput struct {
	Body dto.IDListDTO `json:"body"`
}

type ReorderLessonsInput struct {
	ChapterID string         `path:"chapterId" doc:"Chapter ID"`
	Body      dto.ReorderDTO `json:"body"`
}

type LessonsOutput struct {
	Body []dto.LessonResponseDTO `json:"body"`
}
