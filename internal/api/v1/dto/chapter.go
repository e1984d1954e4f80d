package dto

import "time"

// ChapterCreateDTO is used for single and bulk chapter creation
type ChapterCreateDTO struct {
	CourseID    string            `json:"course_id" validate:"required" doc:"Parent course ID"`
	Title       string            `json:"title" validate:"required,max=200"`
	Description *string           `json:"description,omitempty"`
	Order       *int              `json:"order,omitempty" doc:"Position in the course, auto-assigned when omitted"`
	Status      *string           `json:"status,omitempty" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
	Lessons     []LessonCreateDTO `json:"lessons,omitempty" validate:"dive" doc:"Lessons created together with the chapter"`
}

type ChapterUpdateDTO struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty"`
	Order       *int    `json:"order,omitempty"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
}

type ChapterBulkCreateDTO struct {
	Chapters []ChapterCreateDTO `json:"chapters" validate:"dive"`
}

// ChapterBulkUpdateDTO pairs Updates[i] with IDs[i]
type ChapterBulkUpdateDTO struct {
	IDs     []string           `json:"ids"`
	Updates []ChapterUpdateDTO `json:"updates" validate:"dive"`
}

type ChapterResponseDTO struct {
	ChapterID   string              `json:"chapter_id"`
	CourseID    string              `json:"course_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Order       int                 `json:"order"`
	Status      string              `json:"status"`
	DeletedAt   *time.Time          `json:"deleted_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Lessons     []LessonResponseDTO `json:"lessons,omitempty"`
}
