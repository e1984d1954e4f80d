package dto

import "time"

// LessonCreateDTO is used for lesson creation. ChapterID is ignored for
// lessons nested in a chapter create request.
type LessonCreateDTO struct {
	ChapterID string  `json:"chapter_id,omitempty"`
	Title     string  `json:"title" validate:"required,max=200"`
	Content   *string `json:"content,omitempty"`
	Type      string  `json:"type" validate:"required,oneof=VIDEO TEXT QUIZ ASSIGNMENT" doc:"VIDEO, TEXT, QUIZ or ASSIGNMENT"`
	Order     *int    `json:"order,omitempty"`
	Status    *string `json:"status,omitempty" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
}

type LessonUpdateDTO struct {
	Title   *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Content *string `json:"content,omitempty"`
	Type    *string `json:"type,omitempty" validate:"omitempty,oneof=VIDEO TEXT QUIZ ASSIGNMENT"`
	Order   *int    `json:"order,omitempty"`
	Status  *string `json:"status,omitempty" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
}

type LessonBulkCreateDTO struct {
	Lessons []LessonCreateDTO `json:"lessons" validate:"dive"`
}

// LessonBulkUpdateDTO pairs Updates[i] with IDs[i]
type LessonBulkUpdateDTO struct {
	IDs     []string          `json:"ids"`
	Updates []LessonUpdateDTO `json:"updates" validate:"dive"`
}

type LessonResponseDTO struct {
	LessonID  string     `json:"lesson_id"`
	ChapterID string     `json:"chapter_id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Type      string     `json:"type"`
	Order     int        `json:"order"`
	Status    string     `json:"status"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IDListDTO carries the ids of a bulk delete or restore
type IDListDTO struct {
	IDs []string `json:"ids"`
}

// ReorderDTO lists child ids in their new order
type ReorderDTO struct {
	OrderedIDs []string `json:"ordered_ids"`
}
