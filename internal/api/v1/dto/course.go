package dto

import "time"

type CourseCreateDTO struct {
	Title       string  `json:"title" validate:"required,max=200" doc:"Course title"`
	Description *string `json:"description,omitempty" doc:"Course description"`
}

type CourseUpdateDTO struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED" doc:"DRAFT, PUBLISHED or ARCHIVED"`
}

type CourseResponseDTO struct {
	CourseID     string     `json:"course_id"`
	InstructorID string     `json:"instructor_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
