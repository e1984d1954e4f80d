package operation

import "coursecatalog/internal/api/v1/dto"

// Course Operations

type CreateCourseInput struct {
	Body dto.CourseCreateDTO `json:"body"`
}

type CreateCourseOutput struct {
	Body dto.CourseResponseDTO `json:"body"`
}

type GetCourseInput struct {
	CourseID string `path:"courseId" doc:"Course ID"`
}

type GetCourseOutput struct {
	Body dto.CourseResponseDTO `json:"body"`
}

type UpdateCourseInput struct {
	CourseID string              `path:"courseId" doc:"Course ID"`
	Body     dto.CourseUpdateDTO `json:"body"`
}

type UpdateCourseOutput struct {
	Body dto.CourseResponseDTO `json:"body"`
}

type ListCoursesByStatusInput struct {
	Status string `query:"status" required:"true" enum:"DRAFT,PUBLISHED,ARCHIVED" doc:"Course status"`
	Limit  int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Number of courses"`
	Offset int    `query:"offset" default:"0" minimum:"0" doc:"Offset for pagination"`
}

type ListInstructorCoursesInput struct {
	InstructorID    string `path:"instructorId" doc:"Instructor user ID"`
	IncludeArchived bool   `query:"include_archived" default:"false" doc:"Include archived courses"`
	Limit           int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Number of courses"`
	Offset          int    `query:"offset" default:"0" minimum:"0" doc:"Offset for pagination"`
}

type LatestCoursesInput struct {
	Limit int `query:"limit" default:"10" minimum:"1" maximum:"50" doc:"Number of courses"`
}

type CoursesOutput struct {
	Body []dto.CourseResponseDTO `json:"body"`
}
