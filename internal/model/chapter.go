package model

import "time"

// Chapter is an ordered section of a course
type Chapter struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Order       int       `db:"order_number" json:"order"`
	Lifecycle   Lifecycle `db:"-" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	// Lessons is only populated by reads that ask for them.
	Lessons []*Lesson `db:"-" json:"lessons,omitempty"`
}
