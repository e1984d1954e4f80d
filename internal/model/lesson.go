package model

import (
	"fmt"
	"time"
)

// LessonType is the kind of material a lesson carries
type LessonType string

const (
	LessonVideo      LessonType = "VIDEO"
	LessonText       LessonType = "TEXT"
	LessonQuiz       LessonType = "QUIZ"
	LessonAssignment LessonType = "ASSIGNMENT"
)

func ParseLessonType(s string) (LessonType, error) {
	switch LessonType(s) {
	case LessonVideo, LessonText, LessonQuiz, LessonAssignment:
		return LessonType(s), nil
	}
	return "", fmt.Errorf("unknown lesson type %q", s)
}

// Lesson is an ordered item inside a chapter
type Lesson struct {
	ID        string     `db:"id" json:"id"`
	ChapterID string     `db:"chapter_id" json:"chapter_id"`
	Title     string     `db:"title" json:"title"`
	Content   string     `db:"content" json:"content"`
	Type      LessonType `db:"lesson_type" json:"type"`
	Order     int        `db:"order_number" json:"order"`
	Lifecycle Lifecycle  `db:"-" json:"-"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
