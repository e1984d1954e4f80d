package model

import "time"

// ContentEventType names a committed change to course content
type ContentEventType string

const (
	EventCourseCreated     ContentEventType = "course.created"
	EventCourseUpdated     ContentEventType = "course.updated"
	EventChaptersCreated   ContentEventType = "chapters.created"
	EventChaptersUpdated   ContentEventType = "chapters.updated"
	EventChaptersDeleted   ContentEventType = "chapters.deleted"
	EventChaptersRestored  ContentEventType = "chapters.restored"
	EventChaptersReordered ContentEventType = "chapters.reordered"
	EventLessonsCreated    ContentEventType = "lessons.created"
	EventLessonsUpdated    ContentEventType = "lessons.updated"
	EventLessonsDeleted    ContentEventType = "lessons.deleted"
	EventLessonsRestored   ContentEventType = "lessons.restored"
	EventLessonsReordered  ContentEventType = "lessons.reordered"
)

// ContentEvent is appended to the outbox queue in the same transaction as
// the change it describes.
type ContentEvent struct {
	ID         string           `json:"id"`
	Type       ContentEventType `json:"type"`
	CourseID   string           `json:"course_id"`
	ParentID   string           `json:"parent_id,omitempty"`
	EntityIDs  []string         `json:"entity_ids"`
	Cascaded   []string         `json:"cascaded_ids,omitempty"`
	ActorID    string           `json:"actor_id"`
	OccurredAt time.Time        `json:"occurred_at"`
}
