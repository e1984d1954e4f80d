package model

import (
	"fmt"
	"time"
)

// Status is the publication state of a course, chapter or lesson.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
	StatusArchived  Status = "ARCHIVED"
)

// ParseStatus accepts the exact upper-case status names.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusPublished, StatusArchived:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// ArchiveCause records why an entity was archived.
type ArchiveCause string

const (
	// CauseDirect means the entity itself was deleted or moved to ARCHIVED.
	CauseDirect ArchiveCause = "direct"
	// CauseCascade means the entity was archived because its parent was.
	CauseCascade ArchiveCause = "cascade"
)

// Lifecycle is either Active(Draft|Published) or Archived(at, cause).
// Status and deletion time are derived from the same value so they cannot
// disagree. The zero value is an active draft.
type Lifecycle struct {
	status     Status
	archivedAt time.Time
	cause      ArchiveCause
}

func Draft() Lifecycle     { return Lifecycle{status: StatusDraft} }
func Published() Lifecycle { return Lifecycle{status: StatusPublished} }

// Archived returns an archived lifecycle. A zero cause means CauseDirect.
func Archived(at time.Time, cause ArchiveCause) Lifecycle {
	if cause == "" {
		cause = CauseDirect
	}
	return Lifecycle{status: StatusArchived, archivedAt: at.UTC(), cause: cause}
}

// LifecycleFor builds the lifecycle a status maps to. Archiving uses at as
// the deletion time and is always a direct archive.
func LifecycleFor(s Status, at time.Time) Lifecycle {
	switch s {
	case StatusPublished:
		return Published()
	case StatusArchived:
		return Archived(at, CauseDirect)
	default:
		return Draft()
	}
}

// LifecycleFromColumns rebuilds a lifecycle from its stored columns. Rows
// whose status and deleted_at disagree are rejected.
func LifecycleFromColumns(status string, deletedAt *time.Time, byCascade bool) (Lifecycle, error) {
	s, err := ParseStatus(status)
	if err != nil {
		return Lifecycle{}, err
	}
	switch {
	case s == StatusArchived && deletedAt == nil:
		return Lifecycle{}, fmt.Errorf("status %s without deleted_at", s)
	case s != StatusArchived && deletedAt != nil:
		return Lifecycle{}, fmt.Errorf("status %s with deleted_at set", s)
	case s == StatusArchived:
		cause := CauseDirect
		if byCascade {
			cause = CauseCascade
		}
		return Archived(*deletedAt, cause), nil
	}
	return LifecycleFor(s, time.Time{}), nil
}

func (l Lifecycle) Status() Status {
	if l.status == "" {
		return StatusDraft
	}
	return l.status
}

func (l Lifecycle) IsArchived() bool { return l.status == StatusArchived }
func (l Lifecycle) IsActive() bool   { return !l.IsArchived() }

// DeletedAt is nil for active entities.
func (l Lifecycle) DeletedAt() *time.Time {
	if !l.IsArchived() {
		return nil
	}
	at := l.archivedAt
	return &at
}

// Cause is empty for active entities.
func (l Lifecycle) Cause() ArchiveCause {
	if !l.IsArchived() {
		return ""
	}
	return l.cause
}

// Columns returns the stored representation of the lifecycle.
func (l Lifecycle) Columns() (status string, deletedAt *time.Time, byCascade bool) {
	return string(l.Status()), l.DeletedAt(), l.Cause() == CauseCascade
}

func (l Lifecycle) String() string {
	if l.IsArchived() {
		return fmt.Sprintf("%s(%s, %s)", l.status, l.archivedAt.Format(time.RFC3339), l.cause)
	}
	return string(l.Status())
}
