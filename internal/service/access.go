package service

import (
	"coursecatalog/internal/apperr"
	"coursecatalog/internal/model"
)

// AccessGate decides whether a principal may change the content of a course.
type AccessGate struct{}

// CanManage is true for admins and for the course instructor.
func (AccessGate) CanManage(p model.Principal, c *model.Course) bool {
	return p.Has(model.CapManageAnyCourse) || p.IsOwner(c)
}

// Authorize checks that the course exists, the principal may manage it and
// it is not archived. Content of an archived course is frozen.
func (g AccessGate) Authorize(p model.Principal, courseID string, c *model.Course) error {
	if c == nil {
		return apperr.NotFound("Course %s not found", courseID)
	}
	if !g.CanManage(p, c) {
		return apperr.Forbidden("You do not have permission to modify course %s", c.ID)
	}
	if c.Lifecycle.IsArchived() {
		return apperr.InvalidRequest("Course %s is archived", c.ID)
	}
	return nil
}

// CanView is true when the principal manages the course or both the course
// and the content are published.
func (g AccessGate) CanView(p model.Principal, c *model.Course, lc model.Lifecycle) bool {
	if g.CanManage(p, c) {
		return true
	}
	return c.Lifecycle.Status() == model.StatusPublished && lc.Status() == model.StatusPublished
}
