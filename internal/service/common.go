package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coursecatalog/internal/apperr"
	"coursecatalog/internal/metrics"
	"coursecatalog/internal/model"
	"coursecatalog/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// contentService holds what the chapter and lesson services share.
type contentService struct {
	entity  string
	store   repository.Store
	guard   BulkGuard
	gate    AccessGate
	cascade CascadeCoordinator
	logger  zerolog.Logger
	now     func() time.Time
}

func newContentService(entity string, store repository.Store, guard BulkGuard, logger zerolog.Logger) contentService {
	return contentService{
		entity: entity,
		store:  store,
		guard:  guard,
		logger: logger.With().Str("service", entity+"_service").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// finish turns err into a typed error, then logs and counts the outcome.
func (s *contentService) finish(op string, err error) error {
	err = s.translate(op, err)
	metrics.ObserveOperation(s.entity, op, err)
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) == apperr.KindInternal {
		s.logger.Error().Err(err).Str("operation", op).Msg("Content operation failed")
	} else {
		s.logger.Warn().Str("operation", op).Str("kind", string(apperr.KindOf(err))).Msg(apperr.PublicMessage(err))
	}
	return err
}

func (s *contentService) translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}
	var taken *repository.OrderTakenError
	if errors.As(err, &taken) {
		return orderTaken(err, OrderConflict{ParentKind: s.parentKind()})
	}
	if errors.Is(err, repository.ErrOrderTaken) {
		return apperr.InvalidRequest("Order number is already taken by another active %s under the same parent", s.entity)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Internal(err, "request cancelled")
	}
	return apperr.Internal(err, fmt.Sprintf("%s %s failed", s.entity, op))
}

func (s *contentService) parentKind() string {
	if s.entity == "lesson" {
		return "chapter"
	}
	return "course"
}

// orderTaken maps a unique index violation back to the conflict the
// pre-check would have reported. Parent and order come from the violated key
// when storage names it, and from fallback otherwise. Without either the
// error is returned unchanged.
func orderTaken(err error, fallback OrderConflict) error {
	if !errors.Is(err, repository.ErrOrderTaken) {
		return err
	}
	c := fallback
	c.Kind = AlreadyTaken
	var taken *repository.OrderTakenError
	if errors.As(err, &taken) {
		c.ParentID, c.Order = taken.ParentID, taken.Order
	} else if c.ParentID == "" {
		return err
	}
	return conflictError(c)
}

// authorizeCourses share-locks each course and checks the principal may
// change its content.
func (s *contentService) authorizeCourses(ctx context.Context, r repository.Repos, p model.Principal, courseIDs []string) (map[string]*model.Course, error) {
	courses := make(map[string]*model.Course, len(courseIDs))
	for _, id := range courseIDs {
		c, err := r.Courses.GetForShare(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.gate.Authorize(p, id, c); err != nil {
			return nil, err
		}
		courses[id] = c
	}
	return courses, nil
}

func (s *contentService) emit(ctx context.Context, r repository.Repos, p model.Principal, typ model.ContentEventType, courseID, parentID string, ids, cascaded []string) error {
	return r.Events.Append(ctx, &model.ContentEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		CourseID:   courseID,
		ParentID:   parentID,
		EntityIDs:  ids,
		Cascaded:   cascaded,
		ActorID:    p.UserID,
		OccurredAt: s.now(),
	})
}

// distinct keeps the first occurrence of every value.
func distinct(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func requireTitle(kind string, title string) error {
	if strings.TrimSpace(title) == "" {
		return apperr.InvalidRequest("%s title must not be empty", capitalize(kind))
	}
	return nil
}

// childPlan is the outcome of applying an update to a chapter or lesson.
type childPlan struct {
	lifecycle model.Lifecycle
	order     int
	archiving bool
	restoring bool
	// vacates is set when an active child gives up its current slot.
	vacates bool
	// needsSlot is set when the child ends active on a slot it does not hold now.
	needsSlot bool
}

// planChildUpdate works out the new lifecycle and order of a child. An
// archived child accepts no change other than a transition back to DRAFT,
// which may carry edits of its own. A status equal to the current one is
// left alone.
func planChildUpdate(kind, id string, current model.Lifecycle, currentOrder int, order *int, status *model.Status, edits bool, now time.Time) (childPlan, error) {
	pl := childPlan{lifecycle: current, order: currentOrder}
	if status != nil && *status != current.Status() {
		lc, err := Transition(current, *status, now)
		if err != nil {
			return pl, err
		}
		pl.lifecycle = lc
	}
	pl.archiving = current.IsActive() && pl.lifecycle.IsArchived()
	pl.restoring = current.IsArchived() && pl.lifecycle.IsActive()

	if current.IsArchived() && !pl.restoring && (edits || order != nil) {
		return pl, apperr.InvalidRequest("%s %s is deleted; restore it before editing", capitalize(kind), id)
	}
	if order != nil {
		if *order < 1 {
			return pl, apperr.InvalidRequest("Order number must be at least 1, got %d", *order)
		}
		if pl.lifecycle.IsArchived() {
			return pl, apperr.InvalidRequest("Cannot change the order of %s %s while it is archived", kind, id)
		}
		pl.order = *order
	}

	moved := pl.order != currentOrder
	pl.vacates = current.IsActive() && (pl.archiving || moved)
	pl.needsSlot = pl.lifecycle.IsActive() && (moved || pl.restoring)
	return pl, nil
}
