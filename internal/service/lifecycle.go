package service

import (
	"strings"
	"time"

	"coursecatalog/internal/apperr"
	"coursecatalog/internal/model"
)

var allowedTransitions = map[model.Status][]model.Status{
	model.StatusDraft:     {model.StatusPublished, model.StatusArchived},
	model.StatusPublished: {model.StatusDraft, model.StatusArchived},
	model.StatusArchived:  {model.StatusDraft},
}

// ValidateTransition checks a status change. A nil current means the entity
// is new, and new entities may only start as DRAFT.
func ValidateTransition(current *model.Status, requested model.Status) error {
	if current == nil {
		if requested != model.StatusDraft {
			return apperr.InvalidRequest("Invalid initial status %s: new content must start as %s", requested, model.StatusDraft)
		}
		return nil
	}
	allowed := allowedTransitions[*current]
	for _, s := range allowed {
		if s == requested {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = string(s)
	}
	return apperr.InvalidRequest("Invalid status transition from %s to %s (allowed: %s)",
		*current, requested, strings.Join(names, ", "))
}

// Transition validates and applies a status change. Moving into ARCHIVED
// stamps the deletion time and moving out of it clears it, in one value.
func Transition(current model.Lifecycle, requested model.Status, now time.Time) (model.Lifecycle, error) {
	status := current.Status()
	if err := ValidateTransition(&status, requested); err != nil {
		return current, err
	}
	return model.LifecycleFor(requested, now), nil
}
