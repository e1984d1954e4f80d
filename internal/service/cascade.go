package service

import (
	"context"
	"time"

	"coursecatalog/internal/apperr"
	"coursecatalog/internal/model"
	"coursecatalog/internal/repository"
)

// CascadeCoordinator moves chapters in and out of ARCHIVED together with
// their lessons. Callers run it inside one transaction with the chapters
// already locked. Every chapter is validated before the first write, and the
// writes are one statement over the chapters plus one over their lessons.
type CascadeCoordinator struct{}

// DeleteChapters archives the chapters and every lesson active under them at
// call time. It returns the ids of the lessons it archived by chapter.
func (CascadeCoordinator) DeleteChapters(ctx context.Context, r repository.Repos, chapters []*model.Chapter, at time.Time) (repository.CascadedLessons, error) {
	ids := make([]string, len(chapters))
	for i, ch := range chapters {
		if ch.Lifecycle.IsArchived() {
			return nil, apperr.InvalidRequest("Chapter %s is already deleted", ch.ID)
		}
		ids[i] = ch.ID
	}
	return archiveChapters(ctx, r, chapters, ids, at)
}

func archiveChapters(ctx context.Context, r repository.Repos, chapters []*model.Chapter, ids []string, at time.Time) (repository.CascadedLessons, error) {
	lc := model.Archived(at, model.CauseDirect)
	if err := r.Chapters.SetLifecycle(ctx, ids, lc); err != nil {
		return nil, err
	}
	lessonIDs, err := r.Lessons.ArchiveActiveByChapters(ctx, ids, at)
	if err != nil {
		return nil, err
	}
	for _, ch := range chapters {
		ch.Lifecycle = lc
	}
	return lessonIDs, nil
}

// RestoreChapters brings archived chapters back as DRAFT together with the
// lessons their deletion archived. Lessons deleted on their own stay
// archived. A chapter cannot come back under an archived course or onto an
// order number another active chapter now holds.
func (CascadeCoordinator) RestoreChapters(ctx context.Context, r repository.Repos, chapters []*model.Chapter, courses map[string]*model.Course) (repository.CascadedLessons, error) {
	ids := make([]string, len(chapters))
	byCourse := map[string][]OrderCandidate{}
	var courseOrder []string
	for i, ch := range chapters {
		if ch.Lifecycle.IsActive() {
			return nil, apperr.InvalidRequest("Chapter %s is not deleted", ch.ID)
		}
		if c := courses[ch.CourseID]; c == nil || c.Lifecycle.IsArchived() {
			return nil, apperr.InvalidRequest("Cannot restore chapter %s: course %s is not active", ch.ID, ch.CourseID)
		}
		if _, ok := byCourse[ch.CourseID]; !ok {
			courseOrder = append(courseOrder, ch.CourseID)
		}
		byCourse[ch.CourseID] = append(byCourse[ch.CourseID], OrderCandidate{ID: ch.ID, Order: ch.Order})
		ids[i] = ch.ID
	}

	policy := NewOrderingPolicy(r.Chapters, "chapter", "course")
	for _, courseID := range courseOrder {
		conflicts, err := policy.ValidateBulkOrders(ctx, courseID, byCourse[courseID], nil)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			return nil, conflictError(conflicts...)
		}
	}
	return restoreChapters(ctx, r, chapters, ids)
}

func restoreChapters(ctx context.Context, r repository.Repos, chapters []*model.Chapter, ids []string) (repository.CascadedLessons, error) {
	if err := r.Chapters.SetLifecycle(ctx, ids, model.Draft()); err != nil {
		return nil, err
	}
	lessonIDs, err := r.Lessons.RestoreCascadedByChapters(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, ch := range chapters {
		ch.Lifecycle = model.Draft()
	}
	return lessonIDs, nil
}

// CascadeLessons follows chapter status changes already written by an
// update: lessons of chapters moved into ARCHIVED are archived by cascade,
// and lessons cascaded onto chapters moved out of it are restored.
func (CascadeCoordinator) CascadeLessons(ctx context.Context, r repository.Repos, archivedChapters, restoredChapters []string, at time.Time) (archived, restored repository.CascadedLessons, err error) {
	if len(archivedChapters) > 0 {
		if archived, err = r.Lessons.ArchiveActiveByChapters(ctx, archivedChapters, at); err != nil {
			return nil, nil, err
		}
	}
	if len(restoredChapters) > 0 {
		if restored, err = r.Lessons.RestoreCascadedByChapters(ctx, restoredChapters); err != nil {
			return nil, nil, err
		}
	}
	return archived, restored, nil
}
