package service

import (
	"errors"
	"fmt"
	"testing"

	"coursecatalog/internal/apperr"
	"coursecatalog/internal/model"
	"coursecatalog/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChapterCreate_AssignsNextOrder(t *testing.T) {
	f := newFixture(t)

	c1 := f.newChapter(t, f.course.ID, nil)
	c2 := f.newChapter(t, f.course.ID, intPtr(5))
	c3 := f.newChapter(t, f.course.ID, nil)

	assert.Equal(t, 1, c1.Order)
	assert.Equal(t, 5, c2.Order)
	assert.Equal(t, 6, c3.Order)
	assert.Equal(t, model.StatusDraft, c3.Lifecycle.Status())
	assert.Equal(t, []string{c1.ID, c2.ID, c3.ID}, f.activeChapterIDs(t, f.course.ID))
}

func TestChapterCreate_OrderTakenNamesOrderAndCourse(t *testing.T) {
	f := newFixture(t)
	a := f.newChapter(t, f.course.ID, intPtr(1))

	_, err := f.chapters.Create(bgCtx, owner, ChapterCreate{CourseID: f.course.ID, Title: "B", Order: intPtr(1)})

	assertKind(t, apperr.KindInvalidRequest, err)
	assert.Equal(t, fmt.Sprintf("Order number 1 is already taken in course %s", f.course.ID), err.Error())
	var conflict OrderConflict
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, AlreadyTaken, conflict.Kind)
	assert.Equal(t, a.ID, conflict.HolderID)
	assert.Equal(t, []string{a.ID}, f.activeChapterIDs(t, f.course.ID))
}

func TestChapterCreate_RejectsBadInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		in   ChapterCreate
		kind apperr.Kind
	}{
		{"empty title", ChapterCreate{CourseID: f.course.ID, Title: "  "}, apperr.KindInvalidRequest},
		{"zero order", ChapterCreate{CourseID: f.course.ID, Title: "A", Order: intPtr(0)}, apperr.KindInvalidRequest},
		{"published on create", ChapterCreate{CourseID: f.course.ID, Title: "A", Status: statusPtr(model.StatusPublished)}, apperr.KindInvalidRequest},
		{"missing course", ChapterCreate{CourseID: "nope", Title: "A"}, apperr.KindNotFound},
		{"nested lesson without type", ChapterCreate{CourseID: f.course.ID, Title: "A", Lessons: []LessonCreate{{Title: "L"}}}, apperr.KindInvalidRequest},
		{"nested duplicate order", ChapterCreate{CourseID: f.course.ID, Title: "A", Lessons: []LessonCreate{
			{Title: "L1", Type: model.LessonText, Order: intPtr(2)},
			{Title: "L2", Type: model.LessonText, Order: intPtr(2)},
		}}, apperr.KindInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.chapters.Create(bgCtx, owner, tt.in)
			assertKind(t, tt.kind, err)
		})
	}
	assert.Empty(t, f.activeChapterIDs(t, f.course.ID))
}

func TestChapterCreate_WithNestedLessons(t *testing.T) {
	f := newFixture(t)

	ch := f.newChapter(t, f.course.ID, nil,
		LessonCreate{Title: "Intro", Type: model.LessonVideo, Order: intPtr(2)},
		LessonCreate{Title: "Setup", Type: model.LessonText},
		LessonCreate{Title: "Quiz", Type: model.LessonQuiz},
	)

	require.Len(t, ch.Lessons, 3)
	assert.Equal(t, []int{2, 1, 3}, []int{ch.Lessons[0].Order, ch.Lessons[1].Order, ch.Lessons[2].Order})
	assert.Equal(t, []string{ch.Lessons[1].ID, ch.Lessons[0].ID, ch.Lessons[2].ID}, f.activeLessonIDs(t, ch.ID))

	events := f.store.Events()
	last := events[len(events)-1]
	assert.Equal(t, model.EventChaptersCreated, last.Type)
	assert.Equal(t, []string{ch.ID}, last.EntityIDs)
	assert.Len(t, last.Cascaded, 3)
}

func TestChapterBulkCreate_OverLimitPersistsNothing(t *testing.T) {
	f := newFixture(t)
	in := make([]ChapterCreate, 6)
	for i := range in {
		in[i] = ChapterCreate{CourseID: f.course.ID, Title: fmt.Sprintf("Chapter %d", i+1)}
	}

	_, err := f.chapters.BulkCreate(bgCtx, owner, in)

	assertKind(t, apperr.KindInvalidRequest, err)
	assert.Contains(t, err.Error(), "Maximum 5 chapters")
	assert.Empty(t, f.activeChapterIDs(t, f.course.ID))
	assert.Len(t, f.store.Events(), 1)
}

func TestChapterBulkCreate(t *testing.T) {
	f := newFixture(t)
	f.newChapter(t, f.course.ID, intPtr(2))

	t.Run("duplicate order in request", func(t *testing.T) {
		_, err := f.chapters.BulkCreate(bgCtx, owner, []ChapterCreate{
			{CourseID: f.course.ID, Title: "A", Order: intPtr(4)},
			{CourseID: f.course.ID, Title: "B", Order: intPtr(4)},
		})
		assertKind(t, apperr.KindInvalidRequest, err)
		var conflict OrderConflict
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, IntraBatchDuplicate, conflict.Kind)
	})

	t.Run("order taken in storage", func(t *testing.T) {
		_, err := f.chapters.BulkCreate(bgCtx, owner, []ChapterCreate{
			{CourseID: f.course.ID, Title: "A"},
			{CourseID: f.course.ID, Title: "B", Order: intPtr(2)},
		})
		assertKind(t, apperr.KindInvalidRequest, err)
		assert.Contains(t, err.Error(), "Order number 2 is already taken")
	})

	t.Run("mixed explicit and automatic orders", func(t *testing.T) {
		chs, err := f.chapters.BulkCreate(bgCtx, owner, []ChapterCreate{
			{CourseID: f.course.ID, Title: "A"},
			{CourseID: f.course.ID, Title: "B", Order: intPtr(4)},
			{CourseID: f.course.ID, Title: "C"},
		})
		require.NoError(t, err)
		assert.Equal(t, []int{3, 4, 5}, []int{chs[0].Order, chs[1].Order, chs[2].Order})
	})

	assert.Len(t, f.activeChapterIDs(t, f.course.ID), 4)
}

func TestChapterReorder(t *testing.T) {
	f := newFixture(t)
	c1 := f.newChapter(t, f.course.ID, nil)
	c2 := f.newChapter(t, f.course.ID, nil)
	c3 := f.newChapter(t, f.course.ID, nil)

	chs, err := f.chapters.Reorder(bgCtx, owner, f.course.ID, []string{c3.ID, c1.ID, c2.ID})

	require.NoError(t, err)
	require.Len(t, chs, 3)
	for i, want := range []string{c3.ID, c1.ID, c2.ID} {
		assert.Equal(t, want, chs[i].ID)
		assert.Equal(t, i+1, chs[i].Order)
	}
	assert.Equal(t, []string{c3.ID, c1.ID, c2.ID}, f.activeChapterIDs(t, f.course.ID))
}

func TestChapterReorder_SubsetKeepsRestInPlace(t *testing.T) {
	f := newFixture(t)
	c1 := f.newChapter(t, f.course.ID, nil)
	c2 := f.newChapter(t, f.course.ID, intPtr(7))
	c3 := f.newChapter(t, f.course.ID, nil)

	chs, err := f.chapters.Reorder(bgCtx, owner, f.course.ID, []string{c3.ID})

	require.NoError(t, err)
	assert.Equal(t, []string{c3.ID, c1.ID, c2.ID}, f.activeChapterIDs(t, f.course.ID))
	assert.Equal(t, []int{1, 2, 3}, []int{chs[0].Order, chs[1].Order, chs[2].Order})
}

func TestChapterReorder_RejectsWithoutWrites(t *testing.T) {
	f := newFixture(t)
	c1 := f.newChapter(t, f.course.ID, nil)
	c2 := f.newChapter(t, f.course.ID, nil)
	deleted := f.newChapter(t, f.course.ID, nil)
	_, err := f.chapters.Delete(bgCtx, owner, deleted.ID)
	require.NoError(t, err)

	otherCourse := f.newCourse(t, owner)
	foreign := f.newChapter(t, otherCourse.ID, nil)
	eventsBefore := len(f.store.Events())

	tests := []struct {
		name string
		ids  []string
		msg  string
	}{
		{"id from another course", []string{c2.ID, foreign.ID, c1.ID}, "does not belong to course"},
		{"archived id", []string{c2.ID, deleted.ID}, "is archived"},
		{"duplicate id", []string{c2.ID, c2.ID}, "Duplicate chapter id"},
		{"empty list", nil, "No chapter ids"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.chapters.Reorder(bgCtx, owner, f.course.ID, tt.ids)
			assertKind(t, apperr.KindInvalidRequest, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	assert.Equal(t, []string{c1.ID, c2.ID}, f.activeChapterIDs(t, f.course.ID))
	assert.Equal(t, 1, f.chapter(t, c1.ID).Order)
	assert.Equal(t, 2, f.chapter(t, c2.ID).Order)
	assert.Len(t, f.store.Events(), eventsBefore)
}

func TestChapterDelete_CascadesToActiveLessonsOnly(t *testing.T) {
	f := newFixture(t)
	ch := f.newChapter(t, f.course.ID, nil,
		LessonCreate{Title: "L1", Type: model.LessonText},
		LessonCreate{Title: "L2", Type: model.LessonText},
		LessonCreate{Title: "L3", Type: model.LessonText},
	)
	l1, l2, l3 := ch.Lessons[0], ch.Lessons[1], ch.Lessons[2]
	_, err := f.lessons.Delete(bgCtx, owner, l2.ID)
	require.NoError(t, err)

	deleted, err := f.chapters.Delete(bgCtx, owner, ch.ID)

	require.NoError(t, err)
	assert.Equal(t, model.StatusArchived, deleted.Lifecycle.Status())
	assert.NotNil(t, deleted.Lifecycle.DeletedAt())
	assertArchivedConsistent(t, f.chapter(t, ch.ID).Lifecycle)
	assert.Empty(t, f.activeLessonIDs(t, ch.ID))
	assert.Equal(t, model.CauseCascade, f.lesson(t, l1.ID).Lifecycle.Cause())
	assert.Equal(t, model.CauseDirect, f.lesson(t, l2.ID).Lifecycle.Cause())
	assert.Equal(t, model.CauseCascade, f.lesson(t, l3.ID).Lifecycle.Cause())

	events := f.store.Events()
	last := events[len(events)-1]
	assert.Equal(t, model.EventChaptersDeleted, last.Type)
	assert.ElementsMatch(t, []string{l1.ID, l3.ID}, last.Cascaded)

	restored, err := f.chapters.Restore(bgCtx, owner, ch.ID)

	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, restored.Lifecycle.Status())
	assert.Nil(t, f.chapter(t, ch.ID).Lifecycle.DeletedAt())
	assert.Equal(t, []string{l1.ID, l3.ID}, f.activeLessonIDs(t, ch.ID))
	still := f.lesson(t, l2.ID)
	assert.Equal(t, model.StatusArchived, still.Lifecycle.Status())
	assertArchivedConsistent(t, still.Lifecycle)
}

func TestChapterDeleteRestore_StateConflicts(t *testing.T) {
	f := newFixture(t)
	ch := f.newChapter(t, f.course.ID, nil)

	_, err := f.chapters.Restore(bgCtx, owner, ch.ID)
	assertKind(t, apperr.KindInvalidRequest, err)
	assert.Contains(t, err.Error(), "is not deleted")

	_, err = f.chapters.Delete(bgCtx, owner, ch.ID)
	require.NoError(t, err)

	_, err = f.chapters.Delete(bgCtx, owner, ch.ID)
	assertKind(t, apperr.KindInvalidRequest, err)
	assert.Contains(t, err.Error(), "is already deleted")

	_, err = f.chapters.Delete(bgCtx, owner, "missing")
	assertKind(t, apperr.KindNotFound, err)
}

func TestChapterRestore_OrderTaken(t *testing.T) {
	f := newFixture(t)
	c1 := f.newChapter(t, f.course.ID, intPtr(1))
	_, err := f.chapters.Delete(bgCtx, owner, c1.ID)
	require.NoError(t, err)
	c2 := f.newChapter(t, f.course.ID, intPtr(1))

	_, err = f.chapters.Restore(bgCtx, owner, c1.ID)

	assertKind(t, apperr.KindInvalidRequest, err)
	assert.Equal(t, fmt.Sprintf("Order number 1 is already taken in course %s", f.course.ID), err.Error())
	assert.Equal(t, []string{c2.ID}, f.activeChapterIDs(t, f.course.ID))
}

func TestChapterRestore_CourseMustBeActive(t *testing.T) {
	f := newFixture(t)
	ch := f.newChapter(t, f.course.ID, nil)
	_, err := f.chapters.Delete(bgCtx, owner, ch.ID)
	require.NoError(t, err)
	_, err = f.courses.Update(bgCtx, owner, f.course.ID, CourseUpdate{Status: statusPtr(model.StatusArchived)})
	require.NoError(t, err)

	_, err = f.chapters.Restore(bgCtx, owner, ch.ID)

	assertKind(t, apperr.KindInvalidRequest, err)
	assert.Equal(t, model.StatusArchived, f.chapter(t, ch.ID).Lifecycle.Status())
}

func TestChapterUpdate_StatusTransitions(t *testing.T) {
	f := newFixture(t)
	ch := f.newChapter(t, f.course.ID, nil, LessonCreate{Title: "L1", Type: model.LessonVideo})
	lessonID := ch.Lessons[0].ID

	published, err := f.chapters.Update(bgCtx, owner, ch.ID, ChapterUpdate{Status: statusPtr(model.StatusPublished)})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPublished, published.Lifecycle.Status())

	resent, err := f.chapters.Update(bgCtx, owner, ch.ID, ChapterUpdate{Status: statusPtr(model.StatusPublished), Title: strPtr("Edited")})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPublished, resent.Lifecycle.Status())
	assert.Equal(t, "Edited", f.chapter(t, ch.ID).Title)

	archived, err := f.chapters.Update(bgCtx, owner, ch.ID, ChapterUpdate{Status: statusPtr(model.StatusArchived)})
	require.NoError(t, err)
	assertArchivedConsistent(t, archived.Lifecycle)
	assert.Equal(t, model.CauseCascade, f.lesson(t, lessonID).Lifecycle.Cause())

	_, err = f.chapters.Update(bgCtx, owner, ch.ID, ChapterUpdate{Status: statusPtr(model.StatusPublished)})
	assertKind(t, apperr.KindInvalidRequest, err)
	assert.Contains(t, err.Error(), "allowed: DRAFT")

	_, err = f.chapters.Update(bgCtx, owner, ch.ID, ChapterUpdate{Title: strPtr("Renamed")})
	assertKind(t, apperr.KindInvalidRequest, err)

	_, err = f.chapters.Update(bgCtx, owner, ch.ID, ChapterUpdate{Status: statusPtr(model.StatusArchived), Title: strPtr("Renamed")})
	assertKind(t, apperr.KindInvalidRequest, err)

	draft, err := f.chapters.Update(bgCtx, owner, ch.ID, ChapterUpdate{Status: statusPtr(model.StatusDraft), Title: strPtr("Back")})
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, draft.Lifecycle.Status())
	assert.Equal(t, "Back", f.chapter(t, ch.ID).Title)
	assert.Equal(t, []string{lessonID}, f.activeLessonIDs(t, ch.ID))
}

func TestChapterUpdate_OrderTaken(t *testing.T) {
	f := newFixture(t)
	c1 := f.newChapter(t, f.course.ID, nil)
	c2 := f.newChapter(t, f.course.ID, nil)

	_, err := f.chapters.Update(bgCtx, owner, c2.ID, ChapterUpdate{Order: intPtr(1)})
	assertKind(t, apperr.KindInvalidRequest, err)

	same, err := f.chapters.Update(bgCtx, owner, c1.ID, ChapterUpdate{Order: intPtr(1), Title: strPtr("Same slot")})
	require.NoError(t, err)
	assert.Equal(t, 1, same.Order)
}

func TestChapterBulkUpdate_SwapsOrders(t *testing.T) {
	f := newFixture(t)
	c1 := f.newChapter(t, f.course.ID, nil)
	c2 := f.newChapter(t, f.course.ID, nil)

	chs, err := f.chapters.BulkUpdate(bgCtx, admin, []string{c1.ID, c2.ID}, []ChapterUpdate{
		{Order: intPtr(2)},
		{Order: intPtr(1)},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, chs[0].Order)
	assert.Equal(t, 1, chs[1].Order)
	assert.Equal(t, []string{c2.ID, c1.ID}, f.activeChapterIDs(t, f.course.ID))
}

func TestChapterBulkUpdate_Rejects(t *testing.T) {
	f := newFixture(t)
	c1 := f.newChapter(t, f.course.ID, nil)
	c2 := f.newChapter(t, f.course.ID, nil)
	c3 := f.newChapter(t, f.course.ID, nil)

	t.Run("mismatched lists", func(t *testing.T) {
		_, err := f.chapters.BulkUpdate(bgCtx, owner, []string{c1.ID, c2.ID}, []ChapterUpdate{{}})
		assertKind(t, apperr.KindInvalidRequest, err)
	})

	t.Run("two chapters onto one slot", func(t *testing.T) {
		_, err := f.chapters.BulkUpdate(bgCtx, owner, []string{c1.ID, c2.ID}, []ChapterUpdate{
			{Order: intPtr(9)},
			{Order: intPtr(9)},
		})
		assertKind(t, apperr.KindInvalidRequest, err)
		assert.Contains(t, err.Error(), "more than once")
	})

	t.Run("slot held by chapter outside the batch", func(t *testing.T) {
		_, err := f.chapters.BulkUpdate(bgCtx, owner, []string{c1.ID, c2.ID}, []ChapterUpdate{
			{Order: intPtr(3)},
			{Title: strPtr("x")},
		})
		assertKind(t, apperr.KindInvalidRequest, err)
		assert.Contains(t, err.Error(), "Order number 3 is already taken")
	})

	assert.Equal(t, []string{c1.ID, c2.ID, c3.ID}, f.activeChapterIDs(t, f.course.ID))
	assert.Equal(t, "Chapter", f.chapter(t, c2.ID).Title)
}

func TestChapterBulkDelete_RejectsWholeBatch(t *testing.T) {
	f := newFixture(t)
	c1 := f.newChapter(t, f.course.ID, nil)
	c2 := f.newChapter(t, f.course.ID, nil)
	_, err := f.chapters.Delete(bgCtx, owner, c2.ID)
	require.NoError(t, err)

	_, err = f.chapters.BulkDelete(bgCtx, owner, []string{c1.ID, c2.ID})

	assertKind(t, apperr.KindInvalidRequest, err)
	assert.Equal(t, []string{c1.ID}, f.activeChapterIDs(t, f.course.ID))
}

func TestChapterBulkDelete_RollsBackOnStorageFailure(t *testing.T) {
	f := newFixture(t)
	c1 := f.newChapter(t, f.course.ID, nil, LessonCreate{Title: "L", Type: model.LessonText})
	c2 := f.newChapter(t, f.course.ID, nil)
	eventsBefore := len(f.store.Events())
	f.store.FailOn("lessons.ArchiveActiveByChapters", errors.New("connection reset"))

	_, err := f.chapters.BulkDelete(bgCtx, owner, []string{c1.ID, c2.ID})

	assertKind(t, apperr.KindInternal, err)
	assert.Equal(t, "internal error", apperr.PublicMessage(err))
	assert.Equal(t, []string{c1.ID, c2.ID}, f.activeChapterIDs(t, f.course.ID))
	assert.Len(t, f.activeLessonIDs(t, c1.ID), 1)
	assert.Len(t, f.store.Events(), eventsBefore)
}

func TestChapterBulkDelete_CascadedLessonsStayWithTheirCourse(t *testing.T) {
	f := newFixture(t)
	course2 := f.newCourse(t, owner)
	c1 := f.newChapter(t, f.course.ID, nil, LessonCreate{Title: "L1", Type: model.LessonText})
	c2 := f.newChapter(t, course2.ID, nil, LessonCreate{Title: "L2", Type: model.LessonText})
	l1, l2 := c1.Lessons[0], c2.Lessons[0]
	eventsBefore := len(f.store.Events())

	_, err := f.chapters.BulkDelete(bgCtx, owner, []string{c1.ID, c2.ID})
	require.NoError(t, err)

	cascadedByCourse := func(events []model.ContentEvent) map[string][]string {
		out := map[string][]string{}
		for _, e := range events {
			out[e.CourseID] = e.Cascaded
		}
		return out
	}
	deleted := f.store.Events()[eventsBefore:]
	require.Len(t, deleted, 2)
	assert.Equal(t, map[string][]string{
		f.course.ID: {l1.ID},
		course2.ID:  {l2.ID},
	}, cascadedByCourse(deleted))

	_, err = f.chapters.BulkRestore(bgCtx, owner, []string{c1.ID, c2.ID})
	require.NoError(t, err)

	restored := f.store.Events()[eventsBefore+2:]
	require.Len(t, restored, 2)
	assert.Equal(t, model.EventChaptersRestored, restored[0].Type)
	assert.Equal(t, map[string][]string{
		f.course.ID: {l1.ID},
		course2.ID:  {l2.ID},
	}, cascadedByCourse(restored))
}

func TestChapterBulkRestore(t *testing.T) {
	f := newFixture(t)
	c1 := f.newChapter(t, f.course.ID, nil)
	c2 := f.newChapter(t, f.course.ID, nil)
	_, err := f.chapters.BulkDelete(bgCtx, owner, []string{c1.ID, c2.ID})
	require.NoError(t, err)

	chs, err := f.chapters.BulkRestore(bgCtx, owner, []string{c2.ID, c1.ID})

	require.NoError(t, err)
	assert.Equal(t, c2.ID, chs[0].ID)
	assert.Equal(t, []string{c1.ID, c2.ID}, f.activeChapterIDs(t, f.course.ID))
}

func TestChapterAccess(t *testing.T) {
	f := newFixture(t)
	ch := f.newChapter(t, f.course.ID, nil)

	_, err := f.chapters.Update(bgCtx, other, ch.ID, ChapterUpdate{Title: strPtr("Hijacked")})
	assertKind(t, apperr.KindForbidden, err)
	_, err = f.chapters.Create(bgCtx, student, ChapterCreate{CourseID: f.course.ID, Title: "A"})
	assertKind(t, apperr.KindForbidden, err)
	_, err = f.chapters.Reorder(bgCtx, other, f.course.ID, []string{ch.ID})
	assertKind(t, apperr.KindForbidden, err)

	_, err = f.chapters.Update(bgCtx, admin, ch.ID, ChapterUpdate{Title: strPtr("Fixed by admin")})
	require.NoError(t, err)

	_, err = f.courses.Update(bgCtx, owner, f.course.ID, CourseUpdate{Status: statusPtr(model.StatusArchived)})
	require.NoError(t, err)
	_, err = f.chapters.Create(bgCtx, owner, ChapterCreate{CourseID: f.course.ID, Title: "Late"})
	assertKind(t, apperr.KindInvalidRequest, err)
	assert.Contains(t, err.Error(), "is archived")
}

func TestChapterRead_Visibility(t *testing.T) {
	f := newFixture(t)
	ch := f.newChapter(t, f.course.ID, nil,
		LessonCreate{Title: "Draft lesson", Type: model.LessonText},
		LessonCreate{Title: "Public lesson", Type: model.LessonText},
	)

	got, err := f.chapters.Get(bgCtx, owner, ch.ID)
	require.NoError(t, err)
	assert.Len(t, got.Lessons, 2)

	_, err = f.chapters.Get(bgCtx, student, ch.ID)
	assertKind(t, apperr.KindNotFound, err)

	_, err = f.courses.Update(bgCtx, owner, f.course.ID, CourseUpdate{Status: statusPtr(model.StatusPublished)})
	require.NoError(t, err)
	_, err = f.chapters.Update(bgCtx, owner, ch.ID, ChapterUpdate{Status: statusPtr(model.StatusPublished)})
	require.NoError(t, err)
	_, err = f.lessons.Update(bgCtx, owner, ch.Lessons[1].ID, LessonUpdate{Status: statusPtr(model.StatusPublished)})
	require.NoError(t, err)

	got, err = f.chapters.Get(bgCtx, student, ch.ID)
	require.NoError(t, err)
	require.Len(t, got.Lessons, 1)
	assert.Equal(t, ch.Lessons[1].ID, got.Lessons[0].ID)

	list, err := f.chapters.List(bgCtx, student, f.course.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.chapters.List(bgCtx, student, "missing")
	assertKind(t, apperr.KindNotFound, err)
}

func TestChapterBulkCreate_StorageOrderViolationNamesOrderAndCourse(t *testing.T) {
	f := newFixture(t)
	f.store.FailOn("chapters.CreateBatch", &repository.OrderTakenError{ParentID: f.course.ID, Order: 1})

	_, err := f.chapters.BulkCreate(bgCtx, owner, []ChapterCreate{
		{CourseID: f.course.ID, Title: "A"},
		{CourseID: f.course.ID, Title: "B"},
	})

	assertKind(t, apperr.KindInvalidRequest, err)
	assert.Equal(t, fmt.Sprintf("Order number 1 is already taken in course %s", f.course.ID), err.Error())
	var conflict OrderConflict
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, AlreadyTaken, conflict.Kind)
	assert.Empty(t, f.activeChapterIDs(t, f.course.ID))
}

func TestChapterBulkUpdate_StorageOrderViolationWithoutKey(t *testing.T) {
	f := newFixture(t)
	c1 := f.newChapter(t, f.course.ID, nil)
	c2 := f.newChapter(t, f.course.ID, nil)
	f.store.FailOn("chapters.UpdateBatch", repository.ErrOrderTaken)

	_, err := f.chapters.BulkUpdate(bgCtx, owner, []string{c1.ID, c2.ID}, []ChapterUpdate{
		{Order: intPtr(2)}, {Order: intPtr(1)},
	})

	assertKind(t, apperr.KindInvalidRequest, err)
	assert.Equal(t, "Order number is already taken by another active chapter under the same parent", err.Error())
	assert.Equal(t, []string{c1.ID, c2.ID}, f.activeChapterIDs(t, f.course.ID))
}
