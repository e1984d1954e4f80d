package service

import (
	"context"
	"testing"

	"coursecatalog/internal/apperr"
	"coursecatalog/internal/model"
	"coursecatalog/internal/repository/memory"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner    = model.NewPrincipal("instructor-1", []string{"INSTRUCTOR"})
	other    = model.NewPrincipal("instructor-2", []string{"INSTRUCTOR"})
	admin    = model.NewPrincipal("admin-1", []string{"ADMIN"})
	student  = model.NewPrincipal("student-1", []string{"USER"})
	bgCtx    = context.Background()
	noLogger = zerolog.Nop()
)

type fixture struct {
	store    *memory.Store
	courses  CourseService
	chapters ChapterService
	lessons  LessonService
	course   *model.Course
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{
		store:    store,
		courses:  NewCourseService(store, noLogger),
		chapters: NewChapterService(store, NewBulkGuard(DefaultBulkMaxItems), noLogger),
		lessons:  NewLessonService(store, NewBulkGuard(DefaultBulkMaxItems), noLogger),
	}
	f.course = f.newCourse(t, owner)
	return f
}

func (f *fixture) newCourse(t *testing.T, p model.Principal) *model.Course {
	t.Helper()
	c, err := f.courses.Create(bgCtx, p, CourseCreate{Title: "Go in Practice"})
	require.NoError(t, err)
	return c
}

func (f *fixture) newChapter(t *testing.T, courseID string, order *int, lessons ...LessonCreate) *model.Chapter {
	t.Helper()
	ch, err := f.chapters.Create(bgCtx, owner, ChapterCreate{CourseID: courseID, Title: "Chapter", Order: order, Lessons: lessons})
	require.NoError(t, err)
	return ch
}

func (f *fixture) newLesson(t *testing.T, chapterID string) *model.Lesson {
	t.Helper()
	l, err := f.lessons.Create(bgCtx, owner, LessonCreate{ChapterID: chapterID, Title: "Lesson", Type: model.LessonText})
	require.NoError(t, err)
	return l
}

func (f *fixture) chapter(t *testing.T, id string) *model.Chapter {
	t.Helper()
	ch, err := f.store.Repos().Chapters.GetByID(bgCtx, id)
	require.NoError(t, err)
	require.NotNil(t, ch)
	return ch
}

func (f *fixture) lesson(t *testing.T, id string) *model.Lesson {
	t.Helper()
	l, err := f.store.Repos().Lessons.GetByID(bgCtx, id)
	require.NoError(t, err)
	require.NotNil(t, l)
	return l
}

// activeChapterIDs lists the course's active chapters by order and checks no
// two of them share an order.
func (f *fixture) activeChapterIDs(t *testing.T, courseID string) []string {
	t.Helper()
	chs, err := f.store.Repos().Chapters.ListActiveByCourse(bgCtx, courseID)
	require.NoError(t, err)
	ids := make([]string, len(chs))
	for i, ch := range chs {
		ids[i] = ch.ID
		if i > 0 {
			assert.Greater(t, ch.Order, chs[i-1].Order)
		}
	}
	return ids
}

func (f *fixture) activeLessonIDs(t *testing.T, chapterID string) []string {
	t.Helper()
	ls, err := f.store.Repos().Lessons.ListActiveByChapter(bgCtx, chapterID)
	require.NoError(t, err)
	ids := make([]string, len(ls))
	for i, l := range ls {
		ids[i] = l.ID
		if i > 0 {
			assert.Greater(t, l.Order, ls[i-1].Order)
		}
	}
	return ids
}

func assertKind(t *testing.T, want apperr.Kind, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, apperr.KindOf(err), "error: %v", err)
}

// assertArchivedConsistent checks that deletion time and status agree.
func assertArchivedConsistent(t *testing.T, lc model.Lifecycle) {
	t.Helper()
	assert.Equal(t, lc.Status() == model.StatusArchived, lc.DeletedAt() != nil, "lifecycle %s", lc)
}

func intPtr(n int) *int { return &n }

func statusPtr(s model.Status) *model.Status { return &s }

func strPtr(s string) *string { return &s }
