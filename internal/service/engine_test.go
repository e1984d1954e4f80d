package service

import (
	"testing"
	"time"

	"coursecatalog/internal/apperr"
	"coursecatalog/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransition(t *testing.T) {
	draft, published, archived := model.StatusDraft, model.StatusPublished, model.StatusArchived

	tests := []struct {
		name    string
		current *model.Status
		to      model.Status
		ok      bool
	}{
		{"new as draft", nil, draft, true},
		{"new as published", nil, published, false},
		{"new as archived", nil, archived, false},
		{"draft to published", &draft, published, true},
		{"draft to archived", &draft, archived, true},
		{"draft to draft", &draft, draft, false},
		{"published to draft", &published, draft, true},
		{"published to archived", &published, archived, true},
		{"archived to draft", &archived, draft, true},
		{"archived to published", &archived, published, false},
		{"archived to archived", &archived, archived, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.current, tt.to)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assertKind(t, apperr.KindInvalidRequest, err)
		})
	}
}

func TestTransition_StampsDeletionTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	lc, err := Transition(model.Published(), model.StatusArchived, now)
	require.NoError(t, err)
	require.NotNil(t, lc.DeletedAt())
	assert.Equal(t, now, *lc.DeletedAt())
	assert.Equal(t, model.CauseDirect, lc.Cause())

	lc, err = Transition(lc, model.StatusDraft, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Nil(t, lc.DeletedAt())

	kept, err := Transition(model.Archived(now, model.CauseCascade), model.StatusPublished, now)
	assertKind(t, apperr.KindInvalidRequest, err)
	assert.Equal(t, model.CauseCascade, kept.Cause())
}

func TestBulkGuard(t *testing.T) {
	g := NewBulkGuard(0)
	assert.Equal(t, DefaultBulkMaxItems, g.MaxItems)

	assert.NoError(t, g.ValidateCreate("chapters", 5))
	assertKind(t, apperr.KindInvalidRequest, g.ValidateCreate("chapters", 0))
	assertKind(t, apperr.KindInvalidRequest, g.ValidateCreate("chapters", 6))

	assert.NoError(t, g.ValidateIDs("lessons", []string{"a", "b"}))
	for name, ids := range map[string][]string{
		"empty":     nil,
		"too many":  {"a", "b", "c", "d", "e", "f"},
		"blank id":  {"a", ""},
		"duplicate": {"a", "b", "a"},
	} {
		t.Run(name, func(t *testing.T) {
			assertKind(t, apperr.KindInvalidRequest, g.ValidateIDs("lessons", ids))
		})
	}

	assert.NoError(t, g.ValidateParallel(2, 2))
	assertKind(t, apperr.KindInvalidRequest, g.ValidateParallel(2, 1))

	wide := NewBulkGuard(10)
	assert.NoError(t, wide.ValidateCreate("chapters", 6))
}

func TestAccessGate(t *testing.T) {
	var g AccessGate
	course := &model.Course{ID: "c1", InstructorID: owner.UserID}

	assert.True(t, g.CanManage(owner, course))
	assert.True(t, g.CanManage(admin, course))
	assert.False(t, g.CanManage(other, course))
	assert.False(t, g.CanManage(student, course))
	assert.False(t, g.CanManage(model.NewPrincipal(owner.UserID, nil), &model.Course{ID: "c2", InstructorID: "someone"}))

	assertKind(t, apperr.KindNotFound, g.Authorize(owner, "c9", nil))
	assertKind(t, apperr.KindForbidden, g.Authorize(other, course.ID, course))
	assert.NoError(t, g.Authorize(admin, course.ID, course))

	frozen := &model.Course{ID: "c3", InstructorID: owner.UserID, Lifecycle: model.Archived(time.Now(), model.CauseDirect)}
	assertKind(t, apperr.KindInvalidRequest, g.Authorize(owner, frozen.ID, frozen))

	assert.True(t, g.CanView(owner, course, model.Draft()))
	assert.False(t, g.CanView(student, course, model.Published()))
	course.Lifecycle = model.Published()
	assert.True(t, g.CanView(student, course, model.Published()))
	assert.False(t, g.CanView(student, course, model.Draft()))
}

func TestPlanChildUpdate(t *testing.T) {
	now := time.Now()
	archived := model.Archived(now, model.CauseDirect)

	pl, err := planChildUpdate("chapter", "c1", model.Draft(), 2, intPtr(3), nil, false, now)
	require.NoError(t, err)
	assert.True(t, pl.vacates)
	assert.True(t, pl.needsSlot)
	assert.Equal(t, 3, pl.order)

	pl, err = planChildUpdate("chapter", "c1", model.Draft(), 2, intPtr(2), nil, true, now)
	require.NoError(t, err)
	assert.False(t, pl.vacates)
	assert.False(t, pl.needsSlot)

	pl, err = planChildUpdate("chapter", "c1", model.Published(), 2, nil, statusPtr(model.StatusArchived), false, now)
	require.NoError(t, err)
	assert.True(t, pl.archiving)
	assert.True(t, pl.vacates)
	assert.False(t, pl.needsSlot)

	pl, err = planChildUpdate("lesson", "l1", archived, 4, intPtr(1), statusPtr(model.StatusDraft), true, now)
	require.NoError(t, err)
	assert.True(t, pl.restoring)
	assert.False(t, pl.vacates)
	assert.True(t, pl.needsSlot)
	assert.Equal(t, 1, pl.order)

	_, err = planChildUpdate("lesson", "l1", archived, 4, intPtr(1), nil, false, now)
	assertKind(t, apperr.KindInvalidRequest, err)

	pl, err = planChildUpdate("lesson", "l1", model.Published(), 4, nil, statusPtr(model.StatusPublished), true, now)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPublished, pl.lifecycle.Status())
	assert.False(t, pl.vacates)

	_, err = planChildUpdate("lesson", "l1", archived, 4, nil, statusPtr(model.StatusArchived), true, now)
	assertKind(t, apperr.KindInvalidRequest, err)

	_, err = planChildUpdate("lesson", "l1", model.Draft(), 4, intPtr(-1), nil, false, now)
	assertKind(t, apperr.KindInvalidRequest, err)
}
