package service

import (
	"errors"
	"testing"

	"coursecatalog/internal/apperr"
	"coursecatalog/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orderingFixture builds a course with chapters at orders 1, 2 and 4 and
// returns the ordering policy over its chapters.
func orderingFixture(t *testing.T) (*fixture, *OrderingPolicy, []string) {
	t.Helper()
	f := newFixture(t)
	ids := []string{
		f.newChapter(t, f.course.ID, intPtr(1)).ID,
		f.newChapter(t, f.course.ID, intPtr(2)).ID,
		f.newChapter(t, f.course.ID, intPtr(4)).ID,
	}
	return f, NewOrderingPolicy(f.store.Repos().Chapters, "chapter", "course"), ids
}

func TestOrderingPolicy_ValidateOrder(t *testing.T) {
	f, policy, ids := orderingFixture(t)

	require.NoError(t, policy.ValidateOrder(bgCtx, f.course.ID, 3))
	require.NoError(t, policy.ValidateOrder(bgCtx, f.course.ID, 2, ids[1]))

	err := policy.ValidateOrder(bgCtx, f.course.ID, 2)
	assertKind(t, apperr.KindInvalidRequest, err)
	var conflict OrderConflict
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, ids[1], conflict.HolderID)
	assert.Equal(t, "course", conflict.ParentKind)

	assertKind(t, apperr.KindInvalidRequest, policy.ValidateOrder(bgCtx, f.course.ID, 0))
	require.NoError(t, policy.ValidateOrder(bgCtx, "another-course", 1))
}

func TestOrderingPolicy_ValidateBulkOrders(t *testing.T) {
	f, policy, ids := orderingFixture(t)

	conflicts, err := policy.ValidateBulkOrders(bgCtx, f.course.ID, []OrderCandidate{
		{Order: 3},
		{Order: 3},
		{Order: 4},
		{ID: ids[0], Order: 2},
		{ID: ids[1], Order: 1},
	}, nil)
	require.NoError(t, err)
	require.Len(t, conflicts, 4)
	assert.Equal(t, IntraBatchDuplicate, conflicts[0].Kind)
	assert.Equal(t, AlreadyTaken, conflicts[1].Kind)
	assert.Equal(t, ids[2], conflicts[1].HolderID)
	assert.Equal(t, ids[1], conflicts[2].HolderID)
	assert.Equal(t, ids[0], conflicts[3].HolderID)

	conflicts, err = policy.ValidateBulkOrders(bgCtx, f.course.ID, []OrderCandidate{
		{ID: ids[0], Order: 2},
		{ID: ids[1], Order: 1},
	}, []string{ids[0], ids[1]})
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	_, err = policy.ValidateBulkOrders(bgCtx, f.course.ID, []OrderCandidate{{Order: -2}}, nil)
	assertKind(t, apperr.KindInvalidRequest, err)
}

func TestOrderingPolicy_AssignOrders(t *testing.T) {
	f, policy, _ := orderingFixture(t)

	orders, err := policy.AssignOrders(bgCtx, f.course.ID, []*int{nil, intPtr(6), nil, nil})
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6, 7, 8}, orders)

	next, err := policy.NextOrder(bgCtx, "empty-course")
	require.NoError(t, err)
	assert.Equal(t, 1, next)
}

func TestOrderingPolicy_ReorderChildren(t *testing.T) {
	f, policy, ids := orderingFixture(t)

	var final []string
	err := f.store.WithTx(bgCtx, func(r repository.Repos) error {
		var err error
		final, err = NewOrderingPolicy(r.Chapters, "chapter", "course").ReorderChildren(bgCtx, f.course.ID, []string{ids[2], ids[0]})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{ids[2], ids[0], ids[1]}, final)

	chs, err := f.store.Repos().Chapters.ListActiveByCourse(bgCtx, f.course.ID)
	require.NoError(t, err)
	for i, ch := range chs {
		assert.Equal(t, final[i], ch.ID)
		assert.Equal(t, i+1, ch.Order)
	}

	_, err = policy.ReorderChildren(bgCtx, f.course.ID, []string{"ghost"})
	assertKind(t, apperr.KindInvalidRequest, err)
}
