package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/todosync/pkg/types"
)

func TestMemoryLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("td")

	epic, err := m.Create(ctx, types.CreateRequest{Title: "Session", Type: types.IssueTypeEpic, Priority: 2})
	require.NoError(t, err)
	assert.Contains(t, epic.ID, "td-")

	child, err := m.Create(ctx, types.CreateRequest{Title: "Task", Type: types.IssueTypeTask, Priority: 1, Parent: epic.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{child.ID}, m.Children(epic.ID))

	status := types.IssueInProgress
	require.NoError(t, m.Update(ctx, child.ID, types.UpdateRequest{Status: &status}))

	got, err := m.Show(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, types.IssueInProgress, got.Status)

	require.NoError(t, m.Close(ctx, child.ID, "Completed"))
	assert.ErrorIs(t, m.Close(ctx, child.ID, "Completed"), types.ErrTrackerRejected)

	got, err = m.Show(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, types.IssueClosed, got.Status)
	assert.Equal(t, "Completed", got.CloseReason)
}

func TestMemoryUnknownIDs(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("")

	_, err := m.Show(ctx, "nope")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, m.Close(ctx, "nope", "x"), types.ErrNotFound)
	assert.ErrorIs(t, m.Update(ctx, "nope", types.UpdateRequest{}), types.ErrNotFound)

	_, err = m.Create(ctx, types.CreateRequest{Title: "orphan", Parent: "nope"})
	assert.ErrorIs(t, err, types.ErrTrackerRejected)
}

func TestMemoryInjectedFailures(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("td")
	m.FailOn(OpCreate, types.ErrTrackerUnavailable)

	_, err := m.Create(ctx, types.CreateRequest{Title: "x"})
	assert.ErrorIs(t, err, types.ErrTrackerUnavailable)
	assert.Equal(t, 1, m.CountCalls(OpCreate))

	m.FailOn(OpCreate, nil)
	_, err = m.Create(ctx, types.CreateRequest{Title: "x"})
	assert.NoError(t, err)
	assert.Len(t, m.Issues(), 1)
}
