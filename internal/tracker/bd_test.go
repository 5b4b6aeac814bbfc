package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/todosync/pkg/types"
)

// fakeRunner records invocations and answers with canned output.
type fakeRunner struct {
	calls  [][]string
	dirs   []string
	stdout string
	stderr string
	err    error
}

func (f *fakeRunner) run(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	f.dirs = append(f.dirs, dir)
	return []byte(f.stdout), []byte(f.stderr), f.err
}

func newFakeBD(f *fakeRunner) *BD {
	b := NewBD("bd", "/work", 0)
	b.run = f.run
	return b
}

func TestBDCreateBuildsArguments(t *testing.T) {
	f := &fakeRunner{stdout: `{"id":"bd-12","title":"Write docs","status":"open","priority":1,"issue_type":"task"}`}
	b := newFakeBD(f)

	issue, err := b.Create(context.Background(), types.CreateRequest{
		Title:       "Write docs",
		Type:        types.IssueTypeTask,
		Priority:    1,
		Description: "OpenCode todo id: t1",
		Parent:      "bd-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "bd-12", issue.ID)
	assert.Equal(t, []string{"bd", "create", "--title", "Write docs",
		"--type", "task", "--priority", "1",
		"--description", "OpenCode todo id: t1",
		"--parent", "bd-1", "--json"}, f.calls[0])
	assert.Equal(t, "/work", f.dirs[0])
}

func TestBDCreateDashTitleIsFlagValue(t *testing.T) {
	for _, title := range []string{"-fix lint warnings", "- tidy imports", "--help"} {
		t.Run(title, func(t *testing.T) {
			f := &fakeRunner{stdout: `{"id":"bd-13"}`}
			_, err := newFakeBD(f).Create(context.Background(), types.CreateRequest{
				Title:    title,
				Type:     types.IssueTypeTask,
				Priority: 2,
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"bd", "create", "--title", title,
				"--type", "task", "--priority", "2", "--json"}, f.calls[0])
		})
	}
}

func TestBDCreateWithoutIDIsRejected(t *testing.T) {
	b := newFakeBD(&fakeRunner{stdout: `{"title":"x"}`})
	_, err := b.Create(context.Background(), types.CreateRequest{Title: "x", Type: "task"})
	assert.ErrorIs(t, err, types.ErrTrackerRejected)
}

func TestBDUpdateOnlyPassesSetFields(t *testing.T) {
	f := &fakeRunner{stdout: `{}`}
	b := newFakeBD(f)
	status := types.IssueInProgress

	require.NoError(t, b.Update(context.Background(), "bd-3", types.UpdateRequest{Status: &status}))
	assert.Equal(t, []string{"bd", "update", "bd-3", "--status", "in_progress", "--json"}, f.calls[0])

	notes := "Cancelled"
	require.NoError(t, b.Update(context.Background(), "bd-3", types.UpdateRequest{Notes: &notes}))
	assert.Equal(t, []string{"bd", "update", "bd-3", "--notes", "Cancelled", "--json"}, f.calls[1])
}

func TestBDClosePassesReason(t *testing.T) {
	f := &fakeRunner{stdout: `{}`}
	require.NoError(t, newFakeBD(f).Close(context.Background(), "bd-4", "Todo removed from OpenCode"))
	assert.Equal(t, []string{"bd", "close", "bd-4", "--reason", "Todo removed from OpenCode", "--json"}, f.calls[0])
}

func TestBDShowDecodesObjectAndArray(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
	}{
		{"object", `{"id":"bd-5","title":"T","status":"closed","priority":3,"notes":"Cancelled","close_reason":"Cancelled","parent_id":"bd-1"}`},
		{"array", `[{"id":"bd-5","title":"T","status":"closed","priority":3,"notes":"Cancelled","close_reason":"Cancelled","parent_id":"bd-1"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue, err := newFakeBD(&fakeRunner{stdout: tt.stdout}).Show(context.Background(), "bd-5")
			require.NoError(t, err)
			assert.Equal(t, &types.TrackerIssue{
				ID: "bd-5", Title: "T", Status: "closed", Priority: 3,
				Notes: "Cancelled", CloseReason: "Cancelled", Parent: "bd-1",
			}, issue)
		})
	}
}

func TestBDShowEmptyArrayIsNotFound(t *testing.T) {
	_, err := newFakeBD(&fakeRunner{stdout: `[]`}).Show(context.Background(), "bd-9")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestBDWrapError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		stderr  string
		wantErr error
	}{
		{"issue not found", &exitError{code: 1}, "Error: issue bd-xyz not found", types.ErrNotFound},
		{"no issue", &exitError{code: 1}, "no issue with id bd-xyz", types.ErrNotFound},
		{"application failure", &exitError{code: 1}, "invalid status \"done\"", types.ErrTrackerRejected},
		{"silent failure", &exitError{code: 3}, "", types.ErrTrackerRejected},
		{"launch failure", errors.New("executable file not found in $PATH"), "", types.ErrTrackerUnavailable},
		{"deadline", context.DeadlineExceeded, "", types.ErrTrackerUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeRunner{stderr: tt.stderr, err: tt.err}
			_, err := newFakeBD(f).Show(context.Background(), "bd-xyz")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBDTimeoutSetsDeadline(t *testing.T) {
	b := NewBD("bd", "/work", time.Minute)
	var sawDeadline bool
	b.run = func(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
		_, sawDeadline = ctx.Deadline()
		return []byte(`{}`), nil, nil
	}
	require.NoError(t, b.Close(context.Background(), "bd-1", "done"))
	assert.True(t, sawDeadline)
}

func TestBDWithoutTimeoutHasNoDeadline(t *testing.T) {
	b := NewBD("bd", "/work", 0)
	var sawDeadline bool
	b.run = func(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
		_, sawDeadline = ctx.Deadline()
		return []byte(`{}`), nil, nil
	}
	require.NoError(t, b.Close(context.Background(), "bd-1", "done"))
	assert.False(t, sawDeadline)
}
