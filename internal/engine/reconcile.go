package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/todosync/internal/translate"
	"github.com/mesh-intelligence/todosync/pkg/types"
)

// Reconcile converges the tracker to todos for sessionID.
//
// Recorded todos have their state reasserted, new todos get a child issue
// of the session epic, todos missing from the list have their issue closed
// and their link removed, and the epic is closed once every todo is
// completed or cancelled. Only epic and todo creation failures are
// returned; the first one ends the pass. The mapping is saved in all cases.
func (e *Engine) Reconcile(ctx context.Context, sessionID string, todos []types.TodoItem) (err error) {
	if sessionID == "" {
		return types.ErrSessionRequired
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.load(ctx)
	defer func() {
		saveErr := e.store.Save(ctx, m)
		if saveErr == nil {
			return
		}
		if err == nil {
			err = fmt.Errorf("saving mapping: %w", saveErr)
			return
		}
		e.log.Error("saving mapping failed", "session", sessionID, "error", saveErr)
	}()

	epicID, err := e.ensureSessionIssue(ctx, sessionID, m)
	if err != nil {
		return err
	}

	live := make(map[string]bool, len(todos))
	for _, todo := range todos {
		live[todo.ID] = true
		if issueID, ok := m.Issue(sessionID, todo.ID); ok {
			e.applyState(ctx, m, sessionID, todo, issueID)
			continue
		}
		if err := e.createTodoIssue(ctx, m, sessionID, epicID, todo); err != nil {
			return err
		}
	}

	e.closeRemoved(ctx, m, sessionID, live)
	e.closeFinishedEpic(ctx, sessionID, epicID, todos)
	return nil
}

// createTodoIssue creates the issue for a new todo, links it, and brings
// it to the todo's current state in the same pass.
func (e *Engine) createTodoIssue(ctx context.Context, m *types.Mapping, sessionID, epicID string, todo types.TodoItem) error {
	title := strings.TrimSpace(todo.Content)
	if title == "" {
		title = "Untitled todo " + todo.ID
	}

	issue, err := e.tracker.Create(ctx, types.CreateRequest{
		Title:       title,
		Type:        types.IssueTypeTask,
		Priority:    translate.PriorityToTracker(todo.Priority),
		Description: "OpenCode todo id: " + todo.ID,
		Parent:      epicID,
	})
	if err != nil {
		return fmt.Errorf("creating issue for todo %s in session %s: %w", todo.ID, sessionID, err)
	}
	m.Link(sessionID, todo.ID, issue.ID)

	if todo.Status == types.TodoInProgress || todo.IsTerminal() {
		e.applyState(ctx, m, sessionID, todo, issue.ID)
	}
	return nil
}

// applyState makes issueID reflect the todo's status. Closed states also
// record the outcome in the mapping and, when the outcome changes, the close
// reason in the notes.
func (e *Engine) applyState(ctx context.Context, m *types.Mapping, sessionID string, todo types.TodoItem, issueID string) {
	status := translate.StatusToTracker(todo.Status)
	if status != types.IssueClosed {
		m.SetOutcome(sessionID, todo.ID, "")
		if err := e.tracker.Update(ctx, issueID, types.UpdateRequest{Status: &status}); err != nil {
			e.swallow("update", err, "session", sessionID, "todo", todo.ID, "issue", issueID)
		}
		return
	}

	reason := translate.CloseReason(todo.Status)
	if m.Outcome(sessionID, todo.ID) != todo.Status {
		m.SetOutcome(sessionID, todo.ID, todo.Status)
		if err := e.tracker.Update(ctx, issueID, types.UpdateRequest{Notes: &reason}); err != nil {
			e.swallow("update notes", err, "session", sessionID, "todo", todo.ID, "issue", issueID)
		}
	}
	if err := e.tracker.Close(ctx, issueID, reason); err != nil {
		e.swallow("close", err, "session", sessionID, "todo", todo.ID, "issue", issueID)
	}
}

// closeRemoved closes and unlinks the issues of todos absent from live.
func (e *Engine) closeRemoved(ctx context.Context, m *types.Mapping, sessionID string, live map[string]bool) {
	for _, link := range m.Links(sessionID) {
		if live[link.TodoID] {
			continue
		}
		if err := e.tracker.Close(ctx, link.IssueID, translate.ReasonRemoved); err != nil {
			e.swallow("close removed", err, "session", sessionID, "todo", link.TodoID, "issue", link.IssueID)
		}
		m.Unlink(sessionID, link.TodoID)
	}
}

// closeFinishedEpic closes the epic when todos is non-empty and every todo
// is completed or cancelled.
func (e *Engine) closeFinishedEpic(ctx context.Context, sessionID, epicID string, todos []types.TodoItem) {
	if len(todos) == 0 {
		return
	}
	completed, cancelled := 0, 0
	for _, todo := range todos {
		switch todo.Status {
		case types.TodoCompleted:
			completed++
		case types.TodoCancelled:
			cancelled++
		default:
			return
		}
	}
	if err := e.tracker.Close(ctx, epicID, translate.EpicCloseReason(completed, cancelled)); err != nil {
		e.swallow("close epic", err, "session", sessionID, "epic", epicID)
	}
}
