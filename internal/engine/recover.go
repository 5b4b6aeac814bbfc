package engine

import (
	"context"

	"github.com/mesh-intelligence/todosync/internal/translate"
	"github.com/mesh-intelligence/todosync/pkg/types"
)

// Recover rebuilds the todo list of sessionID from the tracker. Todos come
// back in the order they were first linked, which need not match the
// original list order. Issues that cannot be read are skipped. A session
// without an epic yields an empty list.
func (e *Engine) Recover(ctx context.Context, sessionID string) ([]types.TodoItem, error) {
	if sessionID == "" {
		return nil, types.ErrSessionRequired
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.load(ctx)
	if _, ok := m.Epic(sessionID); !ok {
		return []types.TodoItem{}, nil
	}

	links := m.Links(sessionID)
	todos := make([]types.TodoItem, 0, len(links))
	for _, link := range links {
		issue, err := e.tracker.Show(ctx, link.IssueID)
		if err != nil {
			e.log.Debug("skipping unreadable issue during recovery",
				"session", sessionID, "todo", link.TodoID, "issue", link.IssueID, "error", err)
			continue
		}
		todos = append(todos, types.TodoItem{
			ID:       link.TodoID,
			Content:  issue.Title,
			Status:   translate.StatusFromTracker(issue, m.Outcome(sessionID, link.TodoID)),
			Priority: translate.PriorityFromTracker(issue.Priority),
		})
	}
	return todos, nil
}
