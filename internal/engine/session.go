package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/todosync/pkg/types"
)

// epicPriority is the tracker priority of session epics.
const epicPriority = 2

// ensureSessionIssue returns the epic of sessionID, creating it when none is
// recorded or the tracker reports the recorded one as not found. Any other
// lookup failure is returned and the recorded links are left alone. A new
// epic is saved to the store right away so it cannot be orphaned by a crash
// later in the pass.
func (e *Engine) ensureSessionIssue(ctx context.Context, sessionID string, m *types.Mapping) (string, error) {
	if id, ok := m.Epic(sessionID); ok {
		_, err := e.tracker.Show(ctx, id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, types.ErrNotFound) {
			return "", fmt.Errorf("looking up epic %s of session %s: %w", id, sessionID, err)
		}
		e.log.Info("session epic missing, creating a new one",
			"session", sessionID, "epic", id)
	}

	issue, err := e.tracker.Create(ctx, types.CreateRequest{
		Title:       epicTitle(sessionID, e.now()),
		Type:        types.IssueTypeEpic,
		Priority:    epicPriority,
		Description: "Todos synced from OpenCode session " + sessionID,
	})
	if err != nil {
		return "", fmt.Errorf("creating epic for session %s: %w", sessionID, err)
	}

	m.SetEpic(sessionID, issue.ID)
	if err := e.store.Save(ctx, m); err != nil {
		e.log.Warn("saving mapping after epic creation failed",
			"session", sessionID, "epic", issue.ID, "error", err)
	}
	e.log.Debug("created session epic", "session", sessionID, "epic", issue.ID)
	return issue.ID, nil
}

// epicTitle names an epic after a shortened session ID and the date.
func epicTitle(sessionID string, t time.Time) string {
	short := sessionID
	if r := []rune(sessionID); len(r) > 8 {
		short = string(r[:8])
	}
	return fmt.Sprintf("OpenCode session %s (%s)", short, t.Format("2006-01-02"))
}
