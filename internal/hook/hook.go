// Package hook adapts host runtime todo events to the reconciliation engine.
//
// The host writes one JSON event to the hook's stdin:
//
//	{"event": "todo.write", "sessionID": "ses_...", "todos": [...]}
//
// todo.write reconciles the tracker with todos and answers {}. todo.read
// answers {"todos": [...]}: the event's own todos when it carries any,
// otherwise the list recovered from the tracker.
package hook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mesh-intelligence/todosync/pkg/types"
)

// Event names sent by the host.
const (
	EventTodoWrite = "todo.write"
	EventTodoRead  = "todo.read"
)

// ErrMalformedEvent is returned by Serve when stdin is not a JSON event.
var ErrMalformedEvent = errors.New("malformed hook event")

// Syncer is the part of the engine the hook drives.
type Syncer interface {
	Reconcile(ctx context.Context, sessionID string, todos []types.TodoItem) error
	Recover(ctx context.Context, sessionID string) ([]types.TodoItem, error)
}

// Event is one host notification.
type Event struct {
	Event     string           `json:"event"`
	SessionID string           `json:"sessionID"`
	Todos     []types.TodoItem `json:"todos"`
}

// Response is written back to the host. A nil Todos encodes as {}.
type Response struct {
	Todos []types.TodoItem
}

// MarshalJSON implements json.Marshaler.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.Todos == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(struct {
		Todos []types.TodoItem `json:"todos"`
	}{r.Todos})
}

// Handler dispatches events to a Syncer.
type Handler struct {
	syncer Syncer
	// session is used when an event carries no session ID.
	session string
}

// New returns a Handler. fallbackSession is used for events without a
// session ID and may be empty.
func New(syncer Syncer, fallbackSession string) *Handler {
	return &Handler{syncer: syncer, session: fallbackSession}
}

// Serve decodes one event from r, dispatches it, and writes the response
// as a single JSON line to w.
func (h *Handler) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	var ev Event
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	resp, err := h.Dispatch(ctx, ev)
	if err != nil {
		return err
	}
	return json.NewEncoder(w).Encode(resp)
}

// Dispatch handles a decoded event.
func (h *Handler) Dispatch(ctx context.Context, ev Event) (Response, error) {
	sessionID := ev.SessionID
	if sessionID == "" {
		sessionID = h.session
	}
	if sessionID == "" {
		return Response{}, types.ErrSessionRequired
	}

	switch ev.Event {
	case EventTodoWrite:
		todos := ev.Todos
		if todos == nil {
			todos = []types.TodoItem{}
		}
		if err := h.syncer.Reconcile(ctx, sessionID, todos); err != nil {
			return Response{}, err
		}
		return Response{}, nil

	case EventTodoRead:
		if len(ev.Todos) > 0 {
			return Response{Todos: ev.Todos}, nil
		}
		todos, err := h.syncer.Recover(ctx, sessionID)
		if err != nil {
			return Response{}, err
		}
		if todos == nil {
			todos = []types.TodoItem{}
		}
		return Response{Todos: todos}, nil

	default:
		return Response{}, fmt.Errorf("%w: %q", types.ErrUnknownEvent, ev.Event)
	}
}
