package tracker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/todosync/pkg/types"
)

// Compile-time interface check.
var _ types.Tracker = (*Memory)(nil)

// Tracker operation names recorded by Memory.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpClose  = "close"
	OpShow   = "show"
)

// Call records one operation received by Memory.
type Call struct {
	Op     string
	ID     string
	Reason string
}

// Memory is an in-process tracker. It behaves like bd for the operations
// todosync uses: closing an already closed issue is rejected and unknown
// IDs return types.ErrNotFound. Failures can be injected per operation.
type Memory struct {
	mu       sync.Mutex
	prefix   string
	issues   map[string]*types.TrackerIssue
	children map[string][]string
	calls    []Call
	failures map[string]error
}

// NewMemory returns an empty in-memory tracker whose issue IDs start with
// prefix.
func NewMemory(prefix string) *Memory {
	if prefix == "" {
		prefix = "mem"
	}
	return &Memory{
		prefix:   prefix,
		issues:   make(map[string]*types.TrackerIssue),
		children: make(map[string][]string),
		failures: make(map[string]error),
	}
}

// FailOn makes every later call of op return err. A nil err clears it.
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Calls returns a copy of the recorded operations.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CountCalls returns how many times op was called.
func (m *Memory) CountCalls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Issues returns copies of all stored issues.
func (m *Memory) Issues() []types.TrackerIssue {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.TrackerIssue, 0, len(m.issues))
	for _, issue := range m.issues {
		out = append(out, *issue)
	}
	return out
}

// Children returns the IDs of issues created under parent.
func (m *Memory) Children(parent string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.children[parent]...)
}

// Delete removes an issue as if it had been deleted outside todosync.
func (m *Memory) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.issues, id)
}

func (m *Memory) record(op, id, reason string) error {
	m.calls = append(m.calls, Call{Op: op, ID: id, Reason: reason})
	return m.failures[op]
}

func (m *Memory) generateID() string {
	for {
		u, err := uuid.NewV7()
		if err != nil {
			u = uuid.New()
		}
		hex := strings.ReplaceAll(u.String(), "-", "")
		id := m.prefix + "-" + hex[len(hex)-8:]
		if _, exists := m.issues[id]; !exists {
			return id
		}
	}
}

// Create implements types.Tracker.
func (m *Memory) Create(ctx context.Context, req types.CreateRequest) (*types.TrackerIssue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpCreate, "", ""); err != nil {
		return nil, err
	}
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title required", types.ErrTrackerRejected)
	}
	if req.Parent != "" {
		if _, ok := m.issues[req.Parent]; !ok {
			return nil, fmt.Errorf("%w: parent %s does not exist", types.ErrTrackerRejected, req.Parent)
		}
	}

	issue := &types.TrackerIssue{
		ID:          m.generateID(),
		Title:       req.Title,
		Description: req.Description,
		Status:      types.IssueOpen,
		Priority:    req.Priority,
		IssueType:   req.Type,
		Parent:      req.Parent,
	}
	m.issues[issue.ID] = issue
	if req.Parent != "" {
		m.children[req.Parent] = append(m.children[req.Parent], issue.ID)
	}

	issueCopy := *issue
	return &issueCopy, nil
}

// Update implements types.Tracker.
func (m *Memory) Update(ctx context.Context, id string, req types.UpdateRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpUpdate, id, ""); err != nil {
		return err
	}
	issue, ok := m.issues[id]
	if !ok {
		return types.ErrNotFound
	}
	if req.Status != nil {
		issue.Status = *req.Status
		if *req.Status != types.IssueClosed {
			issue.CloseReason = ""
		}
	}
	if req.Notes != nil {
		issue.Notes = *req.Notes
	}
	return nil
}

// Close implements types.Tracker.
func (m *Memory) Close(ctx context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpClose, id, reason); err != nil {
		return err
	}
	issue, ok := m.issues[id]
	if !ok {
		return types.ErrNotFound
	}
	if issue.Status == types.IssueClosed {
		return fmt.Errorf("%w: %s is already closed", types.ErrTrackerRejected, id)
	}
	issue.Status = types.IssueClosed
	issue.CloseReason = reason
	return nil
}

// Show implements types.Tracker.
func (m *Memory) Show(ctx context.Context, id string) (*types.TrackerIssue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record(OpShow, id, ""); err != nil {
		return nil, err
	}
	issue, ok := m.issues[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	issueCopy := *issue
	return &issueCopy, nil
}
