package types

// Todo statuses as reported by the host session.
const (
	TodoPending    = "pending"
	TodoInProgress = "in_progress"
	TodoCompleted  = "completed"
	TodoCancelled  = "cancelled"
)

// Todo priorities as reported by the host session.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// TodoItem is one entry of the host session's todo list. ID is assigned
// upstream and is never changed by todosync.
type TodoItem struct {
	ID       string `json:"id" yaml:"id"`
	Content  string `json:"content" yaml:"content"`
	Status   string `json:"status" yaml:"status"`
	Priority string `json:"priority" yaml:"priority"`
}

// IsTerminal reports whether the todo has reached completed or cancelled.
func (t TodoItem) IsTerminal() bool {
	return t.Status == TodoCompleted || t.Status == TodoCancelled
}
