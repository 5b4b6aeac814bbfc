package types

// Tracker issue statuses.
const (
	IssueOpen       = "open"
	IssueInProgress = "in_progress"
	IssueClosed     = "closed"
)

// Tracker issue types used by todosync.
const (
	IssueTypeEpic = "epic"
	IssueTypeTask = "task"
)

// TrackerIssue is the subset of a tracker issue that todosync reads.
type TrackerIssue struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Priority    int    `json:"priority"`
	IssueType   string `json:"issue_type,omitempty"`
	Notes       string `json:"notes,omitempty"`
	CloseReason string `json:"close_reason,omitempty"`
	Parent      string `json:"parent,omitempty"`
}
