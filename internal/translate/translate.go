// Package translate maps todo statuses and priorities to tracker statuses
// and priorities and back. Every function is pure and total.
package translate

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/todosync/pkg/types"
)

// Close reasons written by todosync. Recovery looks for cancelledMarker in
// notes and close reasons when no structured outcome is recorded.
const (
	ReasonCompleted = "Completed"
	ReasonCancelled = "Cancelled"
	ReasonRemoved   = "Todo removed from OpenCode"

	cancelledMarker = "Cancelled"
)

// defaultTrackerPriority is used for unknown todo priorities.
const defaultTrackerPriority = 2

// StatusToTracker returns the tracker status for a todo status. Completed
// and cancelled both collapse to closed; unknown statuses map to open.
func StatusToTracker(status string) string {
	switch status {
	case types.TodoInProgress:
		return types.IssueInProgress
	case types.TodoCompleted, types.TodoCancelled:
		return types.IssueClosed
	default:
		return types.IssueOpen
	}
}

// StatusFromTracker returns the todo status for an issue. For closed issues
// outcome decides between completed and cancelled; when outcome is empty the
// issue's notes and close reason are searched for the cancelled marker.
func StatusFromTracker(issue *types.TrackerIssue, outcome string) string {
	switch issue.Status {
	case types.IssueInProgress:
		return types.TodoInProgress
	case types.IssueClosed:
		switch outcome {
		case types.OutcomeCancelled:
			return types.TodoCancelled
		case types.OutcomeCompleted:
			return types.TodoCompleted
		}
		if strings.Contains(issue.Notes, cancelledMarker) || strings.Contains(issue.CloseReason, cancelledMarker) {
			return types.TodoCancelled
		}
		return types.TodoCompleted
	default:
		return types.TodoPending
	}
}

// PriorityToTracker returns the tracker priority for a todo priority.
func PriorityToTracker(priority string) int {
	switch priority {
	case types.PriorityHigh:
		return 1
	case types.PriorityLow:
		return 3
	default:
		return defaultTrackerPriority
	}
}

// PriorityFromTracker returns the todo priority for a tracker priority.
func PriorityFromTracker(priority int) string {
	switch priority {
	case 0, 1:
		return types.PriorityHigh
	case 3, 4:
		return types.PriorityLow
	default:
		return types.PriorityMedium
	}
}

// CloseReason returns the reason written when a todo with the given
// terminal status is closed.
func CloseReason(status string) string {
	if status == types.TodoCancelled {
		return ReasonCancelled
	}
	return ReasonCompleted
}

// EpicCloseReason summarizes a finished session.
func EpicCloseReason(completed, cancelled int) string {
	return fmt.Sprintf("All todos done: %d completed, %d cancelled", completed, cancelled)
}
