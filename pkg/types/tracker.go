package types

import (
	"context"
	"errors"
)

// Tracker is the call boundary to the external issue tracker. Every method
// blocks until the tracker answers. Implementations classify failures with
// the sentinel errors below.
type Tracker interface {
	// Create makes a new issue and returns it with the tracker-assigned ID.
	Create(ctx context.Context, req CreateRequest) (*TrackerIssue, error)

	// Update changes the status and/or notes of an issue. Nil fields are
	// left untouched.
	Update(ctx context.Context, id string, req UpdateRequest) error

	// Close closes an issue with a human-readable reason.
	Close(ctx context.Context, id, reason string) error

	// Show returns the issue with the given ID, or ErrNotFound.
	Show(ctx context.Context, id string) (*TrackerIssue, error)
}

// CreateRequest describes an issue to create. Parent is empty for top-level
// issues.
type CreateRequest struct {
	Title       string
	Type        string
	Priority    int
	Description string
	Parent      string
}

// UpdateRequest holds optional field changes for Tracker.Update.
type UpdateRequest struct {
	Status *string
	Notes  *string
}

// Tracker errors.
var (
	ErrTrackerUnavailable = errors.New("tracker unavailable")
	ErrTrackerRejected    = errors.New("tracker rejected request")
	ErrNotFound           = errors.New("issue not found")
)
