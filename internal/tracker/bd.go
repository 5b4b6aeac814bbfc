package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/todosync/pkg/types"
)

// Compile-time interface check.
var _ types.Tracker = (*BD)(nil)

// runner executes name with args in dir and returns its output. A process
// that ran and exited non-zero is reported as *exitError.
type runner func(ctx context.Context, dir, name string, args ...string) (stdout, stderr []byte, err error)

// exitError reports a tracker process that exited with a non-zero code.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return "exit status " + strconv.Itoa(e.code)
}

// BD talks to the beads CLI. Every call appends --json and decodes stdout.
type BD struct {
	command string
	dir     string
	timeout time.Duration
	run     runner
}

// NewBD returns a gateway that runs command in dir. A positive timeout
// bounds each invocation.
func NewBD(command, dir string, timeout time.Duration) *BD {
	return &BD{
		command: command,
		dir:     dir,
		timeout: timeout,
		run:     execRunner,
	}
}

func execRunner(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	// #nosec G204 -- the tracker command comes from local configuration
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	var ee *exec.ExitError
	if errors.As(err, &ee) && ctx.Err() == nil {
		return stdout.Bytes(), stderr.Bytes(), &exitError{code: ee.ExitCode()}
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

// issueJSON is the issue shape printed by bd --json.
type issueJSON struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    int    `json:"priority"`
	IssueType   string `json:"issue_type"`
	Notes       string `json:"notes"`
	CloseReason string `json:"close_reason"`
	ParentID    string `json:"parent_id"`
	Parent      string `json:"parent"`
}

func (j *issueJSON) toIssue() *types.TrackerIssue {
	parent := j.Parent
	if parent == "" {
		parent = j.ParentID
	}
	return &types.TrackerIssue{
		ID:          j.ID,
		Title:       j.Title,
		Description: j.Description,
		Status:      j.Status,
		Priority:    j.Priority,
		IssueType:   j.IssueType,
		Notes:       j.Notes,
		CloseReason: j.CloseReason,
		Parent:      parent,
	}
}

// Create runs bd create. The title goes through --title so a leading dash
// is never parsed as a flag.
func (b *BD) Create(ctx context.Context, req types.CreateRequest) (*types.TrackerIssue, error) {
	args := []string{"create",
		"--title", req.Title,
		"--type", req.Type,
		"--priority", strconv.Itoa(req.Priority),
	}
	if req.Description != "" {
		args = append(args, "--description", req.Description)
	}
	if req.Parent != "" {
		args = append(args, "--parent", req.Parent)
	}

	out, err := b.exec(ctx, args...)
	if err != nil {
		return nil, err
	}
	issue, err := decodeIssue(out)
	if err != nil {
		return nil, fmt.Errorf("%w: create: %v", types.ErrTrackerRejected, err)
	}
	if issue == nil || issue.ID == "" {
		return nil, fmt.Errorf("%w: create returned no issue id", types.ErrTrackerRejected)
	}
	return issue, nil
}

// Update runs bd update with the non-nil fields of req.
func (b *BD) Update(ctx context.Context, id string, req types.UpdateRequest) error {
	args := []string{"update", id}
	if req.Status != nil {
		args = append(args, "--status", *req.Status)
	}
	if req.Notes != nil {
		args = append(args, "--notes", *req.Notes)
	}
	_, err := b.exec(ctx, args...)
	return err
}

// Close runs bd close with a reason.
func (b *BD) Close(ctx context.Context, id, reason string) error {
	_, err := b.exec(ctx, "close", id, "--reason", reason)
	return err
}

// Show runs bd show. bd prints either an object or a one-element array.
func (b *BD) Show(ctx context.Context, id string) (*types.TrackerIssue, error) {
	out, err := b.exec(ctx, "show", id)
	if err != nil {
		return nil, err
	}
	issue, err := decodeIssue(out)
	if err != nil {
		return nil, fmt.Errorf("%w: show %s: %v", types.ErrTrackerRejected, id, err)
	}
	if issue == nil || issue.ID == "" {
		return nil, types.ErrNotFound
	}
	return issue, nil
}

// exec runs one bd invocation and classifies its failure.
func (b *BD) exec(ctx context.Context, args ...string) ([]byte, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	args = append(args, "--json")

	stdout, stderr, err := b.run(ctx, b.dir, b.command, args...)
	if err != nil {
		return nil, b.wrapError(err, stderr, args)
	}
	return stdout, nil
}

// wrapError maps a failed invocation onto the tracker sentinel errors.
func (b *BD) wrapError(err error, stderr []byte, args []string) error {
	var ee *exitError
	if !errors.As(err, &ee) {
		return fmt.Errorf("%w: %s %s: %v", types.ErrTrackerUnavailable, b.command, args[0], err)
	}

	msg := strings.TrimSpace(string(stderr))
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "not found") || strings.Contains(lower, "no issue") {
		return types.ErrNotFound
	}
	if msg == "" {
		msg = ee.Error()
	}
	return fmt.Errorf("%w: %s %s: %s", types.ErrTrackerRejected, b.command, args[0], msg)
}

// decodeIssue decodes an issue object or the first element of an array.
// An empty array decodes to nil.
func decodeIssue(data []byte) (*types.TrackerIssue, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty output")
	}
	if data[0] == '[' {
		var list []issueJSON
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, nil
		}
		return list[0].toIssue(), nil
	}
	var one issueJSON
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, err
	}
	return one.toIssue(), nil
}
