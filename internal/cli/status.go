package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/todosync/pkg/types"
)

// issueStatusMissing marks mapped issues the tracker no longer returns.
const issueStatusMissing = "missing"

// sessionStatus is one session row of the status report.
type sessionStatus struct {
	SessionID  string       `json:"sessionID"`
	Epic       string       `json:"epic"`
	EpicStatus string       `json:"epicStatus"`
	Todos      []todoStatus `json:"todos"`
}

type todoStatus struct {
	TodoID  string `json:"todoID"`
	IssueID string `json:"issueID"`
	Status  string `json:"status"`
	Title   string `json:"title,omitempty"`
	Outcome string `json:"outcome,omitempty"`
}

// statusStyles are the lipgloss styles of the text report.
type statusStyles struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	open    lipgloss.Style
	active  lipgloss.Style
	closed  lipgloss.Style
	missing lipgloss.Style
}

func newStatusStyles(w io.Writer) statusStyles {
	r := lipgloss.NewRenderer(w)
	return statusStyles{
		title:   r.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		open:    r.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		active:  r.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		closed:  r.NewStyle().Foreground(lipgloss.Color("#10B981")),
		missing: r.NewStyle().Foreground(lipgloss.Color("#EF4444")).Italic(true),
	}
}

func (s statusStyles) forStatus(status string) lipgloss.Style {
	switch status {
	case types.IssueOpen:
		return s.open
	case types.IssueInProgress:
		return s.active
	case types.IssueClosed:
		return s.closed
	default:
		return s.missing
	}
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show recorded sessions and the tracker state of their issues",
		Long: "Status lists every session in the mapping, or only --session when\n" +
			"given, with its epic and the linked todo issues as the tracker reports them.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			report := a.collectStatus(cmd.Context(), opts.session)
			if opts.jsonMode {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			renderStatus(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

// collectStatus reads the mapping and looks up every mapped issue. When
// only is non-empty the report is limited to that session.
func (a *app) collectStatus(ctx context.Context, only string) []sessionStatus {
	m := a.engine.Snapshot(ctx)

	report := []sessionStatus{}
	for _, sessionID := range m.SessionIDs() {
		if only != "" && sessionID != only {
			continue
		}
		epicID, _ := m.Epic(sessionID)
		row := sessionStatus{
			SessionID:  sessionID,
			Epic:       epicID,
			EpicStatus: a.issueStatus(ctx, epicID).Status,
			Todos:      []todoStatus{},
		}
		for _, link := range m.Links(sessionID) {
			issue := a.issueStatus(ctx, link.IssueID)
			row.Todos = append(row.Todos, todoStatus{
				TodoID:  link.TodoID,
				IssueID: link.IssueID,
				Status:  issue.Status,
				Title:   issue.Title,
				Outcome: m.Outcome(sessionID, link.TodoID),
			})
		}
		report = append(report, row)
	}
	return report
}

func (a *app) issueStatus(ctx context.Context, id string) types.TrackerIssue {
	if id == "" {
		return types.TrackerIssue{Status: issueStatusMissing}
	}
	issue, err := a.tracker.Show(ctx, id)
	if err != nil {
		a.log.Debug("status lookup failed", "issue", id, "error", err)
		return types.TrackerIssue{ID: id, Status: issueStatusMissing}
	}
	return *issue
}

func renderStatus(w io.Writer, report []sessionStatus) {
	st := newStatusStyles(w)
	if len(report) == 0 {
		fmt.Fprintln(w, st.muted.Render("no sessions recorded"))
		return
	}

	var b strings.Builder
	for i, row := range report {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(st.title.Render("session "+row.SessionID) + "\n")
		b.WriteString(fmt.Sprintf("  epic %s %s\n", row.Epic, st.forStatus(row.EpicStatus).Render("["+row.EpicStatus+"]")))
		if len(row.Todos) == 0 {
			b.WriteString("  " + st.muted.Render("no linked todos") + "\n")
			continue
		}
		for _, todo := range row.Todos {
			status := todo.Status
			if todo.Outcome != "" {
				status += "/" + todo.Outcome
			}
			line := lipgloss.JoinHorizontal(lipgloss.Top,
				"  ",
				st.forStatus(todo.Status).Width(22).Render(status),
				st.muted.Render(todo.TodoID+" -> "+todo.IssueID),
				"  "+todo.Title,
			)
			b.WriteString(line + "\n")
		}
	}
	fmt.Fprint(w, b.String())
}
