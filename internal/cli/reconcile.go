package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/todosync/pkg/types"
)

func newReconcileCmd(opts *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Sync a session's todo list to the tracker",
		Long: "Reconcile reads the session's full todo list as a JSON array and\n" +
			"creates, updates, and closes tracker issues to match it.\n\n" +
			"Example:\n" +
			"  echo '[{\"id\":\"1\",\"content\":\"Write docs\",\"status\":\"pending\",\"priority\":\"medium\"}]' \\\n" +
			"    | todosync reconcile --session ses_123",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, opts, file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read todos from file instead of stdin")
	return cmd
}

func runReconcile(cmd *cobra.Command, opts *options, file string) error {
	sessionID, err := opts.requireSession()
	if err != nil {
		return err
	}
	todos, err := readTodos(cmd.InOrStdin(), file)
	if err != nil {
		return err
	}

	a, err := opts.newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if err := a.engine.Reconcile(cmd.Context(), sessionID, todos); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	epicID := a.epicOf(cmd.Context(), sessionID)
	if opts.jsonMode {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"sessionID": sessionID,
			"epic":      epicID,
			"todos":     len(todos),
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "reconciled %d todos for session %s (epic %s)\n", len(todos), sessionID, epicID)
	return nil
}

// readTodos decodes a JSON array of todos from file, or from stdin when
// file is empty.
func readTodos(stdin io.Reader, file string) ([]types.TodoItem, error) {
	var data []byte
	var err error
	if file != "" {
		data, err = os.ReadFile(file)
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return nil, fmt.Errorf("read todos: %w", err)
	}

	todos := []types.TodoItem{}
	if err := json.Unmarshal(data, &todos); err != nil {
		return nil, userErrorf("parse todos: %v", err)
	}
	if todos == nil {
		todos = []types.TodoItem{}
	}
	for i, todo := range todos {
		if todo.ID == "" {
			return nil, userErrorf("todo %d has no id", i)
		}
	}
	return todos, nil
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}
