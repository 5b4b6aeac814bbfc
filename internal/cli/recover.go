package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRecoverCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Rebuild a session's todo list from the tracker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := opts.requireSession()
			if err != nil {
				return err
			}
			a, err := opts.newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			todos, err := a.engine.Recover(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("recover: %w", err)
			}

			if opts.jsonMode {
				return writeJSON(cmd.OutOrStdout(), todos)
			}
			out := cmd.OutOrStdout()
			if len(todos) == 0 {
				fmt.Fprintf(out, "no todos recorded for session %s\n", sessionID)
				return nil
			}
			for _, todo := range todos {
				fmt.Fprintf(out, "%-11s %-6s %s  (%s)\n", todo.Status, todo.Priority, todo.Content, todo.ID)
			}
			return nil
		},
	}
}
