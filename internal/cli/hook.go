package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/todosync/internal/hook"
)

func newHookCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "hook",
		Short: "Handle one todo event from the host runtime",
		Long: "Hook reads a single JSON event from stdin and writes the JSON response\n" +
			"to stdout:\n\n" +
			"  {\"event\":\"todo.write\",\"sessionID\":\"ses_1\",\"todos\":[...]}  ->  {}\n" +
			"  {\"event\":\"todo.read\",\"sessionID\":\"ses_1\"}                 ->  {\"todos\":[...]}\n\n" +
			"--session is used for events that carry no session ID.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return hook.New(a.engine, opts.session).Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
