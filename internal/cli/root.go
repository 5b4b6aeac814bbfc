// Package cli implements the todosync command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/todosync/internal/hook"
	"github.com/mesh-intelligence/todosync/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// options holds global flag values shared by all subcommands.
type options struct {
	configDir string
	dataDir   string
	jsonMode  bool
	session   string
}

// NewRootCmd creates the top-level "todosync" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "todosync",
		Short: "Keep agent session todos in sync with a beads issue tracker",
		Long: "todosync mirrors the todo list of an agent session into bd issues:\n" +
			"one epic per session and one child issue per todo. It can rebuild\n" +
			"the todo list from the tracker when the session has lost it.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "configuration directory (default: $(CWD)/.todosync)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "tracker data directory (default: $(CWD)/.beads)")
	root.PersistentFlags().BoolVar(&opts.jsonMode, "json", false, "output as JSON")
	root.PersistentFlags().StringVar(&opts.session, "session", "", "session ID")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(opts))
	root.AddCommand(newReconcileCmd(opts))
	root.AddCommand(newRecoverCmd(opts))
	root.AddCommand(newHookCmd(opts))
	root.AddCommand(newStatusCmd(opts))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "todosync:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// usageError marks failures caused by the invocation rather than the
// environment.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func userErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// exitCode classifies err into an exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ue *usageError
	switch {
	case errors.As(err, &ue),
		errors.Is(err, types.ErrSessionRequired),
		errors.Is(err, types.ErrUnknownEvent),
		errors.Is(err, hook.ErrMalformedEvent):
		return exitUserError
	default:
		return exitSysError
	}
}

// requireSession returns the --session value or a usage error.
func (o *options) requireSession() (string, error) {
	if o.session == "" {
		return "", &usageError{err: types.ErrSessionRequired}
	}
	return o.session, nil
}
