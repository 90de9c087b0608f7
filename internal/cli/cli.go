// Package cli wires the command-line surface: it parses flags and
// arguments, validates user input, and translates failures into
// process-level exit codes.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vk/plangridgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// NewRootCommand builds the plangrid command tree. All subcommand output
// goes to outW; logging goes there too, on the configured handler.
func NewRootCommand(outW io.Writer) *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	root := &cobra.Command{
		Use:           "plangrid",
		Short:         "A declarative pipeline executor for logistics planning.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")

	newApp := func(path string) (*app.App, error) {
		format := strings.ToLower(logFormat)
		if format != "text" && format != "json" {
			return nil, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
		}
		level := strings.ToLower(logLevel)
		switch level {
		case "debug", "info", "warn", "error":
		default:
			return nil, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
		}

		cfg, err := app.NewConfig(app.Config{
			PipelinePath: path,
			LogFormat:    format,
			LogLevel:     level,
		})
		if err != nil {
			return nil, &ExitError{Code: 2, Message: err.Error()}
		}
		return app.New(outW, cfg), nil
	}

	run := &cobra.Command{
		Use:   "run <pipeline.hcl|dir>",
		Short: "Execute a pipeline.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(args[0])
			if err != nil {
				return err
			}
			if err := a.Run(cmd.Context()); err != nil {
				return &ExitError{Code: 1, Message: fmt.Sprintf("run failed: %v", err)}
			}
			return nil
		},
	}

	lint := &cobra.Command{
		Use:   "lint <pipeline.hcl|dir>",
		Short: "Validate a pipeline without executing it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(args[0])
			if err != nil {
				return err
			}
			if err := a.Lint(cmd.Context()); err != nil {
				return &ExitError{Code: 1, Message: fmt.Sprintf("lint failed:\n%v", err)}
			}
			return nil
		},
	}

	graph := &cobra.Command{
		Use:   "graph <pipeline.hcl|dir>",
		Short: "Export the stage dependency graph in DOT format.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(args[0])
			if err != nil {
				return err
			}
			if err := a.Graph(cmd.Context()); err != nil {
				return &ExitError{Code: 1, Message: fmt.Sprintf("graph failed: %v", err)}
			}
			return nil
		},
	}

	root.AddCommand(run, lint, graph)
	return root
}
