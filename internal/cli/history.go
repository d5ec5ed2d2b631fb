package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sitepipe/internal/ir"
	"github.com/roach88/sitepipe/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Pipeline string
}

// HistoryResult is the JSON payload of a history listing.
type HistoryResult struct {
	Definitions []store.DefinitionSummary `json:"definitions"`
	Executions  []ir.ExecutionRecord      `json:"executions"`
}

// ExecutionDetail is the JSON payload for a single execution.
type ExecutionDetail struct {
	Execution ir.ExecutionRecord  `json:"execution"`
	Events    []ir.ExecutionEvent `json:"events"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [execution-id]",
		Short: "Show recorded definitions and executions",
		Long: `Without arguments, list every recorded definition and execution in the
order they were recorded. With an execution ID, show that run's events.

Example:
  sitepipe history --db sitepipe.db
  sitepipe history --db sitepipe.db --pipeline website-dev-pipeline
  sitepipe history --db sitepipe.db 0190a5c4-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Pipeline, "pipeline", "", "only list executions of this pipeline")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}
	defer st.Close()

	if len(args) == 1 {
		return showExecution(ctx, formatter, st, args[0])
	}

	defs, err := st.ListDefinitions(ctx)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}
	execs, err := st.ListExecutions(ctx, opts.Pipeline)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}
	formatter.VerboseLog("Found %d definition(s), %d execution(s)", len(defs), len(execs))

	if formatter.Format == "json" {
		return formatter.Success(HistoryResult{Definitions: defs, Executions: execs})
	}

	fmt.Fprintf(formatter.Writer, "Definitions (%d):\n", len(defs))
	for _, d := range defs {
		fmt.Fprintf(formatter.Writer, "  %d  %s  %s  %s\n", d.Seq, d.Pipeline, d.ID, shortDigest(d.Digest))
	}
	fmt.Fprintf(formatter.Writer, "\nExecutions (%d):\n", len(execs))
	for _, e := range execs {
		fmt.Fprintf(formatter.Writer, "  %s  %s  %s  commit=%s\n", e.ID, e.Pipeline, e.State, e.Commit)
	}
	return nil
}

func showExecution(ctx context.Context, formatter *OutputFormatter, st *store.Store, id string) error {
	rec, events, err := st.ReadExecution(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("execution not found: %s", id), nil)
	}
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(ExecutionDetail{Execution: rec, Events: events})
	}

	fmt.Fprintf(formatter.Writer, "Execution %s\n", rec.ID)
	fmt.Fprintf(formatter.Writer, "  pipeline: %s\n", rec.Pipeline)
	fmt.Fprintf(formatter.Writer, "  state:    %s\n", rec.State)
	fmt.Fprintf(formatter.Writer, "  commit:   %s\n", rec.Commit)
	fmt.Fprintf(formatter.Writer, "  digest:   %s\n\n", shortDigest(rec.DefinitionDigest))
	for _, ev := range events {
		fmt.Fprintf(formatter.Writer, "  [%d] %s", ev.Seq, ev.Type)
		if ev.Stage != "" {
			fmt.Fprintf(formatter.Writer, " stage=%s", ev.Stage)
		}
		if ev.Action != "" {
			fmt.Fprintf(formatter.Writer, " action=%s", ev.Action)
		}
		if ev.Outcome != "" {
			fmt.Fprintf(formatter.Writer, " outcome=%s", ev.Outcome)
		}
		if ev.Detail != "" {
			fmt.Fprintf(formatter.Writer, " detail=%q", ev.Detail)
		}
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
