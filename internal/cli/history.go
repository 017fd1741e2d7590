package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/l5xst/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB    string
	Limit int
	Input string // only runs over this input digest
	Run   string // show one run with its diagnostics
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List conversions recorded with --db",
		Long: `List the conversion runs recorded in a history database, oldest first.

Examples:
  l5xst history --db runs.db
  l5xst history --db runs.db --limit 5
  l5xst history --db runs.db --run 01920c4e-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "history database path (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show only the most recent runs")
	cmd.Flags().StringVar(&opts.Input, "input-digest", "", "show only runs over this input digest")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show one run and its diagnostics")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(opts.DB); os.IsNotExist(err) {
		return outputError(formatter, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.DB), nil)
	}
	st, err := store.Open(opts.DB)
	if err != nil {
		return outputError(formatter, ErrCodeStore, err.Error(), nil)
	}
	defer st.Close()

	if opts.Run != "" {
		run, err := st.ReadRun(ctx, opts.Run)
		if err != nil {
			return outputError(formatter, ErrCodeStore, err.Error(), nil)
		}
		diags, err := st.ReadDiagnostics(ctx, opts.Run)
		if err != nil {
			return outputError(formatter, ErrCodeStore, err.Error(), nil)
		}
		run.Diagnostics = diags
		if formatter.Format == "json" {
			return formatter.Success(run)
		}
		printRun(formatter, run)
		for _, d := range diags {
			fmt.Fprintf(formatter.Writer, "    %s\n", d)
		}
		return nil
	}

	runs, err := st.ListRuns(ctx, store.ListOptions{Limit: opts.Limit, InputDigest: opts.Input})
	if err != nil {
		return outputError(formatter, ErrCodeStore, err.Error(), nil)
	}
	if formatter.Format == "json" {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		printRun(formatter, r)
	}
	return nil
}

func printRun(formatter *OutputFormatter, r store.Run) {
	mark := "✓"
	if r.ExitCode != ExitSuccess {
		mark = "✗"
	}
	score := "not validated"
	if r.Validated {
		score = fmt.Sprintf("fidelity %.2f%%", r.Score()*100)
	}
	fmt.Fprintf(formatter.Writer, "%s #%d %s %s %s (%s)\n", mark, r.Seq, r.ID, r.Command, r.Input, score)
	formatter.VerboseLog("  input %s output %s", r.InputDigest, r.OutputDigest)
}

// recordRun writes a run to the database at path, creating it if needed.
func recordRun(ctx context.Context, path string, run store.Run) (string, error) {
	st, err := store.Open(path)
	if err != nil {
		return "", err
	}
	defer st.Close()

	stored, _, err := st.WriteRun(ctx, run)
	if err != nil {
		return "", err
	}
	return stored.ID, nil
}
