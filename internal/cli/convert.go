package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/l5xst/internal/config"
	"github.com/roach88/l5xst/internal/consolidate"
	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/fidelity"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/l5x"
	"github.com/roach88/l5xst/internal/pipeline"
	"github.com/roach88/l5xst/internal/store"
)

// Command names, also recorded in the history store.
const (
	CommandToST  = "to-st"
	CommandToL5X = "to-l5x"
)

// ConvertOptions holds flags shared by to-st and to-l5x.
type ConvertOptions struct {
	*RootOptions
	Input       string
	Output      string
	Validate    bool
	MinFidelity float64 // negative means the configured threshold
	Scans       int     // interpreter spot check after validation
	DB          string  // history database, empty to skip recording
}

// ConversionResult is the payload printed after a conversion.
type ConversionResult struct {
	Command     string            `json:"command"`
	Input       string            `json:"input"`
	Output      string            `json:"output"`
	Controllers int               `json:"controllers"`
	Digest      string            `json:"digest"`
	Renames     consolidate.Table `json:"renames,omitempty"`
	Diagnostics diag.List         `json:"diagnostics,omitempty"`
	Validation  *ValidationResult `json:"validation,omitempty"`
	RunID       string            `json:"-"`
}

// ValidationResult summarizes a round trip.
type ValidationResult struct {
	Score       float64          `json:"score"`
	Percent     float64          `json:"percent"`
	Min         float64          `json:"min"`
	Pass        bool             `json:"pass"`
	Report      *fidelity.Report `json:"report"`
	SpotChecked bool             `json:"spot_checked"`
	Diverging   []string         `json:"diverging,omitempty"`
}

func addConvertFlags(cmd *cobra.Command, opts *ConvertOptions) {
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "input path")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().BoolVar(&opts.Validate, "validate", false, "convert the output back and print the fidelity report")
	cmd.Flags().Float64Var(&opts.MinFidelity, "min-fidelity", -1, "lowest passing fidelity score in [0,1] (default from settings)")
	cmd.Flags().IntVar(&opts.Scans, "scans", 0, "with --validate, run both programs this many scans and compare state")
	cmd.Flags().StringVar(&opts.DB, "db", "", "record the run in this history database")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
}

// NewToSTCommand creates the to-st command.
func NewToSTCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   CommandToST,
		Short: "Convert L5X projects to one Structured Text unit",
		Long: `Convert an L5X file, or a directory of L5X files with one controller
each, into a single Structured Text unit.

Controllers are indexed by file name order. Names that collide across
controllers are suffixed with the controller index.

Exit codes:
  0 - Converted (and validated, with --validate)
  1 - Round trip scored below the threshold
  2 - Load, parse or namespace error

Examples:
  l5xst to-st -i line1.L5X -o line1.st
  l5xst to-st -i ./plant -o plant.st --validate -v`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToST(cmd.Context(), opts, cmd)
		},
	}
	addConvertFlags(cmd, opts)
	return cmd
}

// NewToL5XCommand creates the to-l5x command.
func NewToL5XCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   CommandToL5X,
		Short: "Convert a Structured Text unit to an L5X project",
		Long: `Convert a Structured Text unit into an L5X project with one program,
routine and task, named by the settings. The input is one .st file or a
directory whose .st files together form the unit, read in name order.

Exit codes:
  0 - Converted (and validated, with --validate)
  1 - Round trip scored below the threshold
  2 - Read or syntax error

Examples:
  l5xst to-l5x -i plant.st -o plant.L5X
  l5xst to-l5x -i plant.st -o plant.L5X --validate --format json
  l5xst to-l5x -i ./plant -o plant.L5X`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToL5X(cmd.Context(), opts, cmd)
		},
	}
	addConvertFlags(cmd, opts)
	return cmd
}

func newPipeline(opts *ConvertOptions, cfg *config.Config, cmd *cobra.Command) *pipeline.Pipeline {
	return pipeline.New(
		pipeline.WithLogger(newLogger(opts.RootOptions, cmd.ErrOrStderr())),
		pipeline.WithConfig(cfg),
		pipeline.WithSpotCheck(opts.Scans),
	)
}

func runToST(ctx context.Context, opts *ConvertOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	in, err := loadProject(opts.Input)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d controller(s) from %s", len(in.Docs), opts.Input)
	for i, doc := range in.Docs {
		formatter.VerboseLog("  [%d] %s", i+1, doc.Controller.Name)
	}

	p := newPipeline(opts, cfg, cmd)
	fwd, err := p.ToST(ctx, in.Docs)
	if err != nil {
		return outputConvertError(formatter, err)
	}
	formatter.Diagnostics(fwd.Diags)
	for _, r := range fwd.Renames.Changed() {
		formatter.VerboseLog("Renamed %s %s -> %s (controller %d)", r.Kind, r.From, r.To, r.Controller)
	}

	if err := writeOutput(opts.Output, []byte(fwd.Text)); err != nil {
		return outputError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
	}
	formatter.VerboseLog("Wrote %s", opts.Output)

	result := &ConversionResult{
		Command:     CommandToST,
		Input:       opts.Input,
		Output:      opts.Output,
		Controllers: len(in.Docs),
		Digest:      ir.Digest(fwd.Program),
		Renames:     fwd.Renames.Changed(),
		Diagnostics: fwd.Diags,
	}
	if opts.Validate {
		v, err := p.ValidateST(ctx, fwd)
		if err != nil {
			return outputConvertError(formatter, err)
		}
		result.setValidation(v, minFidelity(opts, cfg))
	}
	return finish(ctx, formatter, opts, in.Digest, result)
}

func runToL5X(ctx context.Context, opts *ConvertOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	in, err := loadST(opts.Input)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	p := newPipeline(opts, cfg, cmd)
	rev, err := p.ToL5XFiles(ctx, in.Files)
	if err != nil {
		return outputConvertError(formatter, err)
	}
	formatter.VerboseLog("Parsed %s (%d file(s)): %d tag(s), %d POU(s), %d statement(s)",
		in.Path, len(in.Files), len(rev.Program.Tags), len(rev.Program.POUs), len(rev.Program.Body))

	data, err := l5x.Marshal(rev.Content)
	if err != nil {
		return outputError(formatter, ErrCodeWriteFailed, fmt.Sprintf("encoding project: %v", err), nil)
	}
	if err := writeOutput(opts.Output, data); err != nil {
		return outputError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
	}
	formatter.VerboseLog("Wrote %s", opts.Output)

	result := &ConversionResult{
		Command:     CommandToL5X,
		Input:       opts.Input,
		Output:      opts.Output,
		Controllers: 1,
		Digest:      ir.Digest(rev.Program),
	}
	if opts.Validate {
		v, err := p.ValidateL5X(ctx, rev)
		if err != nil {
			return outputConvertError(formatter, err)
		}
		result.setValidation(v, minFidelity(opts, cfg))
	}
	return finish(ctx, formatter, opts, in.Digest, result)
}

func minFidelity(opts *ConvertOptions, cfg *config.Config) float64 {
	if opts.MinFidelity >= 0 {
		return opts.MinFidelity
	}
	return cfg.MinFidelity
}

func (r *ConversionResult) setValidation(v *pipeline.Validation, min float64) {
	r.Validation = &ValidationResult{
		Score:       v.Report.Score(),
		Percent:     v.Report.Percent(),
		Min:         min,
		Pass:        v.Passes(min),
		Report:      v.Report,
		SpotChecked: v.SpotChecked,
		Diverging:   v.Diverging,
	}
}

// finish records the run, prints the result and turns a failed
// validation into exit code 1.
func finish(ctx context.Context, formatter *OutputFormatter, opts *ConvertOptions, inputDigest string, result *ConversionResult) error {
	exit := ExitSuccess
	if result.Validation != nil && !result.Validation.Pass {
		exit = ExitFailure
	}

	if opts.DB != "" {
		id, err := recordRun(ctx, opts.DB, newRun(result, inputDigest, exit))
		if err != nil {
			return outputError(formatter, ErrCodeStore, fmt.Sprintf("recording run: %v", err), nil)
		}
		result.RunID = id
		formatter.VerboseLog("Recorded run %s in %s", id, opts.DB)
	}

	if exit != ExitSuccess {
		msg := result.Validation.failure()
		if formatter.Format == "json" {
			_ = formatter.Error(ErrCodeValidation, msg, result)
		} else {
			printConversion(formatter, result)
			fmt.Fprintf(formatter.Writer, "✗ %s\n", msg)
		}
		return NewExitError(ExitFailure, msg)
	}

	if formatter.Format == "json" {
		return formatter.SuccessWithRun(result, result.RunID)
	}
	printConversion(formatter, result)
	return nil
}

// failure describes why a validation did not pass. Only the failing checks
// are named.
func (v *ValidationResult) failure() string {
	var parts []string
	if !v.Report.Passes(v.Min) {
		parts = append(parts, fmt.Sprintf("fidelity %.2f%% is below %.2f%%", v.Percent, v.Min*100))
	}
	if len(v.Diverging) > 0 {
		parts = append(parts, fmt.Sprintf("%d value(s) diverged", len(v.Diverging)))
	}
	return strings.Join(parts, "; ")
}

func printConversion(formatter *OutputFormatter, result *ConversionResult) {
	w := formatter.Writer
	switch result.Command {
	case CommandToST:
		fmt.Fprintf(w, "✓ Converted %d controller(s) to %s\n", result.Controllers, result.Output)
	default:
		fmt.Fprintf(w, "✓ Converted %s to %s\n", result.Input, result.Output)
	}
	if n := len(result.Renames); n > 0 {
		fmt.Fprintf(w, "  %d identifier(s) renamed\n", n)
	}
	if n := len(result.Diagnostics); n > 0 {
		fmt.Fprintf(w, "  %d diagnostic(s)\n", n)
	}
	if result.RunID != "" {
		fmt.Fprintf(w, "  recorded as run %s\n", result.RunID)
	}

	v := result.Validation
	if v == nil {
		return
	}
	c := v.Report.Counts()
	fmt.Fprintf(w, "\nFidelity: %.2f%%\n", v.Percent)
	fmt.Fprintf(w, "  declarations: %s\n", countsLine(v.Report.Declarations))
	fmt.Fprintf(w, "  statements:   %s\n", countsLine(v.Report.Statements))
	fmt.Fprintf(w, "  total:        %s\n", countsLine(c))
	if v.SpotChecked {
		if len(v.Diverging) == 0 {
			fmt.Fprintln(w, "  spot check:   no divergence")
		} else {
			fmt.Fprintf(w, "  spot check:   diverged on %s\n", strings.Join(v.Diverging, ", "))
		}
	}
	if formatter.Verbose {
		for _, d := range v.Report.Differences {
			fmt.Fprintf(w, "  %s\n", d)
		}
		if diff, err := v.Report.Diff("converted", "round-trip"); err == nil && diff != "" {
			fmt.Fprintln(w)
			fmt.Fprint(w, diff)
		}
	}
}

func countsLine(c fidelity.Counts) string {
	return fmt.Sprintf("matched %d, mismatched %d, missing %d, extra %d",
		c.Matched, c.Mismatched, c.Missing, c.Extra)
}

// outputError prints an error and returns a command-level exit error.
func outputError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		var details any
		if loadErr.Path != "" {
			details = map[string]string{"path": loadErr.Path}
		}
		return outputError(formatter, loadErr.Code, loadErr.Message, details)
	}
	return outputError(formatter, ErrCodeGeneric, err.Error(), nil)
}

// outputConvertError reports a fatal conversion error with its diag code
// and location.
func outputConvertError(formatter *OutputFormatter, err error) error {
	var de *diag.Error
	if errors.As(err, &de) {
		d := de.Diagnostic()
		details := map[string]string{"code": string(d.Code)}
		if loc := d.Location.String(); loc != "" {
			details["location"] = loc
		}
		_ = formatter.Error(ErrCodeConvert, err.Error(), details)
		return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", d.Code, err.Error()), err)
	}
	_ = formatter.Error(ErrCodeConvert, err.Error(), nil)
	return WrapExitError(ExitCommandError, ErrCodeConvert, err)
}

func newRun(result *ConversionResult, inputDigest string, exit int) store.Run {
	run := store.Run{
		Command:      result.Command,
		Input:        result.Input,
		InputDigest:  inputDigest,
		OutputDigest: result.Digest,
		Controllers:  result.Controllers,
		ExitCode:     exit,
		Diagnostics:  result.Diagnostics,
	}
	if v := result.Validation; v != nil {
		run.Validated = true
		run.ScorePPM = store.PPM(v.Score)
		run.Counts = v.Report.Counts()
	}
	return run
}
