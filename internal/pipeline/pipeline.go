package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/l5xst/internal/coerce"
	"github.com/roach88/l5xst/internal/config"
	"github.com/roach88/l5xst/internal/consolidate"
	"github.com/roach88/l5xst/internal/convert"
	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/engine"
	"github.com/roach88/l5xst/internal/fidelity"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/irbuild"
	"github.com/roach88/l5xst/internal/l5x"
	"github.com/roach88/l5xst/internal/l5xemit"
	"github.com/roach88/l5xst/internal/source"
	"github.com/roach88/l5xst/internal/st"
	"github.com/roach88/l5xst/internal/stemit"
)

// Pipeline runs conversions with one configuration. It holds no
// per-conversion state and may be reused.
type Pipeline struct {
	logger *slog.Logger
	cfg    *config.Config
	scans  int

	converter    *convert.Converter
	consolidator *consolidate.Consolidator
	coercer      *coerce.Coercer
	emitter      *l5xemit.Emitter
	scorer       *fidelity.Scorer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger passed to every stage.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithConfig sets the conversion settings.
//
// Default: config.Default()
func WithConfig(cfg *config.Config) Option {
	return func(p *Pipeline) {
		p.cfg = cfg
	}
}

// WithSpotCheck runs both sides of a validation for n scans in the
// interpreter. Zero disables the check.
//
// Default: 0
func WithSpotCheck(n int) Option {
	return func(p *Pipeline) {
		p.scans = n
	}
}

// New creates a Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger: slog.Default(),
		cfg:    config.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.converter = convert.New(convert.WithLogger(p.logger))
	p.consolidator = consolidate.New(consolidate.WithLogger(p.logger))
	p.coercer = coerce.New(coerce.WithLogger(p.logger))
	p.emitter = l5xemit.New(l5xemit.WithLogger(p.logger))
	p.scorer = fidelity.New(fidelity.WithLogger(p.logger))
	return p
}

// Config returns the settings the pipeline runs with.
func (p *Pipeline) Config() *config.Config {
	return p.cfg
}

// Forward is the result of a vendor project to ST conversion.
type Forward struct {
	// Program is the merged and coerced IR the text was emitted from.
	Program *ir.Program
	Renames consolidate.Table
	Diags   diag.List
	File    *st.File
	Text    string
}

// Reverse is the result of an ST to vendor project conversion.
type Reverse struct {
	Program *ir.Program
	Content *l5x.Content
}

type converted struct {
	ctl   *source.Controller
	prog  *ir.Program
	diags diag.List
	err   error
}

// ToST converts one document per controller into a single ST unit. The
// document order sets the controller index used for renaming.
func (p *Pipeline) ToST(ctx context.Context, docs []*l5x.Content) (*Forward, error) {
	if len(docs) == 0 {
		return nil, diag.Errorf(diag.CodeMalformedSource, diag.Location{}, "no controller documents")
	}

	results := make([]converted, len(docs))
	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		go func(i int, doc *l5x.Content) {
			defer wg.Done()
			results[i] = p.convert(ctx, doc, i+1)
		}(i, doc)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	units := make([]consolidate.Unit, 0, len(results))
	var diags diag.List
	for i, r := range results {
		if r.err != nil {
			return nil, fmt.Errorf("controller %d: %w", i+1, r.err)
		}
		diags.Extend(r.diags)
		units = append(units, consolidate.NewUnit(r.ctl, r.prog))
	}

	merged, err := p.consolidator.Merge(units, p.cfg)
	if err != nil {
		return nil, err
	}
	diags.Extend(merged.Diags)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	diags.Extend(p.coercer.Program(merged.Program))
	f := stemit.FromIR(merged.Program, p.cfg)
	fwd := &Forward{
		Program: merged.Program,
		Renames: merged.Renames,
		Diags:   diags,
		File:    f,
		Text:    st.Format(f),
	}
	p.logger.Debug("forward conversion done",
		"controllers", len(docs),
		"tags", len(fwd.Program.Tags),
		"stmts", len(fwd.Program.Body),
		"renames", len(fwd.Renames.Changed()),
		"diagnostics", len(diags))
	return fwd, nil
}

func (p *Pipeline) convert(ctx context.Context, doc *l5x.Content, index int) converted {
	if err := ctx.Err(); err != nil {
		return converted{err: err}
	}
	ctl, err := source.FromDocument(doc, index)
	if err != nil {
		return converted{err: err}
	}
	prog, diags, err := p.converter.ToIR(ctl, p.cfg)
	if err != nil {
		return converted{err: err}
	}
	return converted{ctl: ctl, prog: prog, diags: diags}
}

// Source is one file of an ST unit.
type Source struct {
	Name string
	Text string
}

// ToL5X converts an ST unit into a vendor project. Syntax errors are
// MALFORMED_ST_SYNTAX errors carrying the position.
func (p *Pipeline) ToL5X(ctx context.Context, filename, src string) (*Reverse, error) {
	return p.ToL5XFiles(ctx, []Source{{Name: filename, Text: src}})
}

// ToL5XFiles converts an ST unit split over several files. Each file is
// parsed on its own, so syntax positions stay relative to it, and the
// declarations are joined in file order.
func (p *Pipeline) ToL5XFiles(ctx context.Context, files []Source) (*Reverse, error) {
	if len(files) == 0 {
		return nil, diag.Errorf(diag.CodeMalformedST, diag.Location{}, "no ST files")
	}
	unit := &st.File{}
	for _, f := range files {
		parsed, err := parseFile(f.Name, f.Text)
		if err != nil {
			return nil, err
		}
		unit.Decls = append(unit.Decls, parsed.Decls...)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	prog, err := irbuild.FromST(unit)
	if err != nil {
		return nil, err
	}
	content := p.emitter.FromIR(prog, p.cfg)
	p.logger.Debug("reverse conversion done",
		"files", len(files),
		"tags", len(prog.Tags),
		"pous", len(prog.POUs),
		"stmts", len(prog.Body))
	return &Reverse{Program: prog, Content: content}, nil
}

func parseST(filename, src string) (*ir.Program, error) {
	f, err := parseFile(filename, src)
	if err != nil {
		return nil, err
	}
	return irbuild.FromST(f)
}

func parseFile(filename, src string) (*st.File, error) {
	f, err := st.Parse(filename, src)
	if err != nil {
		var se *st.SyntaxError
		if errors.As(err, &se) {
			return nil, diag.Wrap(diag.CodeMalformedST, diag.Location{Line: se.Line, Column: se.Column}, err, "cannot parse %s", filename)
		}
		return nil, diag.Wrap(diag.CodeMalformedST, diag.Location{}, err, "cannot parse %s", filename)
	}
	return f, nil
}

// Validation is the outcome of a round-trip check.
type Validation struct {
	Report *fidelity.Report

	// Diverging lists the state keys whose values differ after the spot
	// check. SpotChecked is false when the check was off or skipped.
	Diverging   []string
	SpotChecked bool
}

// Passes reports whether the round trip scored at least min and no state
// diverged.
func (v *Validation) Passes(min float64) bool {
	return v.Report.Passes(min) && len(v.Diverging) == 0
}

// ValidateST parses the emitted text back and compares it with the IR it
// was emitted from.
func (p *Pipeline) ValidateST(ctx context.Context, fwd *Forward) (*Validation, error) {
	back, err := parseST("roundtrip.st", fwd.Text)
	if err != nil {
		return nil, fmt.Errorf("emitted text does not parse back: %w", err)
	}
	return p.validate(ctx, fwd.Program, back)
}

// ValidateL5X converts the emitted project back to IR and compares it with
// the program it was emitted from.
func (p *Pipeline) ValidateL5X(ctx context.Context, rev *Reverse) (*Validation, error) {
	ctl, err := source.FromDocument(rev.Content, 1)
	if err != nil {
		return nil, fmt.Errorf("emitted project does not load back: %w", err)
	}
	prog, _, err := p.converter.ToIR(ctl, p.cfg)
	if err != nil {
		return nil, err
	}
	merged, err := p.consolidator.Merge([]consolidate.Unit{consolidate.NewUnit(ctl, prog)}, p.cfg)
	if err != nil {
		return nil, err
	}
	return p.validate(ctx, rev.Program, merged.Program)
}

func (p *Pipeline) validate(ctx context.Context, left, right *ir.Program) (*Validation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v := &Validation{Report: p.scorer.Compare(left, right)}
	if p.scans <= 0 {
		return v, nil
	}

	diverging, err := p.spotCheck(ctx, left, right)
	switch {
	case err == nil:
		v.Diverging, v.SpotChecked = diverging, true
	case engine.IsUnsupported(err):
		p.logger.Debug("spot check skipped", "reason", err)
	case engine.CodeOf(err) != "":
		p.logger.Warn("spot check skipped", "code", engine.CodeOf(err), "error", err)
	default:
		return nil, err
	}
	return v, nil
}

func (p *Pipeline) spotCheck(ctx context.Context, left, right *ir.Program) ([]string, error) {
	a, err := engine.New(left, engine.WithLogger(p.logger))
	if err != nil {
		return nil, err
	}
	b, err := engine.New(right, engine.WithLogger(p.logger))
	if err != nil {
		return nil, err
	}
	return engine.Diverging(ctx, a, b, p.scans)
}
