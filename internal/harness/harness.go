package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/roach88/l5xst/internal/config"
	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/engine"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/l5x"
	"github.com/roach88/l5xst/internal/pipeline"
)

// Harness executes scenarios.
type Harness struct {
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger passed to the pipeline and interpreter.
//
// Default: logs are discarded
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default Harness.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New().Run(ctx, scenario)
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Load settings and inputs
// 2. Convert in the scenario's direction and validate the round trip
// 3. Drive the converted program with the stimulus
// 4. Evaluate assertions
//
// Errors are returned for problems with the scenario itself. Conversion and
// assertion failures are reported in the result.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	cfg := config.Default()
	if scenario.Config != "" {
		var err error
		if cfg, err = config.Load(scenario.Config); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	p := pipeline.New(
		pipeline.WithLogger(h.logger),
		pipeline.WithConfig(cfg),
		pipeline.WithSpotCheck(scenario.Scans),
	)

	result := NewResult()
	prog, err := h.convert(ctx, p, scenario, result)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		h.expectedFailure(scenario, err, result)
		return result, nil
	}
	if scenario.ExpectError != "" {
		result.AddError(fmt.Sprintf("expected conversion to fail with %s, but it succeeded", scenario.ExpectError))
		return result, nil
	}

	if len(scenario.Stimulus) > 0 {
		if err := h.drive(ctx, prog, scenario.Stimulus, result); err != nil {
			return nil, err
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"errors", len(result.Errors))
	return result, nil
}

func (h *Harness) expectedFailure(scenario *Scenario, err error, result *Result) {
	got := diag.CodeOf(err)
	switch {
	case scenario.ExpectError == "":
		result.AddError(fmt.Sprintf("conversion failed: %v", err))
	case string(got) != scenario.ExpectError:
		result.AddError(fmt.Sprintf("expected conversion to fail with %s, got %q: %v", scenario.ExpectError, got, err))
	}
}

// convert runs the pipeline and fills the conversion part of result. It
// returns the program the stimulus runs against.
func (h *Harness) convert(ctx context.Context, p *pipeline.Pipeline, s *Scenario, result *Result) (*ir.Program, error) {
	switch s.Direction {
	case DirectionToL5X:
		src, err := os.ReadFile(s.Inputs[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		rev, err := p.ToL5X(ctx, s.Inputs[0], string(src))
		if err != nil {
			return nil, err
		}
		data, err := l5x.Marshal(rev.Content)
		if err != nil {
			return nil, err
		}
		result.Output = string(data)
		v, err := p.ValidateL5X(ctx, rev)
		if err != nil {
			return nil, err
		}
		result.Report, result.Diverging = v.Report, v.Diverging
		return rev.Program, nil

	default:
		var docs []*l5x.Content
		for _, in := range s.Inputs {
			loaded, err := l5x.LoadPath(in)
			if err != nil {
				return nil, diag.Wrap(diag.CodeMalformedSource, diag.Location{}, err, "cannot load input")
			}
			docs = append(docs, loaded...)
		}
		fwd, err := p.ToST(ctx, docs)
		if err != nil {
			return nil, err
		}
		result.Output = fwd.Text
		result.Diags = fwd.Diags
		result.Renames = fwd.Renames
		v, err := p.ValidateST(ctx, fwd)
		if err != nil {
			return nil, err
		}
		result.Report, result.Diverging = v.Report, v.Diverging
		return fwd.Program, nil
	}
}

// drive runs the stimulus against prog and records the trace and final
// state. Interpreter failures are reported in result.
func (h *Harness) drive(ctx context.Context, prog *ir.Program, steps []Step, result *Result) error {
	eng, err := engine.New(prog, engine.WithLogger(h.logger))
	if err != nil {
		result.AddError(fmt.Sprintf("interpreter rejected program: %v", err))
		return nil
	}

	for i, step := range steps {
		for _, tag := range sortedKeys(step.Set) {
			v, err := valueOf(step.Set[tag])
			if err != nil {
				return fmt.Errorf("stimulus[%d]: set %s: %w", i, tag, err)
			}
			if err := eng.Set(tag, v); err != nil {
				result.AddError(fmt.Sprintf("stimulus[%d]: set %s: %v", i, tag, err))
				return nil
			}
			result.addTrace(TraceEvent{Type: EventSet, Step: i, Tag: tag, Value: v.String(), Seq: eng.Clock().Scan()})
		}

		if step.Scans > 0 {
			if err := eng.Run(ctx, step.Scans); err != nil {
				if ctx.Err() != nil {
					return err
				}
				result.AddError(fmt.Sprintf("stimulus[%d]: %v", i, err))
				return nil
			}
			result.addTrace(TraceEvent{Type: EventScan, Step: i, Scans: step.Scans, Seq: eng.Clock().Scan()})
		}

		for _, tag := range sortedKeys(step.Expect) {
			want, err := valueOf(step.Expect[tag])
			if err != nil {
				return fmt.Errorf("stimulus[%d]: expect %s: %w", i, tag, err)
			}
			got, ok := eng.Get(tag)
			if !ok {
				result.AddError(fmt.Sprintf("stimulus[%d]: tag %s does not exist", i, tag))
				continue
			}
			result.addTrace(TraceEvent{Type: EventObserve, Step: i, Tag: tag, Value: got.String(), Seq: eng.Clock().Scan()})
			if !matches(got, want) {
				result.AddError(fmt.Sprintf("stimulus[%d]: %s = %s, expected %s", i, tag, got, want))
			}
		}
	}

	result.values = eng.Snapshot()
	for k, v := range result.values {
		result.State[k] = v.String()
	}
	return nil
}

// valueOf converts a YAML-parsed value to an interpreter value. Strings
// are read as ST literals.
func valueOf(val interface{}) (engine.Value, error) {
	switch v := val.(type) {
	case bool:
		return engine.Bool(v), nil
	case int:
		return engine.Int(int64(v)), nil
	case int64:
		return engine.Int(v), nil
	case float64:
		return engine.Real(v), nil
	case string:
		return engine.ParseValue(v)
	case nil:
		return engine.Value{}, fmt.Errorf("null values are not allowed")
	default:
		return engine.Value{}, fmt.Errorf("unsupported type %T", val)
	}
}

// matches compares an interpreter value with an expected one. A whole
// number matches a real of the same value.
func matches(got, want engine.Value) bool {
	if got.Kind() == engine.KindReal && want.Kind() == engine.KindInt {
		want = engine.Real(float64(want.AsInt()))
	}
	return got.Equal(want)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
