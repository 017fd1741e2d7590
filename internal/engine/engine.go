package engine

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/roach88/l5xst/internal/ir"
)

const (
	// DefaultScanPeriod is the logical time between two scans.
	DefaultScanPeriod = 10 * time.Millisecond

	// DefaultMaxLoopIterations bounds one FOR or WHILE execution.
	DefaultMaxLoopIterations = 10000
)

// Engine holds the state of one program. Build it with New, drive it with
// Set and Scan, observe it with Get and Snapshot.
type Engine struct {
	logger  *slog.Logger
	prog    *ir.Program
	clock   *Clock
	period  time.Duration
	maxLoop int

	slots     map[string]*slot
	instances map[string]*instance // standard function blocks by key
	blocks    map[string]*ir.POU   // user function block instances by key

	depth int // nested function calls
	calls int // function calls so far, for unique frame keys
}

// Option configures an Engine.
type Option func(*Engine)

// WithScanPeriod sets the logical scan period.
//
// Default: 10ms (DefaultScanPeriod)
func WithScanPeriod(d time.Duration) Option {
	return func(e *Engine) {
		e.period = d
	}
}

// WithMaxLoopIterations sets the iteration limit of a single loop.
//
// Default: 10000 (DefaultMaxLoopIterations)
func WithMaxLoopIterations(n int) Option {
	return func(e *Engine) {
		e.maxLoop = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New lays out the state of prog. Tags get their declared initial values
// or the zero value of their type; alias tags get no state of their own.
func New(prog *ir.Program, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:    slog.Default(),
		prog:      prog,
		period:    DefaultScanPeriod,
		maxLoop:   DefaultMaxLoopIterations,
		slots:     make(map[string]*slot),
		instances: make(map[string]*instance),
		blocks:    make(map[string]*ir.POU),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.clock = NewClock(e.period)

	for _, t := range prog.Tags {
		if t.Kind == ir.KindAlias {
			continue
		}
		if err := e.declare(e.slots, strings.ToUpper(t.Name), t.Type, t.Dim, t.Init, 0); err != nil {
			return nil, err
		}
	}
	e.logger.Debug("engine initialized",
		"program", prog.Name,
		"slots", len(e.slots),
		"instances", len(e.instances)+len(e.blocks))
	return e, nil
}

// Scan runs the program body once. A RuntimeError aborts the scan and is
// stamped with the scan number.
func (e *Engine) Scan(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := e.clock.Next()
	if err := e.exec(nil, e.prog.Body); err != nil {
		var re *RuntimeError
		if errors.As(err, &re) && re.Scan == 0 {
			re.Scan = n
		}
		e.logger.Warn("scan failed", "program", e.prog.Name, "scan", n, "code", CodeOf(err), "error", err)
		return err
	}
	return nil
}

// Run performs n scans, stopping at the first error.
func (e *Engine) Run(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := e.Scan(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Key returns the state key of a reference path: upper case, no spaces.
func Key(path string) string {
	return strings.ToUpper(strings.ReplaceAll(path, " ", ""))
}

// Get returns the value at path (TANK.LEVEL, ARR[2], T1.Q).
func (e *Engine) Get(path string) (Value, bool) {
	s, ok := e.slots[Key(path)]
	if !ok {
		return Value{}, false
	}
	return s.v, true
}

// Set stores v at path with the usual assignment rules.
func (e *Engine) Set(path string, v Value) error {
	key := Key(path)
	return e.store(nil, location{key: key, bit: -1}, key, v)
}

// Snapshot copies the whole program state.
func (e *Engine) Snapshot() map[string]Value {
	out := make(map[string]Value, len(e.slots))
	for k, s := range e.slots {
		out[k] = s.v
	}
	return out
}

// Keys returns every state key in sorted order.
func (e *Engine) Keys() []string {
	keys := make([]string, 0, len(e.slots))
	for k := range e.slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clock returns the scan clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Diverging runs left and right side by side for scans scans and returns
// the state keys both have whose values differ at the end. Keys present on
// one side only are ignored.
func Diverging(ctx context.Context, left, right *Engine, scans int) ([]string, error) {
	if err := left.Run(ctx, scans); err != nil {
		return nil, err
	}
	if err := right.Run(ctx, scans); err != nil {
		return nil, err
	}
	var out []string
	for _, k := range left.Keys() {
		r, ok := right.slots[k]
		if !ok {
			continue
		}
		if !sameValue(left.slots[k].v, r.v) {
			out = append(out, k)
		}
	}
	return out, nil
}
