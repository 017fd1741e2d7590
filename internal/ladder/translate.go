package ladder

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/source"
	"github.com/roach88/l5xst/internal/tables"
)

// InlineFunc returns the statements of a routine called with JSR or FOR.
// The caller owns recursion detection.
type InlineFunc func(routine string) ([]ir.Stmt, error)

// Context is what a translation needs to know about the routine it is in.
type Context struct {
	// Location names controller, program and routine for diagnostics.
	Location diag.Location

	// Routine prefixes synthesized tag names.
	Routine string

	// Names holds every tag name of the unit. Synthesized names are
	// reserved in it.
	Names *Namespace

	// Inline resolves subroutine calls. JSR and FOR are unsupported when
	// it is nil.
	Inline InlineFunc

	// TagType returns the vendor data type of a tag visible to the
	// routine, or "" when it is not declared. RES needs it.
	TagType func(name string) string
}

// Result is the output of translating a rung or a routine.
type Result struct {
	Stmts []ir.Stmt

	// Tags are the synthesized BOOL program-scope tags (edge memories,
	// edge outputs and write-hazard temporaries).
	Tags []ir.Tag

	// Instances maps upper-cased timer and counter tag names to the ST
	// function block type their instructions require.
	Instances map[string]string

	Diags diag.List
}

func (r *Result) merge(o Result) {
	r.Stmts = append(r.Stmts, o.Stmts...)
	r.Tags = append(r.Tags, o.Tags...)
	r.Diags.Extend(o.Diags)
	for k, v := range o.Instances {
		r.noteInstance(k, v)
	}
}

func (r *Result) noteInstance(name, typ string) {
	if r.Instances == nil {
		r.Instances = make(map[string]string)
	}
	key := strings.ToUpper(name)
	prev, ok := r.Instances[key]
	switch {
	case !ok || prev == typ:
		r.Instances[key] = typ
	case isCounter(prev) && isCounter(typ):
		r.Instances[key] = "CTUD"
	}
}

func isCounter(t string) bool {
	return t == "CTU" || t == "CTD" || t == "CTUD"
}

// Translator lowers rungs. It holds no per-routine state and may be shared.
type Translator struct {
	logger *slog.Logger
}

// TranslatorOption configures a Translator.
type TranslatorOption func(*Translator)

// WithLogger sets the logger used for per-rung progress and warnings.
func WithLogger(l *slog.Logger) TranslatorOption {
	return func(t *Translator) {
		t.logger = l
	}
}

// New creates a Translator.
func New(opts ...TranslatorOption) *Translator {
	t := &Translator{logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Routine translates every rung of an RLL routine in order.
func (t *Translator) Routine(ctx *Context, r *source.Routine) Result {
	var res Result
	for i := range r.Rungs {
		res.merge(t.Rung(ctx, &r.Rungs[i]))
	}
	return res
}

// Rung translates one rung. A rung that cannot be translated yields a
// placeholder comment and an UNSUPPORTED_INSTRUCTION diagnostic.
func (t *Translator) Rung(ctx *Context, rung *source.Rung) Result {
	loc := ctx.Location.AtRung(rung.Number)
	var res Result
	if rung.Comment != "" {
		res.Stmts = append(res.Stmts, &ir.Comment{Text: rung.Comment})
	}
	if rung.ParseErr != nil {
		return t.placeholder(res, loc, rung, "rung", rung.ParseErr.Error())
	}

	rs := &rungState{ctx: ctx, rung: rung.Number, loc: loc, ordinals: make(map[tables.Instr]int)}
	rs.series(rung.Network, ir.True, false)
	if rs.err != nil {
		ctx.Names.Release(rs.reserved...)
		return t.placeholder(res, loc, rung, rs.err.what, rs.err.reason)
	}

	res.Stmts = append(res.Stmts, rs.stmts...)
	res.Tags = rs.tags
	res.Diags = rs.diags
	for k, v := range rs.instances {
		res.noteInstance(k, v)
	}
	t.logger.Debug("rung translated",
		"routine", ctx.Routine,
		"rung", rung.Number,
		"stmts", len(rs.stmts),
		"temps", len(rs.tags))
	return res
}

func (t *Translator) placeholder(res Result, loc diag.Location, rung *source.Rung, what, reason string) Result {
	d := diag.Unsupported(loc, what, reason)
	t.logger.Warn("rung not translated",
		"routine", loc.Routine,
		"rung", rung.Number,
		"code", d.Code,
		"reason", reason)
	res.Stmts = append(res.Stmts, &ir.Comment{
		Text: fmt.Sprintf("UNSUPPORTED rung %d (%s): %s", rung.Number, reason, strings.TrimSpace(rung.Text)),
	})
	res.Diags.Add(d)
	return res
}

// unsupported aborts translation of the current rung.
type unsupported struct {
	what, reason string
}

// rungState carries one rung's translation. The first unsupported element
// stops it; everything produced so far is then discarded.
type rungState struct {
	ctx  *Context
	rung int
	loc  diag.Location

	stmts     []ir.Stmt
	tags      []ir.Tag
	diags     diag.List
	instances map[string]string
	reserved  []string

	// live holds the expressions still needed later in the rung, innermost
	// last. emit may replace them with temporaries.
	live []*ir.Expr

	temps    int
	ordinals map[tables.Instr]int
	err      *unsupported
}

func (rs *rungState) fail(what, format string, args ...any) {
	if rs.err == nil {
		rs.err = &unsupported{what: what, reason: fmt.Sprintf(format, args...)}
	}
}

// series lowers elements in order starting from condition in. more says
// whether the condition leaving the series is read by anything after it.
func (rs *rungState) series(s source.Series, in ir.Expr, more bool) ir.Expr {
	cond := in
	for i, el := range s {
		if rs.err != nil {
			return cond
		}
		needed := more || i < len(s)-1
		switch v := el.(type) {
		case *source.Instruction:
			cond = rs.instruction(v, cond, needed)
		case *source.Branch:
			cond = rs.branch(v, cond, needed)
		default:
			panic(fmt.Sprintf("ladder: unknown rung element %T", el))
		}
	}
	return cond
}

// branch disjoins the legs of a parallel group. Every leg starts from the
// same incoming condition.
func (rs *rungState) branch(b *source.Branch, in ir.Expr, more bool) ir.Expr {
	var acc ir.Expr = ir.False
	if more {
		rs.push(&acc)
		defer rs.remove(&acc)
	}
	rs.push(&in)
	for k, leg := range b.Legs {
		if k == len(b.Legs)-1 {
			// Later legs no longer need the group input.
			rs.remove(&in)
		}
		out := rs.series(leg, in, more)
		acc = ir.Or(acc, out)
		if rs.err != nil {
			break
		}
	}
	rs.remove(&in)
	return acc
}

func (rs *rungState) push(slot *ir.Expr) {
	rs.live = append(rs.live, slot)
}

func (rs *rungState) remove(slot *ir.Expr) {
	for i := len(rs.live) - 1; i >= 0; i-- {
		if rs.live[i] == slot {
			rs.live = append(rs.live[:i], rs.live[i+1:]...)
			return
		}
	}
}

// emit appends the statements an output instruction produces. build is
// called with the rung condition; when the statements write a tag that a
// live expression reads, that expression is stored in a temporary first
// and build is called again with the updated condition.
func (rs *rungState) emit(cond *ir.Expr, needed bool, build func(ir.Expr) []ir.Stmt) {
	stmts := build(*cond)
	if rs.err != nil || len(stmts) == 0 {
		return
	}
	written := make(map[string]bool)
	for _, s := range stmts {
		for _, w := range ir.Written(s) {
			written[strings.ToUpper(w)] = true
		}
	}
	slots := rs.live
	if needed {
		slots = append(append([]*ir.Expr(nil), rs.live...), cond)
	}
	before := *cond
	saved := make(map[ir.Expr]ir.Expr)
	for _, slot := range slots {
		if !reads(*slot, written) {
			continue
		}
		if t, ok := saved[*slot]; ok {
			*slot = t
			continue
		}
		t := rs.temp(*slot)
		saved[*slot] = t
		*slot = t
	}
	if *cond != before {
		stmts = build(*cond)
	}
	rs.stmts = append(rs.stmts, stmts...)
}

func reads(e ir.Expr, written map[string]bool) bool {
	if _, ok := e.(*ir.Lit); ok {
		return false
	}
	for _, r := range ir.ExprRoots(e) {
		if written[strings.ToUpper(r)] {
			return true
		}
	}
	return false
}

// temp stores e in a fresh BOOL temporary and returns a reference to it.
func (rs *rungState) temp(e ir.Expr) ir.Expr {
	rs.temps++
	name := rs.synth(fmt.Sprintf("%s_R%d_T%d", rs.ctx.Routine, rs.rung, rs.temps))
	rs.stmts = append(rs.stmts, &ir.Assign{Target: ir.Name(name), Value: e})
	return ir.Name(name)
}

// synth reserves a synthesized program-scope BOOL tag.
func (rs *rungState) synth(base string) string {
	name := rs.ctx.Names.Reserve(base)
	rs.reserved = append(rs.reserved, name)
	rs.tags = append(rs.tags, ir.Tag{Name: name, Type: "BOOL", Scope: ir.ScopeProgram, Kind: ir.KindBase})
	return name
}

func (rs *rungState) noteInstance(ref *ir.Ref, typ string) {
	if rs.instances == nil {
		rs.instances = make(map[string]string)
	}
	key := strings.ToUpper(ref.Name)
	if prev, ok := rs.instances[key]; ok && prev != typ && isCounter(prev) && isCounter(typ) {
		typ = "CTUD"
	}
	rs.instances[key] = typ
}
