package fbd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/source"
	"github.com/roach88/l5xst/internal/tables"
)

// Context locates the routine being translated.
type Context struct {
	Location diag.Location
	Routine  string
}

// Result is the output of translating a sheet or a routine.
type Result struct {
	Stmts []ir.Stmt

	// Instances maps upper-cased backing tag names of timer and counter
	// blocks to the ST function block type they are invoked as.
	Instances map[string]string

	Diags diag.List
}

func (r *Result) merge(o Result) {
	r.Stmts = append(r.Stmts, o.Stmts...)
	r.Diags.Extend(o.Diags)
	for k, v := range o.Instances {
		if r.Instances == nil {
			r.Instances = make(map[string]string)
		}
		r.Instances[k] = v
	}
}

// Translator lowers sheets. It holds no per-sheet state.
type Translator struct {
	logger *slog.Logger
}

// TranslatorOption configures a Translator.
type TranslatorOption func(*Translator)

// WithLogger sets the logger.
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

// Routine translates every sheet of an FBD routine. A sheet with a
// combinational cycle becomes a placeholder; the other sheets continue.
func (t *Translator) Routine(ctx *Context, r *source.Routine) Result {
	var res Result
	for _, s := range r.Sheets {
		res.merge(t.Sheet(ctx, s))
	}
	return res
}

// Sheet translates one sheet.
func (t *Translator) Sheet(ctx *Context, s *source.Sheet) Result {
	loc := ctx.Location.AtSheet(s.Number)
	order, cycles := newGraph(s).schedule()
	if len(cycles) > 0 {
		return t.cyclic(loc, s, cycles)
	}

	ss := &sheetState{sheet: s, loc: loc}
	for _, i := range order {
		ss.node(&s.Nodes[i])
	}
	t.logger.Debug("sheet translated",
		"routine", ctx.Routine,
		"sheet", s.Number,
		"nodes", len(s.Nodes),
		"stmts", len(ss.stmts))
	return Result{Stmts: ss.stmts, Instances: ss.instances, Diags: ss.diags}
}

func (t *Translator) cyclic(loc diag.Location, s *source.Sheet, cycles [][]int) Result {
	var res Result
	for _, members := range cycles {
		labels := make([]string, len(members))
		for i, m := range members {
			labels[i] = s.Nodes[m].Label()
		}
		err := diag.NewCycleError(loc, labels)
		t.logger.Warn("sheet not translated",
			"routine", loc.Routine,
			"sheet", s.Number,
			"code", err.Code,
			"members", strings.Join(labels, ","))
		res.Diags.Add(err.Diagnostic())
		res.Stmts = append(res.Stmts, &ir.Comment{
			Text: fmt.Sprintf("STRUCTURAL_CYCLE sheet %d: %s", s.Number, err.Message),
		})
	}
	return res
}

type sheetState struct {
	sheet     *source.Sheet
	loc       diag.Location
	stmts     []ir.Stmt
	instances map[string]string
	diags     diag.List
}

func (ss *sheetState) emit(s ...ir.Stmt) {
	ss.stmts = append(ss.stmts, s...)
}

func (ss *sheetState) unsupported(n *source.Node, reason string) {
	ss.diags.Add(diag.Unsupported(ss.loc, n.Type, reason))
	ss.emit(&ir.Comment{Text: fmt.Sprintf("UNSUPPORTED block %s (%s): %s", n.ID, n.Type, reason)})
}

// node emits the statements of one node.
func (ss *sheetState) node(n *source.Node) {
	switch n.Kind {
	case source.NodeIRef:
		// Read where it is wired.
	case source.NodeORef:
		if len(n.Inputs) == 0 {
			return
		}
		target, err := source.ParseReference(n.Operand)
		if err != nil {
			ss.unsupported(n, err.Error())
			return
		}
		ss.emit(&ir.Assign{Target: target, Value: ss.source(n.Inputs[0].Source)})
	case source.NodeAOI:
		ss.aoi(n)
	case source.NodeBlock:
		if n.Block == tables.BlockUnknown {
			ss.unsupported(n, "no translation for block type "+n.Type)
			return
		}
		ss.block(n)
	default:
		panic(fmt.Sprintf("fbd: unknown node kind %d", n.Kind))
	}
}

func (ss *sheetState) backing(n *source.Node) (*ir.Ref, bool) {
	if strings.TrimSpace(n.Operand) == "" {
		ss.unsupported(n, "block has no backing tag")
		return nil, false
	}
	r, err := source.ParseReference(n.Operand)
	if err != nil {
		ss.unsupported(n, err.Error())
		return nil, false
	}
	return r, true
}

func (ss *sheetState) block(n *source.Node) {
	info := n.Block.Info()
	tag, ok := ss.backing(n)
	if !ok {
		return
	}
	switch info.Form {
	case tables.FormExpr:
		ss.emit(&ir.Assign{
			Target: tag.Dot(info.Outputs[0].STMember()),
			Value:  ss.expr(n, tag, info),
		})
	case tables.FormInstance:
		var args []ir.Arg
		for _, p := range info.Inputs {
			src, ok := n.Input(p.Name)
			if !ok {
				continue
			}
			args = append(args, ir.Arg{Name: p.STMember(), Value: convert(p.Convert, ss.source(src))})
		}
		if ss.instances == nil {
			ss.instances = make(map[string]string)
		}
		ss.instances[strings.ToUpper(tag.Name)] = info.Instance
		ss.emit(&ir.Invoke{Callee: tag, Args: args})
	case tables.FormAux:
		for _, p := range info.Inputs {
			if src, ok := n.Input(p.Name); ok {
				ss.emit(&ir.Assign{Target: tag.Dot(p.STMember()), Value: ss.source(src)})
			}
		}
		ss.emit(&ir.InstrCall{Func: info.Aux.Info().Func, Target: tag})
	default:
		panic(fmt.Sprintf("fbd: block %s has no lowering", info.Name))
	}
}

// expr builds the value of an expression block. Pins that are neither
// wired nor visible read the backing tag, as the controller does.
func (ss *sheetState) expr(n *source.Node, tag *ir.Ref, info tables.BlockInfo) ir.Expr {
	in := make([]ir.Expr, len(info.Inputs))
	for i, p := range info.Inputs {
		if src, ok := n.Input(p.Name); ok {
			in[i] = ss.source(src)
		} else {
			in[i] = tag.Dot(p.STMember())
		}
	}
	switch info.Shape {
	case tables.ShapeBinary:
		return &ir.Binary{Op: info.Op, X: in[0], Y: in[1]}
	case tables.ShapeFunc:
		return &ir.Call{Func: info.Func, Args: []ir.Arg{{Value: in[0]}}}
	case tables.ShapeNeg:
		return &ir.Unary{Op: ir.OpNeg, X: in[0]}
	case tables.ShapeNot:
		return ir.Not(in[0])
	case tables.ShapeMove:
		return in[0]
	case tables.ShapeSel:
		return &ir.Call{Func: "SEL", Args: []ir.Arg{{Value: in[2]}, {Value: in[0]}, {Value: in[1]}}}
	}
	panic(fmt.Sprintf("fbd: block %s has no expression shape", info.Name))
}

func (ss *sheetState) aoi(n *source.Node) {
	tag, ok := ss.backing(n)
	if !ok {
		return
	}
	var args []ir.Arg
	for _, in := range n.Inputs {
		args = append(args, ir.Arg{Name: in.Pin, Value: ss.source(in.Source)})
	}
	ss.emit(&ir.Invoke{Callee: tag, Args: args})
}

// source resolves an input pin binding to an expression.
func (ss *sheetState) source(src source.PinSource) ir.Expr {
	switch v := src.(type) {
	case source.LiteralSource:
		return &ir.Lit{Kind: v.Kind, Text: v.Value}
	case source.WireSource:
		return ss.output(&ss.sheet.Nodes[v.Node], v.Pin)
	}
	panic(fmt.Sprintf("fbd: unknown pin source %T", src))
}

// output returns the expression reading output pin of node n.
func (ss *sheetState) output(n *source.Node, pin string) ir.Expr {
	switch n.Kind {
	case source.NodeIRef:
		if n.Pin != "" {
			return pinRef(n, n.Pin)
		}
		e, err := source.ParseOperand(n.Operand)
		if err != nil {
			ss.diags.Add(diag.Unsupported(ss.loc, "IRef", err.Error()))
			return &ir.Ref{Name: "_"}
		}
		return e
	case source.NodeBlock, source.NodeAOI:
		return pinRef(n, pin)
	}
	panic(fmt.Sprintf("fbd: node %s has no outputs", n.Label()))
}

// pinRef maps an output pin of a block-backed node onto the member that
// carries it. On timer and counter blocks vendor pins become instance
// members (DN -> Q, ACC -> ET with a conversion).
func pinRef(n *source.Node, pin string) ir.Expr {
	tag, err := source.ParseReference(n.Operand)
	if err != nil {
		tag = ir.Name(n.Operand)
	}
	if n.Kind == source.NodeAOI || n.Block == tables.BlockUnknown {
		return tag.Dot(pin)
	}
	info := n.Block.Info()
	if pin == "" {
		pin = info.Outputs[0].Name
	}
	p, ok := info.Output(pin)
	if !ok {
		return tag.Dot(pin)
	}
	return convert(p.Convert, tag.Dot(p.STMember()))
}

func convert(fn string, e ir.Expr) ir.Expr {
	if fn == "" {
		return e
	}
	return &ir.Call{Func: fn, Args: []ir.Arg{{Value: e}}}
}
