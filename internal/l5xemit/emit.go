package l5xemit

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/roach88/l5xst/internal/coerce"
	"github.com/roach88/l5xst/internal/config"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/l5x"
	"github.com/roach88/l5xst/internal/stemit"
	"github.com/roach88/l5xst/internal/tables"
)

// Emitter builds vendor projects. It holds no per-program state.
type Emitter struct {
	logger *slog.Logger
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithLogger sets the logger for per-routine progress.
func WithLogger(l *slog.Logger) Option {
	return func(e *Emitter) {
		e.logger = l
	}
}

// New creates an Emitter.
func New(opts ...Option) *Emitter {
	e := &Emitter{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FromIR builds the project for prog with a default Emitter.
func FromIR(prog *ir.Program, cfg *config.Config) *l5x.Content {
	return New().FromIR(prog, cfg)
}

// FromIR builds the project for prog. It is total: statements without a
// rung form send their routine to structured text.
func (e *Emitter) FromIR(prog *ir.Program, cfg *config.Config) *l5x.Content {
	names := cfg.L5X
	ctl := l5x.Controller{Use: "Target", Name: names.Controller}
	program := l5x.Program{Name: names.MainProgram, MainRoutineName: names.MainRoutine}

	for _, td := range prog.Types {
		ctl.DataTypes = append(ctl.DataTypes, dataType(td))
	}
	for i := range prog.POUs {
		ctl.AOIs = append(ctl.AOIs, e.aoi(prog, &prog.POUs[i]))
	}
	for _, t := range prog.Tags {
		if t.Scope == ir.ScopeProgram {
			program.Tags = append(program.Tags, tag(t))
		} else {
			ctl.Tags = append(ctl.Tags, tag(t))
		}
	}
	program.Routines = []l5x.Routine{e.routine(names.MainRoutine, prog.Body, coerce.TypesOf(prog, nil))}
	ctl.Programs = []l5x.Program{program}
	ctl.Tasks = []l5x.Task{{
		Name:      names.MainTask,
		Type:      "CONTINUOUS",
		Priority:  cfg.Task.Priority,
		Watchdog:  500,
		Scheduled: []l5x.ScheduledProgram{{Name: names.MainProgram}},
	}}

	e.logger.Debug("project emitted",
		"controller", ctl.Name,
		"controller_tags", len(ctl.Tags),
		"program_tags", len(program.Tags),
		"aois", len(ctl.AOIs),
		"routine", program.Routines[0].Type)
	return &l5x.Content{
		SchemaRevision:  "1.0",
		TargetName:      ctl.Name,
		TargetType:      "Controller",
		ContainsContext: "false",
		Controller:      ctl,
	}
}

// routine writes stmts as ladder when every statement has a rung form and
// as structured text otherwise.
func (e *Emitter) routine(name string, stmts []ir.Stmt, types *coerce.Types) l5x.Routine {
	if rungs, ok := ladder(stmts, types); ok {
		e.logger.Debug("routine written as ladder", "routine", name, "rungs", len(rungs))
		return l5x.Routine{Name: name, Type: "RLL", RLL: &l5x.RLLContent{Rungs: rungs}}
	}
	text := stemit.FormatStmts(stmts)
	var lines []l5x.Line
	for i, l := range strings.Split(text, "\n") {
		lines = append(lines, l5x.Line{Number: i, Text: l})
	}
	e.logger.Debug("routine written as structured text", "routine", name, "lines", len(lines))
	return l5x.Routine{Name: name, Type: "ST", ST: &l5x.STContent{Lines: lines}}
}

// aoi converts a function block or function. A function's return value
// becomes an output parameter named <function>_Ret.
func (e *Emitter) aoi(prog *ir.Program, pou *ir.POU) l5x.AOIDef {
	def := l5x.AOIDef{Name: pou.Name, Revision: "1.0"}
	body := pou.Body
	if pou.Kind == ir.POUFunction {
		ret := pou.Name + "_Ret"
		def.Parameters = append(def.Parameters, l5x.Parameter{
			Name:     ret,
			TagType:  "Base",
			DataType: tables.VendorType(pou.ReturnType),
			Usage:    "Output",
			Visible:  true,
		})
		body = ir.RenameStmts(body, returnValue{fn: pou.Name, ret: ret})
	}
	for _, v := range pou.Vars {
		if v.Section == ir.VarLocal {
			lt := l5x.LocalTag{Name: v.Name, DataType: tables.VendorType(v.Type), Dimension: v.Dim}
			if d, ok := initData(v.Init); ok {
				lt.Data = []l5x.Data{d}
			}
			def.LocalTags = append(def.LocalTags, lt)
			continue
		}
		def.Parameters = append(def.Parameters, l5x.Parameter{
			Name:      v.Name,
			TagType:   "Base",
			DataType:  tables.VendorType(v.Type),
			Usage:     usage(v.Section),
			Dimension: v.Dim,
			Required:  v.Section == ir.VarInOut,
			Visible:   true,
		})
	}
	def.Routines = []l5x.Routine{e.routine("Logic", body, coerce.TypesOf(prog, pou))}
	return def
}

func usage(s ir.VarSection) string {
	switch s {
	case ir.VarInput:
		return "Input"
	case ir.VarOutput:
		return "Output"
	case ir.VarInOut:
		return "InOut"
	}
	panic("l5xemit: no parameter usage for section " + string(s))
}

// returnValue renames assignments to a function's name onto its output
// parameter.
type returnValue struct {
	fn, ret string
}

func (r returnValue) Tag(n string) string {
	if strings.EqualFold(n, r.fn) {
		return r.ret
	}
	return n
}

func (returnValue) Field(n string) string { return n }
func (returnValue) Func(n string) string  { return n }

func dataType(td ir.TypeDecl) l5x.DataType {
	dt := l5x.DataType{Name: td.Name, Family: "NoFamily", Class: "User"}
	for _, m := range td.Members {
		dt.Members = append(dt.Members, l5x.Member{Name: m.Name, DataType: tables.VendorType(m.Type), Dimension: m.Dim})
	}
	return dt
}

func tag(t ir.Tag) l5x.Tag {
	out := l5x.Tag{Name: t.Name, TagType: tagType(t.Kind), DataType: tables.VendorType(t.Type)}
	if t.Dim > 0 {
		out.Dimensions = strconv.Itoa(t.Dim)
	}
	if t.Note != "" {
		out.Description = &l5x.Text{Value: t.Note}
	}
	if d, ok := initData(t.Init); ok {
		out.Data = []l5x.Data{d}
	}
	return out
}

func tagType(k ir.TagKind) string {
	switch k {
	case ir.KindProduced:
		return "Produced"
	case ir.KindConsumed:
		return "Consumed"
	}
	return "Base"
}

// initData spells a scalar initial value in L5K format. Only numbers and
// booleans have one.
func initData(l *ir.Lit) (l5x.Data, bool) {
	if l == nil {
		return l5x.Data{}, false
	}
	switch l.Kind {
	case ir.LitBool:
		v := "0"
		if l.Text == "TRUE" {
			v = "1"
		}
		return l5x.Data{Format: "L5K", Text: v}, true
	case ir.LitInt, ir.LitReal:
		return l5x.Data{Format: "L5K", Text: l.Text}, true
	}
	return l5x.Data{}, false
}
