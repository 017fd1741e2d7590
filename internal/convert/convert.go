package convert

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/l5xst/internal/config"
	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/fbd"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/ladder"
	"github.com/roach88/l5xst/internal/source"
	"github.com/roach88/l5xst/internal/tables"
)

// Converter builds IR programs. It holds no per-controller state, so one
// Converter may serve several goroutines.
type Converter struct {
	logger *slog.Logger
	ladder *ladder.Translator
	fbd    *fbd.Translator
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger of the converter and its translators.
func WithLogger(l *slog.Logger) Option {
	return func(cv *Converter) {
		cv.logger = l
	}
}

// New creates a Converter.
func New(opts ...Option) *Converter {
	cv := &Converter{logger: slog.Default()}
	for _, opt := range opts {
		opt(cv)
	}
	cv.ladder = ladder.New(ladder.WithLogger(cv.logger))
	cv.fbd = fbd.New(fbd.WithLogger(cv.logger))
	return cv
}

// ToIR converts c with a default Converter.
func ToIR(c *source.Controller, cfg *config.Config) (*ir.Program, diag.List, error) {
	return New().ToIR(c, cfg)
}

// ToIR converts c. Recoverable problems are returned as diagnostics; the
// error is non-nil only for a fatal problem such as an ST routine that
// does not parse.
func (cv *Converter) ToIR(c *source.Controller, cfg *config.Config) (*ir.Program, diag.List, error) {
	prog := &ir.Program{Name: c.Name}
	var diags diag.List

	for _, dt := range c.Types {
		td := ir.TypeDecl{Name: dt.Name}
		for _, m := range dt.Members {
			td.Members = append(td.Members, ir.Member{Name: m.Name, Type: tables.MapType(m.Type), Dim: m.Dim})
		}
		prog.Types = append(prog.Types, td)
	}

	for i := range c.AOIs {
		pou, ds, err := cv.aoi(c, &c.AOIs[i])
		if err != nil {
			return nil, diags, err
		}
		diags.Extend(ds)
		prog.POUs = append(prog.POUs, pou)
	}

	ctl, progs := planScopes(c)
	names := ladder.NewNamespace()
	for _, sc := range append([]*scope{ctl}, progs...) {
		for _, t := range sc.tags {
			names.Add(t.final)
		}
	}

	var synthesized []ir.Tag
	instances := make(map[string]string)
	for _, i := range programOrder(c, cfg) {
		p := &c.Programs[i]
		main, ok := mainRoutine(p)
		if !ok {
			cv.logger.Debug("program has no routines", "controller", c.Name, "program", p.Name)
			continue
		}
		u := &unit{
			cv:     cv,
			loc:    diag.Location{Controller: c.Name, Program: p.Name},
			names:  names,
			lookup: p.Routine,
			tagType: func(name string) string {
				if t, ok := c.Lookup(p, name); ok {
					return t.Type
				}
				return ""
			},
		}
		body, err := u.run(main)
		if err != nil {
			return nil, diags, err
		}
		for _, r := range p.Routines {
			if !u.visited[strings.ToUpper(r.Name)] {
				cv.logger.Debug("routine never called",
					"controller", c.Name,
					"program", p.Name,
					"routine", r.Name)
			}
		}
		rn := progs[i].renamer()
		prog.Body = append(prog.Body, ir.RenameStmts(body, rn)...)
		synthesized = append(synthesized, u.tags...)
		for k, v := range u.instances {
			instances[strings.ToUpper(rn.Tag(k))] = v
		}
		diags.Extend(u.diags)
	}

	var aliases []alias
	for _, sc := range append([]*scope{ctl}, progs...) {
		for _, t := range sc.tags {
			if t.src.Kind == ir.KindAlias {
				aliases = append(aliases, alias{name: t.final, target: t.src.Alias, rn: sc.renamer()})
				continue
			}
			prog.Tags = append(prog.Tags, cv.tag(c, t, instances))
		}
	}
	prog.Tags = append(prog.Tags, synthesized...)

	targets, ds := resolveAliases(diag.Location{Controller: c.Name}, aliases)
	diags.Extend(ds)
	prog.Body = mapInstanceMembers(substituteAliases(prog.Body, targets), tagInstances(prog.Tags))
	diags.Extend(cv.undeclared(c, cfg, prog, aliases))

	cv.logger.Debug("controller converted",
		"controller", c.Name,
		"tags", len(prog.Tags),
		"stmts", len(prog.Body),
		"diagnostics", len(diags))
	return prog, diags, nil
}

// undeclared warns once for every live operand root that names no tag.
// Module data, declared modules and remote I/O are reported when the units
// are consolidated instead.
func (cv *Converter) undeclared(c *source.Controller, cfg *config.Config, prog *ir.Program, aliases []alias) diag.List {
	known := make(map[string]bool, len(prog.Tags)+len(aliases))
	for _, t := range prog.Tags {
		known[strings.ToUpper(t.Name)] = true
	}
	for _, a := range aliases {
		known[strings.ToUpper(a.name)] = true
	}
	var diags diag.List
	loc := diag.Location{Controller: c.Name}
	for _, name := range ir.LiveRoots(prog.Body) {
		if known[strings.ToUpper(name)] || source.IsModuleReference(ir.Name(name)) || c.IsModule(name) || cfg.IsRIO(name) {
			continue
		}
		known[strings.ToUpper(name)] = true
		diags.Add(diag.Warning(diag.CodeUnknownTag, loc, "operand %s is not declared", name))
		cv.logger.Warn("undeclared operand",
			"controller", c.Name,
			"code", diag.CodeUnknownTag,
			"tag", name)
	}
	return diags
}

// programOrder lists program indices with the configured main program
// first and the rest in declaration order.
func programOrder(c *source.Controller, cfg *config.Config) []int {
	order := make([]int, len(c.Programs))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		am := strings.EqualFold(c.Programs[a].Name, cfg.L5X.MainProgram)
		bm := strings.EqualFold(c.Programs[b].Name, cfg.L5X.MainProgram)
		switch {
		case am && !bm:
			return -1
		case bm && !am:
			return 1
		}
		return 0
	})
	return order
}

func mainRoutine(p *source.Program) (*source.Routine, bool) {
	if p.MainRoutine != "" {
		if r, ok := p.Routine(p.MainRoutine); ok {
			return r, true
		}
	}
	if len(p.Routines) == 0 {
		return nil, false
	}
	return &p.Routines[0], true
}

// tag converts a declaration. Timer and counter tags take the instance type
// their instructions require.
func (cv *Converter) tag(c *source.Controller, t scopedTag, instances map[string]string) ir.Tag {
	typ := tables.MapType(t.src.Type)
	if tables.IsTimerType(t.src.Type) || tables.IsCounterType(t.src.Type) {
		if inst, ok := instances[strings.ToUpper(t.final)]; ok {
			typ = inst
		}
	}
	out := ir.Tag{
		Name:  t.final,
		Type:  typ,
		Dim:   t.src.Dim,
		Scope: t.src.Scope,
		Kind:  t.src.Kind,
		Note:  t.src.Description,
	}
	if t.src.Init != "" {
		lit, ok := initLiteral(t.src.Init, typ)
		if ok {
			out.Init = lit
		} else {
			cv.logger.Debug("initial value dropped",
				"controller", c.Name,
				"tag", t.final,
				"value", t.src.Init)
		}
	}
	return out
}

// aoi converts an add-on instruction to a function block. Its logic is the
// routine named Logic, or the first routine.
func (cv *Converter) aoi(c *source.Controller, a *source.AOI) (ir.POU, diag.List, error) {
	pou := ir.POU{Name: a.Name, Kind: ir.POUFunctionBlock}

	var logic *source.Routine
	for i := range a.Routines {
		if strings.EqualFold(a.Routines[i].Name, "Logic") {
			logic = &a.Routines[i]
			break
		}
	}
	if logic == nil && len(a.Routines) > 0 {
		logic = &a.Routines[0]
	}

	names := ladder.NewNamespace()
	for _, p := range a.Params {
		names.Add(p.Name)
	}
	u := &unit{
		cv:    cv,
		loc:   diag.Location{Controller: c.Name, Program: a.Name},
		names: names,
		lookup: func(name string) (*source.Routine, bool) {
			for i := range a.Routines {
				if strings.EqualFold(a.Routines[i].Name, name) {
					return &a.Routines[i], true
				}
			}
			return nil, false
		},
		tagType: func(name string) string {
			if p, ok := a.Param(name); ok {
				return p.Type
			}
			return ""
		},
	}
	if logic != nil {
		body, err := u.run(logic)
		if err != nil {
			return ir.POU{}, nil, err
		}
		pou.Body = body
	}

	for _, p := range a.Params {
		typ := tables.MapType(p.Type)
		if inst, ok := u.instances[strings.ToUpper(p.Name)]; ok && (tables.IsTimerType(p.Type) || tables.IsCounterType(p.Type)) {
			typ = inst
		}
		pou.Vars = append(pou.Vars, ir.Var{Name: p.Name, Type: typ, Dim: p.Dim, Section: section(p.Usage)})
	}
	for _, t := range u.tags {
		pou.Vars = append(pou.Vars, ir.Var{Name: t.Name, Type: t.Type, Section: ir.VarLocal})
	}

	inst := make(map[string]string)
	for _, v := range pou.Vars {
		if tables.IsStandardFB(v.Type) {
			inst[strings.ToUpper(v.Name)] = v.Type
		}
	}
	pou.Body = mapInstanceMembers(pou.Body, inst)
	return pou, u.diags, nil
}

func section(u source.ParamUsage) ir.VarSection {
	switch u {
	case source.UsageInput:
		return ir.VarInput
	case source.UsageOutput:
		return ir.VarOutput
	case source.UsageInOut:
		return ir.VarInOut
	case source.UsageLocal:
		return ir.VarLocal
	}
	panic(fmt.Sprintf("convert: unknown parameter usage %q", u))
}
