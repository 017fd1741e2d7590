package consolidate

import (
	"log/slog"
	"slices"

	"github.com/roach88/l5xst/internal/config"
	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/source"
)

// Unit is one controller's converted program plus the source facts the
// merge needs.
type Unit struct {
	// Index is the 1-based controller index used for suffixes.
	Index   int
	Program *ir.Program

	// Messages holds the configuration of MESSAGE tags by case-folded
	// tag name.
	Messages map[string]source.Message

	// Modules are the declared I/O module names.
	Modules []string
}

// NewUnit pairs a converted program with its controller.
func NewUnit(c *source.Controller, p *ir.Program) Unit {
	u := Unit{Index: c.Index, Program: p, Modules: c.Modules, Messages: make(map[string]source.Message)}
	note := func(tags []source.Tag) {
		for _, t := range tags {
			if t.Message != nil {
				u.Messages[fold(t.Name)] = *t.Message
			}
		}
	}
	note(c.Tags)
	for _, prog := range c.Programs {
		note(prog.Tags)
	}
	return u
}

// Result is a merged program.
type Result struct {
	Program *ir.Program
	Renames Table
	Diags   diag.List
}

// Consolidator merges units. It holds no per-merge state.
type Consolidator struct {
	logger *slog.Logger
}

// Option configures a Consolidator.
type Option func(*Consolidator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Consolidator) {
		c.logger = l
	}
}

// New creates a Consolidator.
func New(opts ...Option) *Consolidator {
	c := &Consolidator{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Merge merges units with a default Consolidator.
func Merge(units []Unit, cfg *config.Config) (*Result, error) {
	return New().Merge(units, cfg)
}

// Merge combines units into one program named by cfg.Program. The only
// error is an unresolvable name collision.
func (c *Consolidator) Merge(units []Unit, cfg *config.Config) (*Result, error) {
	units = slices.Clone(units)
	slices.SortStableFunc(units, func(a, b Unit) int { return a.Index - b.Index })

	decls, err := plan(units, cfg)
	if err != nil {
		c.logger.Warn("name collision unresolvable", "code", diag.CodeOf(err), "error", err)
		return nil, err
	}

	renamers := make([]*renamer, len(units))
	for i := range renamers {
		renamers[i] = newRenamer()
	}
	kept := make(map[*decl]bool)
	firsts := make(map[string]*decl)
	for _, d := range decls {
		rn := renamers[d.unit]
		if d.kind == NameTag {
			rn.tags[fold(d.name)] = d.final
			kept[d] = true
			continue
		}
		rn.types[fold(d.name)] = d.final
		key := string(d.kind) + "/" + fold(d.final)
		if _, dup := firsts[key]; !dup {
			firsts[key] = d
			kept[d] = true
		}
	}
	keep := make([]map[string]bool, len(units))
	for i := range keep {
		keep[i] = make(map[string]bool)
	}
	for d := range kept {
		keep[d.unit][string(d.kind)+"/"+fold(d.name)] = true
	}

	m := &merger{logger: c.logger, cfg: cfg, units: units, renamers: renamers}
	prog := &ir.Program{Name: cfg.Program}
	var body []ir.Stmt
	for i, u := range units {
		rn := renamers[i]
		mods := m.modules(i)
		for _, t := range u.Program.Tags {
			if mods.declared(t) {
				c.logger.Debug("module tag dropped", "controller", u.Program.Name, "tag", t.Name, "type", t.Type)
				continue
			}
			t.Name = rn.Tag(t.Name)
			t.Type = rn.Type(t.Type)
			prog.Tags = append(prog.Tags, t)
		}
		for _, td := range u.Program.Types {
			if !keep[i][string(NameType)+"/"+fold(td.Name)] {
				continue
			}
			out := ir.TypeDecl{Name: rn.Type(td.Name)}
			for _, mb := range td.Members {
				out.Members = append(out.Members, ir.Member{Name: reserved(mb.Name), Type: rn.Type(mb.Type), Dim: mb.Dim})
			}
			prog.Types = append(prog.Types, out)
		}
		for _, p := range u.Program.POUs {
			if !keep[i][string(NamePOU)+"/"+fold(p.Name)] {
				continue
			}
			out := ir.POU{Name: rn.Func(p.Name), Kind: p.Kind, ReturnType: rn.Type(p.ReturnType)}
			for _, v := range p.Vars {
				v.Name = reserved(v.Name)
				v.Type = rn.Type(v.Type)
				out.Vars = append(out.Vars, v)
			}
			out.Body = ir.RenameStmts(p.Body, local{rn})
			prog.POUs = append(prog.POUs, out)
		}

		stmts := ir.RenameStmts(mods.disable(ir.CloneStmts(u.Program.Body)), rn)
		stmts = m.messages(i, stmts)
		if len(units) > 1 && len(stmts) > 0 {
			body = append(body, &ir.Comment{Text: "Controller " + u.Program.Name})
		}
		body = append(body, stmts...)
	}
	prog.Body = body

	res := &Result{Program: prog, Renames: table(decls), Diags: m.diags}
	c.logger.Debug("controllers consolidated",
		"controllers", len(units),
		"tags", len(prog.Tags),
		"renamed", len(res.Renames.Changed()),
		"diagnostics", len(res.Diags))
	return res, nil
}

// merger carries the state of one Merge call.
type merger struct {
	logger   *slog.Logger
	cfg      *config.Config
	units    []Unit
	renamers []*renamer
	diags    diag.List
}

// replace rebuilds stmts, offering every statement to fn before its
// children. fn returns the replacement and whether to descend into it.
// Nested bodies of the input are modified.
func replace(stmts []ir.Stmt, fn func(ir.Stmt) (ir.Stmt, bool)) []ir.Stmt {
	if stmts == nil {
		return nil
	}
	out := make([]ir.Stmt, 0, len(stmts))
	for _, s := range stmts {
		n, descend := fn(s)
		if descend {
			switch v := n.(type) {
			case *ir.If:
				for i := range v.Branches {
					v.Branches[i].Body = replace(v.Branches[i].Body, fn)
				}
				v.Else = replace(v.Else, fn)
			case *ir.For:
				v.Body = replace(v.Body, fn)
			case *ir.While:
				v.Body = replace(v.Body, fn)
			}
		}
		out = append(out, n)
	}
	return out
}
