package consolidate

import (
	"strings"

	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/source"
)

// moduleIO recognizes module I/O references of one controller.
type moduleIO struct {
	m       *merger
	loc     diag.Location
	modules map[string]bool
	dropped map[string]bool
}

func (m *merger) modules(i int) *moduleIO {
	u := m.units[i]
	io := &moduleIO{
		m:       m,
		loc:     diag.Location{Controller: u.Program.Name},
		modules: make(map[string]bool),
		dropped: make(map[string]bool),
	}
	for _, name := range u.Modules {
		io.modules[fold(name)] = true
	}
	for _, t := range u.Program.Tags {
		if io.declared(t) {
			io.dropped[fold(t.Name)] = true
		}
	}
	return io
}

// declared reports whether a tag declaration is module data: its name or
// its module-defined type ("AB:1756_DI:I:0") contains a colon.
func (io *moduleIO) declared(t ir.Tag) bool {
	return strings.Contains(t.Name, ":") || strings.Contains(t.Type, ":")
}

// touches reports whether a root tag name reaches module I/O.
func (io *moduleIO) touches(name string) bool {
	if source.IsModuleReference(&ir.Ref{Name: name}) || io.dropped[fold(name)] {
		return true
	}
	return io.modules[fold(name)] || io.m.cfg.IsRIO(name)
}

// disable wraps every statement whose own expressions touch module I/O.
// Nested statements are checked on their own, so an IF on a plain condition
// keeps running and only the module write inside it is disabled.
func (io *moduleIO) disable(stmts []ir.Stmt) []ir.Stmt {
	return replace(stmts, func(s ir.Stmt) (ir.Stmt, bool) {
		if _, ok := s.(*ir.Disabled); ok {
			return s, false
		}
		var hit string
		ir.WalkExprs(s, func(e ir.Expr) {
			if r, ok := e.(*ir.Ref); ok && hit == "" && io.touches(r.Name) {
				hit = r.Name
			}
		})
		if hit == "" {
			return s, true
		}
		io.m.diags.Add(diag.Warning(diag.CodeDisabled, io.loc, "statement on module data %s preserved as disabled", hit))
		io.m.logger.Warn("statement disabled",
			"controller", io.loc.Controller,
			"code", diag.CodeDisabled,
			"tag", hit)
		return &ir.Disabled{Stmt: s, Reason: "module I/O " + hit}, false
	})
}
