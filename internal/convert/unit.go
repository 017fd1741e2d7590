package convert

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/fbd"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/irbuild"
	"github.com/roach88/l5xst/internal/ladder"
	"github.com/roach88/l5xst/internal/source"
	"github.com/roach88/l5xst/internal/st"
)

// unit translates the routines of one program or add-on instruction,
// starting from its main routine and inlining subroutine calls.
type unit struct {
	cv      *Converter
	loc     diag.Location
	names   *ladder.Namespace
	lookup  func(name string) (*source.Routine, bool)
	tagType func(name string) string

	stack     []string
	visited   map[string]bool
	tags      []ir.Tag
	instances map[string]string
	diags     diag.List
	fatal     error
}

func (u *unit) run(main *source.Routine) ([]ir.Stmt, error) {
	u.visited = make(map[string]bool)
	stmts := u.routine(main)
	if u.fatal != nil {
		return nil, u.fatal
	}
	return stmts, nil
}

func (u *unit) routine(r *source.Routine) []ir.Stmt {
	key := strings.ToUpper(r.Name)
	u.visited[key] = true
	u.stack = append(u.stack, key)
	defer func() { u.stack = u.stack[:len(u.stack)-1] }()

	loc := u.loc
	loc.Routine = r.Name
	switch r.Kind {
	case source.RoutineRLL:
		ctx := &ladder.Context{
			Location: loc,
			Routine:  r.Name,
			Names:    u.names,
			Inline:   u.inline,
			TagType:  u.tagType,
		}
		res := u.cv.ladder.Routine(ctx, r)
		u.tags = append(u.tags, res.Tags...)
		u.note(res.Instances)
		u.diags.Extend(res.Diags)
		return res.Stmts
	case source.RoutineFBD:
		res := u.cv.fbd.Routine(&fbd.Context{Location: loc, Routine: r.Name}, r)
		u.note(res.Instances)
		u.diags.Extend(res.Diags)
		return res.Stmts
	case source.RoutineST:
		stmts, err := structured(r)
		if err != nil {
			if u.fatal == nil {
				u.fatal = diag.Wrap(diag.CodeMalformedST, loc, err, "routine %s", r.Name)
			}
			return nil
		}
		return stmts
	}
	panic(fmt.Sprintf("convert: unknown routine kind %q", r.Kind))
}

func structured(r *source.Routine) ([]ir.Stmt, error) {
	body, err := st.ParseStmts(r.Name, r.ST)
	if err != nil {
		return nil, err
	}
	return irbuild.Stmts(body)
}

// inline resolves a JSR or FOR target. Errors become an unsupported rung.
func (u *unit) inline(name string) ([]ir.Stmt, error) {
	if u.fatal != nil {
		return nil, u.fatal
	}
	if slices.Contains(u.stack, strings.ToUpper(name)) {
		return nil, fmt.Errorf("recursive call to routine %s", name)
	}
	r, ok := u.lookup(name)
	if !ok {
		return nil, fmt.Errorf("routine %s not found", name)
	}
	return u.routine(r), nil
}

// note records instance types. A counter counted both up and down is a
// CTUD.
func (u *unit) note(instances map[string]string) {
	for k, v := range instances {
		if u.instances == nil {
			u.instances = make(map[string]string)
		}
		prev, ok := u.instances[k]
		switch {
		case !ok || prev == v:
			u.instances[k] = v
		case isCounter(prev) && isCounter(v):
			u.instances[k] = "CTUD"
		}
	}
}

func isCounter(t string) bool {
	return t == "CTU" || t == "CTD" || t == "CTUD"
}
