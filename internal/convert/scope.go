package convert

import (
	"strconv"
	"strings"

	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/ladder"
	"github.com/roach88/l5xst/internal/source"
	"github.com/roach88/l5xst/internal/tables"
)

// scopedTag is a declaration with the name it has in the flattened
// program.
type scopedTag struct {
	src   source.Tag
	final string
}

// scope is one tag scope of the controller.
type scope struct {
	tags    []scopedTag
	renames tagRenamer
}

func (s *scope) renamer() ir.Renamer {
	return s.renames
}

// tagRenamer renames root tags by upper-cased original name.
type tagRenamer map[string]string

func (r tagRenamer) Tag(n string) string {
	if f, ok := r[strings.ToUpper(n)]; ok {
		return f
	}
	return n
}

func (tagRenamer) Field(n string) string { return n }
func (tagRenamer) Func(n string) string  { return n }

// planScopes assigns final names. Controller tags keep theirs; a program
// tag whose name is already taken becomes <Program>_<Tag>.
func planScopes(c *source.Controller) (*scope, []*scope) {
	taken := ladder.NewNamespace()
	ctl := &scope{}
	for _, t := range c.Tags {
		taken.Add(t.Name)
		ctl.tags = append(ctl.tags, scopedTag{src: t, final: t.Name})
	}
	progs := make([]*scope, len(c.Programs))
	for i, p := range c.Programs {
		sc := &scope{renames: make(tagRenamer)}
		for _, t := range p.Tags {
			final := t.Name
			if taken.Has(final) {
				final = taken.Reserve(p.Name + "_" + t.Name)
				sc.renames[strings.ToUpper(t.Name)] = final
			} else {
				taken.Add(final)
			}
			sc.tags = append(sc.tags, scopedTag{src: t, final: final})
		}
		progs[i] = sc
	}
	return ctl, progs
}

// alias is an alias tag awaiting resolution.
type alias struct {
	name   string
	target string
	rn     ir.Renamer
}

// resolveAliases parses alias targets. An alias whose target does not parse
// or that leads back to itself is left in place with a warning.
func resolveAliases(loc diag.Location, aliases []alias) (map[string]*ir.Ref, diag.List) {
	var diags diag.List
	targets := make(map[string]*ir.Ref, len(aliases))
	for _, a := range aliases {
		r, err := source.ParseReference(a.target)
		if err != nil {
			diags.Add(diag.Warning(diag.CodeUnknownTag, loc, "alias %s: %v", a.name, err))
			continue
		}
		targets[strings.ToUpper(a.name)] = ir.RenameExpr(r, a.rn).(*ir.Ref)
	}
	var cyclic []string
	for _, a := range aliases {
		key := strings.ToUpper(a.name)
		seen := map[string]bool{key: true}
		for r, ok := targets[key]; ok; r, ok = targets[strings.ToUpper(r.Name)] {
			next := strings.ToUpper(r.Name)
			if seen[next] {
				diags.Add(diag.Warning(diag.CodeUnknownTag, loc, "alias %s refers to itself", a.name))
				cyclic = append(cyclic, key)
				break
			}
			seen[next] = true
		}
	}
	for _, key := range cyclic {
		delete(targets, key)
	}
	return targets, diags
}

// substituteAliases replaces alias roots by their targets, keeping the
// selectors that follow: Run.3 with Run -> Word becomes Word.3.
func substituteAliases(stmts []ir.Stmt, targets map[string]*ir.Ref) []ir.Stmt {
	if len(targets) == 0 {
		return stmts
	}
	return ir.MapRefs(stmts, func(r *ir.Ref, _ bool) ir.Expr {
		for {
			target, ok := targets[strings.ToUpper(r.Name)]
			if !ok {
				return r
			}
			out := ir.CloneExpr(target).(*ir.Ref)
			out.Path = append(out.Path, r.Path...)
			r = out
		}
	})
}

// tagInstances maps upper-cased names of standard function block tags to
// their type.
func tagInstances(tags []ir.Tag) map[string]string {
	out := make(map[string]string)
	for _, t := range tags {
		if tables.IsStandardFB(t.Type) {
			out[strings.ToUpper(t.Name)] = t.Type
		}
	}
	return out
}

// mapInstanceMembers rewrites vendor member access on timer and counter
// instances: T1.DN -> T1.Q, T1.ACC -> TIME_TO_DINT(T1.ET). A write through
// a converted member converts the value instead. stmts is modified.
func mapInstanceMembers(stmts []ir.Stmt, instances map[string]string) []ir.Stmt {
	if len(instances) == 0 {
		return stmts
	}
	ir.WalkStmts(stmts, func(s ir.Stmt) bool {
		if a, ok := s.(*ir.Assign); ok {
			if _, _, conv, ok := instanceMember(a.Target, instances); ok && conv != "" {
				a.Value = &ir.Call{Func: inverse(conv), Args: []ir.Arg{{Value: a.Value}}}
			}
		}
		return true
	})
	return ir.MapRefs(stmts, func(r *ir.Ref, write bool) ir.Expr {
		i, member, conv, ok := instanceMember(r, instances)
		if !ok {
			return r
		}
		r.Path[i].Field = member
		if write || conv == "" || i != len(r.Path)-1 {
			return r
		}
		return &ir.Call{Func: conv, Args: []ir.Arg{{Value: r}}}
	})
}

// instanceMember finds the first member selector of an instance reference,
// after any array indices.
func instanceMember(r *ir.Ref, instances map[string]string) (int, string, string, bool) {
	typ, ok := instances[strings.ToUpper(r.Name)]
	if !ok {
		return 0, "", "", false
	}
	i := 0
	for i < len(r.Path) && r.Path[i].Index != nil {
		i++
	}
	if i == len(r.Path) {
		return 0, "", "", false
	}
	member, conv, ok := tables.InstanceMember(typ, r.Path[i].Field)
	return i, member, conv, ok
}

// inverse turns A_TO_B into B_TO_A.
func inverse(conv string) string {
	from, to, ok := strings.Cut(conv, "_TO_")
	if !ok {
		return conv
	}
	return to + "_TO_" + from
}

// initLiteral converts an L5K initial value for an elementary type.
func initLiteral(text, typ string) (*ir.Lit, bool) {
	e, err := source.ParseOperand(text)
	if err != nil {
		return nil, false
	}
	l, ok := e.(*ir.Lit)
	if !ok {
		return nil, false
	}
	p, ok := tables.LookupPrim(typ)
	if !ok {
		return nil, false
	}
	switch p.Family() {
	case tables.FamilyBool:
		switch l.Text {
		case "0":
			return ir.Bool(false), true
		case "1":
			return ir.Bool(true), true
		}
	case tables.FamilyInteger, tables.FamilyBits:
		if l.Kind == ir.LitInt {
			return l, true
		}
	case tables.FamilyReal:
		if l.Kind != ir.LitInt && l.Kind != ir.LitReal {
			return nil, false
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(l.Text, "_", ""), 64)
		if err != nil {
			return nil, false
		}
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return &ir.Lit{Kind: ir.LitReal, Text: s}, true
	case tables.FamilyTime, tables.FamilyString:
	}
	return nil, false
}
