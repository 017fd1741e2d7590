package consolidate

import (
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/l5xst/internal/config"
	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/source"
	"github.com/roach88/l5xst/internal/tables"
)

// NameKind classifies a renamed identifier.
type NameKind string

const (
	NameTag  NameKind = "tag"
	NameType NameKind = "type"
	NamePOU  NameKind = "pou"
)

// Rename is one entry of the rename table.
type Rename struct {
	Controller int      `json:"controller"`
	Kind       NameKind `json:"kind"`
	From       string   `json:"from"`
	To         string   `json:"to"`
}

// Table maps every declared identifier of every controller, and every
// undeclared tag its logic references, to its output name. It is sorted by
// controller, kind and case-folded name.
type Table []Rename

// Lookup returns the output name of an identifier declared by a controller.
func (t Table) Lookup(controller int, kind NameKind, name string) (string, bool) {
	key := fold(name)
	for _, r := range t {
		if r.Controller == controller && r.Kind == kind && fold(r.From) == key {
			return r.To, true
		}
	}
	return "", false
}

// Changed returns the entries whose output name differs from the input.
func (t Table) Changed() Table {
	var out Table
	for _, r := range t {
		if r.From != r.To {
			out = append(out, r)
		}
	}
	return out
}

func fold(s string) string {
	return cases.Fold().String(s)
}

func reserved(name string) string {
	out, _ := tables.Reserved(name)
	return out
}

// decl is one declared identifier awaiting a final name.
type decl struct {
	unit  int // position in the sorted unit list
	index int // controller index
	ctl   string
	kind  NameKind
	name  string
	base  string   // after the reserved-word mapping
	fp    string   // structural identity of types and POUs
	refs  []string // folded bases of user types the declaration uses
	final string
}

// group is every declaration sharing a case-folded base name.
type group struct {
	key    string
	decls  []*decl
	merged bool
}

// identical reports whether the group keeps its base name: a single
// declaration, or identical types or POUs from distinct controllers.
func (g *group) identical() bool {
	if len(g.decls) == 1 {
		return true
	}
	first := g.decls[0]
	if first.kind == NameTag {
		return false
	}
	seen := make(map[int]bool)
	for _, d := range g.decls {
		if d.kind != first.kind || d.fp != first.fp || seen[d.unit] {
			return false
		}
		seen[d.unit] = true
	}
	return true
}

// plan decides every output name. An undeclared root counts as a tag
// declared by the controller that references it, so it never takes the
// name of another controller's tag. plan fails when a suffixed name cannot
// be found within cfg.MaxSuffix attempts.
func plan(units []Unit, cfg *config.Config) ([]*decl, error) {
	var decls []*decl
	for i, u := range units {
		userTypes := make(map[string]bool)
		for _, td := range u.Program.Types {
			userTypes[fold(td.Name)] = true
		}
		for _, p := range u.Program.POUs {
			userTypes[fold(p.Name)] = true
		}
		refs := func(types ...string) []string {
			var out []string
			for _, t := range types {
				if userTypes[fold(t)] {
					out = append(out, fold(reserved(t)))
				}
			}
			return out
		}

		for _, t := range u.Program.Tags {
			decls = append(decls, &decl{unit: i, index: u.Index, ctl: u.Program.Name, kind: NameTag, name: t.Name, base: reserved(t.Name)})
		}
		for _, name := range undeclared(u, cfg) {
			decls = append(decls, &decl{unit: i, index: u.Index, ctl: u.Program.Name, kind: NameTag, name: name, base: reserved(name)})
		}
		for _, td := range u.Program.Types {
			var types []string
			for _, m := range td.Members {
				types = append(types, m.Type)
			}
			decls = append(decls, &decl{
				unit: i, index: u.Index, ctl: u.Program.Name, kind: NameType, name: td.Name, base: reserved(td.Name),
				fp:   ir.MustFingerprint(ir.DomainDecl, ir.EncodeType(td)),
				refs: refs(types...),
			})
		}
		for _, p := range u.Program.POUs {
			types := []string{p.ReturnType}
			for _, v := range p.Vars {
				types = append(types, v.Type)
			}
			decls = append(decls, &decl{
				unit: i, index: u.Index, ctl: u.Program.Name, kind: NamePOU, name: p.Name, base: reserved(p.Name),
				fp:   ir.MustFingerprint(ir.DomainDecl, ir.EncodePOU(p)),
				refs: refs(types...),
			})
		}
	}

	byKey := make(map[string]*group)
	var groups []*group
	for _, d := range decls {
		key := fold(d.base)
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.decls = append(g.decls, d)
	}
	slices.SortFunc(groups, func(a, b *group) int { return strings.Compare(a.key, b.key) })

	for _, g := range groups {
		g.merged = g.identical()
	}
	// A merged declaration must only use types that keep their name too.
	for changed := true; changed; {
		changed = false
		for _, g := range groups {
			if !g.merged || len(g.decls) == 1 {
				continue
			}
			for _, d := range g.decls {
				if slices.ContainsFunc(d.refs, func(r string) bool { return byKey[r] != nil && !byKey[r].merged }) {
					g.merged, changed = false, true
					break
				}
			}
		}
	}

	taken := make(map[string]bool)
	for _, g := range groups {
		if g.merged {
			taken[g.key] = true
			for _, d := range g.decls {
				d.final = d.base
			}
		}
	}
	for _, g := range groups {
		if g.merged {
			continue
		}
		slices.SortStableFunc(g.decls, func(a, b *decl) int { return a.index - b.index })
		for _, d := range g.decls {
			name, err := suffixed(d, taken, cfg.MaxSuffix)
			if err != nil {
				return nil, err
			}
			d.final = name
		}
	}
	return decls, nil
}

// undeclared lists the live roots of u that name no tag of u, skipping
// module data and remote I/O, which are disabled instead.
func undeclared(u Unit, cfg *config.Config) []string {
	skip := make(map[string]bool)
	for _, t := range u.Program.Tags {
		skip[fold(t.Name)] = true
	}
	for _, m := range u.Modules {
		skip[fold(m)] = true
	}
	var out []string
	for _, name := range ir.LiveRoots(u.Program.Body) {
		key := fold(name)
		if skip[key] || source.IsModuleReference(ir.Name(name)) || cfg.IsRIO(name) {
			continue
		}
		skip[key] = true
		out = append(out, name)
	}
	return out
}

// suffixed claims <base>_<idx>, then <base>_<idx>_<k> for k = 2..maxSuffix.
func suffixed(d *decl, taken map[string]bool, maxSuffix int) (string, error) {
	name := d.base + "_" + strconv.Itoa(d.index)
	for k := 2; taken[fold(name)]; k++ {
		if k > maxSuffix {
			err := diag.NewCollisionError(d.name, maxSuffix)
			err.Location = diag.Location{Controller: d.ctl}
			return "", err
		}
		name = d.base + "_" + strconv.Itoa(d.index) + "_" + strconv.Itoa(k)
	}
	taken[fold(name)] = true
	return name, nil
}

// table lists the decisions sorted by controller, kind and folded name.
func table(decls []*decl) Table {
	out := make(Table, 0, len(decls))
	for _, d := range decls {
		out = append(out, Rename{Controller: d.index, Kind: d.kind, From: d.name, To: d.final})
	}
	slices.SortStableFunc(out, func(a, b Rename) int {
		if a.Controller != b.Controller {
			return a.Controller - b.Controller
		}
		if a.Kind != b.Kind {
			return strings.Compare(string(a.Kind), string(b.Kind))
		}
		return strings.Compare(fold(a.From), fold(b.From))
	})
	return out
}

// renamer applies one controller's decisions. Roots of disabled statements
// and every member selector only go through the reserved-word mapping.
type renamer struct {
	tags  map[string]string
	types map[string]string // types and POUs
}

func newRenamer() *renamer {
	return &renamer{tags: make(map[string]string), types: make(map[string]string)}
}

func (r *renamer) Tag(n string) string {
	if f, ok := r.tags[fold(n)]; ok {
		return f
	}
	return reserved(n)
}

func (r *renamer) Field(n string) string { return reserved(n) }

func (r *renamer) Func(n string) string {
	if f, ok := r.types[fold(n)]; ok {
		return f
	}
	return n
}

// Type renames a type reference. Elementary and auxiliary types are kept.
func (r *renamer) Type(n string) string {
	return r.Func(n)
}

// local renames inside a POU body, where every root is a parameter or a
// local variable.
type local struct {
	*renamer
}

func (l local) Tag(n string) string { return reserved(n) }
