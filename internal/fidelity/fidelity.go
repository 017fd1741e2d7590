// Package fidelity compares two IR programs structurally.
//
// Declarations are compared by case-folded name, ignoring order. Statements
// are flattened in pre-order, each entry identified by its own header and
// the nesting path above it, and the two sequences are aligned on those
// fingerprints. Comments and disabled statements are not compared.
package fidelity

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/cases"

	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/stemit"
)

// Kind classifies one difference.
type Kind string

const (
	KindMismatched Kind = "mismatched"
	KindMissing    Kind = "missing" // only in the left program
	KindExtra      Kind = "extra"   // only in the right program
)

// Section names what a difference is about.
type Section string

const (
	SectionTag  Section = "tag"
	SectionType Section = "type"
	SectionPOU  Section = "pou"
	SectionStmt Section = "stmt"
)

// Counts tallies one comparison.
type Counts struct {
	Matched    int `json:"matched"`
	Mismatched int `json:"mismatched"`
	Missing    int `json:"missing"`
	Extra      int `json:"extra"`
}

// Total is the number of compared items.
func (c Counts) Total() int {
	return c.Matched + c.Mismatched + c.Missing + c.Extra
}

func (c Counts) plus(o Counts) Counts {
	return Counts{
		Matched:    c.Matched + o.Matched,
		Mismatched: c.Mismatched + o.Mismatched,
		Missing:    c.Missing + o.Missing,
		Extra:      c.Extra + o.Extra,
	}
}

func (c *Counts) add(k Kind) {
	switch k {
	case KindMismatched:
		c.Mismatched++
	case KindMissing:
		c.Missing++
	case KindExtra:
		c.Extra++
	}
}

// Difference is one unmatched item. Left or Right is empty when the item
// exists on one side only.
type Difference struct {
	Kind    Kind    `json:"kind"`
	Section Section `json:"section"`
	Key     string  `json:"key"`
	Left    string  `json:"left,omitempty"`
	Right   string  `json:"right,omitempty"`
}

func (d Difference) String() string {
	switch d.Kind {
	case KindMissing:
		return fmt.Sprintf("missing %s %s: %s", d.Section, d.Key, d.Left)
	case KindExtra:
		return fmt.Sprintf("extra %s %s: %s", d.Section, d.Key, d.Right)
	}
	return fmt.Sprintf("mismatched %s %s: %s <> %s", d.Section, d.Key, d.Left, d.Right)
}

// Report is the result of one comparison.
type Report struct {
	Declarations Counts       `json:"declarations"`
	Statements   Counts       `json:"statements"`
	Differences  []Difference `json:"differences,omitempty"`

	left, right []string
}

// Counts returns declarations and statements together.
func (r *Report) Counts() Counts {
	return r.Declarations.plus(r.Statements)
}

// Score is matched / total in [0,1]. Two empty programs score 1.
func (r *Report) Score() float64 {
	c := r.Counts()
	if c.Total() == 0 {
		return 1
	}
	return float64(c.Matched) / float64(c.Total())
}

// Percent is the score as a percentage.
func (r *Report) Percent() float64 {
	return r.Score() * 100
}

// Passes reports whether the score reaches min.
func (r *Report) Passes(min float64) bool {
	return r.Score() >= min
}

func (r *Report) String() string {
	c := r.Counts()
	return fmt.Sprintf("fidelity %.2f%% (matched %d, mismatched %d, missing %d, extra %d)",
		r.Percent(), c.Matched, c.Mismatched, c.Missing, c.Extra)
}

// Diff renders a unified diff of the flattened statements of both sides.
func (r *Report) Diff(leftName, rightName string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        lines(r.left),
		B:        lines(r.right),
		FromFile: leftName,
		ToFile:   rightName,
		Context:  2,
	})
}

func lines(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s + "\n"
	}
	return out
}

// Scorer compares programs. It holds no per-comparison state.
type Scorer struct {
	logger *slog.Logger
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithLogger sets the logger that receives one entry per comparison.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scorer) {
		s.logger = l
	}
}

// New creates a Scorer.
func New(opts ...Option) *Scorer {
	s := &Scorer{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compare compares left and right with a default Scorer.
func Compare(left, right *ir.Program) *Report {
	return New().Compare(left, right)
}

// Compare compares left (the reference) with right.
func (s *Scorer) Compare(left, right *ir.Program) *Report {
	r := &Report{}
	r.declarations(SectionTag, tagSigs(left), tagSigs(right))
	r.declarations(SectionType, typeSigs(left), typeSigs(right))
	r.declarations(SectionPOU, pouSigs(left), pouSigs(right))

	a, b := flattenProgram(left), flattenProgram(right)
	r.statements(a, b)

	s.logger.Debug("programs compared",
		"left", left.Name,
		"right", right.Name,
		"score", r.Score(),
		"differences", len(r.Differences))
	return r
}

// signature is the comparable identity of one declaration.
type signature struct {
	key  string // case-folded name
	name string
	sig  string
}

func (r *Report) declarations(sec Section, left, right map[string]signature) {
	keys := make([]string, 0, len(left)+len(right))
	for k := range left {
		keys = append(keys, k)
	}
	for k := range right {
		if _, ok := left[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		l, inLeft := left[k]
		rt, inRight := right[k]
		switch {
		case inLeft && inRight && l.sig == rt.sig:
			r.Declarations.Matched++
		case inLeft && inRight:
			r.declDiff(Difference{Kind: KindMismatched, Section: sec, Key: l.name, Left: l.sig, Right: rt.sig})
		case inLeft:
			r.declDiff(Difference{Kind: KindMissing, Section: sec, Key: l.name, Left: l.sig})
		default:
			r.declDiff(Difference{Kind: KindExtra, Section: sec, Key: rt.name, Right: rt.sig})
		}
	}
}

func (r *Report) declDiff(d Difference) {
	r.Declarations.add(d.Kind)
	r.Differences = append(r.Differences, d)
}

var folder = cases.Fold()

func fold(s string) string {
	return folder.String(s)
}

func tagSigs(p *ir.Program) map[string]signature {
	out := make(map[string]signature, len(p.Tags))
	for _, t := range p.Tags {
		out[fold(t.Name)] = signature{key: fold(t.Name), name: t.Name, sig: shape(t.Type, t.Dim)}
	}
	return out
}

func typeSigs(p *ir.Program) map[string]signature {
	out := make(map[string]signature, len(p.Types))
	for _, td := range p.Types {
		members := make([]string, len(td.Members))
		for i, m := range td.Members {
			members[i] = strings.ToUpper(m.Name) + ": " + shape(m.Type, m.Dim)
		}
		out[fold(td.Name)] = signature{key: fold(td.Name), name: td.Name, sig: "STRUCT " + strings.Join(members, "; ")}
	}
	return out
}

func pouSigs(p *ir.Program) map[string]signature {
	out := make(map[string]signature, len(p.POUs))
	for _, pou := range p.POUs {
		vars := make([]string, len(pou.Vars))
		for i, v := range pou.Vars {
			vars[i] = fmt.Sprintf("%s %s: %s", v.Section, strings.ToUpper(v.Name), shape(v.Type, v.Dim))
		}
		sig := string(pou.Kind)
		if pou.ReturnType != "" {
			sig += " : " + strings.ToUpper(pou.ReturnType)
		}
		sig += " (" + strings.Join(vars, "; ") + ")"
		out[fold(pou.Name)] = signature{key: fold(pou.Name), name: pou.Name, sig: sig}
	}
	return out
}

func shape(typ string, dim int) string {
	if dim > 0 {
		return fmt.Sprintf("ARRAY[0..%d] OF %s", dim-1, strings.ToUpper(typ))
	}
	return strings.ToUpper(typ)
}

// statements aligns the flattened sequences. Replaced stretches pair
// positionally; the longer side's rest is missing or extra.
func (r *Report) statements(a, b []entry) {
	fa, fb := fingerprints(a), fingerprints(b)
	r.left, r.right = texts(a), texts(b)

	m := difflib.NewMatcherWithJunk(fa, fb, false, nil)
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'e':
			r.Statements.Matched += op.I2 - op.I1
		case 'r':
			n := min(op.I2-op.I1, op.J2-op.J1)
			for k := 0; k < n; k++ {
				r.stmtDiff(Difference{Kind: KindMismatched, Section: SectionStmt,
					Key: a[op.I1+k].path, Left: a[op.I1+k].text, Right: b[op.J1+k].text})
			}
			r.unpaired(a[op.I1+n:op.I2], KindMissing)
			r.unpaired(b[op.J1+n:op.J2], KindExtra)
		case 'd':
			r.unpaired(a[op.I1:op.I2], KindMissing)
		case 'i':
			r.unpaired(b[op.J1:op.J2], KindExtra)
		}
	}
}

func (r *Report) unpaired(es []entry, k Kind) {
	for _, e := range es {
		d := Difference{Kind: k, Section: SectionStmt, Key: e.path}
		if k == KindMissing {
			d.Left = e.text
		} else {
			d.Right = e.text
		}
		r.stmtDiff(d)
	}
}

func (r *Report) stmtDiff(d Difference) {
	r.Statements.add(d.Kind)
	r.Differences = append(r.Differences, d)
}

// entry is one flattened statement.
type entry struct {
	fp   string
	path string
	text string
}

func fingerprints(es []entry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.fp
	}
	return out
}

func texts(es []entry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.path + " " + e.text
	}
	return out
}

// flattenProgram lists the program body, then every POU body in folded
// name order under the POU's name.
func flattenProgram(p *ir.Program) []entry {
	var out []entry
	flatten(p.Body, "/", &out)
	pous := make([]*ir.POU, len(p.POUs))
	for i := range p.POUs {
		pous[i] = &p.POUs[i]
	}
	sort.SliceStable(pous, func(i, j int) bool { return fold(pous[i].Name) < fold(pous[j].Name) })
	for _, pou := range pous {
		flatten(pou.Body, strings.ToUpper(pou.Name)+"/", &out)
	}
	return out
}

func flatten(stmts []ir.Stmt, path string, out *[]entry) {
	for _, s := range stmts {
		if ir.IsAnnotation(s) {
			continue
		}
		*out = append(*out, entry{
			fp:   ir.MustFingerprint(ir.DomainStmt, ir.IRObject{"path": ir.IRString(path), "h": ir.EncodeHeader(s)}),
			path: path,
			text: header(s),
		})
		switch v := s.(type) {
		case *ir.If:
			for i, br := range v.Branches {
				flatten(br.Body, fmt.Sprintf("%sIF%d/", path, i), out)
			}
			flatten(v.Else, path+"ELSE/", out)
		case *ir.For:
			flatten(v.Body, path+"FOR/", out)
		case *ir.While:
			flatten(v.Body, path+"WHILE/", out)
		}
	}
}

// header is the first line of a statement's ST form.
func header(s ir.Stmt) string {
	text := stemit.FormatStmts([]ir.Stmt{s})
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}
