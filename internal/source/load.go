package source

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/l5xst/internal/diag"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/l5x"
)

// MalformedError carries every validation error of a rejected project.
type MalformedError struct {
	Errors []ValidationError
}

func (e *MalformedError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

// ValidationErrors extracts the validation errors carried by err.
func ValidationErrors(err error) []ValidationError {
	var me *MalformedError
	if errors.As(err, &me) {
		return me.Errors
	}
	return nil
}

// FromDocument converts a decoded project into a Controller with the given
// 1-based index. Any structural problem makes the whole project invalid: the
// returned error is a MALFORMED_SOURCE_TREE *diag.Error wrapping a
// *MalformedError. Malformed rung text is not an error here; it is kept on
// the rung for the ladder translator to report.
func FromDocument(doc *l5x.Content, index int) (*Controller, error) {
	lc := doc.Controller
	c := &Controller{Index: index, Name: lc.Name}
	var errs []ValidationError

	c.Tags = convertTags(lc.Tags, ir.ScopeController, "controller.tags", &errs)

	for _, dt := range lc.DataTypes {
		t := DataType{Name: dt.Name}
		for _, m := range dt.Members {
			if m.Hidden {
				continue
			}
			t.Members = append(t.Members, Member{Name: m.Name, Type: m.DataType, Dim: m.Dimension})
		}
		c.Types = append(c.Types, t)
	}

	for _, m := range lc.Modules {
		c.Modules = append(c.Modules, m.Name)
	}

	for i, def := range lc.AOIs {
		a := AOI{Name: def.Name}
		for _, p := range def.Parameters {
			if isImplicitParam(p.Name) {
				continue
			}
			a.Params = append(a.Params, Param{Name: p.Name, Type: p.DataType, Dim: p.Dimension, Usage: ParamUsage(p.Usage)})
		}
		for _, lt := range def.LocalTags {
			a.Params = append(a.Params, Param{Name: lt.Name, Type: lt.DataType, Dim: lt.Dimension, Usage: UsageLocal})
		}
		c.AOIs = append(c.AOIs, a)
		c.AOIs[len(c.AOIs)-1].Routines = convertRoutines(c, def.Routines, fmt.Sprintf("aois[%d]", i), &errs)
	}

	for i, lp := range lc.Programs {
		p := Program{Name: lp.Name, MainRoutine: lp.MainRoutineName}
		p.Tags = convertTags(lp.Tags, ir.ScopeProgram, fmt.Sprintf("programs[%d].tags", i), &errs)
		p.Routines = convertRoutines(c, lp.Routines, fmt.Sprintf("programs[%d]", i), &errs)
		c.Programs = append(c.Programs, p)
	}

	errs = append(errs, Validate(c)...)
	if len(errs) > 0 {
		return nil, diag.Wrap(diag.CodeMalformedSource, diag.Location{Controller: lc.Name},
			&MalformedError{Errors: errs}, "%d structural error(s) in project", len(errs))
	}
	return c, nil
}

// EnableIn and EnableOut are implicit on every add-on instruction.
func isImplicitParam(name string) bool {
	return strings.EqualFold(name, "EnableIn") || strings.EqualFold(name, "EnableOut")
}

func convertTags(in []l5x.Tag, scope ir.Scope, field string, errs *[]ValidationError) []Tag {
	out := make([]Tag, 0, len(in))
	for i, lt := range in {
		t := Tag{
			Name:  lt.Name,
			Type:  lt.DataType,
			Scope: scope,
			Kind:  tagKind(lt.TagType),
			Alias: lt.AliasFor,
		}
		if lt.Description != nil {
			t.Description = strings.TrimSpace(lt.Description.Value)
		}
		dim, err := parseDimensions(lt.Dimensions)
		if err != nil {
			*errs = append(*errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d].dimensions", field, i),
				Message: fmt.Sprintf("tag %q: %v", lt.Name, err),
				Code:    ErrDimension,
			})
		}
		t.Dim = dim
		for _, d := range lt.Data {
			switch {
			case d.Message != nil:
				t.Message = &Message{
					Write:  strings.Contains(strings.ToLower(d.Message.MessageType), "write"),
					Path:   d.Message.ConnectionPath,
					Local:  d.Message.LocalElement,
					Remote: d.Message.RemoteElement,
				}
			case strings.EqualFold(d.Format, "L5K") && t.Dim == 0:
				if v := strings.TrimSpace(d.Text); v != "" && !strings.HasPrefix(v, "[") {
					t.Init = v
				}
			}
		}
		out = append(out, t)
	}
	return out
}

func tagKind(s string) ir.TagKind {
	switch strings.ToLower(s) {
	case "alias":
		return ir.KindAlias
	case "produced":
		return ir.KindProduced
	case "consumed":
		return ir.KindConsumed
	}
	return ir.KindBase
}

// parseDimensions accepts "" or a single positive length.
func parseDimensions(s string) (int, error) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 0:
		return 0, nil
	case 1:
		n, err := strconv.Atoi(fields[0])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid dimension %q", s)
		}
		return n, nil
	}
	return 0, fmt.Errorf("multi-dimensional arrays are not supported (%q)", s)
}

func convertRoutines(c *Controller, in []l5x.Routine, field string, errs *[]ValidationError) []Routine {
	out := make([]Routine, 0, len(in))
	for i, lr := range in {
		r := Routine{Name: lr.Name, Kind: RoutineKind(strings.ToUpper(lr.Type))}
		rfield := fmt.Sprintf("%s.routines[%d]", field, i)
		switch {
		case lr.RLL != nil:
			for _, lrung := range lr.RLL.Rungs {
				rung := Rung{Number: lrung.Number, Text: strings.TrimSpace(lrung.Text.Value)}
				if lrung.Comment != nil {
					rung.Comment = strings.TrimSpace(lrung.Comment.Value)
				}
				rung.Network, rung.ParseErr = ParseRung(rung.Text)
				r.Rungs = append(r.Rungs, rung)
			}
		case lr.FBD != nil:
			b := &sheetBuilder{ctl: c, field: rfield}
			r.Sheets = b.build(lr.FBD.Sheets)
			*errs = append(*errs, b.errs...)
		case lr.ST != nil:
			lines := append([]l5x.Line(nil), lr.ST.Lines...)
			sort.SliceStable(lines, func(a, b int) bool { return lines[a].Number < lines[b].Number })
			texts := make([]string, len(lines))
			for j, l := range lines {
				texts[j] = l.Text
			}
			r.ST = strings.Join(texts, "\n")
		}
		out = append(out, r)
	}
	return out
}
