package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/tables"
)

// slot holds one elementary value.
type slot struct {
	prim tables.Prim
	v    Value
}

type member struct {
	name string
	prim tables.Prim
}

var (
	timerMembers = []member{
		{"IN", tables.PrimBool}, {"PT", tables.PrimTime}, {"Q", tables.PrimBool}, {"ET", tables.PrimTime},
	}
	counterMembers = []member{
		{"CU", tables.PrimBool}, {"CD", tables.PrimBool}, {"R", tables.PrimBool}, {"LD", tables.PrimBool},
		{"PV", tables.PrimInt}, {"Q", tables.PrimBool}, {"QU", tables.PrimBool}, {"QD", tables.PrimBool},
		{"CV", tables.PrimInt},
	}
	standardMembers = map[string][]member{
		"TON": timerMembers, "TOF": timerMembers, "TP": timerMembers,
		"CTU": counterMembers, "CTD": counterMembers, "CTUD": counterMembers,
		"R_TRIG": {{"CLK", tables.PrimBool}, {"Q", tables.PrimBool}},
		"F_TRIG": {{"CLK", tables.PrimBool}, {"Q", tables.PrimBool}},
		"SR":     {{"S1", tables.PrimBool}, {"R", tables.PrimBool}, {"Q1", tables.PrimBool}},
		"RS":     {{"S", tables.PrimBool}, {"R1", tables.PrimBool}, {"Q1", tables.PrimBool}},
	}
)

const maxTypeDepth = 16

// frame resolves the variables of one POU activation. A nil frame is the
// program scope.
type frame struct {
	prefix string
	vars   map[string]bool

	// local holds the slots of a function call; function block variables
	// live in the engine state under the instance key.
	local map[string]*slot
}

func newFrame(prefix string, pou *ir.POU) *frame {
	f := &frame{prefix: prefix, vars: make(map[string]bool, len(pou.Vars)+1)}
	for _, v := range pou.Vars {
		f.vars[strings.ToUpper(v.Name)] = true
	}
	return f
}

func (f *frame) root(name string) string {
	up := strings.ToUpper(name)
	if f != nil && f.vars[up] {
		return f.prefix + "." + up
	}
	return up
}

// declare lays out the state of one declaration under key in dst.
func (e *Engine) declare(dst map[string]*slot, key, typ string, dim int, init *ir.Lit, depth int) error {
	if depth > maxTypeDepth {
		return typeError(key, "type %s nests too deeply", typ)
	}
	if dim > 0 {
		for i := 0; i < dim; i++ {
			if err := e.declare(dst, fmt.Sprintf("%s[%d]", key, i), typ, 0, init, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if p, ok := tables.LookupPrim(typ); ok {
		s := &slot{prim: p, v: zero(p)}
		if init != nil {
			v, err := literal(init)
			if err != nil {
				return err
			}
			fv, ok := fit(p, v)
			if !ok {
				return typeError(key, "initial %s does not fit %s", v.kind, p)
			}
			s.v = fv
		}
		dst[key] = s
		return nil
	}

	up := strings.ToUpper(typ)
	if members, ok := standardMembers[up]; ok {
		for _, m := range members {
			dst[key+"."+m.name] = &slot{prim: m.prim, v: zero(m.prim)}
		}
		e.instances[key] = &instance{typ: up}
		return nil
	}
	if td, ok := e.prog.Type(typ); ok {
		return e.members(dst, key, td.Members, depth)
	}
	if td, ok := tables.AuxStruct(typ); ok {
		return e.members(dst, key, td.Members, depth)
	}
	if pou, ok := e.prog.POU(typ); ok && pou.Kind == ir.POUFunctionBlock {
		for _, v := range pou.Vars {
			if err := e.declare(dst, key+"."+strings.ToUpper(v.Name), v.Type, v.Dim, v.Init, depth+1); err != nil {
				return err
			}
		}
		e.blocks[key] = pou
		return nil
	}
	e.logger.Debug("declaration has no runtime layout", "key", key, "type", typ)
	return nil
}

func (e *Engine) members(dst map[string]*slot, key string, ms []ir.Member, depth int) error {
	for _, m := range ms {
		if err := e.declare(dst, key+"."+strings.ToUpper(m.Name), m.Type, m.Dim, nil, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// location is a resolved reference. bit is the selected bit of an integer
// slot, or -1.
type location struct {
	key string
	bit int
}

func (e *Engine) locate(f *frame, r *ir.Ref) (location, error) {
	key := f.root(r.Name)
	for i, sel := range r.Path {
		if sel.Index != nil {
			v, err := e.eval(f, sel.Index)
			if err != nil {
				return location{}, err
			}
			if v.kind != KindInt {
				return location{}, typeError(r.String(), "index is %s", v.kind)
			}
			key += "[" + strconv.FormatInt(v.i, 10) + "]"
			continue
		}
		if n, err := strconv.Atoi(sel.Field); err == nil && i == len(r.Path)-1 {
			if s, ok := e.lookup(f, key); ok && s.prim.Family() != tables.FamilyBool {
				if w, ok := intBits[s.prim]; ok && n >= 0 && uint(n) < w.bits {
					return location{key: key, bit: n}, nil
				}
				return location{}, typeError(r.String(), "no bit %d in %s", n, s.prim)
			}
		}
		key += "." + strings.ToUpper(sel.Field)
	}
	return location{key: key, bit: -1}, nil
}

func (e *Engine) lookup(f *frame, key string) (*slot, bool) {
	if f != nil && f.local != nil {
		if s, ok := f.local[key]; ok {
			return s, true
		}
	}
	s, ok := e.slots[key]
	return s, ok
}

func (e *Engine) read(f *frame, r *ir.Ref) (Value, error) {
	loc, err := e.locate(f, r)
	if err != nil {
		return Value{}, err
	}
	s, ok := e.lookup(f, loc.key)
	if !ok {
		return Value{}, unknownTag(r.String())
	}
	if loc.bit >= 0 {
		return Bool(s.v.i>>uint(loc.bit)&1 != 0), nil
	}
	return s.v, nil
}

func (e *Engine) write(f *frame, r *ir.Ref, v Value) error {
	loc, err := e.locate(f, r)
	if err != nil {
		return err
	}
	return e.store(f, loc, r.String(), v)
}

func (e *Engine) store(f *frame, loc location, ref string, v Value) error {
	s, ok := e.lookup(f, loc.key)
	if !ok {
		return unknownTag(ref)
	}
	if loc.bit >= 0 {
		if v.kind != KindBool {
			return typeError(ref, "cannot store %s in a bit", v.kind)
		}
		mask := int64(1) << uint(loc.bit)
		n := s.v.i &^ mask
		if v.AsBool() {
			n |= mask
		}
		s.v = Int(wrap(s.prim, n))
		return nil
	}
	fv, ok := fit(s.prim, v)
	if !ok {
		return typeError(ref, "cannot store %s in %s", v.kind, s.prim)
	}
	s.v = fv
	return nil
}

// aggregate lists the slot keys below key in sorted order, so a structure
// or array can be copied as a whole.
func (e *Engine) aggregate(f *frame, key string) []string {
	var out []string
	collect := func(m map[string]*slot) {
		for k := range m {
			if len(k) > len(key) && strings.HasPrefix(k, key) && (k[len(key)] == '.' || k[len(key)] == '[') {
				out = append(out, k[len(key):])
			}
		}
	}
	if f != nil && f.local != nil {
		collect(f.local)
	}
	collect(e.slots)
	sort.Strings(out)
	return out
}
