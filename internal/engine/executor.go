package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/l5xst/internal/ir"
)

// maxCallDepth bounds nested user function calls.
const maxCallDepth = 32

func (e *Engine) exec(f *frame, stmts []ir.Stmt) error {
	for _, s := range stmts {
		if err := e.stmt(f, s); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) stmt(f *frame, s ir.Stmt) error {
	switch v := s.(type) {
	case *ir.Assign:
		return e.assign(f, v)
	case *ir.If:
		for _, br := range v.Branches {
			ok, err := e.cond(f, br.Cond)
			if err != nil {
				return err
			}
			if ok {
				return e.exec(f, br.Body)
			}
		}
		return e.exec(f, v.Else)
	case *ir.For:
		return e.forLoop(f, v)
	case *ir.While:
		q := newLoopQuota(e.maxLoop)
		for {
			ok, err := e.cond(f, v.Cond)
			if err != nil || !ok {
				return err
			}
			if err := q.check("WHILE", e.clock.Scan()); err != nil {
				return err
			}
			if err := e.exec(f, v.Body); err != nil {
				return err
			}
		}
	case *ir.Invoke:
		return e.invoke(f, v)
	case *ir.InstrCall:
		return unsupported("instruction %s has no interpretation", strings.ToUpper(v.Func))
	case *ir.Comment, *ir.Disabled:
		return nil
	}
	return unsupported("statement %T", s)
}

func (e *Engine) cond(f *frame, x ir.Expr) (bool, error) {
	v, err := e.eval(f, x)
	if err != nil {
		return false, err
	}
	if v.kind != KindBool {
		return false, typeError("", "condition is %s", v.kind)
	}
	return v.AsBool(), nil
}

func (e *Engine) assign(f *frame, a *ir.Assign) error {
	loc, err := e.locate(f, a.Target)
	if err != nil {
		return err
	}
	if _, ok := e.lookup(f, loc.key); !ok {
		if src, isRef := a.Value.(*ir.Ref); isRef {
			return e.copyAggregate(f, loc.key, a.Target.String(), src)
		}
	}
	v, err := e.eval(f, a.Value)
	if err != nil {
		return err
	}
	return e.store(f, loc, a.Target.String(), v)
}

// copyAggregate assigns a whole structure or array. Both sides must have
// the same layout.
func (e *Engine) copyAggregate(f *frame, dst, ref string, r *ir.Ref) error {
	from, err := e.locate(f, r)
	if err != nil {
		return err
	}
	dsts, srcs := e.aggregate(f, dst), e.aggregate(f, from.key)
	if len(dsts) == 0 {
		return unknownTag(ref)
	}
	if strings.Join(dsts, ",") != strings.Join(srcs, ",") {
		return typeError(ref, "cannot assign %s: layouts differ", r.String())
	}
	for _, suffix := range dsts {
		s, _ := e.lookup(f, from.key+suffix)
		if err := e.store(f, location{key: dst + suffix, bit: -1}, ref+suffix, s.v); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) forLoop(f *frame, v *ir.For) error {
	from, err := e.eval(f, v.From)
	if err != nil {
		return err
	}
	to, err := e.eval(f, v.To)
	if err != nil {
		return err
	}
	by := Int(1)
	if v.By != nil {
		if by, err = e.eval(f, v.By); err != nil {
			return err
		}
	}
	if from.kind != KindInt || to.kind != KindInt || by.kind != KindInt {
		return typeError(v.Var.String(), "FOR bounds must be integers")
	}
	if err := e.write(f, v.Var, from); err != nil {
		return err
	}

	q := newLoopQuota(e.maxLoop)
	for {
		cur, err := e.read(f, v.Var)
		if err != nil {
			return err
		}
		if (by.i >= 0 && cur.i > to.i) || (by.i < 0 && cur.i < to.i) {
			return nil
		}
		if err := q.check("FOR", e.clock.Scan()); err != nil {
			return err
		}
		if err := e.exec(f, v.Body); err != nil {
			return err
		}
		if cur, err = e.read(f, v.Var); err != nil {
			return err
		}
		if err := e.write(f, v.Var, Int(cur.i+by.i)); err != nil {
			return err
		}
	}
}

func (e *Engine) invoke(f *frame, v *ir.Invoke) error {
	loc, err := e.locate(f, v.Callee)
	if err != nil {
		return err
	}
	if st, ok := e.instances[loc.key]; ok {
		for _, a := range v.Args {
			if a.Name == "" {
				return unsupported("positional argument to %s", v.Callee.String())
			}
			if err := e.bind(f, f, loc.key, a); err != nil {
				return err
			}
		}
		return e.step(f, loc.key, st)
	}
	if pou, ok := e.blocks[loc.key]; ok {
		callee := newFrame(loc.key, pou)
		if f != nil {
			callee.local = f.local
		}
		if err := e.bindAll(f, callee, loc.key, pou, v.Args); err != nil {
			return err
		}
		return e.exec(callee, pou.Body)
	}
	if pou, ok := e.prog.POU(v.Callee.Name); ok && pou.Kind == ir.POUFunction && len(v.Callee.Path) == 0 {
		_, err := e.callFunction(f, pou, v.Args)
		return err
	}
	if _, ok := e.lookup(f, loc.key); ok {
		return typeError(v.Callee.String(), "not a function block instance")
	}
	return unknownTag(v.Callee.String())
}

// bind evaluates one named argument in the caller frame and stores it into
// the callee variable below key.
func (e *Engine) bind(caller, callee *frame, key string, a ir.Arg) error {
	val, err := e.eval(caller, a.Value)
	if err != nil {
		return err
	}
	ref := key + "." + strings.ToUpper(a.Name)
	return e.store(callee, location{key: ref, bit: -1}, ref, val)
}

// bindAll binds named arguments by name and positional ones to the input
// variables in declaration order.
func (e *Engine) bindAll(caller, callee *frame, key string, pou *ir.POU, args []ir.Arg) error {
	var inputs []string
	for _, v := range pou.Vars {
		if v.Section == ir.VarInput || v.Section == ir.VarInOut {
			inputs = append(inputs, v.Name)
		}
	}
	pos := 0
	for _, a := range args {
		if a.Name == "" {
			if pos >= len(inputs) {
				return typeError(pou.Name, "too many arguments")
			}
			a.Name = inputs[pos]
			pos++
		}
		if err := e.bind(caller, callee, key, a); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) callFunction(f *frame, pou *ir.POU, args []ir.Arg) (Value, error) {
	if e.depth >= maxCallDepth {
		return Value{}, unsupported("call depth exceeds %d in %s", maxCallDepth, pou.Name)
	}
	e.depth++
	defer func() { e.depth-- }()
	e.calls++

	name := strings.ToUpper(pou.Name)
	prefix := fmt.Sprintf("~%s#%d", name, e.calls)
	callee := newFrame(prefix, pou)
	callee.vars[name] = true
	callee.local = make(map[string]*slot)
	for _, v := range pou.Vars {
		if err := e.declare(callee.local, prefix+"."+strings.ToUpper(v.Name), v.Type, v.Dim, v.Init, 0); err != nil {
			return Value{}, err
		}
	}
	if err := e.declare(callee.local, prefix+"."+name, pou.ReturnType, 0, nil, 0); err != nil {
		return Value{}, err
	}
	defer e.forget(prefix)

	if err := e.bindAll(f, callee, prefix, pou, args); err != nil {
		return Value{}, err
	}
	if err := e.exec(callee, pou.Body); err != nil {
		return Value{}, err
	}
	ret, ok := callee.local[prefix+"."+name]
	if !ok {
		return Value{}, typeError(pou.Name, "return type %s has no value", pou.ReturnType)
	}
	return ret.v, nil
}

// forget drops instance state declared inside a finished function call.
func (e *Engine) forget(prefix string) {
	for k := range e.instances {
		if strings.HasPrefix(k, prefix+".") {
			delete(e.instances, k)
		}
	}
	for k := range e.blocks {
		if strings.HasPrefix(k, prefix+".") {
			delete(e.blocks, k)
		}
	}
}
