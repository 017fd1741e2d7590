package engine

import (
	"time"

	"github.com/roach88/l5xst/internal/tables"
)

// instance is the hidden state of a standard function block.
type instance struct {
	typ     string
	start   time.Duration
	running bool
	prev    bool // last CLK, IN, CU
	prevCD  bool
}

// counterLimit bounds CV to the INT range.
const counterLimit = 32767

// step runs one standard function block after its inputs were written.
func (e *Engine) step(f *frame, key string, st *instance) error {
	get := func(m string) Value {
		s, _ := e.lookup(f, key+"."+m)
		return s.v
	}
	set := func(m string, v Value) {
		s, _ := e.lookup(f, key+"."+m)
		if fv, ok := fit(s.prim, v); ok {
			s.v = fv
		}
	}
	now := e.clock.Now()

	switch st.typ {
	case "TON":
		in, pt := get("IN").AsBool(), get("PT").AsDuration()
		if !in {
			st.running = false
			set("Q", Bool(false))
			set("ET", Time(0))
			break
		}
		if !st.running {
			st.running, st.start = true, now
		}
		et := now - st.start
		if et >= pt {
			et = pt
		}
		set("ET", Time(et))
		set("Q", Bool(et >= pt))

	case "TOF":
		in, pt := get("IN").AsBool(), get("PT").AsDuration()
		if in {
			st.running = false
			set("Q", Bool(true))
			set("ET", Time(0))
			break
		}
		if !get("Q").AsBool() {
			break
		}
		if !st.running {
			st.running, st.start = true, now
		}
		et := now - st.start
		if et >= pt {
			et = pt
			st.running = false
			set("Q", Bool(false))
		}
		set("ET", Time(et))

	case "TP":
		in, pt := get("IN").AsBool(), get("PT").AsDuration()
		if !st.running && in && !st.prev {
			st.running, st.start = true, now
		}
		if st.running {
			et := now - st.start
			q := et < pt
			if !q {
				et = pt
				if !in {
					st.running = false
					et = 0
				}
			}
			set("ET", Time(et))
			set("Q", Bool(q))
		}
		st.prev = in

	case "CTU", "CTD", "CTUD":
		e.count(st, get, set)

	case "R_TRIG":
		clk := get("CLK").AsBool()
		set("Q", Bool(clk && !st.prev))
		st.prev = clk
	case "F_TRIG":
		clk := get("CLK").AsBool()
		set("Q", Bool(!clk && st.prev))
		st.prev = clk
	case "SR":
		q := get("S1").AsBool() || (get("Q1").AsBool() && !get("R").AsBool())
		set("Q1", Bool(q))
	case "RS":
		q := !get("R1").AsBool() && (get("S").AsBool() || get("Q1").AsBool())
		set("Q1", Bool(q))
	default:
		return unsupported("function block %s", st.typ)
	}
	return nil
}

func (e *Engine) count(st *instance, get func(string) Value, set func(string, Value)) {
	cu, cd := get("CU").AsBool(), get("CD").AsBool()
	cv, pv := get("CV").AsInt(), get("PV").AsInt()
	up := cu && !st.prev
	down := cd && !st.prevCD

	switch {
	case st.typ != "CTD" && get("R").AsBool():
		cv = 0
	case st.typ != "CTU" && get("LD").AsBool():
		cv = pv
	default:
		if st.typ != "CTD" && up && cv < counterLimit {
			cv++
		}
		if st.typ != "CTU" && down && cv > -counterLimit-1 {
			cv--
		}
	}
	set("CV", Int(wrap(tables.PrimInt, cv)))
	switch st.typ {
	case "CTU":
		set("Q", Bool(cv >= pv))
	case "CTD":
		set("Q", Bool(cv <= 0))
	default:
		set("QU", Bool(cv >= pv))
		set("QD", Bool(cv <= 0))
	}
	st.prev, st.prevCD = cu, cd
}
