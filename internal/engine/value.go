package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/tables"
)

// Kind classifies runtime values.
type Kind uint8

const (
	KindBool Kind = iota + 1
	KindInt
	KindReal
	KindTime
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "BOOL"
	case KindInt:
		return "integer"
	case KindReal:
		return "real"
	case KindTime:
		return "TIME"
	case KindString:
		return "STRING"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is one runtime value. Integers of every width share int64; the
// declared type of the target decides wrapping on store.
type Value struct {
	kind Kind
	i    int64 // bool as 0/1, integers, time in nanoseconds
	r    float64
	s    string
}

// Bool returns a BOOL value.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.i = 1
	}
	return v
}

// Int returns an integer value.
func Int(n int64) Value { return Value{kind: KindInt, i: n} }

// Real returns a real value.
func Real(f float64) Value { return Value{kind: KindReal, r: f} }

// Time returns a TIME value.
func Time(d time.Duration) Value { return Value{kind: KindTime, i: int64(d)} }

// String returns a STRING value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// AsBool returns the boolean of a BOOL value.
func (v Value) AsBool() bool { return v.i != 0 }

// AsInt returns the integer of an integer value.
func (v Value) AsInt() int64 { return v.i }

// AsReal returns integers and reals as float64.
func (v Value) AsReal() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.r
}

// AsDuration returns the duration of a TIME value.
func (v Value) AsDuration() time.Duration { return time.Duration(v.i) }

// AsString returns the text of a STRING value.
func (v Value) AsString() string { return v.s }

func (v Value) numeric() bool { return v.kind == KindInt || v.kind == KindReal }

// String renders the value in ST literal syntax.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		if v.AsBool() {
			return "TRUE"
		}
		return "FALSE"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		s := strconv.FormatFloat(v.r, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEN") {
			s += ".0"
		}
		return s
	case KindTime:
		return fmt.Sprintf("T#%dms", time.Duration(v.i).Milliseconds())
	case KindString:
		return "'" + v.s + "'"
	}
	return "<invalid>"
}

// zero is the initial value of an elementary type.
func zero(p tables.Prim) Value {
	switch p.Family() {
	case tables.FamilyBool:
		return Bool(false)
	case tables.FamilyReal:
		return Real(0)
	case tables.FamilyTime:
		return Time(0)
	case tables.FamilyString:
		return String("")
	}
	return Int(0)
}

// intBits gives the width and signedness of each integer type.
var intBits = map[tables.Prim]struct {
	bits   uint
	signed bool
}{
	tables.PrimSint: {8, true}, tables.PrimInt: {16, true}, tables.PrimDint: {32, true}, tables.PrimLint: {64, true},
	tables.PrimUsint: {8, false}, tables.PrimUint: {16, false}, tables.PrimUdint: {32, false}, tables.PrimUlint: {64, false},
	tables.PrimByte: {8, false}, tables.PrimWord: {16, false}, tables.PrimDword: {32, false}, tables.PrimLword: {64, false},
}

// wrap truncates n to the width of p, two's complement.
func wrap(p tables.Prim, n int64) int64 {
	w, ok := intBits[p]
	if !ok || w.bits == 64 {
		return n
	}
	mask := int64(1)<<w.bits - 1
	n &= mask
	if w.signed && n&(int64(1)<<(w.bits-1)) != 0 {
		n -= int64(1) << w.bits
	}
	return n
}

// fit converts v for a store into a slot of type p. Integers widen into
// reals; every other mismatch is a type error.
func fit(p tables.Prim, v Value) (Value, bool) {
	switch p.Family() {
	case tables.FamilyBool:
		return v, v.kind == KindBool
	case tables.FamilyInteger, tables.FamilyBits:
		if v.kind != KindInt {
			return Value{}, false
		}
		return Int(wrap(p, v.i)), true
	case tables.FamilyReal:
		if !v.numeric() {
			return Value{}, false
		}
		f := v.AsReal()
		if p == tables.PrimReal {
			f = float64(float32(f))
		}
		return Real(f), true
	case tables.FamilyTime:
		return v, v.kind == KindTime
	case tables.FamilyString:
		return v, v.kind == KindString
	}
	return Value{}, false
}

// literal evaluates an IR literal.
func literal(l *ir.Lit) (Value, error) {
	switch l.Kind {
	case ir.LitBool:
		return Bool(strings.EqualFold(l.Text, "TRUE")), nil
	case ir.LitInt, ir.LitReal:
		return number(l.Text)
	case ir.LitTime:
		d, err := parseTime(l.Text)
		if err != nil {
			return Value{}, err
		}
		return Time(d), nil
	case ir.LitString:
		return String(unquote(l.Text)), nil
	}
	return Value{}, unsupported("literal kind %d", l.Kind)
}

// number parses decimal, based (16#FF) and typed (REAL#1.5) numbers.
func number(text string) (Value, error) {
	s := strings.ReplaceAll(text, "_", "")
	neg := false
	if strings.HasPrefix(s, "-") {
		neg, s = true, s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if prefix, rest, ok := strings.Cut(s, "#"); ok {
		base, err := strconv.Atoi(prefix)
		if err != nil {
			// typed literal
			v, err := number(rest)
			if err != nil {
				return Value{}, err
			}
			if neg {
				return negate(v)
			}
			return v, nil
		}
		u, err := strconv.ParseUint(strings.ToUpper(rest), base, 64)
		if err != nil {
			return Value{}, typeError("", "bad number %q", text)
		}
		n := int64(u)
		if neg {
			n = -n
		}
		return Int(n), nil
	}
	if !strings.ContainsAny(s, ".eE") {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, typeError("", "bad number %q", text)
		}
		if neg {
			n = -n
		}
		return Int(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, typeError("", "bad number %q", text)
	}
	if neg {
		f = -f
	}
	return Real(f), nil
}

var timeUnits = []struct {
	suffix string
	unit   time.Duration
}{
	// ms before m and s, us and ns before s
	{"ms", time.Millisecond}, {"us", time.Microsecond}, {"ns", time.Nanosecond},
	{"d", 24 * time.Hour}, {"h", time.Hour}, {"m", time.Minute}, {"s", time.Second},
}

// parseTime reads T#1h2m3s4ms style durations. Components may be
// fractional (T#1.5s) and the whole value may be negative.
func parseTime(text string) (time.Duration, error) {
	_, rest, ok := strings.Cut(text, "#")
	if !ok {
		return 0, typeError("", "bad duration %q", text)
	}
	s := strings.ToLower(strings.ReplaceAll(rest, "_", ""))
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return 0, typeError("", "bad duration %q", text)
	}

	var total time.Duration
	for s != "" {
		i := 0
		for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
			i++
		}
		if i == 0 {
			return 0, typeError("", "bad duration %q", text)
		}
		f, err := strconv.ParseFloat(s[:i], 64)
		if err != nil {
			return 0, typeError("", "bad duration %q", text)
		}
		s = s[i:]
		matched := false
		for _, u := range timeUnits {
			if strings.HasPrefix(s, u.suffix) {
				total += time.Duration(math.Round(f * float64(u.unit)))
				s = s[len(u.suffix):]
				matched = true
				break
			}
		}
		if !matched {
			return 0, typeError("", "bad duration %q", text)
		}
	}
	if neg {
		total = -total
	}
	return total, nil
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, "$'", "'")
	return strings.ReplaceAll(s, "$$", "$")
}

// ParseValue reads a value written in ST literal syntax: TRUE, 42, 1.5,
// 16#FF, T#250ms or 'text'.
func ParseValue(text string) (Value, error) {
	s := strings.TrimSpace(text)
	switch {
	case strings.EqualFold(s, "TRUE"), strings.EqualFold(s, "FALSE"):
		return Bool(strings.EqualFold(s, "TRUE")), nil
	case len(s) >= 2 && s[0] == '\'':
		return String(unquote(s)), nil
	}
	if prefix, _, ok := strings.Cut(s, "#"); ok {
		switch strings.ToUpper(prefix) {
		case "T", "TIME":
			d, err := parseTime(s)
			if err != nil {
				return Value{}, err
			}
			return Time(d), nil
		}
	}
	return number(s)
}

// Equal reports whether v and o have the same kind and value.
func (v Value) Equal(o Value) bool {
	return sameValue(v, o)
}
