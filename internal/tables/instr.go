package tables

import (
	"strings"

	"github.com/roach88/l5xst/internal/ir"
)

// Instr is a ladder instruction the translator understands.
type Instr uint8

const (
	InstrUnknown Instr = iota

	// Input (condition) instructions.
	XIC
	XIO
	ONS
	OSR
	OSF
	EQU
	NEQ
	GRT
	GEQ
	LES
	LEQ
	LIM
	AFI
	NOP

	// Output instructions.
	OTE
	OTL
	OTU
	MOV
	COP
	CLR
	ADD
	SUB
	MUL
	DIV
	MOD
	SQR
	ABS
	NEG
	CPT
	FRD
	TOD
	TON
	TOF
	CTU
	CTD
	RES
	JSR
	FOR
	MSG
	GSV
	SSV

	numInstrs
)

// Class says where an instruction may sit in a rung.
type Class uint8

const (
	ClassInput Class = iota + 1
	ClassOutput
)

// Variadic marks an instruction without an upper operand bound.
const Variadic = -1

// InstrInfo describes one ladder instruction.
type InstrInfo struct {
	Mnemonic string
	Class    Class
	Min, Max int         // operand count bounds
	Op       ir.BinaryOp // comparison or arithmetic operator, when there is one
	Func     string      // ST function for converting instructions
}

var instrInfo = [numInstrs]InstrInfo{
	XIC: {Mnemonic: "XIC", Class: ClassInput, Min: 1, Max: 1},
	XIO: {Mnemonic: "XIO", Class: ClassInput, Min: 1, Max: 1},
	ONS: {Mnemonic: "ONS", Class: ClassInput, Min: 1, Max: 1},
	OSR: {Mnemonic: "OSR", Class: ClassOutput, Min: 2, Max: 2},
	OSF: {Mnemonic: "OSF", Class: ClassOutput, Min: 2, Max: 2},
	EQU: {Mnemonic: "EQU", Class: ClassInput, Min: 2, Max: 2, Op: ir.OpEq},
	NEQ: {Mnemonic: "NEQ", Class: ClassInput, Min: 2, Max: 2, Op: ir.OpNe},
	GRT: {Mnemonic: "GRT", Class: ClassInput, Min: 2, Max: 2, Op: ir.OpGt},
	GEQ: {Mnemonic: "GEQ", Class: ClassInput, Min: 2, Max: 2, Op: ir.OpGe},
	LES: {Mnemonic: "LES", Class: ClassInput, Min: 2, Max: 2, Op: ir.OpLt},
	LEQ: {Mnemonic: "LEQ", Class: ClassInput, Min: 2, Max: 2, Op: ir.OpLe},
	LIM: {Mnemonic: "LIM", Class: ClassInput, Min: 3, Max: 3},
	AFI: {Mnemonic: "AFI", Class: ClassInput, Min: 0, Max: 0},
	NOP: {Mnemonic: "NOP", Class: ClassInput, Min: 0, Max: 0},

	OTE: {Mnemonic: "OTE", Class: ClassOutput, Min: 1, Max: 1},
	OTL: {Mnemonic: "OTL", Class: ClassOutput, Min: 1, Max: 1},
	OTU: {Mnemonic: "OTU", Class: ClassOutput, Min: 1, Max: 1},
	MOV: {Mnemonic: "MOV", Class: ClassOutput, Min: 2, Max: 2},
	COP: {Mnemonic: "COP", Class: ClassOutput, Min: 3, Max: 3},
	CLR: {Mnemonic: "CLR", Class: ClassOutput, Min: 1, Max: 1},
	ADD: {Mnemonic: "ADD", Class: ClassOutput, Min: 3, Max: 3, Op: ir.OpAdd},
	SUB: {Mnemonic: "SUB", Class: ClassOutput, Min: 3, Max: 3, Op: ir.OpSub},
	MUL: {Mnemonic: "MUL", Class: ClassOutput, Min: 3, Max: 3, Op: ir.OpMul},
	DIV: {Mnemonic: "DIV", Class: ClassOutput, Min: 3, Max: 3, Op: ir.OpDiv},
	MOD: {Mnemonic: "MOD", Class: ClassOutput, Min: 3, Max: 3, Op: ir.OpMod},
	SQR: {Mnemonic: "SQR", Class: ClassOutput, Min: 2, Max: 2, Func: "SQRT"},
	ABS: {Mnemonic: "ABS", Class: ClassOutput, Min: 2, Max: 2, Func: "ABS"},
	NEG: {Mnemonic: "NEG", Class: ClassOutput, Min: 2, Max: 2},
	CPT: {Mnemonic: "CPT", Class: ClassOutput, Min: 2, Max: 2},
	FRD: {Mnemonic: "FRD", Class: ClassOutput, Min: 2, Max: 2, Func: "BCD_TO_DINT"},
	TOD: {Mnemonic: "TOD", Class: ClassOutput, Min: 2, Max: 2, Func: "DINT_TO_BCD"},
	TON: {Mnemonic: "TON", Class: ClassOutput, Min: 3, Max: 3},
	TOF: {Mnemonic: "TOF", Class: ClassOutput, Min: 3, Max: 3},
	CTU: {Mnemonic: "CTU", Class: ClassOutput, Min: 3, Max: 3},
	CTD: {Mnemonic: "CTD", Class: ClassOutput, Min: 3, Max: 3},
	RES: {Mnemonic: "RES", Class: ClassOutput, Min: 1, Max: 1},
	JSR: {Mnemonic: "JSR", Class: ClassOutput, Min: 1, Max: Variadic},
	FOR: {Mnemonic: "FOR", Class: ClassOutput, Min: 5, Max: 5},
	MSG: {Mnemonic: "MSG", Class: ClassOutput, Min: 1, Max: 1},
	GSV: {Mnemonic: "GSV", Class: ClassOutput, Min: 4, Max: 4},
	SSV: {Mnemonic: "SSV", Class: ClassOutput, Min: 4, Max: 4},
}

var instrByMnemonic = func() map[string]Instr {
	m := make(map[string]Instr, numInstrs)
	for i := Instr(1); i < numInstrs; i++ {
		m[instrInfo[i].Mnemonic] = i
	}
	return m
}()

// LookupInstr resolves a rung-text mnemonic (case-insensitive).
func LookupInstr(mnemonic string) (Instr, bool) {
	i, ok := instrByMnemonic[strings.ToUpper(mnemonic)]
	return i, ok
}

// Info returns the static description of i.
func (i Instr) Info() InstrInfo {
	if i >= numInstrs {
		return InstrInfo{}
	}
	return instrInfo[i]
}

func (i Instr) String() string {
	if m := i.Info().Mnemonic; m != "" {
		return m
	}
	return "UNKNOWN"
}

// AcceptsOperands reports whether n operands are valid for i.
func (i Instr) AcceptsOperands(n int) bool {
	info := i.Info()
	return n >= info.Min && (info.Max == Variadic || n <= info.Max)
}

// Instrs returns every known instruction in declaration order.
func Instrs() []Instr {
	out := make([]Instr, 0, numInstrs-1)
	for i := Instr(1); i < numInstrs; i++ {
		out = append(out, i)
	}
	return out
}
