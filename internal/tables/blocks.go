package tables

import (
	"strings"

	"github.com/roach88/l5xst/internal/ir"
)

// Block is an FBD block (instruction) type.
type Block uint8

const (
	BlockUnknown Block = iota
	BlockAdd
	BlockSub
	BlockMul
	BlockDiv
	BlockMod
	BlockSqrt
	BlockAbs
	BlockNeg
	BlockMove
	BlockAnd
	BlockOr
	BlockXor
	BlockNot
	BlockEqu
	BlockNeq
	BlockGrt
	BlockGeq
	BlockLes
	BlockLeq
	BlockSel
	BlockTonr
	BlockTofr
	BlockCtud
	BlockScl
	BlockAlm
	BlockSetd
	BlockOsri

	numBlocks
)

// Form is how a block is lowered into statements.
type Form uint8

const (
	// FormExpr computes its single output as an ST expression.
	FormExpr Form = iota + 1
	// FormInstance invokes a standard ST function block instance.
	FormInstance
	// FormAux copies inputs into the backing structure and calls an
	// auxiliary template function on it.
	FormAux
)

// Shape is the expression built by a FormExpr block.
type Shape uint8

const (
	ShapeBinary Shape = iota + 1 // In[0] Op In[1]
	ShapeFunc                    // Func(In[0])
	ShapeNeg                     // -In[0]
	ShapeNot                     // NOT In[0]
	ShapeMove                    // In[0]
	ShapeSel                     // SEL(In[2], In[0], In[1])
)

// Pin maps a vendor block pin to the ST member that carries it.
type Pin struct {
	Name    string     // vendor pin name
	Member  string     // ST member; empty means same as Name
	Default string     // literal used for a visible unwired input
	Kind    ir.LitKind // kind of Default
	Convert string     // ST conversion applied when the value crosses the pin
}

// STMember returns the ST member name for the pin.
func (p Pin) STMember() string {
	if p.Member != "" {
		return p.Member
	}
	return p.Name
}

// BlockInfo describes one FBD block type.
type BlockInfo struct {
	Name     string
	Form     Form
	Shape    Shape
	Op       ir.BinaryOp
	Func     string
	Inputs   []Pin
	Outputs  []Pin
	Stateful bool   // may break a feedback cycle using last scan's outputs
	Backing  string // vendor data type of the operand tag
	Instance string // ST function block type for FormInstance
	Aux      Aux    // auxiliary template for FormAux
}

func realPin(name string) Pin { return Pin{Name: name, Default: "0.0", Kind: ir.LitReal} }
func boolPin(name, def string) Pin {
	return Pin{Name: name, Default: def, Kind: ir.LitBool}
}

var (
	mathIn   = []Pin{realPin("SourceA"), realPin("SourceB")}
	mathOut  = []Pin{{Name: "Dest"}}
	unaryIn  = []Pin{realPin("Source")}
	logicOut = []Pin{{Name: "Out"}}
)

func binaryBlock(name string, op ir.BinaryOp, backing string, out []Pin) BlockInfo {
	return BlockInfo{Name: name, Form: FormExpr, Shape: ShapeBinary, Op: op, Inputs: mathIn, Outputs: out, Backing: backing}
}

var blockInfo = [numBlocks]BlockInfo{
	BlockAdd:  binaryBlock("ADD", ir.OpAdd, "FBD_MATH", mathOut),
	BlockSub:  binaryBlock("SUB", ir.OpSub, "FBD_MATH", mathOut),
	BlockMul:  binaryBlock("MUL", ir.OpMul, "FBD_MATH", mathOut),
	BlockDiv:  binaryBlock("DIV", ir.OpDiv, "FBD_MATH", mathOut),
	BlockMod:  binaryBlock("MOD", ir.OpMod, "FBD_MATH", mathOut),
	BlockSqrt: {Name: "SQR", Form: FormExpr, Shape: ShapeFunc, Func: "SQRT", Inputs: unaryIn, Outputs: mathOut, Backing: "FBD_MATH_ADVANCED"},
	BlockAbs:  {Name: "ABS", Form: FormExpr, Shape: ShapeFunc, Func: "ABS", Inputs: unaryIn, Outputs: mathOut, Backing: "FBD_MATH_ADVANCED"},
	BlockNeg:  {Name: "NEG", Form: FormExpr, Shape: ShapeNeg, Inputs: unaryIn, Outputs: mathOut, Backing: "FBD_MATH_ADVANCED"},
	BlockMove: {Name: "MOVE", Form: FormExpr, Shape: ShapeMove, Inputs: unaryIn, Outputs: mathOut, Backing: "FBD_CONVERT"},
	BlockAnd: {Name: "BAND", Form: FormExpr, Shape: ShapeBinary, Op: ir.OpAnd,
		Inputs: []Pin{boolPin("In1", "TRUE"), boolPin("In2", "TRUE")}, Outputs: logicOut, Backing: "FBD_BOOLEAN_AND"},
	BlockOr: {Name: "BOR", Form: FormExpr, Shape: ShapeBinary, Op: ir.OpOr,
		Inputs: []Pin{boolPin("In1", "FALSE"), boolPin("In2", "FALSE")}, Outputs: logicOut, Backing: "FBD_BOOLEAN_OR"},
	BlockXor: {Name: "BXOR", Form: FormExpr, Shape: ShapeBinary, Op: ir.OpXor,
		Inputs: []Pin{boolPin("In1", "FALSE"), boolPin("In2", "FALSE")}, Outputs: logicOut, Backing: "FBD_BOOLEAN_XOR"},
	BlockNot: {Name: "BNOT", Form: FormExpr, Shape: ShapeNot,
		Inputs: []Pin{boolPin("In", "FALSE")}, Outputs: logicOut, Backing: "FBD_BOOLEAN_NOT"},
	BlockEqu: binaryBlock("EQU", ir.OpEq, "FBD_COMPARE", mathOut),
	BlockNeq: binaryBlock("NEQ", ir.OpNe, "FBD_COMPARE", mathOut),
	BlockGrt: binaryBlock("GRT", ir.OpGt, "FBD_COMPARE", mathOut),
	BlockGeq: binaryBlock("GEQ", ir.OpGe, "FBD_COMPARE", mathOut),
	BlockLes: binaryBlock("LES", ir.OpLt, "FBD_COMPARE", mathOut),
	BlockLeq: binaryBlock("LEQ", ir.OpLe, "FBD_COMPARE", mathOut),
	BlockSel: {Name: "SEL", Form: FormExpr, Shape: ShapeSel,
		Inputs:  []Pin{realPin("In1"), realPin("In2"), boolPin("SelectorIn", "FALSE")},
		Outputs: logicOut, Backing: "SELECT"},

	BlockTonr: {Name: "TONR", Form: FormInstance, Instance: "TON", Stateful: true, Backing: "FBD_TIMER",
		Inputs: []Pin{
			{Name: "TimerEnable", Member: "IN", Default: "FALSE", Kind: ir.LitBool},
			{Name: "PRE", Member: "PT", Default: "0", Kind: ir.LitInt, Convert: "DINT_TO_TIME"},
		},
		Outputs: []Pin{{Name: "DN", Member: "Q"}, {Name: "ACC", Member: "ET", Convert: "TIME_TO_DINT"}},
	},
	BlockTofr: {Name: "TOFR", Form: FormInstance, Instance: "TOF", Stateful: true, Backing: "FBD_TIMER",
		Inputs: []Pin{
			{Name: "TimerEnable", Member: "IN", Default: "FALSE", Kind: ir.LitBool},
			{Name: "PRE", Member: "PT", Default: "0", Kind: ir.LitInt, Convert: "DINT_TO_TIME"},
		},
		Outputs: []Pin{{Name: "DN", Member: "Q"}, {Name: "ACC", Member: "ET", Convert: "TIME_TO_DINT"}},
	},
	BlockCtud: {Name: "CTUD", Form: FormInstance, Instance: "CTUD", Stateful: true, Backing: "FBD_COUNTER",
		Inputs: []Pin{
			{Name: "CUEnable", Member: "CU", Default: "FALSE", Kind: ir.LitBool},
			{Name: "CDEnable", Member: "CD", Default: "FALSE", Kind: ir.LitBool},
			{Name: "Reset", Member: "R", Default: "FALSE", Kind: ir.LitBool},
			{Name: "PRE", Member: "PV", Default: "0", Kind: ir.LitInt},
		},
		Outputs: []Pin{{Name: "DN", Member: "QU"}, {Name: "ACC", Member: "CV"}},
	},

	BlockScl: {Name: "SCL", Form: FormAux, Aux: AuxSCL, Backing: "SCALE",
		Inputs:  []Pin{realPin("In"), realPin("InRawMax"), realPin("InRawMin"), realPin("InEUMax"), realPin("InEUMin")},
		Outputs: []Pin{{Name: "Out"}},
	},
	BlockAlm: {Name: "ALM", Form: FormAux, Aux: AuxALM, Stateful: true, Backing: "ALARM",
		Inputs: []Pin{realPin("In"), realPin("HHLimit"), realPin("HLimit"), realPin("LLimit"), realPin("LLLimit"), realPin("Deadband")},
		Outputs: []Pin{{Name: "HHAlarm"}, {Name: "HAlarm"}, {Name: "LAlarm"}, {Name: "LLAlarm"}},
	},
	BlockSetd: {Name: "SETD", Form: FormAux, Aux: AuxSETD, Stateful: true, Backing: "DOMINANT_SET",
		Inputs:  []Pin{boolPin("Set", "FALSE"), boolPin("Reset", "FALSE")},
		Outputs: []Pin{{Name: "Out"}, {Name: "OutNot"}},
	},
	BlockOsri: {Name: "OSRI", Form: FormAux, Aux: AuxOSRI, Stateful: true, Backing: "FBD_ONESHOT",
		Inputs:  []Pin{boolPin("InputBit", "FALSE")},
		Outputs: []Pin{{Name: "OutputBit"}},
	},
}

var blockByName = func() map[string]Block {
	m := make(map[string]Block, numBlocks)
	for b := Block(1); b < numBlocks; b++ {
		m[blockInfo[b].Name] = b
	}
	// Vendor spellings that share a lowering.
	m["MOV"] = BlockMove
	m["SQRT"] = BlockSqrt
	return m
}()

// LookupBlock resolves an FBD block type name (case-insensitive).
func LookupBlock(name string) (Block, bool) {
	b, ok := blockByName[strings.ToUpper(name)]
	return b, ok
}

// Info returns the static description of b.
func (b Block) Info() BlockInfo {
	if b >= numBlocks {
		return BlockInfo{}
	}
	return blockInfo[b]
}

func (b Block) String() string {
	if n := b.Info().Name; n != "" {
		return n
	}
	return "UNKNOWN"
}

// Blocks returns every known block type in declaration order.
func Blocks() []Block {
	out := make([]Block, 0, numBlocks-1)
	for b := Block(1); b < numBlocks; b++ {
		out = append(out, b)
	}
	return out
}

// Input returns the input pin with the given vendor name.
func (bi BlockInfo) Input(name string) (Pin, bool) {
	return findPin(bi.Inputs, name)
}

// Output returns the output pin with the given vendor name.
func (bi BlockInfo) Output(name string) (Pin, bool) {
	return findPin(bi.Outputs, name)
}

func findPin(pins []Pin, name string) (Pin, bool) {
	for _, p := range pins {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Pin{}, false
}
