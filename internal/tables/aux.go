package tables

import (
	"embed"
	"strings"

	"github.com/roach88/l5xst/internal/ir"
)

//go:embed assets/*.st
var assets embed.FS

// Aux is one of the fixed auxiliary template functions used for vendor
// instructions without a direct ST construct.
type Aux uint8

const (
	AuxNone Aux = iota
	AuxSCL
	AuxALM
	AuxSETD
	AuxOSRI
	AuxMSG

	numAux
)

// AuxInfo describes an auxiliary template.
type AuxInfo struct {
	Func   string // function name, also the InstrCall Func
	Struct string // the structure the function takes and returns
	Asset  string // embedded ST source
}

var auxInfo = [numAux]AuxInfo{
	AuxSCL:  {Func: "SCL", Struct: "SCALE", Asset: "assets/scl.st"},
	AuxALM:  {Func: "ALM", Struct: "ALARM", Asset: "assets/alm.st"},
	AuxSETD: {Func: "SETD", Struct: "DOMINANT_SET", Asset: "assets/setd.st"},
	AuxOSRI: {Func: "OSRI", Struct: "FBD_ONESHOT", Asset: "assets/osri.st"},
	AuxMSG:  {Func: "MSG", Struct: "MESSAGE", Asset: "assets/msg.st"},
}

// Info returns the static description of a.
func (a Aux) Info() AuxInfo {
	if a >= numAux {
		return AuxInfo{}
	}
	return auxInfo[a]
}

func (a Aux) String() string {
	if f := a.Info().Func; f != "" {
		return f
	}
	return "NONE"
}

// Source returns the fixed ST text of the template.
func (a Aux) Source() string {
	data, err := assets.ReadFile(a.Info().Asset)
	if err != nil {
		panic("tables: missing auxiliary asset for " + a.String())
	}
	return string(data)
}

// Auxes returns every auxiliary template in declaration order.
func Auxes() []Aux {
	out := make([]Aux, 0, numAux-1)
	for a := Aux(1); a < numAux; a++ {
		out = append(out, a)
	}
	return out
}

// LookupAux resolves an auxiliary function name (case-insensitive).
func LookupAux(fn string) (Aux, bool) {
	for a := Aux(1); a < numAux; a++ {
		if strings.EqualFold(auxInfo[a].Func, fn) {
			return a, true
		}
	}
	return AuxNone, false
}

// auxStructs are the fixed structure declarations used by auxiliary
// functions and FBD backing tags. Members already use their renamed
// spelling where the vendor name is an ST keyword (EN -> EN1, TO -> TO1).
var auxStructs = []ir.TypeDecl{
	{Name: "DOMINANT_SET", Members: []ir.Member{
		{Name: "EnableIn", Type: "BOOL"}, {Name: "Set", Type: "BOOL"}, {Name: "Reset", Type: "BOOL"},
		{Name: "EnableOut", Type: "BOOL"}, {Name: "Out", Type: "BOOL"}, {Name: "OutNot", Type: "BOOL"},
	}},
	{Name: "MESSAGE", Members: []ir.Member{
		{Name: "EN1", Type: "BOOL"}, {Name: "EW", Type: "BOOL"}, {Name: "ST", Type: "BOOL"},
		{Name: "DN", Type: "BOOL"}, {Name: "ER", Type: "BOOL"}, {Name: "TO1", Type: "BOOL"},
		{Name: "ERR", Type: "INT"}, {Name: "EXERR", Type: "DINT"}, {Name: "REQ_LEN", Type: "INT"},
		{Name: "DN_LEN", Type: "INT"},
	}},
	{Name: "SCALE", Members: []ir.Member{
		{Name: "EnableIn", Type: "BOOL"}, {Name: "In", Type: "REAL"},
		{Name: "InRawMax", Type: "REAL"}, {Name: "InRawMin", Type: "REAL"},
		{Name: "InEUMax", Type: "REAL"}, {Name: "InEUMin", Type: "REAL"},
		{Name: "Limiting", Type: "BOOL"}, {Name: "EnableOut", Type: "BOOL"}, {Name: "Out", Type: "REAL"},
		{Name: "MaxAlarm", Type: "BOOL"}, {Name: "MinAlarm", Type: "BOOL"},
	}},
	{Name: "ALARM", Members: []ir.Member{
		{Name: "EnableIn", Type: "BOOL"}, {Name: "In", Type: "REAL"},
		{Name: "HHLimit", Type: "REAL"}, {Name: "HLimit", Type: "REAL"},
		{Name: "LLimit", Type: "REAL"}, {Name: "LLLimit", Type: "REAL"}, {Name: "Deadband", Type: "REAL"},
		{Name: "EnableOut", Type: "BOOL"}, {Name: "HHAlarm", Type: "BOOL"}, {Name: "HAlarm", Type: "BOOL"},
		{Name: "LAlarm", Type: "BOOL"}, {Name: "LLAlarm", Type: "BOOL"},
	}},
	{Name: "FBD_ONESHOT", Members: []ir.Member{
		{Name: "EnableIn", Type: "BOOL"}, {Name: "InputBit", Type: "BOOL"},
		{Name: "EnableOut", Type: "BOOL"}, {Name: "OutputBit", Type: "BOOL"}, {Name: "Storage", Type: "BOOL"},
	}},
	{Name: "FBD_MATH", Members: []ir.Member{
		{Name: "EnableIn", Type: "BOOL"}, {Name: "SourceA", Type: "REAL"}, {Name: "SourceB", Type: "REAL"},
		{Name: "EnableOut", Type: "BOOL"}, {Name: "Dest", Type: "REAL"},
	}},
	{Name: "FBD_MATH_ADVANCED", Members: []ir.Member{
		{Name: "EnableIn", Type: "BOOL"}, {Name: "Source", Type: "REAL"},
		{Name: "EnableOut", Type: "BOOL"}, {Name: "Dest", Type: "REAL"},
	}},
	{Name: "FBD_CONVERT", Members: []ir.Member{
		{Name: "EnableIn", Type: "BOOL"}, {Name: "Source", Type: "REAL"},
		{Name: "EnableOut", Type: "BOOL"}, {Name: "Dest", Type: "REAL"},
	}},
	{Name: "FBD_COMPARE", Members: []ir.Member{
		{Name: "EnableIn", Type: "BOOL"}, {Name: "SourceA", Type: "REAL"}, {Name: "SourceB", Type: "REAL"},
		{Name: "EnableOut", Type: "BOOL"}, {Name: "Dest", Type: "BOOL"},
	}},
	{Name: "FBD_BOOLEAN_AND", Members: []ir.Member{
		{Name: "EnableIn", Type: "BOOL"}, {Name: "In1", Type: "BOOL"}, {Name: "In2", Type: "BOOL"},
		{Name: "EnableOut", Type: "BOOL"}, {Name: "Out", Type: "BOOL"},
	}},
	{Name: "FBD_BOOLEAN_OR", Members: []ir.Member{
		{Name: "EnableIn", Type: "BOOL"}, {Name: "In1", Type: "BOOL"}, {Name: "In2", Type: "BOOL"},
		{Name: "EnableOut", Type: "BOOL"}, {Name: "Out", Type: "BOOL"},
	}},
	{Name: "FBD_BOOLEAN_XOR", Members: []ir.Member{
		{Name: "EnableIn", Type: "BOOL"}, {Name: "In1", Type: "BOOL"}, {Name: "In2", Type: "BOOL"},
		{Name: "EnableOut", Type: "BOOL"}, {Name: "Out", Type: "BOOL"},
	}},
	{Name: "FBD_BOOLEAN_NOT", Members: []ir.Member{
		{Name: "EnableIn", Type: "BOOL"}, {Name: "In", Type: "BOOL"},
		{Name: "EnableOut", Type: "BOOL"}, {Name: "Out", Type: "BOOL"},
	}},
	{Name: "SELECT", Members: []ir.Member{
		{Name: "EnableIn", Type: "BOOL"}, {Name: "In1", Type: "REAL"}, {Name: "In2", Type: "REAL"},
		{Name: "SelectorIn", Type: "BOOL"}, {Name: "EnableOut", Type: "BOOL"}, {Name: "Out", Type: "REAL"},
	}},
}

// AuxStruct returns the fixed declaration of an auxiliary structure.
func AuxStruct(name string) (ir.TypeDecl, bool) {
	for _, td := range auxStructs {
		if strings.EqualFold(td.Name, name) {
			return td, true
		}
	}
	return ir.TypeDecl{}, false
}

// AuxStructs returns every auxiliary structure in emission order.
func AuxStructs() []ir.TypeDecl {
	out := make([]ir.TypeDecl, len(auxStructs))
	copy(out, auxStructs)
	return out
}
