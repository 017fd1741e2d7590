package tables

import "strings"

// Prim is an elementary ST data type.
type Prim uint8

const (
	PrimUnknown Prim = iota
	PrimBool
	PrimSint
	PrimInt
	PrimDint
	PrimLint
	PrimUsint
	PrimUint
	PrimUdint
	PrimUlint
	PrimByte
	PrimWord
	PrimDword
	PrimLword
	PrimReal
	PrimLreal
	PrimTime
	PrimString

	numPrims
)

// Family groups primitive types for coercion decisions.
type Family uint8

const (
	FamilyBool Family = iota + 1
	FamilyInteger
	FamilyBits
	FamilyReal
	FamilyTime
	FamilyString
)

type primInfo struct {
	Name   string
	Family Family
}

var prims = [numPrims]primInfo{
	PrimBool:   {"BOOL", FamilyBool},
	PrimSint:   {"SINT", FamilyInteger},
	PrimInt:    {"INT", FamilyInteger},
	PrimDint:   {"DINT", FamilyInteger},
	PrimLint:   {"LINT", FamilyInteger},
	PrimUsint:  {"USINT", FamilyInteger},
	PrimUint:   {"UINT", FamilyInteger},
	PrimUdint:  {"UDINT", FamilyInteger},
	PrimUlint:  {"ULINT", FamilyInteger},
	PrimByte:   {"BYTE", FamilyBits},
	PrimWord:   {"WORD", FamilyBits},
	PrimDword:  {"DWORD", FamilyBits},
	PrimLword:  {"LWORD", FamilyBits},
	PrimReal:   {"REAL", FamilyReal},
	PrimLreal:  {"LREAL", FamilyReal},
	PrimTime:   {"TIME", FamilyTime},
	PrimString: {"STRING", FamilyString},
}

// LookupPrim resolves an ST elementary type name (case-insensitive).
func LookupPrim(name string) (Prim, bool) {
	up := strings.ToUpper(name)
	for p := Prim(1); p < numPrims; p++ {
		if prims[p].Name == up {
			return p, true
		}
	}
	return PrimUnknown, false
}

func (p Prim) String() string {
	if p < numPrims && prims[p].Name != "" {
		return prims[p].Name
	}
	return "UNKNOWN"
}

// Family returns the coercion family of p.
func (p Prim) Family() Family {
	if p < numPrims {
		return prims[p].Family
	}
	return 0
}

// Prims returns every elementary type in declaration order.
func Prims() []Prim {
	out := make([]Prim, 0, numPrims-1)
	for p := Prim(1); p < numPrims; p++ {
		out = append(out, p)
	}
	return out
}

// vendorTypes maps vendor data types that have no identically named ST type.
// Timer and counter entries give the default instance type; the converter
// refines it from the instructions that use the tag.
var vendorTypes = map[string]string{
	"BIT":         "BOOL",
	"TIMER":       "TON",
	"COUNTER":     "CTU",
	"FBD_TIMER":   "TON",
	"FBD_COUNTER": "CTUD",
}

// MapType converts a vendor data type name to its ST spelling. Elementary
// types are upper-cased; unknown names (user-defined types, auxiliary
// structures) are returned unchanged.
func MapType(vendor string) string {
	up := strings.ToUpper(vendor)
	if st, ok := vendorTypes[up]; ok {
		return st
	}
	if p, ok := LookupPrim(up); ok {
		return p.String()
	}
	return vendor
}

// VendorType is the inverse of MapType for emitting a vendor project:
// standard timer and counter instances become TIMER and COUNTER, other
// names are returned unchanged.
func VendorType(st string) string {
	switch strings.ToUpper(st) {
	case "TON", "TOF", "TP":
		return "TIMER"
	case "CTU", "CTD", "CTUD":
		return "COUNTER"
	}
	if p, ok := LookupPrim(st); ok {
		return p.String()
	}
	return st
}

// IsTimerType reports whether a vendor type holds a ladder or FBD timer.
func IsTimerType(vendor string) bool {
	up := strings.ToUpper(vendor)
	return up == "TIMER" || up == "FBD_TIMER"
}

// IsCounterType reports whether a vendor type holds a counter.
func IsCounterType(vendor string) bool {
	up := strings.ToUpper(vendor)
	return up == "COUNTER" || up == "FBD_COUNTER"
}

// memberMap renames vendor timer/counter members onto the ST standard
// function block outputs.
type memberMap struct {
	Member  string
	Convert string
}

var instanceMembers = map[string]map[string]memberMap{
	"TON": {
		"DN": {Member: "Q"}, "ACC": {Member: "ET", Convert: "TIME_TO_DINT"},
		"PRE": {Member: "PT", Convert: "TIME_TO_DINT"}, "EN": {Member: "IN"},
	},
	"TOF": {
		"DN": {Member: "Q"}, "ACC": {Member: "ET", Convert: "TIME_TO_DINT"},
		"PRE": {Member: "PT", Convert: "TIME_TO_DINT"}, "EN": {Member: "IN"},
	},
	"CTU": {
		"DN": {Member: "Q"}, "ACC": {Member: "CV"}, "PRE": {Member: "PV"}, "CU": {Member: "CU"},
	},
	"CTD": {
		"DN": {Member: "Q"}, "ACC": {Member: "CV"}, "PRE": {Member: "PV"}, "CD": {Member: "CD"},
	},
	"CTUD": {
		"DN": {Member: "QU"}, "ACC": {Member: "CV"}, "PRE": {Member: "PV"},
	},
}

// InstanceMember maps a vendor member of a timer/counter tag to the ST
// member of the instance type, plus the conversion needed when reading it.
func InstanceMember(instance, vendorMember string) (member, convert string, ok bool) {
	mm, ok := instanceMembers[strings.ToUpper(instance)][strings.ToUpper(vendorMember)]
	if !ok {
		return "", "", false
	}
	return mm.Member, mm.Convert, true
}

// IsStandardFB reports whether name is an ST standard function block type.
func IsStandardFB(name string) bool {
	switch strings.ToUpper(name) {
	case "TON", "TOF", "TP", "CTU", "CTD", "CTUD", "R_TRIG", "F_TRIG", "SR", "RS":
		return true
	}
	return false
}
