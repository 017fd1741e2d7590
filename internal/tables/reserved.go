package tables

import "strings"

// keywords are identifiers a Structured Text compiler will not accept as
// user names, plus the standard function blocks and auxiliary template
// names that the emitted text declares itself.
var keywords = []string{
	"ABS", "ACTION", "AND", "ANY", "ARRAY", "AT", "BOOL", "BY", "BYTE", "CASE",
	"CONFIGURATION", "CONSTANT", "CTD", "CTU", "CTUD", "DATE", "DINT", "DO", "DT",
	"DWORD", "ELSE", "ELSIF", "EN", "END_ACTION", "END_CASE", "END_CONFIGURATION",
	"END_FOR", "END_FUNCTION", "END_FUNCTION_BLOCK", "END_IF", "END_PROGRAM",
	"END_REPEAT", "END_RESOURCE", "END_STRUCT", "END_TYPE", "END_VAR", "END_WHILE",
	"ENO", "EXIT", "F_TRIG", "FALSE", "FOR", "FUNCTION", "FUNCTION_BLOCK", "IF",
	"INT", "INTERVAL", "LINT", "LREAL", "LWORD", "MOD", "NOT", "OF", "ON", "OR",
	"PRIORITY", "PROGRAM", "R_TRIG", "READ_ONLY", "READ_WRITE", "REAL", "REPEAT",
	"RESOURCE", "RETAIN", "RETURN", "RS", "SINT", "SR", "STRING", "STRUCT", "TASK",
	"THEN", "TIME", "TO", "TOD", "TOF", "TON", "TP", "TRUE", "TYPE", "UDINT", "UINT",
	"ULINT", "UNTIL", "USINT", "VAR", "VAR_ACCESS", "VAR_CONFIG", "VAR_EXTERNAL",
	"VAR_GLOBAL", "VAR_IN_OUT", "VAR_INPUT", "VAR_OUTPUT", "VAR_TEMP", "WHILE",
	"WITH", "WORD", "XOR",
	"ALARM", "ALM", "DOMINANT_SET", "MESSAGE", "MSG", "OSRI", "SCALE", "SCL", "SETD",
}

// reservedOverrides fix the replacement for names that already have an
// established spelling in converted projects. Every other keyword gets a
// "1" suffix.
var reservedOverrides = map[string]string{
	"SCALE": "scl1",
	"ALM":   "alarm1",
	"ALARM": "alert",
}

var keywordSet = func() map[string]bool {
	m := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		m[k] = true
	}
	return m
}()

// IsReserved reports whether name collides with an ST reserved word.
func IsReserved(name string) bool {
	return keywordSet[strings.ToUpper(name)]
}

// Reserved returns the replacement for a name colliding with an ST reserved
// word. The mapping is case-insensitive and deterministic: ON -> ON1,
// type -> type1, SCALE -> scl1.
func Reserved(name string) (string, bool) {
	up := strings.ToUpper(name)
	if !keywordSet[up] {
		return name, false
	}
	if r, ok := reservedOverrides[up]; ok {
		return r, true
	}
	return name + "1", true
}
