// Package stemit renders an IR program as a Structured Text compilation
// unit: auxiliary declarations the program uses, user types and function
// blocks, the program itself and a CONFIGURATION binding it to one task.
package stemit
