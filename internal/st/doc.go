// Package st is the IEC 61131-3 Structured Text front and back end: an
// AST, a parser built with participle, and a printer.
//
// The parser accepts the program organization unit subset the converter
// emits and reads: TYPE...STRUCT blocks, FUNCTION, FUNCTION_BLOCK and
// PROGRAM with VAR sections, and CONFIGURATION/RESOURCE/TASK bindings.
// Statements are assignments, calls, IF/ELSIF/ELSE, FOR, WHILE and RETURN.
// Comments are discarded by the lexer.
//
// Keywords are case-insensitive. Identifiers keep their spelling; comparing
// them is left to callers.
package st
