// Package fbd lowers Function Block Diagram sheets into IR statements.
//
// A sheet is an arena of nodes joined by wires. Nodes are scheduled in
// dependency order, ties going to the earlier-declared node. A feedback
// loop is legal only through a stateful block (timer, latch, alarm,
// add-on instruction): the wires closing the loop into it are dropped, so
// that block reads the values its sources produced on the previous scan.
// A loop through combinational blocks alone is a STRUCTURAL_CYCLE and the
// sheet is replaced by a placeholder.
package fbd
