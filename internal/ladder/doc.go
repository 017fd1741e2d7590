// Package ladder lowers Ladder Logic rungs into IR statements.
//
// A rung is a series-parallel network: series elements are conjoined and
// the legs of a branch are disjoined, left to right. Output instructions
// consume the condition that reaches them and pass it on unchanged, so a
// rung can write several outputs. When an output writes a tag that an
// expression still needed later in the rung reads, that expression is
// first stored in a temporary so the rest of the rung sees the pre-write
// value, as the controller's left-to-right scan does.
//
// Rungs that cannot be translated become a comment holding the original
// text and an UNSUPPORTED_INSTRUCTION diagnostic; the routine continues.
package ladder
