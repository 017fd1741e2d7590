// Package ir provides the syntax-neutral intermediate representation shared by
// every translator and emitter in l5xst.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. Ladder rungs, FBD
// sheets, ST routines and parsed ST text all normalize into the same Program,
// Stmt and Expr vocabulary, which is what makes the fidelity comparison between
// two conversions meaningful.
//
// Key design constraints:
//   - Stmt and Expr are sealed interfaces; the variant set is closed.
//   - Literals are text-preserving (no floats in the model), so canonical
//     encoding and fingerprints are deterministic.
//   - Comment and Disabled statements are annotations: they are emitted but
//     never take part in structural equality.
//   - Identifiers compare case-insensitively, as in Structured Text.
package ir
