// Package pipeline wires the translators into the two conversion
// directions and the round-trip check.
//
// Forward (ToST): every controller document is loaded and converted to IR
// in its own goroutine; the programs are then merged into one namespace,
// coerced, and emitted as Structured Text. Reverse (ToL5X): ST text is
// parsed, rebuilt as IR, and emitted as a vendor project.
//
// Validation converts the output back to IR and scores it against the IR
// it came from. With a spot check configured, both programs are also run
// side by side in the scan interpreter and any state that ends up
// different is reported.
package pipeline
