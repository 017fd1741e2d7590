// Package tables holds the static mappings between the vendor project format
// and Structured Text: instruction mnemonics, FBD block types, primitive and
// vendor data types, reserved identifiers and the fixed auxiliary ST assets.
//
// Every mapping is a closed enumeration indexed into a fixed-size info array.
// Translators switch over the enumerations exhaustively; the coverage tests in
// this package fail the build pipeline when a variant lacks an entry, so a
// missing case is caught before any conversion runs. Mnemonic lookup happens
// only at the parse boundary.
package tables
