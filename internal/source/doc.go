// Package source is the read-only project model consumed by the translators.
//
// FromDocument converts an l5x element tree into a Controller: tags with
// their scope and kind, user data types, add-on instructions, programs and
// routines. Ladder rung text is parsed into a series-parallel network and
// FBD sheets are resolved into an arena of nodes whose input pins carry an
// explicit PinSource (a wire or a literal). Structural problems are
// collected as ValidationErrors and reported together as one
// MALFORMED_SOURCE_TREE error.
//
// Nothing in this package is mutated after loading.
package source
