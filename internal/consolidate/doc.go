// Package consolidate merges the IR programs of several controllers into one
// program with a single namespace.
//
// Names are decided before anything is rewritten. Identifiers that collide
// with an ST reserved word take their fixed replacement from the tables
// package. Identifiers declared by more than one controller are suffixed with
// the controller index (Count -> Count_2), then with a running k when that is
// also taken (Count_2_3) up to the configured limit; past it the merge fails
// with NAME_COLLISION_UNRESOLVABLE. User types and function blocks that are
// identical in every controller declaring them are kept once under their
// own name.
//
// After renaming, MSG instructions whose connection path maps to another
// controller become direct assignments between the two controllers' tags,
// and statements touching module I/O are kept as Disabled.
//
// The rename table is built single-threaded and in sorted order, so the same
// input always yields the same table.
package consolidate
