// Package convert turns one loaded controller into an IR program.
//
// Every program's main routine is translated in declaration order and the
// results are concatenated. Subroutines reached through JSR or FOR are
// inlined at the call site; a call that re-enters a routine already on the
// inlining stack is unsupported. Ladder, FBD and ST routines go through
// their own translators.
//
// After translation the converter closes over the declarations: program
// tags that collide with a name already declared are prefixed with their
// program name, alias references are replaced by their targets, and timer
// and counter tags take the ST instance type their instructions require,
// with vendor member names (DN, ACC, PRE) mapped onto the instance.
// Add-on instructions become FUNCTION_BLOCK declarations.
package convert
