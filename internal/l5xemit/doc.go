// Package l5xemit builds a vendor project document from an IR program.
//
// The program becomes one controller with a single program, routine and
// task, named from config.L5X. Tags declared in program scope stay in the
// program; everything else is a controller tag. Function blocks and
// functions become add-on instructions.
//
// A routine is written as ladder when every statement has a rung form that
// the ladder translator reads back into the same statement:
//
//	Y := A AND NOT B;             XIC(A)XIO(B)OTE(Y);
//	IF A THEN Y := TRUE; END_IF;  XIC(A)OTL(Y);
//	IF A OR B THEN N := N + 1;    [XIC(A),XIC(B)]ADD(N,1,N);
//	T1(IN := A, PT := ...);       XIC(A)TON(T1,1000,0);
//
// Otherwise the whole routine is written as structured text.
package l5xemit
