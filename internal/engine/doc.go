// Package engine interprets IR programs scan by scan.
//
// The interpreter is a test and validation aid, not a runtime. It keeps a
// flat state map keyed by canonical reference path (TANK.LEVEL, ARR[2],
// T1.Q), seeded from the tag declarations, and executes the program body
// once per Scan in statement order.
//
// Time is logical. Every scan advances the clock by a fixed period, so
// timers behave the same on every run:
//
//	e, _ := engine.New(prog, engine.WithScanPeriod(100*time.Millisecond))
//	_ = e.Set("START", engine.Bool(true))
//	_ = e.Run(ctx, 10) // one second of controller time
//
// Standard timers (TON, TOF, TP) and counters (CTU, CTD, CTUD) are built
// in. User function blocks keep their variables under the instance path;
// user functions are evaluated in a fresh frame per call. Auxiliary
// template calls are reported as UNSUPPORTED.
//
// An Engine is not safe for concurrent use.
package engine
