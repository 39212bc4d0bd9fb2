// Package game implements a Texas Hold'em table.
//
// A Table owns a fixed row of seats and plays rounds until one seat holds
// every chip, a requested number of rounds has been played, or a round
// faults. Everything outside the engine happens through a Boundary: cards
// and streets are announced to it, betting decisions are requested from it,
// and results are reported back through it. The engine runs on the calling
// goroutine and never blocks except inside Boundary.Handle.
//
// Any fault aborts the round in progress. Chips committed during that round
// are returned to their seats, the fault is reported, the table ends and
// the fault is returned to the caller. The engine never retries a request.
package game
