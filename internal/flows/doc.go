// Package flows contains the pure transition functions of the reset flow.
//
// Every function takes the session by pointer plus the time at which the
// operation is evaluated, and either mutates the session or returns a guard
// error. Deadlines are compared at call time; nothing here counts down.
//
// # Architecture boundaries
//
// The root package owns locking, collaborator calls, audit and metrics. This
// package only decides whether a transition is allowed and what it changes.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goReset (to avoid import cycles).
//   - Perform I/O or read the wall clock.
package flows
