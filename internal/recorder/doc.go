// Package recorder implements the record/replay memoization engine.
//
// During a live run (record mode) it intercepts designated backend
// calls, invokes them for real, and persists their serialized
// (input, output) pairs into an event database. During a later offline
// run (replay mode) the same call sites return the recorded outputs
// instead of touching the real backend, so a prior run can be replayed
// deterministically for testing and debugging.
//
// # Units of work
//
// Each triggered event opens one Scene: the captured invocation
// environment plus a Context holding one Memo per intercepted call
// site. Scenes form an ordered timeline; the scene index is the
// addressing key during replay.
//
// # Caching disciplines
//
// A strict memo records an ordered sequence of calls and replays them
// through a cursor: the wrapped call may return different results on
// every invocation regardless of arguments. A loose memo maps
// serialized inputs to outputs directly: results depend only on the
// arguments, not on call order.
//
// # Shared-store caveat
//
// Every interception performs an independent load-mutate-commit cycle
// against the database file with no locking. Two processes recording
// against the same file can race and clobber each other's writes; each
// store file is meant to be bound to one sequential unit of work.
package recorder
