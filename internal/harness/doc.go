// Package harness provides conformance testing for the record/replay
// engine.
//
// The harness loads a YAML scenario describing call sites and a
// scripted sequence of backend calls, records them into a throwaway
// event database, then replays the same sequence and reports whether
// every output came back from the memo store without touching the
// backend.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	sites:
//	  - namespace: ModelBackend
//	    name: status_get
//	    caching_policy: strict
//	    serializer: {input: json, output: json}
//	steps:
//	  - call: ModelBackend.status_get
//	    args: [myapp]
//	    kwargs: {verbose: true}
//	    returns: active
//
// # Deterministic Testing
//
// Scenarios execute with a pinned clock and environment snapshot, so
// the replay pass produces an identical memo log across runs. The log
// is compared against golden files in testdata/golden.
package harness
