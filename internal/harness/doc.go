// Package harness runs declarative engine scenarios: a YAML file
// names an initial document, a set of scripted routes, and a sequence
// of dispatched events, and the harness drives a real engine against a
// real HTTP server and records the lifecycle trace.
//
// Traces are compared against golden files, which serve as the source
// of truth for expected engine behavior. Regenerate with:
//
//	go test ./internal/harness -update
package harness
