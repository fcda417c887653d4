// Package engine reconciles a stream of server events into one comment view.
//
// The engine owns the state store for a single post. Each event is applied
// strictly one at a time: the store is mutated, the comment forest is rebuilt
// from the flat collection and sorted with the current sort mode, and update
// handlers are told about the new View.
//
// Single writer:
// Events arrive from exactly one goroutine (the stream manager started by
// Open, or the caller of Apply). Readers such as Forest and Post may run on any
// goroutine; a RWMutex orders them against the writer and against Close.
//
// Logical time:
// Every rebuild or re-sort advances a revision from a monotonic Clock. Journal
// entries are stamped from a second Clock. Wall time only feeds the Hot rank.
//
// Failures never stop reconciliation. Error events, patches on missing records
// and repaired tree input are logged; the first two also reach OnFailure
// handlers. Only a terminal stream failure ends the event flow, and the last
// reconciled state stays readable after it.
package engine
