// Package engine provides the asynchronous operation engine.
//
// Publish persists an operation and its payload and places the payload on a
// bounded queue. A fixed pool of workers drains the queue, gates each payload
// type behind an optional concurrency ceiling, and drives every operation
// through pending, running and one terminal state while tracking it in the
// active process registry, where it can be inspected or canceled.
package engine
