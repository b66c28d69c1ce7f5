// Package process defines the contract between the engine and job authors.
// A job author supplies a payload type, which embeds model.PayloadBase, and a
// Processor bound to it. The pair is registered with a Registry, which the
// engine consults to route each payload to a freshly built processor.
package process
