// Package jobs contains the sample payload types and processors shipped with
// the server.
package jobs
