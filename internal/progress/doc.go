// Package progress carries pipeline milestones from running jobs to
// observers. Jobs emit Events into a non-blocking Hub, which batches them on a
// background goroutine and fans them out to sinks such as Prometheus metrics
// or structured logs.
package progress
