// Package taskmanager runs named, cancellable, progress-reporting tasks on a
// worker pool and broadcasts their lifecycle to observers.
//
// Every task accepted by Start or StartInline produces, in order:
//
//	Started, Progress*, then exactly one of Cancelled, Finished or Failed.
//
// Progress events are rate limited across the whole manager (see
// MinProgressInterval); all other events are always delivered. A task leaves
// the manager's registry before its terminal event is published, and no
// manager lock is held while observers run, so observers may call back into
// the manager freely.
//
// Cancellation is cooperative: Cancel sets a flag and cancels Task.Context;
// the body is expected to notice and return.
package taskmanager
