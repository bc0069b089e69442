// Package task manages background job queuing, processing, and lifecycle.
// Tasks are persisted before they are queued so that a restart can recover
// work that was pending or interrupted, and a pool of workers executes them
// concurrently. Rescheduling a deck after its settings change is the main
// task type.
package task
