// Package cli implements the scry command line.
//
// Every command that touches data builds an application for the duration of
// the command: it opens the configured database, applies pending migrations
// when database.auto_migrate is set, wires the stores and services, and starts
// the background task runner. Before the command returns, queued tasks are
// drained and every resource is released.
package cli
