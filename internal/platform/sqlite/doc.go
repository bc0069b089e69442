// Package sqlite connects the SQL stores to an embedded SQLite database
// through the pure-Go modernc.org/sqlite driver. It is the default backend
// for local use and the backend the store tests run against.
package sqlite
