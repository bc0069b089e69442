// Package redis keeps daily review progress in Redis so that several
// processes sharing a database can also share their daily limits without
// write contention on the progress table.
package redis
