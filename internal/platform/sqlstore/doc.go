// Package sqlstore implements the store interfaces on database/sql.
//
// The same queries serve PostgreSQL and SQLite. A Dialect supplies the
// differences: placeholder style, how timestamps are written, and how driver
// errors map onto the store package's sentinel errors. The postgres and
// sqlite platform packages provide ready-made dialects.
package sqlstore
