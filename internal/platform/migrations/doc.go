// Package migrations embeds the database schema and applies it with goose.
//
// There is one migration set per supported driver under sql/postgres and
// sql/sqlite. Both sets define the same tables and versions; they differ
// only in column types, since sqlite stores timestamps as fixed-width text.
package migrations
