// Package postgres connects the SQL stores to PostgreSQL through the pgx
// database/sql driver. It supplies the dialect used by package sqlstore and
// maps PostgreSQL error codes to store errors.
package postgres
