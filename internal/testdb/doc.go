//go:build integration

// Package testdb starts the external services used by integration tests.
//
// PostgreSQL and Redis come from testcontainers unless SCRY_TEST_DB_URL or
// SCRY_TEST_REDIS_URL point at running servers, which is how CI provides them.
// Every database handed out has the schema migrated to the latest version.
package testdb
