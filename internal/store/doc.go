// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing scheduling rules to remain
// independent of specific database technologies or persistence details.
//
// SQL implementations live in internal/platform/sqlstore and are opened
// through the postgres and sqlite platform packages; daily progress may
// alternatively be kept in Redis (internal/platform/redis).
package store
