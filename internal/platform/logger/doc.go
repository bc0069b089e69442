// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured logging
// with configurable log levels and output formats, and carries loggers through
// context.Context so that request-scoped attributes follow an operation.
package logger
