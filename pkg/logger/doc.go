// Package logger provides structured logging with configurable log levels.
// It wraps the standard log/slog package and stamps every record with the
// service name and environment.
package logger
