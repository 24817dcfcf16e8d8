// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON
// (or text) logging with configurable log levels. Error attributes are passed
// through the redact package so credentials never reach the log stream.
package logger
