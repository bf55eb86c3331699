// Package logger builds the application's structured logger on top of
// log/slog. Production environments log JSON, everything else logs text.
package logger
