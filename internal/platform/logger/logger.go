package logger

import (
	"log/slog"
	"os"
)

// New returns the application logger: JSON to stdout with the service name
// attached. Handlers and middleware log through slog's context-aware methods
// so request IDs stay correlated.
func New() *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(handler).With(slog.String("service", "deedblock"))
}
