// Package logging defines the structured-logging contract shared by the
// server and the CLI. The one implementation wraps log/slog; swapping in
// another backend only requires satisfying Logger.
package logging

import "context"

// Logger is a context-aware, structured logger. The variadic args are
// alternating key-value pairs:
//
//	log.Info(ctx, "loaded collection", "backend", backend, "records", n)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)

	// Warn records unusual but non-fatal conditions, such as a failed
	// best-effort event publish.
	Warn(ctx context.Context, msg string, args ...any)

	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key-value
	// pairs.
	With(args ...any) Logger
}
