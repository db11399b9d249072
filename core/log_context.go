package core

import "context"

// turnLoggerKey is the context key for storing a per-turn logger.
type turnLoggerKey struct{}

// ContextWithTurnLogger returns a new context carrying the turn logger.
func ContextWithTurnLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, turnLoggerKey{}, logger)
}

// TurnLoggerFromContext extracts the turn logger from the context, or nil.
func TurnLoggerFromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(turnLoggerKey{}).(*Logger); ok {
		return l
	}
	return nil
}

// LoggerFromContext returns the turn logger if one is set, otherwise fallback,
// otherwise the global logger.
func LoggerFromContext(ctx context.Context, fallback *Logger) *Logger {
	if l := TurnLoggerFromContext(ctx); l != nil {
		return l
	}
	if fallback != nil {
		return fallback
	}
	return GetLogger()
}
