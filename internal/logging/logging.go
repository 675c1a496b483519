package logging

import "go.uber.org/zap"

// New returns a production logger, or a development logger when env is "development" or "local".
func New(env string) (*zap.Logger, error) {
	switch env {
	case "development", "local":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
