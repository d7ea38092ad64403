package logger

import "go.uber.org/zap"

// NewNop returns a logger that discards everything. Components constructed
// without a logger fall back to it.
func NewNop() *DefaultLogger {
	return &DefaultLogger{logger: zap.NewNop().Sugar()}
}
