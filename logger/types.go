package logger

// Logger defines the logging interface used throughout the application.
type Logger interface {
	DebugW(msg string, keysAndValues ...any)
	InfoW(msg string, keysAndValues ...any)
	WarnW(msg string, keysAndValues ...any)
	ErrorW(msg string, keysAndValues ...any)

	// Named returns a child logger whose name is this logger's name joined
	// with name by a period. The child shares this logger's sinks.
	Named(name string) Logger

	Sync() error
}
