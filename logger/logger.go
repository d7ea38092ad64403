// Package logger configures application logging: a stdout sink and a
// size-rotating file sink behind a single named logger, with independent
// severity thresholds per sink.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// DefaultName is the root logger name. Module loggers are named
	// "<DefaultName>.<module>".
	DefaultName = "c0lornote"

	// LogFileName is the active log file under <dir>/logs.
	LogFileName = "c0lornote.log"

	// Rotation policy: roll over at 5 MiB, keep 3 rotated files.
	maxLogSizeMB = 5
	backupCount  = 3

	timeLayout = "2006-01-02 15:04:05"
)

var _ Logger = (*DefaultLogger)(nil)

// DefaultLogger wraps zap.SugaredLogger to implement Logger.
type DefaultLogger struct {
	logger *zap.SugaredLogger
}

var (
	rootMu sync.Mutex
	root   *DefaultLogger
)

// LogPath returns the log file location under dir, creating the logs
// subdirectory (including parents) if it does not exist.
func LogPath(dir string) (string, error) {
	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(logDir, LogFileName), nil
}

// Setup builds the root application logger. Console output is always
// attached; the rotating file sink is best effort: if the log directory
// cannot be resolved or the file cannot be opened, the failure is reported
// through the console sink and the returned logger works on console alone.
//
// Calling Setup again replaces the previous sinks rather than stacking new
// ones. Setup is a startup-time utility and is not safe to call from
// multiple goroutines at once.
func Setup(cfg Config) *DefaultLogger {
	name := cfg.Name
	if name == "" {
		name = DefaultName
	}

	consoleCore := zapcore.NewCore(newLineEncoder(), zapcore.Lock(os.Stdout), parseLevel(cfg.ConsoleLevel, zapcore.InfoLevel))
	cores := []zapcore.Core{consoleCore}

	logPath, fileErr := resolveLogPath(cfg.Dir)
	if fileErr == nil {
		sink := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    maxLogSizeMB,
			MaxBackups: backupCount,
		}
		cores = append(cores, zapcore.NewCore(newLineEncoder(), zapcore.AddSync(sink), parseLevel(cfg.FileLevel, zapcore.DebugLevel)))
	}

	l := &DefaultLogger{logger: zap.New(zapcore.NewTee(cores...)).Named(name).Sugar()}

	if fileErr != nil {
		l.ErrorW("failed to set up file logging", "error", fileErr)
	} else {
		l.InfoW("log file configured", "path", logPath)
	}

	rootMu.Lock()
	root = l
	rootMu.Unlock()
	return l
}

// Module returns a logger scoped to one application module, named
// "<root>.<module>". It attaches no sinks of its own: output flows through
// whatever Setup configured. Before Setup has run it returns a no-op logger.
func Module(module string) Logger {
	rootMu.Lock()
	defer rootMu.Unlock()
	if root == nil {
		return NewNop()
	}
	return root.Named(module)
}

func resolveLogPath(dir string) (string, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(base, DefaultName)
	}
	path, err := LogPath(dir)
	if err != nil {
		return "", err
	}
	// lumberjack opens lazily; probe now so a failure surfaces at setup
	// instead of on the first write.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return "", err
	}
	return path, f.Close()
}

func parseLevel(s string, fallback zapcore.Level) zapcore.Level {
	if s == "" {
		return fallback
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return fallback
	}
	return level
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.TimeEncoderOfLayout(timeLayout),
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " - ",
	}
}

var linePool = buffer.NewPool()

// lineEncoder renders "<time> - <name> - <LEVEL> - <message>" lines, with
// structured fields appended as sorted key=value pairs. The embedded console
// encoder supplies the field-accumulation methods of zapcore.Encoder.
type lineEncoder struct {
	zapcore.Encoder
}

func newLineEncoder() zapcore.Encoder {
	return lineEncoder{Encoder: zapcore.NewConsoleEncoder(encoderConfig())}
}

func (e lineEncoder) Clone() zapcore.Encoder {
	return lineEncoder{Encoder: e.Encoder.Clone()}
}

func (e lineEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	line := linePool.Get()

	line.AppendString(ent.Time.Format(timeLayout))
	line.AppendString(" - ")
	if ent.LoggerName != "" {
		line.AppendString(ent.LoggerName)
		line.AppendString(" - ")
	}
	line.AppendString(ent.Level.CapitalString())
	line.AppendString(" - ")
	line.AppendString(ent.Message)

	if len(fields) > 0 {
		enc := zapcore.NewMapObjectEncoder()
		for _, field := range fields {
			field.AddTo(enc)
		}
		keys := make([]string, 0, len(enc.Fields))
		for key := range enc.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(line, " %s=%v", key, enc.Fields[key])
		}
	}

	line.AppendString(zapcore.DefaultLineEnding)
	return line, nil
}

func (l *DefaultLogger) DebugW(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l *DefaultLogger) InfoW(msg string, keysAndValues ...any) {
	l.logger.Infow(msg, keysAndValues...)
}

func (l *DefaultLogger) WarnW(msg string, keysAndValues ...any) {
	l.logger.Warnw(msg, keysAndValues...)
}

func (l *DefaultLogger) ErrorW(msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, keysAndValues...)
}

func (l *DefaultLogger) Named(name string) Logger {
	return &DefaultLogger{logger: l.logger.Named(name)}
}

func (l *DefaultLogger) Sync() error {
	return l.logger.Sync()
}
