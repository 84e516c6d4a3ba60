// Package logger provides structured logging for the scheduling backend.
// It exposes typed fields, child loggers, and context propagation on top of
// a zap core, so call sites never deal with zap directly.
package logger

import (
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the minimum severity a logger emits.
type Level int

// Levels in increasing severity. Fatal terminates the process after logging.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String renders the level in upper case.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel reads a level name, case-insensitively. Unknown names fall
// back to Info so a mistyped LOG_LEVEL never silences the service.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	default:
		return LevelInfo
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Field is one structured key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

// F builds a Field from a key and value.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Typed field constructors.
func String(key, value string) Field          { return Field{Key: key, Value: value} }
func Int(key string, value int) Field         { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field     { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field       { return Field{Key: key, Value: value} }

// Err builds an "error" field; a nil error produces a null value.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration renders a duration field in Go's duration syntax.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Time renders a time field in RFC 3339.
func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value.Format(time.RFC3339)}
}

// Any builds a field holding an arbitrary value.
func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// Logger wraps a zap sugared logger behind the Field API.
type Logger struct {
	zl *zap.SugaredLogger
}

// Options configures the logger.
type Options struct {
	// Level is the minimum level to emit.
	Level Level

	// Development switches to the human-readable console encoder.
	Development bool

	// AddCaller annotates entries with the caller's file:line.
	AddCaller bool
}

// DefaultOptions is Info-level JSON output with caller annotation.
func DefaultOptions() Options {
	return Options{
		Level:     LevelInfo,
		AddCaller: true,
	}
}

// New builds a Logger writing to stdout with the given options.
func New(opts Options) *Logger {
	var enc zapcore.Encoder
	if opts.Development {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "timestamp"
		encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
		encCfg.MessageKey = "message"
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), opts.Level.zapLevel())

	var zopts []zap.Option
	if opts.AddCaller {
		zopts = append(zopts, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	return &Logger{zl: zap.New(core, zopts...).Sugar()}
}

// Default builds a logger with DefaultOptions.
func Default() *Logger {
	return New(DefaultOptions())
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() {
	_ = l.zl.Sync()
}

// With returns a child logger carrying the given fields on every entry.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{zl: l.zl.With(kvs(fields)...)}
}

func kvs(fields []Field) []any {
	out := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		out = append(out, f.Key, f.Value)
	}
	return out
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, fields ...Field) {
	l.zl.Debugw(msg, kvs(fields)...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, fields ...Field) {
	l.zl.Infow(msg, kvs(fields)...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, fields ...Field) {
	l.zl.Warnw(msg, kvs(fields)...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, fields ...Field) {
	l.zl.Errorw(msg, kvs(fields)...)
}

// Fatal logs at fatal level and exits the process.
func (l *Logger) Fatal(msg string, fields ...Field) {
	l.zl.Fatalw(msg, kvs(fields)...)
}

// Printf-style variants for call sites without structured fields.
func (l *Logger) Debugf(format string, args ...any) { l.zl.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.zl.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.zl.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.zl.Errorf(format, args...) }
func (l *Logger) Fatalf(format string, args ...any) { l.zl.Fatalf(format, args...) }

type ctxKey struct{}

// WithContext attaches the logger to a context.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger attached to ctx, or a default logger when
// none is attached.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return Default()
}

// RequestIDKey is the field key used for request tracing.
const RequestIDKey = "request_id"

// WithRequestID returns a child logger tagged with the request id.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.With(String(RequestIDKey, requestID))
}

// Scheduling-domain logging helpers.
func StudentID(id string) Field     { return String("student_id", id) }
func CourseID(id string) Field      { return String("course_id", id) }
func DocumentID(id string) Field    { return String("document_id", id) }
func OutcomeID(id string) Field     { return String("outcome_id", id) }
func LessonID(id string) Field      { return String("lesson_template_id", id) }
func Step(name string) Field        { return String("step", name) }
func Component(name string) Field   { return String("component", name) }
func Operation(name string) Field   { return String("operation", name) }
func Latency(d time.Duration) Field { return Duration("latency", d) }
