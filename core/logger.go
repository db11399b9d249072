package core

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

var (
	loggerMu       sync.RWMutex
	loggerInstance = NewDevelopmentLogger(LevelInfo)
)

// SetLogger sets the global logger instance
func SetLogger(logger *Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	loggerInstance = logger
}

// GetLogger retrieves the global logger instance
func GetLogger() *Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return loggerInstance
}

// Level orders log severities. Messages below a logger's level are dropped.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
	LevelPanic
)

var levelNames = map[Level]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
	LevelPanic: "PANIC",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel maps a case-insensitive level name to a Level. Unknown names yield LevelInfo.
func ParseLevel(name string) Level {
	for lvl, n := range levelNames {
		if strings.EqualFold(n, name) {
			return lvl
		}
	}
	return LevelInfo
}

// HandlerFunc receives every log record that passes the level filter.
type HandlerFunc func(level string, msg string, attrs map[string]interface{})

type Logger struct {
	handlerFunc HandlerFunc
	minLevel    Level
	attrs       map[string]interface{}
}

func NewLogger(handler HandlerFunc) *Logger {
	return &Logger{
		handlerFunc: handler,
		minLevel:    LevelTrace,
		attrs:       make(map[string]interface{}),
	}
}

// NewDevelopmentLogger creates a logger with human-readable console output.
func NewDevelopmentLogger(minLevel Level) *Logger {
	handler := func(level string, msg string, attrs map[string]interface{}) {
		timestamp := time.Now().Format(time.RFC3339)
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s [%s] %s", timestamp, level, msg)
		if len(attrs) > 0 {
			sb.WriteString(" |")
			for _, k := range sortedKeys(attrs) {
				fmt.Fprintf(&sb, " %s=%v", k, attrs[k])
			}
		}
		sb.WriteByte('\n')
		emit(os.Stdout, level, msg, sb.String())
	}

	l := NewLogger(handler)
	l.minLevel = minLevel
	return l
}

// NewJSONLogger writes one JSON object per record to w.
func NewJSONLogger(w io.Writer, minLevel Level) *Logger {
	var mu sync.Mutex
	handler := func(level string, msg string, attrs map[string]interface{}) {
		record := make(map[string]interface{}, len(attrs)+3)
		for k, v := range attrs {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			record[k] = v
		}
		record["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
		record["level"] = level
		record["msg"] = msg

		data, err := sonic.Marshal(record)
		if err != nil {
			data = []byte(fmt.Sprintf(`{"level":%q,"msg":%q,"log_error":%q}`, level, msg, err.Error()))
		}
		mu.Lock()
		defer mu.Unlock()
		emit(w, level, msg, string(data)+"\n")
	}

	l := NewLogger(handler)
	l.minLevel = minLevel
	return l
}

func emit(w io.Writer, level, msg, line string) {
	switch level {
	case "FATAL":
		fmt.Fprint(os.Stderr, line)
		os.Exit(1)
	case "PANIC":
		fmt.Fprint(os.Stderr, line)
		panic(msg)
	default:
		fmt.Fprint(w, line)
	}
}

func sortedKeys(attrs map[string]interface{}) []string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	if l.handlerFunc == nil || level < l.minLevel {
		return
	}
	name := level.String()
	if len(args) > 0 {
		// Detect slog-style key-value pairs: even number of args where
		// odd-positioned args (keys) are strings.
		if isKeyValuePairs(args) {
			attrs := make(map[string]interface{}, len(l.attrs)+len(args)/2)
			for k, v := range l.attrs {
				attrs[k] = v
			}
			for i := 0; i < len(args)-1; i += 2 {
				key, _ := args[i].(string)
				attrs[key] = args[i+1]
			}
			l.handlerFunc(name, msg, attrs)
			return
		}
		msg = fmt.Sprintf(msg, args...)
	}
	l.handlerFunc(name, msg, l.attrs)
}

// isKeyValuePairs returns true if args look like slog-style key-value pairs:
// even count and every key (even index) is a string.
func isKeyValuePairs(args []interface{}) bool {
	if len(args)%2 != 0 {
		return false
	}
	for i := 0; i < len(args); i += 2 {
		if _, ok := args[i].(string); !ok {
			return false
		}
	}
	return true
}

func (l *Logger) Trace(msg string, args ...interface{}) { l.log(LevelTrace, msg, args...) }
func (l *Logger) Debug(msg string, args ...interface{}) { l.log(LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log(LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log(LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log(LevelError, msg, args...) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log(LevelFatal, msg, args...) }
func (l *Logger) Panic(msg string, args ...interface{}) { l.log(LevelPanic, msg, args...) }

// With returns a child logger that adds attrs to every record.
func (l *Logger) With(attrs map[string]interface{}) *Logger {
	combinedAttrs := make(map[string]interface{}, len(l.attrs)+len(attrs))
	for k, v := range l.attrs {
		combinedAttrs[k] = v
	}
	for k, v := range attrs {
		combinedAttrs[k] = v
	}
	return &Logger{
		handlerFunc: l.handlerFunc,
		minLevel:    l.minLevel,
		attrs:       combinedAttrs,
	}
}

// Sync is a no-op for fmt-based logger
func (l *Logger) Sync() error {
	return nil
}
