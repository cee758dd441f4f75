// Package logging provides leveled logging for the aio engine. The engine
// logs lifecycle transitions at Info and unlock, completion-pipe and
// reactor-deregistration failures at Warn; it does not log per-task dispatch,
// and lock and resolver failures reach the caller only as the task's Err.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Logger wraps stdlib log with level support
type Logger struct {
	logger *log.Logger
	level  LogLevel
	mu     sync.Mutex
}

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// LogLevel represents the available log levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config holds logging configuration
type Config struct {
	Level  LogLevel
	Output io.Writer
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// NewLogger creates a new logger
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	return &Logger{
		logger: log.New(output, "", log.LstdFlags),
		level:  config.Level,
	}
}

// Default returns the default logger, creating it if necessary
func Default() *Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault sets the default logger
func SetDefault(logger *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

// formatArgs converts key-value pairs to a string
func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	var result string
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			if result != "" {
				result += " "
			}
			result += fmt.Sprintf("%v=%v", args[i], args[i+1])
		}
	}
	if result != "" {
		return " " + result
	}
	return ""
}

func (l *Logger) log(level LogLevel, prefix, msg string, args ...any) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Printf("%s %s%s", prefix, msg, formatArgs(args))
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log(LevelDebug, "[DEBUG]", msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.log(LevelInfo, "[INFO]", msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log(LevelWarn, "[WARN]", msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.log(LevelError, "[ERROR]", msg, args...)
}

// Printf-style logging
func (l *Logger) Debugf(format string, args ...any) {
	l.log(LevelDebug, "[DEBUG]", fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...any) {
	l.log(LevelInfo, "[INFO]", fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.log(LevelWarn, "[WARN]", fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.log(LevelError, "[ERROR]", fmt.Sprintf(format, args...))
}

// Printf for compatibility
func (l *Logger) Printf(format string, args ...any) {
	l.Infof(format, args...)
}

// TaskLogger prefixes every message with a task ID and operation name, the
// way a worker goroutine wants to log while it owns a single task.
type TaskLogger struct {
	parent *Logger
	taskID uint64
	op     string
}

// WithTask scopes the logger to a task ID, carried into every message.
func (l *Logger) WithTask(taskID uint64) *TaskLogger {
	return &TaskLogger{parent: l, taskID: taskID}
}

// WithOp returns a copy of the task logger additionally scoped to op.
func (t *TaskLogger) WithOp(op string) *TaskLogger {
	return &TaskLogger{parent: t.parent, taskID: t.taskID, op: op}
}

func (t *TaskLogger) prefix() string {
	if t.op != "" {
		return fmt.Sprintf("task=%d op=%s", t.taskID, t.op)
	}
	return fmt.Sprintf("task=%d", t.taskID)
}

func (t *TaskLogger) Debug(msg string, args ...any) {
	t.parent.Debug(fmt.Sprintf("%s %s", t.prefix(), msg), args...)
}

func (t *TaskLogger) Info(msg string, args ...any) {
	t.parent.Info(fmt.Sprintf("%s %s", t.prefix(), msg), args...)
}

func (t *TaskLogger) Warn(msg string, args ...any) {
	t.parent.Warn(fmt.Sprintf("%s %s", t.prefix(), msg), args...)
}

// WithError reports err at Warn level under the task/op context, returning
// err unchanged so it can be used inline: `return log.WithError(err)`.
func (t *TaskLogger) WithError(err error) error {
	if err != nil {
		t.parent.Warn(fmt.Sprintf("%s error", t.prefix()), "err", err)
	}
	return err
}

// Global convenience functions
func Debug(msg string, args ...any) {
	Default().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Default().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Default().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Default().Error(msg, args...)
}
