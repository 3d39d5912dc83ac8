package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fadedpez/agentledger/internal/types"
	"github.com/rs/zerolog"
)

// Level represents a logging level
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var zerologLevels = map[Level]zerolog.Level{
	DEBUG: zerolog.DebugLevel,
	INFO:  zerolog.InfoLevel,
	WARN:  zerolog.WarnLevel,
	ERROR: zerolog.ErrorLevel,
}

// String returns the level name
func (l Level) String() string {
	return levelNames[l]
}

// ParseLevel converts a level name to a Level, defaulting to INFO
func ParseLevel(name string) Level {
	for level, levelName := range levelNames {
		if strings.EqualFold(name, levelName) {
			return level
		}
	}
	return INFO
}

// Logger is a levelled logger with structured fields
type Logger struct {
	zl    zerolog.Logger
	level Level
}

// NewLogger creates a logger writing JSON lines to stdout
func NewLogger(level Level) *Logger {
	return New(os.Stdout, level)
}

// NewConsoleLogger creates a logger writing human readable lines to stdout
func NewConsoleLogger(level Level) *Logger {
	return New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05.000"}, level)
}

// New creates a logger writing to w
func New(w io.Writer, level Level) *Logger {
	zl := zerolog.New(w).
		Level(zerologLevels[level]).
		With().
		Timestamp().
		CallerWithSkipFrameCount(3).
		Logger()
	return &Logger{zl: zl, level: level}
}

// Level returns the minimum level the logger emits
func (l *Logger) Level() Level {
	return l.level
}

// With returns a child logger that adds fields to every entry
func (l *Logger) With(fields map[string]interface{}) *Logger {
	return &Logger{
		zl:    l.zl.With().Fields(fields).Logger(),
		level: l.level,
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.zl.Debug().Msgf(format, v...)
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.zl.Info().Msgf(format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.zl.Warn().Msgf(format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.zl.Error().Msgf(format, v...)
}

// LogError logs an error, expanding LedgerError context into fields
func (l *Logger) LogError(err error) {
	var ledgerErr *types.LedgerError
	if types.As(err, &ledgerErr) {
		event := l.zl.Error().
			Str("code", string(ledgerErr.Code)).
			Str("message", ledgerErr.Message)
		if ledgerErr.Err != nil {
			event = event.AnErr("cause", ledgerErr.Err)
		}
		event.Msg("Ledger error occurred")
		return
	}
	l.zl.Error().Err(err).Msg("Unexpected error")
}

// Printf satisfies printf-style logger interfaces such as cron.Logger's backend
func (l *Logger) Printf(format string, v ...interface{}) {
	l.zl.Info().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Default logger instance
var Default = NewLogger(INFO)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
