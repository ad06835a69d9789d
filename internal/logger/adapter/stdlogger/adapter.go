// Package stdlogger adapts the global zerolog logger to printf style
// logger interfaces, such as the one gorm expects.
package stdlogger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger forwards printf style calls to zerolog.
type Logger struct {
	component string
	// level is used by Printf.
	level zerolog.Level
}

// New returns a Logger writing Printf calls at info level.
func New() *Logger {
	return &Logger{level: zerolog.InfoLevel}
}

// NewComponent returns a Logger tagging every line with component and
// writing Printf calls at level.
func NewComponent(component string, level zerolog.Level) *Logger {
	return &Logger{component: component, level: level}
}

func (l *Logger) emit(level zerolog.Level, format string, args ...any) {
	ev := log.WithLevel(level)
	if l.component != "" {
		ev = ev.Str("component", l.component)
	}

	ev.Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Printf implements gorm's logger.Writer.
func (l *Logger) Printf(format string, args ...any) {
	l.emit(l.level, format, args...)
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.emit(zerolog.DebugLevel, format, args...)
}

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...any) {
	l.emit(zerolog.InfoLevel, format, args...)
}

// Warningf logs at warn level.
func (l *Logger) Warningf(format string, args ...any) {
	l.emit(zerolog.WarnLevel, format, args...)
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.emit(zerolog.ErrorLevel, format, args...)
}
