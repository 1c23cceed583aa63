// Package logger provides process-wide logging for docscan.
// Debug and info messages are only emitted in verbose mode; warnings and
// errors are always written. Output is rendered by zerolog, either as
// human-readable console lines or as JSON for log collectors.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Output formats accepted by SetFormat.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var (
	mu      sync.RWMutex
	verbose bool
	format            = FormatConsole
	output  io.Writer = os.Stderr
	base              = build(output, format, verbose)
)

func build(w io.Writer, f string, v bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if v {
		level = zerolog.DebugLevel
	}
	if f == FormatJSON {
		return zerolog.New(w).Level(level).With().Timestamp().Logger()
	}
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: true}
	return zerolog.New(cw).Level(level).With().Timestamp().Logger()
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	base = build(output, format, verbose)
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	base = build(output, format, verbose)
}

// SetFormat selects console or JSON rendering.
func SetFormat(f string) error {
	if f != FormatConsole && f != FormatJSON {
		return fmt.Errorf("unknown log format %q", f)
	}
	mu.Lock()
	defer mu.Unlock()
	format = f
	base = build(output, format, verbose)
	return nil
}

func emit(level zerolog.Level, component, msg string) {
	mu.RLock()
	l := base
	mu.RUnlock()
	ev := l.WithLevel(level)
	if ev == nil {
		return
	}
	if component != "" {
		ev = ev.Str("component", component)
	}
	ev.Msg(msg)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	emit(zerolog.DebugLevel, "", fmt.Sprintf(format, args...))
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	emit(zerolog.InfoLevel, "", fmt.Sprintf(format, args...))
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	emit(zerolog.WarnLevel, "", fmt.Sprintf(format, args...))
}

// Error prints an error message.
func Error(format string, args ...any) {
	emit(zerolog.ErrorLevel, "", fmt.Sprintf(format, args...))
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	v, f, w := verbose, format, output
	mu.RUnlock()
	if !v {
		return
	}
	if f == FormatJSON {
		emit(zerolog.InfoLevel, "", "section: "+name)
		return
	}
	fmt.Fprintf(w, "\n=== %s ===\n", name)
}

// Logger tags every message with a component name.
type Logger struct {
	component string
}

// With returns a Logger for the named component.
func With(component string) Logger {
	return Logger{component: component}
}

// Debug logs a component message only when verbose mode is enabled.
func (l Logger) Debug(format string, args ...any) {
	emit(zerolog.DebugLevel, l.component, fmt.Sprintf(format, args...))
}

// Info logs a component message only when verbose mode is enabled.
func (l Logger) Info(format string, args ...any) {
	emit(zerolog.InfoLevel, l.component, fmt.Sprintf(format, args...))
}

// Warn logs a component warning. Always shown.
func (l Logger) Warn(format string, args ...any) {
	emit(zerolog.WarnLevel, l.component, fmt.Sprintf(format, args...))
}

// Error logs a component error. Always shown.
func (l Logger) Error(format string, args ...any) {
	emit(zerolog.ErrorLevel, l.component, fmt.Sprintf(format, args...))
}
