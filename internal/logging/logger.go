/*
Copyright © 2026 Lumen Language Contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package logging provides the runtime's centralized logger. In CLI mode it
// prints through pterm; in protocol mode messages are forwarded to a sink so
// connected front-ends can surface them. Library code never prints directly.
package logging

import (
	"fmt"
	"os"
	"sync"

	"github.com/pterm/pterm"
)

// init configures pterm printers to use foreground colors only, keeping
// server logs readable when multiplexed with other process output.
func init() {
	pterm.Info = *pterm.Info.WithPrefix(pterm.Prefix{
		Text:  "INFO",
		Style: pterm.NewStyle(pterm.FgBlue),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Warning = *pterm.Warning.WithPrefix(pterm.Prefix{
		Text:  "WARNING",
		Style: pterm.NewStyle(pterm.FgYellow),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Error = *pterm.Error.WithPrefix(pterm.Prefix{
		Text:  "ERROR",
		Style: pterm.NewStyle(pterm.FgRed),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)

	pterm.Debug = *pterm.Debug.WithPrefix(pterm.Prefix{
		Text:  "DEBUG",
		Style: pterm.NewStyle(pterm.FgCyan),
	}).WithMessageStyle(&pterm.ThemeDefault.DefaultText)
}

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarning
	LogLevelError
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarning:
		return "WARNING"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Sink receives log messages in protocol mode. The server installs a sink
// that forwards messages to connected sessions.
type Sink interface {
	Log(level LogLevel, message string)
}

// LoggerMode determines how logs are output
type LoggerMode int

const (
	// ModeCLI uses pterm for colorized CLI output
	ModeCLI LoggerMode = iota
	// ModeProtocol forwards messages to the installed Sink
	ModeProtocol
)

// Logger provides centralized logging that adapts to CLI vs protocol
// contexts.
type Logger struct {
	mu           sync.RWMutex
	mode         LoggerMode
	sink         Sink
	debugEnabled bool
	quietEnabled bool
}

// Global logger instance
var globalLogger = &Logger{
	mode:         ModeCLI,
	debugEnabled: false,
}

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	return globalLogger
}

// SetMode configures the logger for CLI or protocol operation
func (l *Logger) SetMode(mode LoggerMode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mode = mode
}

// SetSink installs the protocol sink and switches to protocol mode.
func (l *Logger) SetSink(sink Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = sink
	l.mode = ModeProtocol
}

// SetDebugEnabled controls whether debug messages are shown
func (l *Logger) SetDebugEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugEnabled = enabled
}

// IsDebugEnabled returns whether debug logging is enabled
func (l *Logger) IsDebugEnabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.debugEnabled
}

// SetQuietEnabled controls whether quiet mode is active (suppresses INFO and DEBUG)
func (l *Logger) SetQuietEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quietEnabled = enabled
}

func (l *Logger) log(level LogLevel, format string, args ...any) {
	l.mu.RLock()
	mode := l.mode
	sink := l.sink
	debug := l.debugEnabled
	quiet := l.quietEnabled
	l.mu.RUnlock()

	if level == LogLevelDebug && !debug {
		return
	}
	if quiet && level < LogLevelWarning {
		return
	}

	message := fmt.Sprintf(format, args...)

	switch mode {
	case ModeCLI:
		switch level {
		case LogLevelDebug:
			pterm.Debug.Println(message)
		case LogLevelInfo:
			pterm.Info.Println(message)
		case LogLevelWarning:
			pterm.Warning.Println(message)
		case LogLevelError:
			pterm.Error.Println(message)
		}
	case ModeProtocol:
		if sink != nil {
			sink.Log(level, message)
		} else {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", level, message)
		}
	}
}

// Debug logs a debug message (only shown if debug is enabled)
func (l *Logger) Debug(format string, args ...any) {
	l.log(LogLevelDebug, format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...any) {
	l.log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...any) {
	l.log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...any) {
	l.log(LogLevelError, format, args...)
}

// Package-level convenience functions delegating to the global logger.

func Debug(format string, args ...any)   { globalLogger.Debug(format, args...) }
func Info(format string, args ...any)    { globalLogger.Info(format, args...) }
func Warning(format string, args ...any) { globalLogger.Warning(format, args...) }
func Error(format string, args ...any)   { globalLogger.Error(format, args...) }

// SetDebugEnabled toggles debug output on the global logger.
func SetDebugEnabled(enabled bool) { globalLogger.SetDebugEnabled(enabled) }

// SetQuietEnabled toggles quiet mode on the global logger.
func SetQuietEnabled(enabled bool) { globalLogger.SetQuietEnabled(enabled) }

// SetSink installs a protocol sink on the global logger.
func SetSink(sink Sink) { globalLogger.SetSink(sink) }
