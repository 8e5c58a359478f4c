// Package axlog provides process-wide debug/verbose logging for axes.
//
// It follows the same shape as a typical debug logger: a mutex-guarded
// writer, a runtime-toggleable verbosity flag, and namespaced helpers for
// the handful of subsystems that want to tag their own output.
package axlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnableDebug can be overridden at build time:
// go build -ldflags "-X axes/internal/axlog.EnableDebug=true"
var EnableDebug = "false"

// SessionMode suppresses debug output while an interactive session owns the
// terminal, mirroring how the teacher suppresses debug output in MCP mode.
var SessionMode = false

var (
	logOutput io.Writer
	logFile   *os.File
	logMutex  sync.Mutex
)

// SetSessionMode toggles suppression of debug output during an interactive session.
func SetSessionMode(enabled bool) {
	SessionMode = enabled
}

// SetOutput sets a custom writer for debug output. Pass nil to disable it.
func SetOutput(w io.Writer) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logOutput = w
}

// InitLogFile opens a timestamped debug log file under the OS temp dir and
// routes all debug output there. Returns the path to the file.
func InitLogFile() (string, error) {
	logMutex.Lock()
	defer logMutex.Unlock()

	logDir := filepath.Join(os.TempDir(), "axes-debug-logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02T150405")
	logPath := filepath.Join(logDir, fmt.Sprintf("debug-%s.log", timestamp))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}

	logFile = file
	logOutput = file
	return logPath, nil
}

// Close closes the debug log file if one is open.
func Close() error {
	logMutex.Lock()
	defer logMutex.Unlock()

	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		logOutput = nil
		return err
	}
	return nil
}

// Enabled reports whether debug output is currently active.
func Enabled() bool {
	if SessionMode {
		return false
	}
	if EnableDebug == "true" {
		return true
	}
	v := os.Getenv("AXES_DEBUG")
	return v == "1" || v == "true"
}

func writer() io.Writer {
	logMutex.Lock()
	defer logMutex.Unlock()
	if logOutput != nil {
		return logOutput
	}
	return os.Stderr
}

// Debugf prints a debug line, gated on Enabled().
func Debugf(format string, args ...interface{}) {
	if !Enabled() {
		return
	}
	fmt.Fprintf(writer(), "[DEBUG] "+format+"\n", args...)
}

// Tagged prints a debug line namespaced by component, e.g. Tagged("cache", ...).
func Tagged(component, format string, args ...interface{}) {
	if !Enabled() {
		return
	}
	fmt.Fprintf(writer(), "[DEBUG:%s] "+format+"\n", append([]interface{}{component}, args...)...)
}

// Warnf always prints a warning, regardless of debug mode, unless in session mode.
func Warnf(format string, args ...interface{}) {
	if SessionMode {
		return
	}
	fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}
