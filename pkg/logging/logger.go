// Package logging provides per-component logging for publishing runs.
// Each run gets a uuid-named log file under ~/.inkpress/logs shared by all
// components; when the file cannot be opened the logger degrades to stderr
// rather than failing the run.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	runID     string
	runIDOnce sync.Once

	sink     io.Writer
	sinkPath string
	sinkOnce sync.Once
)

// RunID returns the identifier shared by every logger in this process.
func RunID() string {
	runIDOnce.Do(func() {
		runID = uuid.New().String()
	})
	return runID
}

// openSink resolves the shared log destination once per process.
func openSink() {
	sinkOnce.Do(func() {
		home, err := os.UserHomeDir()
		if err != nil {
			sink = os.Stderr
			return
		}
		dir := filepath.Join(home, ".inkpress", "logs")
		if err := os.MkdirAll(dir, 0o750); err != nil {
			sink = os.Stderr
			return
		}
		path := filepath.Join(dir, RunID()+".log")
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			sink = os.Stderr
			return
		}
		sink = file
		sinkPath = path
	})
}

// Logger writes structured lines for one named component.
type Logger struct {
	component string
	mu        sync.Mutex
	out       *log.Logger
	echo      bool
}

// New creates a logger for a component, writing to the shared run log.
func New(component string) *Logger {
	openSink()
	return &Logger{
		component: component,
		out:       log.New(sink, "", 0),
	}
}

// NewEcho creates a logger that also mirrors warnings and errors to stderr,
// for the user-facing surface of a run.
func NewEcho(component string) *Logger {
	l := New(component)
	l.echo = true
	return l
}

// LogPath returns the run log file, or empty when logging fell back to
// stderr.
func LogPath() string {
	openSink()
	return sinkPath
}

func (l *Logger) write(level, format string, v ...any) {
	message := fmt.Sprintf(format, v...)
	stamp := time.Now().Format("2006-01-02 15:04:05.000")

	l.mu.Lock()
	l.out.Printf("[%s] [%s] [%s] %s", stamp, l.component, level, message)
	l.mu.Unlock()

	if l.echo && (level == "WARN" || level == "ERROR") && sink != os.Stderr {
		fmt.Fprintf(os.Stderr, "%s: %s\n", level, message)
	}
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, v ...any) { l.write("DEBUG", format, v...) }

// Infof logs an info-level message.
func (l *Logger) Infof(format string, v ...any) { l.write("INFO", format, v...) }

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, v ...any) { l.write("WARN", format, v...) }

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, v ...any) { l.write("ERROR", format, v...) }
