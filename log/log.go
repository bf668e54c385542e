package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const logFlags = log.Ldate | log.Ltime | log.Lshortfile

var (
	WarningLog = log.New(io.Discard, "WARNING:", logFlags)
	InfoLog    = log.New(io.Discard, "INFO:", logFlags)
	ErrorLog   = log.New(io.Discard, "ERROR:", logFlags)
)

var (
	mu            sync.Mutex
	globalLogFile *os.File
)

// DefaultPath is used when Initialize is called with an empty path.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), "editstore.log")
}

// Initialize points the package loggers at the file at path. tag, when
// non-empty, is prepended to every line (e.g. "mcp"). Call Close when done.
func Initialize(path, tag string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if globalLogFile != nil {
		globalLogFile.Close()
	}
	globalLogFile = f
	setOutput(f, tag)
	return nil
}

// SetOutput redirects all loggers to w. Used by tests and by binaries that
// want logs on stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	setOutput(w, "")
}

func setOutput(w io.Writer, tag string) {
	prefix := "%s"
	if tag != "" {
		prefix = "[" + tag + "] %s"
	}
	InfoLog.SetOutput(w)
	InfoLog.SetPrefix(fmt.Sprintf(prefix, "INFO:"))
	WarningLog.SetOutput(w)
	WarningLog.SetPrefix(fmt.Sprintf(prefix, "WARNING:"))
	ErrorLog.SetOutput(w)
	ErrorLog.SetPrefix(fmt.Sprintf(prefix, "ERROR:"))
}

// Close flushes and closes the log file and resets the loggers to discard.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if globalLogFile != nil {
		_ = globalLogFile.Close()
		globalLogFile = nil
	}
	setOutput(io.Discard, "")
}

// Every is used to log at most once every timeout duration.
type Every struct {
	mu      sync.Mutex
	timeout time.Duration
	timer   *time.Timer
}

func NewEvery(timeout time.Duration) *Every {
	return &Every{timeout: timeout}
}

// ShouldLog returns true if the timeout has passed since the last log.
func (e *Every) ShouldLog() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer == nil {
		e.timer = time.NewTimer(e.timeout)
		return true
	}

	select {
	case <-e.timer.C:
		e.timer.Reset(e.timeout)
		return true
	default:
		return false
	}
}
