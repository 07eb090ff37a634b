// Package debug provides the optional debug log shared by the appupdates binaries.
// Logging is only enabled when --debug (or AU_DEBUG=true) is set at startup.
// Each binary writes to its own file under ~/.appupdates/, truncated on launch.
package debug

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// LogDirName is the name of the directory containing the log files.
	LogDirName = ".appupdates"
	// DefaultLogName is used when Init is called without a binary name.
	DefaultLogName = "debug"
)

var (
	mu      sync.RWMutex
	enabled bool
	logger  *log.Logger
	logFile *os.File
	logPath string

	// getLogPath is a function variable to allow overriding in tests.
	getLogPath = defaultGetLogPath
)

// Init initializes the debug logging system for the named binary.
// If enable is false, all logging operations become no-ops.
func Init(name string, enable bool) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()
	enabled = enable
	if !enable {
		logger = log.New(io.Discard, "", 0)
		return nil
	}

	path, err := getLogPath(name)
	if err != nil {
		return fmt.Errorf("determine log path: %w", err)
	}

	//nolint:gosec // G301: User config directory needs standard permissions
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	//nolint:gosec // G304: Log path is computed from user home, not user input
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logFile = f
	logPath = path

	logger = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	logger.Printf("=== %s debug log started at %s ===", logName(name), time.Now().Format(time.RFC3339))

	return nil
}

// Close closes the debug log file if open.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
}

func closeLocked() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// Logf writes a formatted debug message if debug logging is enabled.
func Logf(format string, v ...any) {
	mu.RLock()
	defer mu.RUnlock()

	if !enabled || logger == nil {
		return
	}
	logger.Printf(format, v...)
}

// Enabled returns whether debug logging is currently enabled.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Path returns the file currently being written, or "" when disabled.
func Path() string {
	mu.RLock()
	defer mu.RUnlock()
	if !enabled {
		return ""
	}
	return logPath
}

func logName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultLogName
	}
	return name
}

func defaultGetLogPath(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine user home: %w", err)
	}
	return filepath.Join(home, LogDirName, logName(name)+".log"), nil
}
