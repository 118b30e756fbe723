package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	file    *os.File
	mu      sync.Mutex
	enabled bool

	logger = log.NewWithOptions(sink{}, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
		Level:           log.DebugLevel,
	})
)

// sink forwards to the debug file while logging is enabled.
type sink struct{}

func (sink) Write(p []byte) (int, error) {
	mu.Lock()
	defer mu.Unlock()
	if !enabled || file == nil {
		return len(p), nil
	}
	n, err := file.Write(p)
	file.Sync() // flush immediately so we see logs even on crash
	return n, err
}

// DefaultPath returns ~/.config/go-midiplay/debug.log
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "go-midiplay", "debug.log")
}

// Enable starts debug logging to DefaultPath.
func Enable() error {
	return EnableAt(DefaultPath())
}

// EnableAt starts debug logging to path, truncating it.
func EnableAt(path string) error {
	mu.Lock()
	if enabled {
		mu.Unlock()
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		mu.Unlock()
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		mu.Unlock()
		return err
	}
	file = f
	enabled = true
	mu.Unlock()

	logger.Info("=== Debug logging started ===", "path", path)
	return nil
}

// Disable stops debug logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		file.Close()
		file = nil
	}
	enabled = false
}

// Enabled reports whether a debug file is open.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Logger returns a structured logger writing to the debug file under the
// given category prefix. It discards output while logging is disabled.
func Logger(category string) *log.Logger {
	return logger.WithPrefix(category)
}

// Log writes a message to the debug log
func Log(category, format string, args ...any) {
	if !Enabled() {
		return
	}
	logger.Debug(fmt.Sprintf(format, args...), "cat", category)
}

// LogEvery logs only every N calls (use for high-frequency events)
var counters = make(map[string]int)

func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
