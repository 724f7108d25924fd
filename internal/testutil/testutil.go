// Package testutil provides shared test helpers.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/banshee-data/rollstate/internal/monitoring"
)

// restoreLoggers puts the monitoring loggers back when the test ends.
func restoreLoggers(t *testing.T) {
	t.Helper()
	logf, debugf := monitoring.Logf, monitoring.Debugf
	t.Cleanup(func() {
		monitoring.Logf = logf
		monitoring.Debugf = debugf
	})
}

// MuteLogs silences the monitoring loggers for the rest of the test.
func MuteLogs(t *testing.T) {
	t.Helper()
	restoreLoggers(t)
	monitoring.SetLogger(nil)
	monitoring.SetDebugLogger(nil)
}

// CaptureLogs collects every formatted monitoring.Logf line for the rest of
// the test. Debug output is muted.
func CaptureLogs(t *testing.T) *[]string {
	t.Helper()
	restoreLoggers(t)

	var (
		mu    sync.Mutex
		lines []string
	)
	monitoring.SetLogger(func(format string, v ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	monitoring.SetDebugLogger(nil)
	return &lines
}

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
