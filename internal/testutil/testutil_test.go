package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/rollstate/internal/monitoring"
)

func TestCaptureLogs(t *testing.T) {
	lines := CaptureLogs(t)

	monitoring.Logf("row %d skipped", 3)
	monitoring.Debugf("not captured")

	if len(*lines) != 1 {
		t.Fatalf("captured %d lines, want 1", len(*lines))
	}
	if (*lines)[0] != "row 3 skipped" {
		t.Errorf("line = %q, want %q", (*lines)[0], "row 3 skipped")
	}
}

func TestMuteLogsRestores(t *testing.T) {
	restoreLoggers(t)
	var got []string
	monitoring.SetLogger(func(format string, v ...interface{}) { got = append(got, format) })

	t.Run("muted", func(t *testing.T) {
		MuteLogs(t)
		monitoring.Logf("dropped")
	})
	monitoring.Logf("kept")

	if len(got) != 1 || got[0] != "kept" {
		t.Errorf("got %v, want [kept]", got)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := WriteFile(t, dir, filepath.Join("nested", "roll.csv"), "millis,x,y,z\n")

	if path != filepath.Join(dir, "nested", "roll.csv") {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read back: %v", err)
	}
	if string(data) != "millis,x,y,z\n" {
		t.Errorf("content = %q", data)
	}
}
