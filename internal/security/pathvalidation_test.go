package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalPath(t *testing.T) {
	tmpDir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to resolve temp dir: %v", err)
	}

	realDir := filepath.Join(tmpDir, "real")
	if err := os.MkdirAll(realDir, 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	linkDir := filepath.Join(tmpDir, "link")
	if err := os.Symlink(realDir, linkDir); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"plain directory", realDir, realDir},
		{"dot segments", filepath.Join(realDir, "..", "real"), realDir},
		{"symlinked directory", linkDir, realDir},
		{"missing file under symlink", filepath.Join(linkDir, "out.csv"), filepath.Join(realDir, "out.csv")},
		{"missing nested directories", filepath.Join(linkDir, "a", "b", "out.csv"), filepath.Join(realDir, "a", "b", "out.csv")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalPath(tt.path)
			if err != nil {
				t.Fatalf("CanonicalPath(%q) error = %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("CanonicalPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestValidateOutputPaths(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "roll.csv")
	if err := os.WriteFile(input, []byte("millis,x,y,z\n"), 0644); err != nil {
		t.Fatalf("Failed to create input: %v", err)
	}
	link := filepath.Join(tmpDir, "alias.csv")
	if err := os.Symlink(input, link); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	tests := []struct {
		name      string
		outputs   []string
		wantError bool
	}{
		{"distinct outputs", []string{filepath.Join(tmpDir, "out.csv"), filepath.Join(tmpDir, "roll.png")}, false},
		{"empty outputs ignored", []string{"", filepath.Join(tmpDir, "out.csv"), ""}, false},
		{"output is input", []string{input}, true},
		{"output via dot segments", []string{filepath.Join(tmpDir, ".", "roll.csv")}, true},
		{"output via symlink", []string{link}, true},
		{"outputs collide", []string{filepath.Join(tmpDir, "out.csv"), filepath.Join(tmpDir, "out.csv")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputPaths(input, tt.outputs...)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateOutputPaths() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}
