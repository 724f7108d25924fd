// Package security guards the files a replay writes.
package security

import (
	"fmt"
	"path/filepath"
)

// CanonicalPath returns the absolute, symlink-resolved form of path. When path
// does not exist yet, the nearest existing parent is resolved and the
// remaining components are joined back on.
func CanonicalPath(path string) (string, error) {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved, nil
	}

	// Walk up until an existing directory is found, so that a missing file
	// under a symlinked directory still maps to its real location.
	checkPath := absPath
	for {
		parentDir := filepath.Dir(checkPath)
		if parentDir == checkPath {
			return absPath, nil
		}
		if resolved, err := filepath.EvalSymlinks(parentDir); err == nil {
			rel, err := filepath.Rel(parentDir, absPath)
			if err != nil {
				return "", fmt.Errorf("failed to resolve %s: %w", path, err)
			}
			return filepath.Join(resolved, rel), nil
		}
		checkPath = parentDir
	}
}

// ValidateOutputPaths rejects outputs that would overwrite the input or each
// other. Empty outputs are ignored.
func ValidateOutputPaths(input string, outputs ...string) error {
	inPath, err := CanonicalPath(input)
	if err != nil {
		return err
	}

	seen := make(map[string]string)
	for _, out := range outputs {
		if out == "" {
			continue
		}
		outPath, err := CanonicalPath(out)
		if err != nil {
			return err
		}
		if outPath == inPath {
			return fmt.Errorf("output %s would overwrite input %s", out, input)
		}
		if prev, ok := seen[outPath]; ok {
			return fmt.Errorf("output %s collides with %s", out, prev)
		}
		seen[outPath] = out
	}
	return nil
}
