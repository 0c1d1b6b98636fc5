package pdf

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// resolveWithin makes path absolute and verifies it sits under baseDir.
// Both sides are resolved to absolute first so a relative base (the
// default out dir) compares correctly against an absolute candidate.
func resolveWithin(baseDir, path string) (string, error) {
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("resolve base dir %s: %w", baseDir, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("access denied: file must be within %s", baseDir)
	}
	return abs, nil
}

// OpenFile opens a rendered document in the OS default viewer. Only files
// under baseDir are allowed, which blocks path traversal from user input.
func OpenFile(baseDir, path string) error {
	abs, err := resolveWithin(baseDir, path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return err
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", abs)
	case "windows":
		cmd = exec.Command("cmd", "/C", "start", "", abs)
	default:
		cmd = exec.Command("xdg-open", abs)
	}
	return cmd.Start()
}
