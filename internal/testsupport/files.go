package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes data to path, creating parent directories, and returns
// the file:// URL of the result.
func WriteFile(t testing.TB, path string, data []byte) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if len(data) == 0 {
		data = []byte{0x42}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		t.Fatalf("abs %s: %v", path, err)
	}
	return "file://" + filepath.ToSlash(abs)
}
