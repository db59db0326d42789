package util

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// CreateTempFile returns a scratch file path for a disk-backed test and a
// cleanup func, in the same shape as the teacher's CreateTempFile helper.
func CreateTempFile(t *testing.T) (string, func()) {
	t.Helper()
	tempDir := t.TempDir()
	tempFile := filepath.Join(tempDir, fmt.Sprintf("latchdb-test-%d.dat", rand.Intn(100_000)))
	return tempFile, func() {
		os.Remove(tempFile)
	}
}
