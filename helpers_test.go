package aio

import (
	"os"
	"testing"
)

// tempFile creates an empty, writable temp file that is removed when the
// test completes.
func tempFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "aio-test-*")
	if err != nil {
		t.Fatalf("CreateTemp failed: %v", err)
	}
	return f
}
