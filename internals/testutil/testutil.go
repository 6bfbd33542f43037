package testutil

import (
	"path/filepath"
	"testing"
)

func TempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "tasks.db")
}

func TempKBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "seq2func.db")
}
