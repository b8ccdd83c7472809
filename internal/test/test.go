// Package test provides filesystem helpers shared by the store test suites.
package test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// RecordPath returns the on-disk path of the record file for sid inside dir.
func RecordPath(dir, sid string) string {
	return filepath.Join(dir, sid+".json")
}

// WriteRecordFile writes raw bytes as the record file for sid, replacing
// whatever the store wrote. Useful for planting corrupt or foreign content.
func WriteRecordFile(t *testing.T, dir, sid string, raw []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(RecordPath(dir, sid), raw, 0o600))
}

// AssertFileExists checks if a file exists and fails the test if it doesn't.
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	require.NoError(t, err, "file should exist: %s", path)
}

// AssertFileNotExists checks if a file doesn't exist and fails the test if it does.
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	require.Error(t, err, "file should not exist: %s", path)
	require.True(t, os.IsNotExist(err), "expected file not to exist: %s", path)
}
