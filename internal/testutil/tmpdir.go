// Package testutil contains test utilities.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TempDirectory returns a temporary directory and cleans it up before test
// completes, leaving it behind if the test failed.
func TempDirectory(t *testing.T) string {
	t.Helper()

	d, err := os.MkdirTemp("", "steamvault-test")
	require.NoError(t, err)

	t.Cleanup(func() {
		if !t.Failed() {
			os.RemoveAll(d) //nolint:errcheck
		} else {
			t.Logf("temporary files left in %v", d)
		}
	})

	return d
}

// WriteFiles creates files with the given contents below root, creating directories as needed.
// Keys are slash-separated relative paths.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for rel, contents := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(contents), 0o600))
	}
}

// ReadTree returns contents of all regular files below root keyed by slash-separated relative path.
// A missing root yields an empty map.
func ReadTree(t *testing.T, root string) map[string]string {
	t.Helper()

	result := map[string]string{}

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if os.IsNotExist(err) && path == root {
			return filepath.SkipDir
		}

		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		b, err := os.ReadFile(path) //nolint:gosec
		if err != nil {
			return err
		}

		result[filepath.ToSlash(rel)] = string(b)

		return nil
	})
	require.NoError(t, err)

	return result
}
