// Package atomicfile writes local files atomically so an interrupted write never leaves
// a truncated file at the destination path.
package atomicfile

import (
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/natefinch/atomic"
	"github.com/pkg/errors"
)

const (
	maxPathLength = 260
	dirMode       = 0o755
)

// MaybePrefixLongFilenameOnWindows prefixes the given filename with \\?\ on Windows
// if the filename is longer than 260 characters, which is required to be able to
// use some low-level Windows APIs.
func MaybePrefixLongFilenameOnWindows(fname string) string {
	if runtime.GOOS != "windows" {
		return fname
	}

	if len(fname) < maxPathLength {
		return fname
	}

	return "\\\\?\\" + fname
}

// Write replaces the contents of filename with data read from r, creating parent
// directories as needed.
func Write(filename string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(filename), dirMode); err != nil {
		return errors.Wrap(err, "unable to create parent directory")
	}

	return errors.Wrap(atomic.WriteFile(MaybePrefixLongFilenameOnWindows(filename), r), "atomic write")
}

// WriteWithMode is like Write, but a file that did not exist before is given the provided mode.
// Replaced files keep their existing mode.
func WriteWithMode(filename string, r io.Reader, perm os.FileMode) error {
	_, statErr := os.Stat(filename)

	if err := Write(filename, r); err != nil {
		return err
	}

	if !os.IsNotExist(statErr) {
		return nil
	}

	return errors.Wrap(os.Chmod(MaybePrefixLongFilenameOnWindows(filename), perm), "unable to set file mode")
}
