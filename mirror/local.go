// Package mirror copies module directory trees between two locations of a local filesystem.
package mirror

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/steamvault/steamvault/cancel"
	"github.com/steamvault/steamvault/logging"
)

var log = logging.Module("mirror")

const dirMode = 0o755

// Result summarizes a single Copy call.
type Result struct {
	Copied    int
	Failed    int
	Skipped   bool // source did not exist
	Cancelled bool
}

// Local mirrors directory trees on a filesystem, overwriting destination files unconditionally.
type Local struct {
	fs  afero.Fs
	out *logging.Emitter
}

// NewLocal returns a Local mirror operating on the provided filesystem, which defaults to the OS filesystem.
func NewLocal(fsys afero.Fs, out *logging.Emitter) *Local {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	return &Local{fs: fsys, out: out}
}

// FS returns the filesystem used by the mirror.
func (m *Local) FS() afero.Fs {
	return m.fs
}

// Copy recreates the tree rooted at sourceDir below destDir.
//
// A missing source is reported and skipped, a source without any files is ignored silently.
// Failure to copy an individual file is reported and does not stop the walk. The token is
// checked before each directory and each file, and a stopped token ends the walk early
// leaving already copied files in place.
func (m *Local) Copy(ctx context.Context, sourceDir, destDir, label string, token *cancel.Token) Result {
	var res Result

	exists, err := afero.DirExists(m.fs, sourceDir)
	if err != nil || !exists {
		m.out.Infof("%v: not found, skipped", label)

		res.Skipped = true

		return res
	}

	if countFiles(m.fs, sourceDir) == 0 {
		log(ctx).Debugf("%v has no files, nothing to do", sourceDir)
		return res
	}

	m.out.Progressf("PROCESSING: %v...", label)

	if err := m.fs.MkdirAll(destDir, dirMode); err != nil {
		log(ctx).Debugf("unable to create %v: %v", destDir, err)
	}

	if !m.copyDir(ctx, sourceDir, destDir, token, &res) {
		res.Cancelled = true

		return res
	}

	m.out.Successf("%v archived (%v files)", label, res.Copied)

	return res
}

// copyDir copies files of src into dst and then descends into subdirectories.
// It returns false when the token was stopped.
func (m *Local) copyDir(ctx context.Context, src, dst string, token *cancel.Token, res *Result) bool {
	if token.Stopped() {
		return false
	}

	if err := m.fs.MkdirAll(dst, dirMode); err != nil {
		log(ctx).Debugf("unable to create directory %v: %v", dst, err)
	}

	entries, err := afero.ReadDir(m.fs, src)
	if err != nil {
		m.out.Errorf("Failed: %v - %v", filepath.Base(src), err)
		res.Failed++

		return true
	}

	var subdirs []os.FileInfo

	for _, e := range entries {
		if e.IsDir() {
			subdirs = append(subdirs, e)
			continue
		}

		if token.Stopped() {
			return false
		}

		if err := copyFile(m.fs, filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			m.out.Errorf("Failed: %v - %v", e.Name(), err)
			res.Failed++

			continue
		}

		res.Copied++
	}

	for _, d := range subdirs {
		if !m.copyDir(ctx, filepath.Join(src, d.Name()), filepath.Join(dst, d.Name()), token, res) {
			return false
		}
	}

	return true
}

// CopyFile copies a single file, creating the parent directory of dst.
// It returns false without an error when src does not exist.
func (m *Local) CopyFile(ctx context.Context, src, dst string, token *cancel.Token) (bool, error) {
	if err := token.Check(); err != nil {
		return false, err
	}

	st, err := m.fs.Stat(src)
	if os.IsNotExist(err) {
		return false, nil
	}

	if err != nil {
		return false, errors.Wrap(err, "stat")
	}

	if st.IsDir() {
		return false, errors.Errorf("%v is a directory", src)
	}

	if err := m.fs.MkdirAll(filepath.Dir(dst), dirMode); err != nil {
		log(ctx).Debugf("unable to create directory for %v: %v", dst, err)
	}

	if err := copyFile(m.fs, src, dst); err != nil {
		return false, err
	}

	return true, nil
}

// copyFile copies contents, permissions and modification time of src to dst, replacing dst.
func copyFile(fsys afero.Fs, src, dst string) error {
	in, err := fsys.Open(src)
	if err != nil {
		return errors.Wrap(err, "open source")
	}
	defer in.Close() //nolint:errcheck

	st, err := in.Stat()
	if err != nil {
		return errors.Wrap(err, "stat source")
	}

	out, err := fsys.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, st.Mode().Perm())
	if err != nil {
		return errors.Wrap(err, "create destination")
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close() //nolint:errcheck
		return errors.Wrap(err, "copy contents")
	}

	if err := out.Close(); err != nil {
		return errors.Wrap(err, "close destination")
	}

	if err := fsys.Chmod(dst, st.Mode().Perm()); err != nil {
		return errors.Wrap(err, "set permissions")
	}

	return errors.Wrap(fsys.Chtimes(dst, st.ModTime(), st.ModTime()), "set modification time")
}

// countFiles returns the number of non-directory entries below dir, ignoring unreadable directories.
func countFiles(fsys afero.Fs, dir string) int {
	n := 0

	//nolint:errcheck
	afero.Walk(fsys, dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil //nolint:nilerr
		}

		if !info.IsDir() {
			n++
		}

		return nil
	})

	return n
}
