package remote

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/steamvault/steamvault/cancel"
	"github.com/steamvault/steamvault/internal/atomicfile"
	"github.com/steamvault/steamvault/logging"
)

// TreeMirror transfers local directory trees to and from remote folders.
//
// Uploads tolerate failures of individual files, downloads stop at the first failure.
type TreeMirror struct {
	client  Client
	folders *FolderResolver
	fs      afero.Fs
	out     *logging.Emitter
}

// NewTreeMirror returns a TreeMirror resolving remote subfolders through the provided resolver.
// Local files are read and written through fsys, which defaults to the OS filesystem.
func NewTreeMirror(c Client, folders *FolderResolver, fsys afero.Fs, out *logging.Emitter) *TreeMirror {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	return &TreeMirror{client: c, folders: folders, fs: fsys, out: out}
}

// Upload recreates the tree rooted at localDir below the remote folder remoteRootID.
// It returns false when the token was stopped or a remote folder could not be resolved.
func (m *TreeMirror) Upload(ctx context.Context, localDir, remoteRootID string, token *cancel.Token) bool {
	err := m.uploadDir(ctx, localDir, remoteRootID, token)

	switch {
	case err == nil:
		return true
	case cancel.IsCancelled(err):
		m.out.Infof("Upload interrupted by user")
	default:
		m.out.Errorf("Folder upload failed: %v", err)
	}

	return false
}

func (m *TreeMirror) uploadDir(ctx context.Context, localDir, folderID string, token *cancel.Token) error {
	if err := token.Check(); err != nil {
		return err
	}

	entries, err := afero.ReadDir(m.fs, localDir)
	if err != nil {
		return errors.Wrapf(err, "unable to read %v", localDir)
	}

	var subdirs []string

	for _, e := range entries {
		if e.IsDir() {
			subdirs = append(subdirs, e.Name())
			continue
		}

		err := m.uploadFile(ctx, filepath.Join(localDir, e.Name()), folderID, e.Name(), token)
		if cancel.IsCancelled(err) {
			return err
		}
		// other upload errors have been reported and do not stop the walk.
	}

	for _, name := range subdirs {
		if err := token.Check(); err != nil {
			return err
		}

		subID, err := m.folders.EnsureFolder(ctx, name, folderID, token)
		if err != nil {
			if !cancel.IsCancelled(err) {
				m.out.Errorf("Failed to create subfolder %v", name)
			}

			return errors.Wrapf(err, "subfolder %v", name)
		}

		if err := m.uploadDir(ctx, filepath.Join(localDir, name), subID, token); err != nil {
			return err
		}
	}

	return nil
}

// UploadFile uploads a single local file under the given name, replacing a file
// of the same name in the folder if there is one.
func (m *TreeMirror) UploadFile(ctx context.Context, localPath, folderID, name string, token *cancel.Token) bool {
	return m.uploadFile(ctx, localPath, folderID, name, token) == nil
}

func (m *TreeMirror) uploadFile(ctx context.Context, localPath, folderID, name string, token *cancel.Token) error {
	if err := token.Check(); err != nil {
		m.out.Infof("Upload interrupted before %v", name)
		return err
	}

	if err := m.createOrReplace(ctx, localPath, folderID, name); err != nil {
		m.out.Errorf("Upload of file %v failed: %v", name, err)
		return err
	}

	return nil
}

func (m *TreeMirror) createOrReplace(ctx context.Context, localPath, folderID, name string) error {
	f, err := m.fs.Open(localPath)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	defer f.Close() //nolint:errcheck

	existingID, err := m.client.FindFile(ctx, name, folderID)

	switch {
	case err == nil:
		if err := m.client.UpdateFile(ctx, existingID, f); err != nil {
			return errors.Wrap(err, "update")
		}

		log(ctx).Debugf("replaced %v (%v) in %v", name, existingID, folderID)
		m.out.Emit(logging.TagUpload, "%v updated (replaced)", name)

	case errors.Is(err, ErrNotFound):
		id, err := m.client.CreateFile(ctx, name, folderID, f)
		if err != nil {
			return errors.Wrap(err, "create")
		}

		log(ctx).Debugf("created %v (%v) in %v", name, id, folderID)
		m.out.Emit(logging.TagUpload, "%v uploaded", name)

	default:
		return errors.Wrap(err, "lookup")
	}

	return nil
}

// Download recreates the remote folder tree below localDestDir.
// It returns false on the first failure or when the token was stopped.
func (m *TreeMirror) Download(ctx context.Context, remoteFolderID, localDestDir string, token *cancel.Token) bool {
	err := m.downloadDir(ctx, remoteFolderID, localDestDir, token)

	switch {
	case err == nil:
		return true
	case cancel.IsCancelled(err):
		m.out.Infof("Download interrupted by user")
	default:
		m.out.Errorf("Folder download failed: %v", err)
	}

	return false
}

func (m *TreeMirror) downloadDir(ctx context.Context, folderID, localDir string, token *cancel.Token) error {
	if err := token.Check(); err != nil {
		return err
	}

	children, err := m.client.ListChildren(ctx, folderID)
	if err != nil {
		return errors.Wrapf(err, "unable to list folder %v", folderID)
	}

	if err := m.fs.MkdirAll(localDir, dirMode); err != nil {
		return errors.Wrap(err, "unable to create local directory")
	}

	for _, c := range children {
		if err := token.Check(); err != nil {
			return err
		}

		if !isSafeName(c.Name) {
			return errors.Errorf("refusing to download entry with invalid name %q", c.Name)
		}

		target := filepath.Join(localDir, c.Name)

		if c.IsFolder {
			if err := m.downloadDir(ctx, c.ID, target, token); err != nil {
				return err
			}

			continue
		}

		if err := m.downloadFile(ctx, c.ID, target); err != nil {
			return errors.Wrapf(err, "file %v", c.Name)
		}

		m.out.Emit(logging.TagDownload, "%v downloaded", c.Name)
	}

	return nil
}

func (m *TreeMirror) downloadFile(ctx context.Context, fileID, target string) error {
	rc, err := m.client.DownloadFile(ctx, fileID)
	if err != nil {
		return errors.Wrap(err, "download")
	}
	defer rc.Close() //nolint:errcheck

	return errors.Wrap(writeFile(m.fs, target, rc), "write")
}

// writeFile replaces filename atomically. Files on the OS filesystem go through atomicfile,
// other filesystems use a temporary file renamed into place.
func writeFile(fsys afero.Fs, filename string, r io.Reader) error {
	if _, ok := fsys.(*afero.OsFs); ok {
		//nolint:wrapcheck
		return atomicfile.WriteWithMode(filename, r, fileMode)
	}

	return writeFileAtomic(fsys, filename, r)
}

// writeFileAtomic writes the contents of r to a temporary file next to filename and renames
// it into place, so that an interrupted download never leaves a truncated file behind.
func writeFileAtomic(fsys afero.Fs, filename string, r io.Reader) error {
	dir, base := filepath.Split(filename)

	f, err := afero.TempFile(fsys, dir, "."+base+".tmp")
	if err != nil {
		return errors.Wrap(err, "create temporary file")
	}

	tmpName := f.Name()

	if _, err := io.Copy(f, r); err != nil {
		f.Close()            //nolint:errcheck
		fsys.Remove(tmpName) //nolint:errcheck

		return errors.Wrap(err, "copy contents")
	}

	if err := f.Close(); err != nil {
		fsys.Remove(tmpName) //nolint:errcheck
		return errors.Wrap(err, "close temporary file")
	}

	if err := fsys.Chmod(tmpName, fileMode); err != nil {
		fsys.Remove(tmpName) //nolint:errcheck
		return errors.Wrap(err, "set file mode")
	}

	if err := fsys.Rename(tmpName, filename); err != nil {
		fsys.Remove(tmpName) //nolint:errcheck
		return errors.Wrap(err, "rename temporary file")
	}

	return nil
}

const (
	dirMode  = 0o755
	fileMode = 0o644
)

// isSafeName rejects names that would escape the directory they are written to.
func isSafeName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}

	return !strings.ContainsAny(name, `/\`)
}
