// Package remote mirrors local module trees into a hierarchical remote store addressed by folder ids.
package remote

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
)

// RootID is the id of the root folder of the remote store.
const RootID = "root"

var (
	// ErrNotFound is returned when a folder or file does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTransient is matched by errors of remote operations that kept failing after all retries.
	ErrTransient = errors.New("transient remote error")
)

// Entry describes a child of a remote folder.
type Entry struct {
	ID        string
	Name      string
	IsFolder  bool
	Size      int64
	CreatedAt time.Time
}

// Folder is a resolved remote folder.
type Folder struct {
	ID       string
	Name     string
	ParentID string
}

// Client is the capability surface of an authenticated remote store.
//
// Lookups by name return ErrNotFound (possibly wrapped) when nothing matches and only
// consider entries that have not been trashed. ListFolders returns at most limit
// subfolders of parentID in a single request.
type Client interface {
	FindFolder(ctx context.Context, name, parentID string) (string, error)
	CreateFolder(ctx context.Context, name, parentID string) (string, error)
	ListChildren(ctx context.Context, parentID string) ([]Entry, error)
	ListFolders(ctx context.Context, parentID string, limit int) ([]Entry, error)
	FindFile(ctx context.Context, name, parentID string) (string, error)
	CreateFile(ctx context.Context, name, parentID string, data io.Reader) (string, error)
	UpdateFile(ctx context.Context, fileID string, data io.Reader) error
	DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error)
	DeleteFolder(ctx context.Context, folderID string) error
}

// StatusError is an error reported by the transport together with its HTTP status code.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v (HTTP %v)", e.Err, e.Code)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code carried by err or 0 if none is available.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}

	return 0
}

// TransientError is returned when an operation failed on every attempt.
type TransientError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%v failed after %v attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTransient) succeed.
func (e *TransientError) Is(target error) bool {
	return target == ErrTransient //nolint:errorlint
}
