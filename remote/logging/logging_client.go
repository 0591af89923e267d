// Package logging implements wrapper around remote.Client that logs all activity.
package logging

import (
	"context"
	"io"
	"time"

	"github.com/steamvault/steamvault/remote"
)

type loggingClient struct {
	base   remote.Client
	printf func(string, ...interface{})
	prefix string
}

func (s *loggingClient) FindFolder(ctx context.Context, name, parentID string) (string, error) {
	t0 := time.Now()
	id, err := s.base.FindFolder(ctx, name, parentID)
	s.printf(s.prefix+"FindFolder(%q,%q)=(%q, %v) took %v", name, parentID, id, err, time.Since(t0))

	//nolint:wrapcheck
	return id, err
}

func (s *loggingClient) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	t0 := time.Now()
	id, err := s.base.CreateFolder(ctx, name, parentID)
	s.printf(s.prefix+"CreateFolder(%q,%q)=(%q, %v) took %v", name, parentID, id, err, time.Since(t0))

	//nolint:wrapcheck
	return id, err
}

func (s *loggingClient) ListChildren(ctx context.Context, parentID string) ([]remote.Entry, error) {
	t0 := time.Now()
	entries, err := s.base.ListChildren(ctx, parentID)
	s.printf(s.prefix+"ListChildren(%q)=%v returned %v items and took %v", parentID, err, len(entries), time.Since(t0))

	//nolint:wrapcheck
	return entries, err
}

func (s *loggingClient) ListFolders(ctx context.Context, parentID string, limit int) ([]remote.Entry, error) {
	t0 := time.Now()
	entries, err := s.base.ListFolders(ctx, parentID, limit)
	s.printf(s.prefix+"ListFolders(%q,%v)=%v returned %v items and took %v", parentID, limit, err, len(entries), time.Since(t0))

	//nolint:wrapcheck
	return entries, err
}

func (s *loggingClient) FindFile(ctx context.Context, name, parentID string) (string, error) {
	t0 := time.Now()
	id, err := s.base.FindFile(ctx, name, parentID)
	s.printf(s.prefix+"FindFile(%q,%q)=(%q, %v) took %v", name, parentID, id, err, time.Since(t0))

	//nolint:wrapcheck
	return id, err
}

func (s *loggingClient) CreateFile(ctx context.Context, name, parentID string, data io.Reader) (string, error) {
	cr := &countingReader{r: data}

	t0 := time.Now()
	id, err := s.base.CreateFile(ctx, name, parentID, cr)
	s.printf(s.prefix+"CreateFile(%q,%q,len=%v)=(%q, %v) took %v", name, parentID, cr.n, id, err, time.Since(t0))

	//nolint:wrapcheck
	return id, err
}

func (s *loggingClient) UpdateFile(ctx context.Context, fileID string, data io.Reader) error {
	cr := &countingReader{r: data}

	t0 := time.Now()
	err := s.base.UpdateFile(ctx, fileID, cr)
	s.printf(s.prefix+"UpdateFile(%q,len=%v)=%v took %v", fileID, cr.n, err, time.Since(t0))

	//nolint:wrapcheck
	return err
}

func (s *loggingClient) DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	t0 := time.Now()
	rc, err := s.base.DownloadFile(ctx, fileID)
	s.printf(s.prefix+"DownloadFile(%q)=%v took %v", fileID, err, time.Since(t0))

	//nolint:wrapcheck
	return rc, err
}

func (s *loggingClient) DeleteFolder(ctx context.Context, folderID string) error {
	t0 := time.Now()
	err := s.base.DeleteFolder(ctx, folderID)
	s.printf(s.prefix+"DeleteFolder(%q)=%v took %v", folderID, err, time.Since(t0))

	//nolint:wrapcheck
	return err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)

	//nolint:wrapcheck
	return n, err
}

// NewWrapper returns a Client wrapper that logs all remote calls.
func NewWrapper(wrapped remote.Client, printf func(msg string, args ...interface{}), prefix string) remote.Client {
	return &loggingClient{base: wrapped, printf: printf, prefix: prefix}
}
