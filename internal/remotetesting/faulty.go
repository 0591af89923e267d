package remotetesting

import (
	"context"
	"io"
	"sync"

	"github.com/steamvault/steamvault/logging"
	"github.com/steamvault/steamvault/remote"
)

var log = logging.Module("faulty-remote")

// Fault describes the behavior of a single faulty call.
type Fault struct {
	Repeat int // number of additional times the fault fires
	Err    error

	// Before, when set, is invoked before the fault is returned.
	Before func()
}

// Method names understood by FaultyClient.
const (
	MethodFindFolder   = "FindFolder"
	MethodCreateFolder = "CreateFolder"
	MethodListChildren = "ListChildren"
	MethodListFolders  = "ListFolders"
	MethodFindFile     = "FindFile"
	MethodCreateFile   = "CreateFile"
	MethodUpdateFile   = "UpdateFile"
	MethodDownloadFile = "DownloadFile"
	MethodDeleteFolder = "DeleteFolder"
)

// FaultyClient wraps a remote.Client and injects faults into its methods.
// It also counts how many times each method has been called.
type FaultyClient struct {
	Base   remote.Client
	Faults map[string][]*Fault

	mu    sync.Mutex
	calls map[string]int
}

// NewFaultyClient returns a FaultyClient with no faults.
func NewFaultyClient(base remote.Client) *FaultyClient {
	return &FaultyClient{Base: base, Faults: map[string][]*Fault{}}
}

// AddFault appends a fault for the given method and returns it so it can be customized.
func (c *FaultyClient) AddFault(method string, err error) *Fault {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Faults == nil {
		c.Faults = map[string][]*Fault{}
	}

	f := &Fault{Err: err}
	c.Faults[method] = append(c.Faults[method], f)

	return f
}

// Calls returns the number of times the given method was called.
func (c *FaultyClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calls[method]
}

// FindFolder implements remote.Client.
func (c *FaultyClient) FindFolder(ctx context.Context, name, parentID string) (string, error) {
	if err := c.getNextFault(ctx, MethodFindFolder, name, parentID); err != nil {
		return "", err
	}

	return c.Base.FindFolder(ctx, name, parentID)
}

// CreateFolder implements remote.Client.
func (c *FaultyClient) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	if err := c.getNextFault(ctx, MethodCreateFolder, name, parentID); err != nil {
		return "", err
	}

	return c.Base.CreateFolder(ctx, name, parentID)
}

// ListChildren implements remote.Client.
func (c *FaultyClient) ListChildren(ctx context.Context, parentID string) ([]remote.Entry, error) {
	if err := c.getNextFault(ctx, MethodListChildren, parentID); err != nil {
		return nil, err
	}

	return c.Base.ListChildren(ctx, parentID)
}

// ListFolders implements remote.Client.
func (c *FaultyClient) ListFolders(ctx context.Context, parentID string, limit int) ([]remote.Entry, error) {
	if err := c.getNextFault(ctx, MethodListFolders, parentID, limit); err != nil {
		return nil, err
	}

	return c.Base.ListFolders(ctx, parentID, limit)
}

// FindFile implements remote.Client.
func (c *FaultyClient) FindFile(ctx context.Context, name, parentID string) (string, error) {
	if err := c.getNextFault(ctx, MethodFindFile, name, parentID); err != nil {
		return "", err
	}

	return c.Base.FindFile(ctx, name, parentID)
}

// CreateFile implements remote.Client.
func (c *FaultyClient) CreateFile(ctx context.Context, name, parentID string, data io.Reader) (string, error) {
	if err := c.getNextFault(ctx, MethodCreateFile, name, parentID); err != nil {
		return "", err
	}

	return c.Base.CreateFile(ctx, name, parentID, data)
}

// UpdateFile implements remote.Client.
func (c *FaultyClient) UpdateFile(ctx context.Context, fileID string, data io.Reader) error {
	if err := c.getNextFault(ctx, MethodUpdateFile, fileID); err != nil {
		return err
	}

	return c.Base.UpdateFile(ctx, fileID, data)
}

// DownloadFile implements remote.Client.
func (c *FaultyClient) DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	if err := c.getNextFault(ctx, MethodDownloadFile, fileID); err != nil {
		return nil, err
	}

	return c.Base.DownloadFile(ctx, fileID)
}

// DeleteFolder implements remote.Client.
func (c *FaultyClient) DeleteFolder(ctx context.Context, folderID string) error {
	if err := c.getNextFault(ctx, MethodDeleteFolder, folderID); err != nil {
		return err
	}

	return c.Base.DeleteFolder(ctx, folderID)
}

func (c *FaultyClient) getNextFault(ctx context.Context, method string, args ...any) error {
	c.mu.Lock()

	if c.calls == nil {
		c.calls = map[string]int{}
	}

	c.calls[method]++

	faults := c.Faults[method]
	if len(faults) == 0 {
		c.mu.Unlock()
		log(ctx).Debugf("no faults for %v %v", method, args)

		return nil
	}

	f := faults[0]
	if f.Repeat > 0 {
		f.Repeat--
		log(ctx).Debugf("will repeat %v more times the fault for %v %v", f.Repeat, method, args)
	} else {
		c.Faults[method] = faults[1:]
	}
	c.mu.Unlock()

	if f.Before != nil {
		f.Before()
	}

	log(ctx).Debugf("returning %v for %v %v", f.Err, method, args)

	return f.Err
}

var _ remote.Client = (*FaultyClient)(nil)
