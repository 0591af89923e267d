// Package remotetesting provides in-memory remote store implementations for tests.
package remotetesting

import (
	"bytes"
	"context"
	"io"
	"path"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/steamvault/steamvault/remote"
)

type node struct {
	entry    remote.Entry
	parentID string
	data     []byte
}

// MapClient is an in-memory remote.Client. Like the real store it allows several
// entries with the same name in one folder.
type MapClient struct {
	clock clockwork.Clock

	mu    sync.RWMutex
	nodes map[string]*node
	order []string // ids in creation order
}

// NewMapClient returns an empty MapClient stamping entries with times from the provided clock.
func NewMapClient(clk clockwork.Clock) *MapClient {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}

	return &MapClient{
		clock: clk,
		nodes: map[string]*node{},
	}
}

// FindFolder implements remote.Client.
func (c *MapClient) FindFolder(ctx context.Context, name, parentID string) (string, error) {
	return c.find(name, parentID, true)
}

// FindFile implements remote.Client.
func (c *MapClient) FindFile(ctx context.Context, name, parentID string) (string, error) {
	return c.find(name, parentID, false)
}

func (c *MapClient) find(name, parentID string, folder bool) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, id := range c.order {
		n := c.nodes[id]
		if n.parentID == parentID && n.entry.Name == name && n.entry.IsFolder == folder {
			return id, nil
		}
	}

	return "", remote.ErrNotFound
}

// CreateFolder implements remote.Client.
func (c *MapClient) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	return c.add(name, parentID, true, nil)
}

// CreateFile implements remote.Client.
func (c *MapClient) CreateFile(ctx context.Context, name, parentID string, data io.Reader) (string, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return "", errors.Wrap(err, "read")
	}

	return c.add(name, parentID, false, b)
}

func (c *MapClient) add(name, parentID string, folder bool, data []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.folderExistsLocked(parentID) {
		return "", errors.Wrapf(remote.ErrNotFound, "parent %v", parentID)
	}

	id := uuid.NewString()

	c.nodes[id] = &node{
		entry: remote.Entry{
			ID:        id,
			Name:      name,
			IsFolder:  folder,
			Size:      int64(len(data)),
			CreatedAt: c.clock.Now(),
		},
		parentID: parentID,
		data:     data,
	}
	c.order = append(c.order, id)

	return id, nil
}

// UpdateFile implements remote.Client.
func (c *MapClient) UpdateFile(ctx context.Context, fileID string, data io.Reader) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return errors.Wrap(err, "read")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.nodes[fileID]
	if !ok || n.entry.IsFolder {
		return remote.ErrNotFound
	}

	n.data = b
	n.entry.Size = int64(len(b))

	return nil
}

// ListChildren implements remote.Client.
func (c *MapClient) ListChildren(ctx context.Context, parentID string) ([]remote.Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.folderExistsLocked(parentID) {
		return nil, remote.ErrNotFound
	}

	var result []remote.Entry

	for _, id := range c.order {
		if n := c.nodes[id]; n.parentID == parentID {
			result = append(result, n.entry)
		}
	}

	return result, nil
}

// ListFolders implements remote.Client.
func (c *MapClient) ListFolders(ctx context.Context, parentID string, limit int) ([]remote.Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.folderExistsLocked(parentID) {
		return nil, remote.ErrNotFound
	}

	var result []remote.Entry

	for _, id := range c.order {
		if len(result) >= limit {
			break
		}

		if n := c.nodes[id]; n.parentID == parentID && n.entry.IsFolder {
			result = append(result, n.entry)
		}
	}

	return result, nil
}

// DownloadFile implements remote.Client.
func (c *MapClient) DownloadFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n, ok := c.nodes[fileID]
	if !ok || n.entry.IsFolder {
		return nil, remote.ErrNotFound
	}

	return io.NopCloser(bytes.NewReader(append([]byte(nil), n.data...))), nil
}

// DeleteFolder implements remote.Client, removing the folder and everything below it.
func (c *MapClient) DeleteFolder(ctx context.Context, folderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.nodes[folderID]
	if !ok || !n.entry.IsFolder {
		return remote.ErrNotFound
	}

	doomed := map[string]bool{folderID: true}

	// children are always created after their parents so one pass in creation order is enough.
	for _, id := range c.order {
		if doomed[c.nodes[id].parentID] {
			doomed[id] = true
		}
	}

	var remaining []string

	for _, id := range c.order {
		if doomed[id] {
			delete(c.nodes, id)
			continue
		}

		remaining = append(remaining, id)
	}

	c.order = remaining

	return nil
}

// Files returns the contents of all files below folderID keyed by their slash-separated relative path.
func (c *MapClient) Files(folderID string) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := map[string]string{}
	prefix := map[string]string{folderID: ""}

	for _, id := range c.order {
		n := c.nodes[id]

		p, ok := prefix[n.parentID]
		if !ok {
			continue
		}

		rel := path.Join(p, n.entry.Name)

		if n.entry.IsFolder {
			prefix[id] = rel
			continue
		}

		result[rel] = string(n.data)
	}

	return result
}

// Count returns the number of entries stored in the client.
func (c *MapClient) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.nodes)
}

func (c *MapClient) folderExistsLocked(id string) bool {
	if id == remote.RootID {
		return true
	}

	n, ok := c.nodes[id]

	return ok && n.entry.IsFolder
}

var _ remote.Client = (*MapClient)(nil)
