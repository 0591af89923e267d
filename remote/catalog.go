package remote

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// BackupInstance is a single snapshot folder inside the remote vault.
type BackupInstance struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Catalog enumerates backup instances stored below a top-level vault folder.
type Catalog struct {
	client Client
	rootID string
}

// NewCatalog returns a catalog of vault folders located below rootID.
func NewCatalog(c Client, rootID string) *Catalog {
	if rootID == "" {
		rootID = RootID
	}

	return &Catalog{client: c, rootID: rootID}
}

// ListBackups returns backup instances found in the vault folder named rootName, newest first.
// A missing vault folder yields an empty list.
func (c *Catalog) ListBackups(ctx context.Context, rootName string) ([]BackupInstance, error) {
	vaultID, err := c.client.FindFolder(ctx, rootName, c.rootID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, errors.Wrapf(err, "unable to find %v", rootName)
	}

	children, err := c.client.ListChildren(ctx, vaultID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, errors.Wrapf(err, "unable to list %v", rootName)
	}

	var result []BackupInstance

	for _, e := range children {
		if !e.IsFolder {
			continue
		}

		result = append(result, BackupInstance{ID: e.ID, Name: e.Name, CreatedAt: e.CreatedAt})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}

		return result[i].Name > result[j].Name
	})

	return result, nil
}

// Latest returns the newest backup instance or ErrNotFound.
func (c *Catalog) Latest(ctx context.Context, rootName string) (BackupInstance, error) {
	list, err := c.ListBackups(ctx, rootName)
	if err != nil {
		return BackupInstance{}, err
	}

	if len(list) == 0 {
		return BackupInstance{}, ErrNotFound
	}

	return list[0], nil
}

// Delete removes a backup instance together with its contents.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	return errors.Wrapf(c.client.DeleteFolder(ctx, id), "unable to delete backup %v", id)
}
