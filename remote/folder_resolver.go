package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/steamvault/steamvault/cancel"
	"github.com/steamvault/steamvault/internal/retry"
	"github.com/steamvault/steamvault/logging"
)

var log = logging.Module("remote")

// Defaults for folder creation retries.
const (
	DefaultCreateAttempts = 3
	DefaultCreateDelay    = time.Second
)

var errEmptyResponse = errors.New("empty response from remote store")

// ResolverOptions configures a FolderResolver.
type ResolverOptions struct {
	CreateAttempts int
	CreateDelay    time.Duration
	Clock          clockwork.Clock
}

// FolderResolver finds or creates named folders below a parent.
//
// Resolved folders are remembered for the lifetime of the resolver, which is meant to
// be a single operation. It performs no locking, callers must not resolve the same
// name and parent concurrently.
type FolderResolver struct {
	client   Client
	out      *logging.Emitter
	clock    clockwork.Clock
	attempts int
	delay    time.Duration

	resolved map[folderKey]Folder
}

type folderKey struct {
	parentID string
	name     string
}

// NewFolderResolver creates a FolderResolver using the provided client.
func NewFolderResolver(c Client, out *logging.Emitter, opt ResolverOptions) *FolderResolver {
	if opt.CreateAttempts <= 0 {
		opt.CreateAttempts = DefaultCreateAttempts
	}

	if opt.CreateDelay <= 0 {
		opt.CreateDelay = DefaultCreateDelay
	}

	if opt.Clock == nil {
		opt.Clock = clockwork.NewRealClock()
	}

	return &FolderResolver{
		client:   c,
		out:      out,
		clock:    opt.Clock,
		attempts: opt.CreateAttempts,
		delay:    opt.CreateDelay,
		resolved: map[folderKey]Folder{},
	}
}

// FindFolder returns the id of the first folder with the given name below parentID or ErrNotFound.
func (r *FolderResolver) FindFolder(ctx context.Context, name, parentID string) (string, error) {
	id, err := r.client.FindFolder(ctx, name, parentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log(ctx).Debugf("folder %q not found in %v", name, parentID)
			return "", ErrNotFound
		}

		return "", errors.Wrapf(err, "unable to find folder %q", name)
	}

	log(ctx).Debugf("folder %q found in %v: %v", name, parentID, id)

	return id, nil
}

// CreateFolder creates a folder, retrying failed attempts after a fixed delay.
//
// The token is checked before every attempt and a stopped token ends the call with
// cancel.ErrCancelled. When every attempt fails the error matches ErrTransient.
func (r *FolderResolver) CreateFolder(ctx context.Context, name, parentID string, token *cancel.Token) (string, error) {
	attempt := 0

	id, err := retry.Periodically(ctx, r.clock, r.delay, r.attempts, fmt.Sprintf("create folder %q", name), func() (string, error) {
		if err := token.Check(); err != nil {
			r.out.Infof("Creation of folder '%v' interrupted", name)
			return "", err
		}

		attempt++

		id, err := r.client.CreateFolder(ctx, name, parentID)
		if err != nil {
			r.out.Warnf("Attempt %v/%v: error creating folder '%v': %v", attempt, r.attempts, name, err)
			return "", err
		}

		if id == "" {
			return "", errEmptyResponse
		}

		return id, nil
	}, isRetriableCreateError)

	switch {
	case err == nil:
		r.out.Successf("Folder '%v' created", name)
		r.remember(Folder{ID: id, Name: name, ParentID: parentID})

		return id, nil

	case cancel.IsCancelled(err), errors.Is(err, errEmptyResponse), ctx.Err() != nil:
		return "", err

	default:
		r.out.Errorf("Permanent failure creating folder '%v' after %v attempts", name, attempt)

		return "", &TransientError{
			Op:       fmt.Sprintf("create folder %q", name),
			Attempts: attempt,
			Err:      errors.Cause(err),
		}
	}
}

// EnsureFolder returns the id of the named folder below parentID, creating it when missing.
func (r *FolderResolver) EnsureFolder(ctx context.Context, name, parentID string, token *cancel.Token) (string, error) {
	if f, ok := r.resolved[folderKey{parentID, name}]; ok {
		return f.ID, nil
	}

	if err := token.Check(); err != nil {
		return "", err
	}

	id, err := r.FindFolder(ctx, name, parentID)

	switch {
	case err == nil:
		r.remember(Folder{ID: id, Name: name, ParentID: parentID})
		return id, nil

	case errors.Is(err, ErrNotFound):
		return r.CreateFolder(ctx, name, parentID, token)

	default:
		return "", err
	}
}

// EnsurePath resolves a sequence of nested folder names below parentID one segment at a time
// and returns the id of the innermost folder.
func (r *FolderResolver) EnsurePath(ctx context.Context, parentID string, segments []string, token *cancel.Token) (string, error) {
	id := parentID

	for _, s := range segments {
		next, err := r.EnsureFolder(ctx, s, id, token)
		if err != nil {
			return "", err
		}

		id = next
	}

	return id, nil
}

// Resolved returns the folder handle remembered for name below parentID.
func (r *FolderResolver) Resolved(name, parentID string) (Folder, bool) {
	f, ok := r.resolved[folderKey{parentID, name}]
	return f, ok
}

func (r *FolderResolver) remember(f Folder) {
	r.resolved[folderKey{f.ParentID, f.Name}] = f
}

func isRetriableCreateError(err error) bool {
	return !cancel.IsCancelled(err) && !errors.Is(err, errEmptyResponse)
}
