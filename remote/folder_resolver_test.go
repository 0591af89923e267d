package remote_test

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/steamvault/steamvault/cancel"
	"github.com/steamvault/steamvault/internal/remotetesting"
	"github.com/steamvault/steamvault/internal/testlogging"
	"github.com/steamvault/steamvault/logging"
	"github.com/steamvault/steamvault/remote"
)

var errBoom = &remote.StatusError{Code: 503, Err: errors.New("backend unavailable")}

func TestEnsureFolderIsIdempotent(t *testing.T) {
	ctx := testlogging.Context(t)
	mc := remotetesting.NewMapClient(clockwork.NewFakeClock())
	fc := remotetesting.NewFaultyClient(mc)

	sink, lines := testlogging.Sink(t)
	r := remote.NewFolderResolver(fc, logging.NewEmitter(sink), remote.ResolverOptions{})

	id1, err := r.EnsureFolder(ctx, "SteamVault", remote.RootID, cancel.NewToken())
	require.NoError(t, err)

	id2, err := r.EnsureFolder(ctx, "SteamVault", remote.RootID, cancel.NewToken())
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	require.Equal(t, 1, fc.Calls(remotetesting.MethodCreateFolder))
	require.Equal(t, 1, fc.Calls(remotetesting.MethodFindFolder))
	require.Contains(t, lines(), "[SUCESSO] Folder 'SteamVault' created")

	f, ok := r.Resolved("SteamVault", remote.RootID)
	require.True(t, ok)
	require.Equal(t, id1, f.ID)

	// a fresh resolver finds the existing folder instead of creating another one.
	r2 := remote.NewFolderResolver(fc, nil, remote.ResolverOptions{})

	id3, err := r2.EnsureFolder(ctx, "SteamVault", remote.RootID, cancel.NewToken())
	require.NoError(t, err)
	require.Equal(t, id1, id3)
	require.Equal(t, 1, fc.Calls(remotetesting.MethodCreateFolder))
}

func TestEnsurePath(t *testing.T) {
	ctx := testlogging.Context(t)
	mc := remotetesting.NewMapClient(nil)
	r := remote.NewFolderResolver(mc, nil, remote.ResolverOptions{})

	id, err := r.EnsurePath(ctx, remote.RootID, []string{"a", "b", "c"}, cancel.NewToken())
	require.NoError(t, err)

	b, ok := r.Resolved("b", mustFind(t, mc, "a", remote.RootID))
	require.True(t, ok)

	c, ok := r.Resolved("c", b.ID)
	require.True(t, ok)
	require.Equal(t, id, c.ID)
}

func TestCreateFolderRetriesThenSucceeds(t *testing.T) {
	ctx := testlogging.Context(t)
	fc := remotetesting.NewFaultyClient(remotetesting.NewMapClient(nil))
	fc.AddFault(remotetesting.MethodCreateFolder, errBoom)

	sink, lines := testlogging.Sink(t)
	r := remote.NewFolderResolver(fc, logging.NewEmitter(sink), remote.ResolverOptions{CreateDelay: time.Millisecond})

	id, err := r.CreateFolder(ctx, "USERDATA", remote.RootID, cancel.NewToken())
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, 2, fc.Calls(remotetesting.MethodCreateFolder))
	require.Equal(t, []string{
		"[AVISO] Attempt 1/3: error creating folder 'USERDATA': backend unavailable (HTTP 503)",
		"[SUCESSO] Folder 'USERDATA' created",
	}, lines())
}

func TestCreateFolderExhaustsRetries(t *testing.T) {
	ctx := testlogging.Context(t)
	clk := clockwork.NewFakeClock()
	fc := remotetesting.NewFaultyClient(remotetesting.NewMapClient(clk))

	var attemptTimes []time.Time

	f := fc.AddFault(remotetesting.MethodCreateFolder, errBoom)
	f.Repeat = 10
	f.Before = func() { attemptTimes = append(attemptTimes, clk.Now()) }

	sink, lines := testlogging.Sink(t)
	r := remote.NewFolderResolver(fc, logging.NewEmitter(sink), remote.ResolverOptions{Clock: clk})

	type result struct {
		id  string
		err error
	}

	done := make(chan result, 1)

	go func() {
		id, err := r.CreateFolder(ctx, "config", remote.RootID, cancel.NewToken())
		done <- result{id, err}
	}()

	for range 2 {
		clk.BlockUntil(1)
		clk.Advance(time.Second)
	}

	res := <-done

	require.Empty(t, res.id)
	require.ErrorIs(t, res.err, remote.ErrTransient)
	require.Equal(t, 503, remote.StatusCode(res.err))
	require.Contains(t, res.err.Error(), "after 3 attempts")
	require.Equal(t, 3, fc.Calls(remotetesting.MethodCreateFolder))

	require.Len(t, attemptTimes, 3)
	require.Equal(t, time.Second, attemptTimes[1].Sub(attemptTimes[0]))
	require.Equal(t, time.Second, attemptTimes[2].Sub(attemptTimes[1]))

	all := lines()
	require.Len(t, all, 4)
	require.Equal(t, "[ERRO] Permanent failure creating folder 'config' after 3 attempts", all[3])

	_, ok := r.Resolved("config", remote.RootID)
	require.False(t, ok)
}

func TestCreateFolderCancelledBetweenAttempts(t *testing.T) {
	ctx := testlogging.Context(t)
	fc := remotetesting.NewFaultyClient(remotetesting.NewMapClient(nil))
	token := cancel.NewToken()

	f := fc.AddFault(remotetesting.MethodCreateFolder, errBoom)
	f.Before = token.Stop

	sink, lines := testlogging.Sink(t)
	r := remote.NewFolderResolver(fc, logging.NewEmitter(sink), remote.ResolverOptions{CreateDelay: time.Millisecond})

	_, err := r.CreateFolder(ctx, "depotcache", remote.RootID, token)
	require.ErrorIs(t, err, cancel.ErrCancelled)
	require.NotErrorIs(t, err, remote.ErrTransient)
	require.Equal(t, 1, fc.Calls(remotetesting.MethodCreateFolder))
	require.Contains(t, lines(), "[INFO] Creation of folder 'depotcache' interrupted")
}

func TestEnsureFolderStoppedToken(t *testing.T) {
	ctx := testlogging.Context(t)
	fc := remotetesting.NewFaultyClient(remotetesting.NewMapClient(nil))
	token := cancel.NewToken()
	token.Stop()

	r := remote.NewFolderResolver(fc, nil, remote.ResolverOptions{})

	_, err := r.EnsureFolder(ctx, "x", remote.RootID, token)
	require.ErrorIs(t, err, cancel.ErrCancelled)
	require.Zero(t, fc.Calls(remotetesting.MethodFindFolder))
}

func TestFindFolderErrors(t *testing.T) {
	ctx := testlogging.Context(t)
	fc := remotetesting.NewFaultyClient(remotetesting.NewMapClient(nil))
	r := remote.NewFolderResolver(fc, nil, remote.ResolverOptions{})

	_, err := r.FindFolder(ctx, "missing", remote.RootID)
	require.ErrorIs(t, err, remote.ErrNotFound)

	fc.AddFault(remotetesting.MethodFindFolder, errBoom)

	_, err = r.FindFolder(ctx, "missing", remote.RootID)
	require.Error(t, err)
	require.NotErrorIs(t, err, remote.ErrNotFound)
	require.True(t, strings.Contains(err.Error(), "HTTP 503"), err.Error())

	// lookups are not retried.
	require.Equal(t, 2, fc.Calls(remotetesting.MethodFindFolder))
}

func mustFind(t *testing.T, c remote.Client, name, parentID string) string {
	t.Helper()

	id, err := c.FindFolder(testlogging.Context(t), name, parentID)
	require.NoError(t, err)

	return id
}
