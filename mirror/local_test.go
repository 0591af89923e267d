package mirror_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/steamvault/steamvault/cancel"
	"github.com/steamvault/steamvault/internal/testlogging"
	"github.com/steamvault/steamvault/internal/testutil"
	"github.com/steamvault/steamvault/logging"
	"github.com/steamvault/steamvault/mirror"
)

func writeMemFiles(t *testing.T, fsys afero.Fs, files map[string]string) {
	t.Helper()

	for name, contents := range files {
		require.NoError(t, fsys.MkdirAll(filepath.Dir(name), 0o755))
		require.NoError(t, afero.WriteFile(fsys, name, []byte(contents), 0o644))
	}
}

func TestCopyTree(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)
	sink, lines := testlogging.Sink(t)
	fsys := afero.NewMemMapFs()

	writeMemFiles(t, fsys, map[string]string{
		"/steam/userdata/1234/config/localconfig.vdf": "cfg",
		"/steam/userdata/1234/760/remote/a.sav":       "save-a",
		"/steam/userdata/top.txt":                     "top",
	})

	// pre-existing destination file is overwritten
	writeMemFiles(t, fsys, map[string]string{
		"/vault/userdata/top.txt": "stale contents",
	})

	m := mirror.NewLocal(fsys, logging.NewEmitter(sink))
	res := m.Copy(ctx, "/steam/userdata", "/vault/userdata", "USERDATA", cancel.NewToken())

	require.Equal(t, mirror.Result{Copied: 3}, res)

	for src, want := range map[string]string{
		"/vault/userdata/1234/config/localconfig.vdf": "cfg",
		"/vault/userdata/1234/760/remote/a.sav":       "save-a",
		"/vault/userdata/top.txt":                     "top",
	} {
		got, err := afero.ReadFile(fsys, src)
		require.NoError(t, err)
		require.Equal(t, want, string(got))
	}

	require.Equal(t, []string{
		">>> PROCESSING: USERDATA...",
		"[SUCESSO] USERDATA archived (3 files)",
	}, lines())
}

func TestCopyMissingSource(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)
	sink, lines := testlogging.Sink(t)
	fsys := afero.NewMemMapFs()

	res := mirror.NewLocal(fsys, logging.NewEmitter(sink)).Copy(ctx, "/steam/config/depotcache", "/vault/config/depotcache", "DEPOTCACHE", cancel.NewToken())
	require.True(t, res.Skipped)
	require.Equal(t, []string{"[INFO] DEPOTCACHE: not found, skipped"}, lines())

	exists, err := afero.Exists(fsys, "/vault/config/depotcache")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestCopyEmptySourceIsSilent(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)
	sink, lines := testlogging.Sink(t)
	fsys := afero.NewMemMapFs()

	require.NoError(t, fsys.MkdirAll("/steam/appcache/stats/empty/nested", 0o755))

	res := mirror.NewLocal(fsys, logging.NewEmitter(sink)).Copy(ctx, "/steam/appcache/stats", "/vault/appcache/stats", "STATS", cancel.NewToken())
	require.Equal(t, mirror.Result{}, res)
	require.Empty(t, lines())

	exists, err := afero.Exists(fsys, "/vault/appcache/stats")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestCopyPreservesModTimeAndMode(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)
	td := testutil.TempDirectory(t)

	src := filepath.Join(td, "src")
	dst := filepath.Join(td, "dst")

	testutil.WriteFiles(t, src, map[string]string{"a/b.bin": "payload"})

	mtime := time.Date(2020, 5, 17, 10, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(src, "a", "b.bin"), mtime, mtime))
	require.NoError(t, os.Chmod(filepath.Join(src, "a", "b.bin"), 0o640))

	res := mirror.NewLocal(nil, nil).Copy(ctx, src, dst, "TEST", cancel.NewToken())
	require.Equal(t, 1, res.Copied)

	st, err := os.Stat(filepath.Join(dst, "a", "b.bin"))
	require.NoError(t, err)
	require.True(t, st.ModTime().Equal(mtime), "mtime %v", st.ModTime())
	require.Equal(t, os.FileMode(0o640), st.Mode().Perm())
	require.Equal(t, map[string]string{"a/b.bin": "payload"}, testutil.ReadTree(t, dst))
}

// failingFs fails to create destination files whose name contains a marker.
type failingFs struct {
	afero.Fs
	marker string
}

func (f failingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&os.O_CREATE != 0 && strings.Contains(name, f.marker) {
		return nil, errors.New("disk full")
	}

	return f.Fs.OpenFile(name, flag, perm)
}

func TestCopyContinuesPastFileFailure(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)
	sink, lines := testlogging.Sink(t)
	mem := afero.NewMemMapFs()

	writeMemFiles(t, mem, map[string]string{
		"/src/a.txt":     "a",
		"/src/bad.txt":   "bad",
		"/src/sub/c.txt": "c",
	})

	fsys := failingFs{Fs: mem, marker: "bad"}

	res := mirror.NewLocal(fsys, logging.NewEmitter(sink)).Copy(ctx, "/src", "/dst", "MOD", cancel.NewToken())
	require.Equal(t, mirror.Result{Copied: 2, Failed: 1}, res)

	require.Contains(t, lines(), "[ERRO] Failed: bad.txt - create destination: disk full")
	require.Contains(t, lines(), "[SUCESSO] MOD archived (2 files)")

	got, err := afero.ReadFile(mem, "/dst/sub/c.txt")
	require.NoError(t, err)
	require.Equal(t, "c", string(got))
}

// stoppingFs stops the token after the given number of destination files has been created.
type stoppingFs struct {
	afero.Fs
	token *cancel.Token
	after int
	count *int
}

func (f stoppingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&os.O_CREATE != 0 {
		*f.count++
		if *f.count == f.after {
			f.token.Stop()
		}
	}

	return f.Fs.OpenFile(name, flag, perm)
}

func TestCopyStopsWhenCancelled(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)
	sink, lines := testlogging.Sink(t)
	mem := afero.NewMemMapFs()

	writeMemFiles(t, mem, map[string]string{
		"/src/1.txt":     "1",
		"/src/2.txt":     "2",
		"/src/sub/3.txt": "3",
	})

	tok := cancel.NewToken()
	count := 0

	res := mirror.NewLocal(stoppingFs{Fs: mem, token: tok, after: 1, count: &count}, logging.NewEmitter(sink)).Copy(ctx, "/src", "/dst", "MOD", tok)
	require.True(t, res.Cancelled)
	require.Equal(t, 1, res.Copied)

	dst := map[string]bool{}

	for _, p := range []string{"/dst/1.txt", "/dst/2.txt", "/dst/sub/3.txt"} {
		ok, err := afero.Exists(mem, p)
		require.NoError(t, err)

		dst[p] = ok
	}

	require.Equal(t, map[string]bool{"/dst/1.txt": true, "/dst/2.txt": false, "/dst/sub/3.txt": false}, dst)
	require.NotContains(t, lines(), "[SUCESSO] MOD archived (1 files)")
}

func TestCopyWithStoppedToken(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)
	mem := afero.NewMemMapFs()

	writeMemFiles(t, mem, map[string]string{"/src/1.txt": "1"})

	tok := cancel.NewToken()
	tok.Stop()

	res := mirror.NewLocal(mem, nil).Copy(ctx, "/src", "/dst", "MOD", tok)
	require.True(t, res.Cancelled)
	require.Zero(t, res.Copied)

	ok, err := afero.Exists(mem, "/dst/1.txt")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCopyFile(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)
	mem := afero.NewMemMapFs()
	m := mirror.NewLocal(mem, nil)

	writeMemFiles(t, mem, map[string]string{"/steam/winmm.dll": "dll"})

	copied, err := m.CopyFile(ctx, "/steam/winmm.dll", "/vault/SteamVault_Backup/winmm.dll", cancel.NewToken())
	require.NoError(t, err)
	require.True(t, copied)

	got, err := afero.ReadFile(mem, "/vault/SteamVault_Backup/winmm.dll")
	require.NoError(t, err)
	require.Equal(t, "dll", string(got))

	copied, err = m.CopyFile(ctx, "/steam/version.dll", "/vault/SteamVault_Backup/version.dll", cancel.NewToken())
	require.NoError(t, err)
	require.False(t, copied)

	tok := cancel.NewToken()
	tok.Stop()

	_, err = m.CopyFile(ctx, "/steam/winmm.dll", "/vault/other.dll", tok)
	require.ErrorIs(t, err, cancel.ErrCancelled)
}
