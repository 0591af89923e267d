package logging_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/steamvault/steamvault/logging"
)

func TestEmitterTags(t *testing.T) {
	t.Parallel()

	var lines []string

	e := logging.NewEmitter(func(l string) { lines = append(lines, l) })

	e.Infof("USERDATA: not found, skipped")
	e.Successf("%v archived (%v files)", "STATS", 3)
	e.Errorf("Failed: %v - %v", "a.vdf", "permission denied")
	e.Warnf("legacy layout")
	e.Progressf("PROCESSING: STATS...")
	e.Bannerf("STARTING BACKUP")

	require.Equal(t, []string{
		"[INFO] USERDATA: not found, skipped",
		"[SUCESSO] STATS archived (3 files)",
		"[ERRO] Failed: a.vdf - permission denied",
		"[AVISO] legacy layout",
		">>> PROCESSING: STATS...",
		"--- STARTING BACKUP ---",
	}, lines)
}

func TestNilEmitter(t *testing.T) {
	t.Parallel()

	var e *logging.Emitter

	e.Infof("nothing")
	logging.NewEmitter(nil).Errorf("nothing")
}

func TestParseTag(t *testing.T) {
	t.Parallel()

	cases := map[string]logging.Tag{
		"[INFO] x":         logging.TagInfo,
		"[SUCESSO] x":      logging.TagSuccess,
		"[ERRO] x":         logging.TagError,
		"[AVISO] x":        logging.TagWarning,
		">>> x":            logging.TagProgress,
		"--- x ---":        logging.TagBanner,
		"[UPLOAD] a.vdf":   logging.TagUpload,
		"[DOWNLOAD] a.vdf": logging.TagDownload,
		"[DLL] winmm.dll":  logging.TagFile,
		"plain":            "",
	}

	for line, want := range cases {
		require.Equal(t, want, logging.ParseTag(line), line)
	}
}

func TestBroadcast(t *testing.T) {
	t.Parallel()

	var a, b []string

	s := logging.Broadcast(
		func(l string) { a = append(a, l) },
		nil,
		func(l string) { b = append(b, l) },
	)

	s("one")
	s("two")

	require.Equal(t, []string{"one", "two"}, a)
	require.Equal(t, a, b)
}
