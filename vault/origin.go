package vault

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/steamvault/steamvault/logging"
)

// ErrInvalidVault is returned when the restore origin does not contain the primary module.
var ErrInvalidVault = errors.New("empty or invalid vault")

// ResolveOrigin picks the folder to restore from below candidateRoot.
//
// The current vault folder wins over legacy ones, a legacy folder is used with a warning,
// and candidateRoot itself is used when it already is a vault folder. When nothing matches
// the path of the current vault folder is returned and validation of it will fail.
func ResolveOrigin(fsys afero.Fs, cfg Config, candidateRoot string, out *logging.Emitter) string {
	current := filepath.Join(candidateRoot, cfg.VaultFolderName)
	if isDir(fsys, current) {
		return current
	}

	for _, legacy := range cfg.LegacyFolderNames {
		p := filepath.Join(candidateRoot, legacy)
		if isDir(fsys, p) {
			out.Warnf("Detected old backup format (%v).", legacy)
			return p
		}
	}

	if cfg.isVaultFolderName(filepath.Base(filepath.Clean(candidateRoot))) {
		return candidateRoot
	}

	return current
}

// ValidateOrigin returns ErrInvalidVault unless origin contains the primary module.
func ValidateOrigin(fsys afero.Fs, cfg Config, origin string) error {
	primary, ok := cfg.module(cfg.PrimaryModule)
	if !ok {
		return errors.Errorf("primary module %q is not configured", cfg.PrimaryModule)
	}

	if !isDir(fsys, filepath.Join(origin, primary.RelPath())) {
		return errors.Wrapf(ErrInvalidVault, "%v missing in %v", primary.Name, origin)
	}

	return nil
}

func isDir(fsys afero.Fs, p string) bool {
	ok, err := afero.DirExists(fsys, p)
	return err == nil && ok
}
