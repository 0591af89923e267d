package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// fileConfig is the optional JSON configuration file holding defaults for unset flags.
type fileConfig struct {
	SteamPath         string `json:"steam_path,omitempty"`
	BackupPath        string `json:"backup_path,omitempty"`
	GDriveCredentials string `json:"gdrive_credentials,omitempty"`
	GDriveToken       string `json:"gdrive_token,omitempty"`
}

func loadFileConfig(fsys afero.Fs, filename string) (fileConfig, error) {
	var fc fileConfig

	b, err := afero.ReadFile(fsys, filename)
	if os.IsNotExist(err) {
		return fc, nil
	}

	if err != nil {
		return fc, errors.Wrap(err, "unable to read config file")
	}

	if err := json.Unmarshal(b, &fc); err != nil {
		return fc, errors.Wrapf(err, "invalid config file %v", filename)
	}

	return fc, nil
}

// applyConfigFile fills flags that were left empty with values from the config file
// and expands home-relative paths.
func (c *App) applyConfigFile(ctx context.Context) error {
	fn, err := expandPath(c.configFile)
	if err != nil {
		return err
	}

	if fn != "" {
		if c.fileConf, err = loadFileConfig(c.fs, fn); err != nil {
			return err
		}

		log(ctx).Debugf("loaded config file %v", fn)
	}

	for _, v := range []struct {
		flag *string
		def  string
	}{
		{&c.steamPath, c.fileConf.SteamPath},
		{&c.backupPath, c.fileConf.BackupPath},
		{&c.gdriveCredentials, c.fileConf.GDriveCredentials},
		{&c.gdriveToken, c.fileConf.GDriveToken},
	} {
		if *v.flag == "" {
			*v.flag = v.def
		}
	}

	if c.steamPath, err = expandPath(c.steamPath); err != nil {
		return err
	}

	if c.backupPath, err = expandPath(c.backupPath); err != nil {
		return err
	}

	return nil
}
