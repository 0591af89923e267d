package vault_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/steamvault/steamvault/vault"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := vault.DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Len(t, cfg.Modules, 6)
	require.Equal(t, "SteamVault_Backup", cfg.VaultFolderName)
	require.Equal(t, []string{"SteamBackup"}, cfg.LegacyFolderNames)
	require.Equal(t, 3, cfg.FolderCreateAttempts)
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(c *vault.Config){
		"empty vault name":     func(c *vault.Config) { c.VaultFolderName = "" },
		"empty legacy name":    func(c *vault.Config) { c.LegacyFolderNames = []string{""} },
		"zero attempts":        func(c *vault.Config) { c.FolderCreateAttempts = 0 },
		"negative delay":       func(c *vault.Config) { c.FolderCreateDelay = -1 },
		"missing primary":      func(c *vault.Config) { c.PrimaryModule = "nope" },
		"file primary":         func(c *vault.Config) { c.PrimaryModule = "winmm.dll" },
		"empty instance name":  func(c *vault.Config) { c.InstancePrefix = "" },
		"empty root id":        func(c *vault.Config) { c.RemoteRootID = "" },
		"escaping module path": func(c *vault.Config) { c.Modules[1].Path = []string{"..", "x"} },
		"duplicate module":     func(c *vault.Config) { c.Modules = append(c.Modules, c.Modules[0]) },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := vault.DefaultConfig()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := vault.DefaultConfig()
	cfg.Modules = nil

	_, err := vault.New(cfg, vault.Options{})
	require.Error(t, err)
}
