// Package vault composes module mirroring into backup and restore operations.
package vault

import (
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/steamvault/steamvault/remote"
)

// Module is a named subtree or single file subject to mirroring.
type Module struct {
	Name   string
	Label  string   // shown in log lines
	Path   []string // segments relative to the source or vault root
	IsFile bool
}

// RelPath returns the module path relative to a root using OS separators.
func (m Module) RelPath() string {
	return filepath.Join(m.Path...)
}

// Config is the immutable configuration of an Orchestrator.
type Config struct {
	VaultFolderName   string
	LegacyFolderNames []string
	PrimaryModule     string
	Modules           []Module

	// InstancePrefix and InstanceTimeLayout form names of remote backup instances.
	InstancePrefix     string
	InstanceTimeLayout string

	FolderCreateAttempts int
	FolderCreateDelay    time.Duration
	RemoteRootID         string
}

// DefaultConfig returns the standard module layout and naming.
func DefaultConfig() Config {
	return Config{
		VaultFolderName:   "SteamVault_Backup",
		LegacyFolderNames: []string{"SteamBackup"},
		PrimaryModule:     "userdata",
		Modules: []Module{
			{Name: "userdata", Label: "USERDATA", Path: []string{"userdata"}},
			{Name: "stplug-in", Label: "STPLUG-IN", Path: []string{"config", "stplug-in"}},
			{Name: "depotcache", Label: "DEPOTCACHE", Path: []string{"config", "depotcache"}},
			{Name: "stats", Label: "STATS", Path: []string{"appcache", "stats"}},
			{Name: "version.dll", Label: "version.dll", Path: []string{"version.dll"}, IsFile: true},
			{Name: "winmm.dll", Label: "winmm.dll", Path: []string{"winmm.dll"}, IsFile: true},
		},
		InstancePrefix:       "backup_",
		InstanceTimeLayout:   "20060102_150405",
		FolderCreateAttempts: remote.DefaultCreateAttempts,
		FolderCreateDelay:    remote.DefaultCreateDelay,
		RemoteRootID:         remote.RootID,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.VaultFolderName == "" {
		return errors.New("vault folder name must be specified")
	}

	for _, n := range c.LegacyFolderNames {
		if n == "" {
			return errors.New("legacy folder names must not be empty")
		}
	}

	if c.InstancePrefix == "" || c.InstanceTimeLayout == "" {
		return errors.New("backup instance naming must be specified")
	}

	if c.FolderCreateAttempts <= 0 {
		return errors.Errorf("invalid number of folder creation attempts: %v", c.FolderCreateAttempts)
	}

	if c.FolderCreateDelay < 0 {
		return errors.Errorf("invalid folder creation delay: %v", c.FolderCreateDelay)
	}

	if c.RemoteRootID == "" {
		return errors.New("remote root id must be specified")
	}

	seen := map[string]bool{}

	for _, m := range c.Modules {
		if m.Name == "" || len(m.Path) == 0 {
			return errors.Errorf("module %q must have a name and a path", m.Name)
		}

		for _, s := range m.Path {
			if s == "" || s == "." || s == ".." {
				return errors.Errorf("module %q has invalid path segment %q", m.Name, s)
			}
		}

		if seen[m.Name] {
			return errors.Errorf("duplicate module %q", m.Name)
		}

		seen[m.Name] = true
	}

	primary, ok := c.module(c.PrimaryModule)
	if !ok {
		return errors.Errorf("primary module %q is not configured", c.PrimaryModule)
	}

	if primary.IsFile {
		return errors.Errorf("primary module %q must be a directory", c.PrimaryModule)
	}

	return nil
}

func (c Config) module(name string) (Module, bool) {
	for _, m := range c.Modules {
		if m.Name == name {
			return m, true
		}
	}

	return Module{}, false
}

func (c Config) directoryModules() []Module {
	var result []Module

	for _, m := range c.Modules {
		if !m.IsFile {
			result = append(result, m)
		}
	}

	return result
}

func (c Config) fileModules() []Module {
	var result []Module

	for _, m := range c.Modules {
		if m.IsFile {
			result = append(result, m)
		}
	}

	return result
}

func (c Config) isVaultFolderName(name string) bool {
	if name == c.VaultFolderName {
		return true
	}

	for _, n := range c.LegacyFolderNames {
		if name == n {
			return true
		}
	}

	return false
}
