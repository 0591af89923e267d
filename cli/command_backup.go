package cli

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

type commandBackup struct {
	remote bool
	force  bool

	svc appServices
}

func (c *commandBackup) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("backup", "Back up Steam data into the vault.")
	cmd.Flag("remote", "Upload a new backup instance to Google Drive instead of the local vault.").BoolVar(&c.remote)
	cmd.Flag("force", "Overwrite an existing local vault without asking.").Short('f').BoolVar(&c.force)
	cmd.Action(svc.vaultAction(func() bool { return c.remote }, c.run))

	c.svc = svc
}

func (c *commandBackup) run(ctx context.Context, env *vaultEnv) error {
	if err := env.requireSteamPath(); err != nil {
		return err
	}

	if c.remote {
		inst, err := env.orch.BackupRemote(ctx, env.steamPath, env.token)
		if err != nil {
			return errors.Wrap(err, "remote backup failed")
		}

		log(ctx).Debugf("created backup instance %v (%v)", inst.Name, inst.ID)

		return nil
	}

	if err := env.requireBackupPath(); err != nil {
		return err
	}

	if err := c.confirmOverwrite(env.orch.VaultPath(env.backupPath)); err != nil {
		return err
	}

	return errors.Wrap(env.orch.BackupLocal(ctx, env.steamPath, env.backupPath, env.token), "backup failed")
}

// confirmOverwrite asks before replacing a non-empty vault.
func (c *commandBackup) confirmOverwrite(vaultPath string) error {
	if c.force {
		return nil
	}

	fsys := c.svc.fileSystem()

	if ok, _ := afero.DirExists(fsys, vaultPath); !ok {
		return nil
	}

	if empty, err := afero.IsEmpty(fsys, vaultPath); err != nil || empty {
		return nil //nolint:nilerr
	}

	ok, err := c.svc.confirm("The vault " + vaultPath + " already contains a backup. Overwrite?")
	if err != nil {
		return err
	}

	if !ok {
		return errors.Errorf("vault %v is not empty, pass --force to overwrite", vaultPath)
	}

	return nil
}
