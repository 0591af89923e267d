package cli

import (
	"context"

	"github.com/pkg/errors"

	"github.com/steamvault/steamvault/remote"
)

type commandRestore struct {
	remote   bool
	backupID string
}

func (c *commandRestore) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("restore", "Restore Steam data from the vault.")
	cmd.Flag("remote", "Restore from a Google Drive backup instance.").BoolVar(&c.remote)
	cmd.Flag("backup-id", "ID of the remote backup instance (defaults to the newest one).").StringVar(&c.backupID)
	cmd.Action(svc.vaultAction(func() bool { return c.remote }, c.run))
}

func (c *commandRestore) run(ctx context.Context, env *vaultEnv) error {
	if err := env.requireSteamPath(); err != nil {
		return err
	}

	if !c.remote {
		if err := env.requireBackupPath(); err != nil {
			return err
		}

		return errors.Wrap(env.orch.RestoreLocal(ctx, env.steamPath, env.backupPath, env.token), "restore failed")
	}

	id := c.backupID
	if id == "" {
		latest, err := env.orch.LatestBackup(ctx)
		if errors.Is(err, remote.ErrNotFound) {
			return errors.New("no remote backups found")
		}

		if err != nil {
			return errors.Wrap(err, "unable to list backups")
		}

		id = latest.ID

		log(ctx).Debugf("restoring newest backup %v (%v)", latest.Name, id)
	}

	return errors.Wrap(env.orch.RestoreRemote(ctx, env.steamPath, id, env.token), "remote restore failed")
}
