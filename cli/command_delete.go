package cli

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

type commandDelete struct {
	id      string
	confirm bool

	svc appServices
}

func (c *commandDelete) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("delete", "Delete a remote backup instance.").Alias("rm")
	cmd.Arg("id", "ID of the backup instance").Required().StringVar(&c.id)
	cmd.Flag("delete", "Confirm deletion").BoolVar(&c.confirm)
	cmd.Action(svc.vaultAction(remoteAlways, c.run))

	c.svc = svc
}

func (c *commandDelete) run(ctx context.Context, env *vaultEnv) error {
	if !c.confirm {
		fmt.Fprintf(c.svc.stdout(), "Would delete backup %v (pass --delete to confirm)\n", c.id) //nolint:errcheck
		return nil
	}

	return errors.Wrap(env.orch.DeleteBackup(ctx, c.id), "unable to delete backup")
}
