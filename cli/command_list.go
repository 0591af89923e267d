package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

type commandList struct {
	svc appServices
}

func (c *commandList) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("list", "List remote backup instances, newest first.").Alias("ls")
	cmd.Action(svc.vaultAction(remoteAlways, c.run))

	c.svc = svc
}

func (c *commandList) run(ctx context.Context, env *vaultEnv) error {
	list, err := env.orch.ListBackups(ctx)
	if err != nil {
		return errors.Wrap(err, "unable to list backups")
	}

	out := c.svc.stdout()

	if len(list) == 0 {
		fmt.Fprintln(out, "No backups found.") //nolint:errcheck
		return nil
	}

	for _, b := range list {
		fmt.Fprintf(out, "%-24v %v %v\n", b.Name, b.CreatedAt.Local().Format(time.DateTime), b.ID) //nolint:errcheck
	}

	return nil
}
