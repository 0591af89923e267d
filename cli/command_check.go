package cli

import (
	"context"

	"github.com/pkg/errors"
)

type commandCheck struct{}

func (c *commandCheck) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("check", "Test the connection to the remote store.")
	cmd.Action(svc.vaultAction(remoteAlways, c.run))
}

func (c *commandCheck) run(ctx context.Context, env *vaultEnv) error {
	return errors.Wrap(env.orch.CheckRemote(ctx), "connection check failed")
}
