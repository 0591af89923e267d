package logging_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/steamvault/steamvault/logging"
)

func TestModuleUsesFactoryFromContext(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	root := zap.New(core)

	ctx := logging.WithLogger(context.Background(), func(module string) logging.Logger {
		return root.Named(module).Sugar()
	})

	log := logging.Module("mirror")
	log(ctx).Debugf("copied %v", "a.vdf")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "mirror", entries[0].LoggerName)
	require.Equal(t, "copied a.vdf", entries[0].Message)
}

func TestModuleWithoutFactory(t *testing.T) {
	t.Parallel()

	log := logging.Module("mirror")

	require.NotNil(t, log(context.Background()))
	log(context.Background()).Infof("discarded")

	ctx := logging.WithLogger(context.Background(), nil)
	require.Equal(t, logging.NullLogger(), log(ctx))
}
