// Package cli implements the steamvault command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"github.com/jonboulle/clockwork"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/steamvault/steamvault/cancel"
	"github.com/steamvault/steamvault/logging"
	"github.com/steamvault/steamvault/remote"
	"github.com/steamvault/steamvault/remote/gdrive"
	remotelogging "github.com/steamvault/steamvault/remote/logging"
	"github.com/steamvault/steamvault/vault"
)

var log = logging.Module("steamvault/cli")

const appDirName = ".steamvault"

// DefaultLogsDir returns the default directory for log files.
func DefaultLogsDir() string {
	return filepath.Join(defaultAppDir(), "logs")
}

func defaultAppDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return appDirName
	}

	return filepath.Join(home, appDirName)
}

type commandParent interface {
	Command(name, help string) *kingpin.CmdClause
}

// vaultEnv is passed to commands operating on the vault.
type vaultEnv struct {
	orch       *vault.Orchestrator
	token      *cancel.Token
	steamPath  string
	backupPath string
}

type vaultActionFunc func(ctx context.Context, env *vaultEnv) error

type appServices interface {
	vaultAction(useRemote func() bool, act vaultActionFunc) func(ctx *kingpin.ParseContext) error

	stdout() io.Writer
	fileSystem() afero.Fs
	confirm(prompt string) (bool, error)
}

// App contains per-invocation flags and state of the steamvault CLI.
type App struct {
	steamPath         string
	backupPath        string
	gdriveCredentials string
	gdriveToken       string
	configFile        string
	lockFile          string
	traceRemote       bool

	backup   commandBackup
	restore  commandRestore
	list     commandList
	del      commandDelete
	check    commandCheck
	fileConf fileConfig

	// testability hooks
	fs              afero.Fs
	clock           clockwork.Clock
	stagingDir      string
	stdinReader     io.Reader
	stdoutWriter    io.Writer
	stderrWriter    io.Writer
	rootctx         context.Context //nolint:containedctx
	isTerminal      func() bool
	onInterrupt     func(f func()) (stop func())
	newRemoteClient func(ctx context.Context) (remote.Client, error)
	loggerFactory   logging.LoggerFactory
}

// NewApp creates a new instance of App.
func NewApp() *App {
	a := &App{
		fs:           afero.NewOsFs(),
		clock:        clockwork.NewRealClock(),
		stdinReader:  os.Stdin,
		stdoutWriter: colorable.NewColorableStdout(),
		stderrWriter: colorable.NewColorableStderr(),
		rootctx:      context.Background(),
		isTerminal:   stdinIsTerminal,
		onInterrupt:  onCtrlC,
	}

	a.newRemoteClient = a.gdriveClient

	return a
}

// SetLoggerFactory sets the logger factory used for diagnostic output.
func (c *App) SetLoggerFactory(f logging.LoggerFactory) {
	c.loggerFactory = f
}

// Stderr returns the stderr writer.
func (c *App) Stderr() io.Writer {
	return c.stderrWriter
}

func (c *App) stdout() io.Writer {
	return c.stdoutWriter
}

func (c *App) fileSystem() afero.Fs {
	return c.fs
}

// Attach attaches the CLI parser to the application.
func (c *App) Attach(app *kingpin.Application) {
	app.Flag("steam-path", "Steam installation directory.").Envar("STEAMVAULT_STEAM_PATH").StringVar(&c.steamPath)
	app.Flag("backup-path", "Directory holding the local vault.").Envar("STEAMVAULT_BACKUP_PATH").StringVar(&c.backupPath)
	app.Flag("gdrive-credentials", "Google Drive credentials file (OAuth client secrets or service account).").Envar("STEAMVAULT_GDRIVE_CREDENTIALS").StringVar(&c.gdriveCredentials)
	app.Flag("gdrive-token", "Google Drive user token file.").Envar("STEAMVAULT_GDRIVE_TOKEN").StringVar(&c.gdriveToken)
	app.Flag("config-file", "Specify the config file to use.").PlaceHolder("PATH").Envar("STEAMVAULT_CONFIG_PATH").Default(filepath.Join(defaultAppDir(), "vault_config.json")).StringVar(&c.configFile)
	app.Flag("lock-file", "Lock file preventing concurrent operations.").Hidden().Default(filepath.Join(defaultAppDir(), "steamvault.lock")).StringVar(&c.lockFile)
	app.Flag("trace-remote", "Enables tracing of remote store operations.").Hidden().Envar("STEAMVAULT_TRACE_REMOTE").BoolVar(&c.traceRemote)

	c.backup.setup(c, app)
	c.restore.setup(c, app)
	c.list.setup(c, app)
	c.del.setup(c, app)
	c.check.setup(c, app)
}

func (c *App) rootContext() context.Context {
	ctx := c.rootctx
	if ctx == nil {
		ctx = context.Background()
	}

	if c.loggerFactory != nil {
		ctx = logging.WithLogger(ctx, c.loggerFactory)
	}

	return ctx
}

func remoteAlways() bool { return true }

// vaultAction returns a kingpin action that runs act against a freshly configured orchestrator
// while holding the operation lock. SIGINT stops the operation at its next checkpoint.
func (c *App) vaultAction(useRemote func() bool, act vaultActionFunc) func(ctx *kingpin.ParseContext) error {
	return func(_ *kingpin.ParseContext) error {
		ctx := c.rootContext()

		if err := c.applyConfigFile(ctx); err != nil {
			return err
		}

		unlock, err := c.acquireLock(ctx)
		if err != nil {
			return err
		}

		defer unlock()

		opts := vault.Options{
			Output:     logging.NewEmitter(c.outputSink()),
			FS:         c.fs,
			Clock:      c.clock,
			StagingDir: c.stagingDir,
		}

		if useRemote() {
			rc, err := c.remoteClient(ctx)
			if err != nil {
				return err
			}

			opts.Client = rc
		}

		orch, err := vault.New(vault.DefaultConfig(), opts)
		if err != nil {
			return errors.Wrap(err, "unable to initialize vault")
		}

		env := &vaultEnv{
			orch:       orch,
			token:      cancel.NewToken(),
			steamPath:  c.steamPath,
			backupPath: c.backupPath,
		}

		stop := c.onInterrupt(env.token.Stop)
		defer stop()

		return act(ctx, env)
	}
}

func (c *App) remoteClient(ctx context.Context) (remote.Client, error) {
	rc, err := c.newRemoteClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to remote store")
	}

	if c.traceRemote {
		rc = remotelogging.NewWrapper(rc, log(ctx).Debugf, "[REMOTE] ")
	}

	return rc, nil
}

func (c *App) gdriveClient(ctx context.Context) (remote.Client, error) {
	opt := &gdrive.Options{}

	var err error

	if opt.CredentialsFile, err = expandPath(c.gdriveCredentials); err != nil {
		return nil, err
	}

	if opt.TokenFile, err = expandPath(c.gdriveToken); err != nil {
		return nil, err
	}

	gc, err := gdrive.New(ctx, opt)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open Google Drive")
	}

	return gc, nil
}

func (e *vaultEnv) requireSteamPath() error {
	if e.steamPath == "" {
		return errors.New("steam path is not set, use --steam-path or the config file")
	}

	return nil
}

func (e *vaultEnv) requireBackupPath() error {
	if e.backupPath == "" {
		return errors.New("backup path is not set, use --backup-path or the config file")
	}

	return nil
}

func stdinIsTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

func expandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}

	ep, err := homedir.Expand(p)
	if err != nil {
		return "", errors.Wrapf(err, "unable to expand %v", p)
	}

	return ep, nil
}
