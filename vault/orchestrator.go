package vault

import (
	"context"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/steamvault/steamvault/cancel"
	"github.com/steamvault/steamvault/logging"
	"github.com/steamvault/steamvault/mirror"
	"github.com/steamvault/steamvault/remote"
)

var log = logging.Module("vault")

const (
	dirMode        = 0o755
	stagingPattern = "steamvault-restore-"
	maxListedRoot  = 5
)

var errNoRemote = errors.New("remote client is not configured")

// Options provides collaborators of an Orchestrator. All fields are optional.
type Options struct {
	Output *logging.Emitter
	FS     afero.Fs
	Clock  clockwork.Clock
	Client remote.Client

	// StagingDir is the parent of temporary directories used by remote restores.
	// Defaults to the system temporary directory.
	StagingDir string
}

// Orchestrator runs backup and restore operations over the configured module list.
// Operations run sequentially on the calling goroutine and must not overlap.
type Orchestrator struct {
	cfg     Config
	out     *logging.Emitter
	fs      afero.Fs
	clock   clockwork.Clock
	client  remote.Client
	staging string
	local   *mirror.Local
}

// New creates an Orchestrator for the provided configuration.
func New(cfg Config, opts Options) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	if opts.FS == nil {
		opts.FS = afero.NewOsFs()
	}

	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	return &Orchestrator{
		cfg:     cfg,
		out:     opts.Output,
		fs:      opts.FS,
		clock:   opts.Clock,
		client:  opts.Client,
		staging: opts.StagingDir,
		local:   mirror.NewLocal(opts.FS, opts.Output),
	}, nil
}

// Config returns the configuration of the orchestrator.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// VaultPath returns the local vault folder below destRoot.
func (o *Orchestrator) VaultPath(destRoot string) string {
	return filepath.Join(destRoot, o.cfg.VaultFolderName)
}

// BackupLocal mirrors all modules from sourceRoot into the vault folder below destRoot,
// overwriting the previous contents of the vault.
//
// Missing modules and individual file failures are reported and do not fail the backup.
func (o *Orchestrator) BackupLocal(ctx context.Context, sourceRoot, destRoot string, token *cancel.Token) error {
	o.out.Bannerf("STARTING VAULT BACKUP")

	vaultRoot := o.VaultPath(destRoot)

	if err := o.fs.MkdirAll(vaultRoot, dirMode); err != nil {
		o.out.Errorf("Unable to create vault folder %v: %v", vaultRoot, err)
		return errors.Wrap(err, "unable to create vault folder")
	}

	if err := o.copyModules(ctx, sourceRoot, vaultRoot, "", "protected", token); err != nil {
		return o.finish(err, "Backup")
	}

	o.out.Successf("Backup completed: %v", vaultRoot)

	return nil
}

// RestoreLocal copies modules from the vault found below backupRoot into destRoot.
func (o *Orchestrator) RestoreLocal(ctx context.Context, destRoot, backupRoot string, token *cancel.Token) error {
	o.out.Bannerf("STARTING VAULT RESTORE")

	origin := ResolveOrigin(o.fs, o.cfg, backupRoot, o.out)
	log(ctx).Debugf("restoring from %v", origin)

	if err := ValidateOrigin(o.fs, o.cfg, origin); err != nil {
		o.out.Errorf("The vault is empty or invalid (%v missing).", o.cfg.PrimaryModule)
		return err
	}

	if err := o.copyModules(ctx, origin, destRoot, "RESTORE ", "restored", token); err != nil {
		return o.finish(err, "Restore")
	}

	o.out.Successf("Restore completed from %v", origin)

	return nil
}

// copyModules mirrors directory modules and then file modules from srcRoot to dstRoot.
// The token is checked before every module.
func (o *Orchestrator) copyModules(ctx context.Context, srcRoot, dstRoot, labelPrefix, fileVerb string, token *cancel.Token) error {
	for _, m := range o.cfg.directoryModules() {
		if err := token.Check(); err != nil {
			return err
		}

		res := o.local.Copy(ctx, filepath.Join(srcRoot, m.RelPath()), filepath.Join(dstRoot, m.RelPath()), labelPrefix+m.Label, token)
		if res.Cancelled {
			return cancel.ErrCancelled
		}
	}

	for _, m := range o.cfg.fileModules() {
		if err := token.Check(); err != nil {
			return err
		}

		copied, err := o.local.CopyFile(ctx, filepath.Join(srcRoot, m.RelPath()), filepath.Join(dstRoot, m.RelPath()), token)

		switch {
		case cancel.IsCancelled(err):
			return err
		case err != nil:
			o.out.Errorf("Failed: %v - %v", m.Label, err)
		case copied:
			o.out.Emit(logging.TagFile, "%v %v.", m.Label, fileVerb)
		}
	}

	return nil
}

// finish reports the end of an interrupted or failed operation.
func (o *Orchestrator) finish(err error, op string) error {
	if cancel.IsCancelled(err) {
		o.out.Infof("%v interrupted by user", op)
		return err
	}

	o.out.Errorf("%v failed: %v", op, err)

	return err
}
