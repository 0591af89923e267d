package vault

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/steamvault/steamvault/cancel"
	"github.com/steamvault/steamvault/logging"
	"github.com/steamvault/steamvault/remote"
)

// interruptedError reports where a remote backup observed a stopped token.
type interruptedError struct {
	where string
}

func (e *interruptedError) Error() string {
	return "operation cancelled " + e.where
}

func (e *interruptedError) Is(target error) bool {
	return target == cancel.ErrCancelled
}

// checkpoint returns an error matching cancel.ErrCancelled when the token was stopped.
func checkpoint(token *cancel.Token, where string) error {
	if !token.Stopped() {
		return nil
	}

	return &interruptedError{where: where}
}

// interruptedAt converts a cancellation observed inside a step into an interruption at that step.
func interruptedAt(err error, where string) error {
	var ie *interruptedError

	if errors.As(err, &ie) || !cancel.IsCancelled(err) {
		return err
	}

	return &interruptedError{where: where}
}

func (o *Orchestrator) newResolver() *remote.FolderResolver {
	return remote.NewFolderResolver(o.client, o.out, remote.ResolverOptions{
		CreateAttempts: o.cfg.FolderCreateAttempts,
		CreateDelay:    o.cfg.FolderCreateDelay,
		Clock:          o.clock,
	})
}

// BackupRemote uploads all modules from sourceRoot into a new timestamped backup instance.
//
// Unlike local backups the operation stops at the first structural failure, and the token
// is checked before every step.
func (o *Orchestrator) BackupRemote(ctx context.Context, sourceRoot string, token *cancel.Token) (remote.BackupInstance, error) {
	if o.client == nil {
		return remote.BackupInstance{}, errNoRemote
	}

	if err := checkpoint(token, "before start"); err != nil {
		return remote.BackupInstance{}, o.finishRemoteBackup(err)
	}

	o.out.Bannerf("STARTING REMOTE BACKUP")

	inst, err := o.backupRemote(ctx, sourceRoot, token)
	if err != nil {
		return remote.BackupInstance{}, o.finishRemoteBackup(err)
	}

	o.out.Successf("Remote backup completed (ID: %v)", inst.ID)

	return inst, nil
}

// finishRemoteBackup emits the terminal line of a remote backup that did not complete.
func (o *Orchestrator) finishRemoteBackup(err error) error {
	var ie *interruptedError

	switch {
	case errors.As(err, &ie):
		o.out.Infof("Remote backup interrupted %v", ie.where)
	case cancel.IsCancelled(err):
		o.out.Infof("Remote backup interrupted by user")
	default:
		o.out.Errorf("Remote backup failed: %v", err)
	}

	return err
}

func (o *Orchestrator) backupRemote(ctx context.Context, sourceRoot string, token *cancel.Token) (remote.BackupInstance, error) {
	folders := o.newResolver()
	tree := remote.NewTreeMirror(o.client, folders, o.fs, o.out)

	vaultID, err := folders.EnsureFolder(ctx, o.cfg.VaultFolderName, o.cfg.RemoteRootID, token)
	if err != nil {
		return remote.BackupInstance{}, errors.Wrap(interruptedAt(err, "while creating main folder"), "unable to create main folder")
	}

	if err := checkpoint(token, "after creating main folder"); err != nil {
		return remote.BackupInstance{}, err
	}

	now := o.clock.Now()
	name := o.cfg.InstancePrefix + now.Format(o.cfg.InstanceTimeLayout)

	instanceID, err := folders.CreateFolder(ctx, name, vaultID, token)
	if err != nil {
		return remote.BackupInstance{}, errors.Wrap(interruptedAt(err, "while creating backup folder"), "unable to create backup folder")
	}

	inst := remote.BackupInstance{ID: instanceID, Name: name, CreatedAt: now}

	if err := checkpoint(token, "after creating backup folder"); err != nil {
		return remote.BackupInstance{}, err
	}

	dirs := o.cfg.directoryModules()
	moduleFolders := map[string]string{}

	for _, m := range dirs {
		id, err := folders.EnsurePath(ctx, instanceID, m.Path, token)
		if err != nil {
			return remote.BackupInstance{}, errors.Wrap(interruptedAt(err, "while creating folder structure"), "unable to create folder structure")
		}

		moduleFolders[m.Name] = id
	}

	if err := checkpoint(token, "after creating folder structure"); err != nil {
		return remote.BackupInstance{}, err
	}

	o.out.Progressf("UPLOADING DATA...")

	for _, m := range dirs {
		if err := checkpoint(token, "before uploading "+m.Label); err != nil {
			return remote.BackupInstance{}, err
		}

		src := filepath.Join(sourceRoot, m.RelPath())
		if !isDir(o.fs, src) {
			o.out.Infof("%v: not found, skipped", m.Label)
			continue
		}

		if !tree.Upload(ctx, src, moduleFolders[m.Name], token) {
			if err := checkpoint(token, "while uploading "+m.Label); err != nil {
				return remote.BackupInstance{}, err
			}

			return remote.BackupInstance{}, errors.Errorf("upload of %v failed", m.Label)
		}

		o.out.Successf("%v uploaded", m.Label)
	}

	for _, m := range o.cfg.fileModules() {
		if err := checkpoint(token, "before uploading "+m.Label); err != nil {
			return remote.BackupInstance{}, err
		}

		src := filepath.Join(sourceRoot, m.RelPath())
		if ok, _ := afero.Exists(o.fs, src); !ok {
			continue
		}

		parentID, err := folders.EnsurePath(ctx, instanceID, m.Path[:len(m.Path)-1], token)
		if err != nil {
			return remote.BackupInstance{}, errors.Wrapf(interruptedAt(err, "while creating folder for "+m.Label), "unable to create folder for %v", m.Label)
		}

		if tree.UploadFile(ctx, src, parentID, m.Path[len(m.Path)-1], token) {
			o.out.Emit(logging.TagFile, "%v uploaded", m.Label)
		} else if err := checkpoint(token, "while uploading "+m.Label); err != nil {
			return remote.BackupInstance{}, err
		}
	}

	if err := checkpoint(token, "before finishing"); err != nil {
		return remote.BackupInstance{}, err
	}

	return inst, nil
}

// RestoreRemote downloads the backup instance backupID into a private staging directory
// and copies its modules into destRoot. The staging directory is always removed.
func (o *Orchestrator) RestoreRemote(ctx context.Context, destRoot, backupID string, token *cancel.Token) error {
	if o.client == nil {
		return errNoRemote
	}

	o.out.Bannerf("STARTING REMOTE RESTORE")

	staging, err := afero.TempDir(o.fs, o.staging, stagingPattern)
	if err != nil {
		o.out.Errorf("Unable to create staging directory: %v", err)
		return errors.Wrap(err, "unable to create staging directory")
	}

	defer func() {
		if err := o.fs.RemoveAll(staging); err != nil {
			log(ctx).Debugf("unable to remove staging directory %v: %v", staging, err)
		}
	}()

	o.out.Progressf("DOWNLOADING BACKUP %v...", backupID)

	tree := remote.NewTreeMirror(o.client, o.newResolver(), o.fs, o.out)
	if !tree.Download(ctx, backupID, staging, token) {
		if token.Stopped() {
			o.out.Infof("Remote restore interrupted by user")
			return cancel.ErrCancelled
		}

		o.out.Errorf("Failed to download backup %v", backupID)

		return errors.Errorf("unable to download backup %v", backupID)
	}

	o.out.Progressf("RESTORING DOWNLOADED DATA...")

	if err := o.copyModules(ctx, staging, destRoot, "RESTORE ", "restored", token); err != nil {
		return o.finish(err, "Remote restore")
	}

	o.out.Successf("Remote restore completed")

	return nil
}

// ListBackups returns the backup instances of the remote vault, newest first.
func (o *Orchestrator) ListBackups(ctx context.Context) ([]remote.BackupInstance, error) {
	if o.client == nil {
		return nil, errNoRemote
	}

	list, err := remote.NewCatalog(o.client, o.cfg.RemoteRootID).ListBackups(ctx, o.cfg.VaultFolderName)
	if err != nil {
		o.out.Errorf("Failed to list backups: %v", err)
		return nil, err
	}

	return list, nil
}

// LatestBackup returns the newest backup instance of the remote vault or remote.ErrNotFound.
func (o *Orchestrator) LatestBackup(ctx context.Context) (remote.BackupInstance, error) {
	if o.client == nil {
		return remote.BackupInstance{}, errNoRemote
	}

	b, err := remote.NewCatalog(o.client, o.cfg.RemoteRootID).Latest(ctx, o.cfg.VaultFolderName)
	if err != nil && !errors.Is(err, remote.ErrNotFound) {
		o.out.Errorf("Failed to list backups: %v", err)
	}

	return b, err
}

// DeleteBackup removes a remote backup instance.
func (o *Orchestrator) DeleteBackup(ctx context.Context, id string) error {
	if o.client == nil {
		return errNoRemote
	}

	if err := remote.NewCatalog(o.client, o.cfg.RemoteRootID).Delete(ctx, id); err != nil {
		o.out.Errorf("Failed to delete folder: %v", err)
		return err
	}

	o.out.Successf("Backup folder %v deleted", id)

	return nil
}

// CheckRemote verifies the remote connection by listing folders at the remote root.
func (o *Orchestrator) CheckRemote(ctx context.Context) error {
	if o.client == nil {
		return errNoRemote
	}

	folders, err := o.client.ListFolders(ctx, o.cfg.RemoteRootID, maxListedRoot)
	if err != nil {
		o.out.Errorf("Connection test failed: %v", err)
		return errors.Wrap(err, "connection test failed")
	}

	o.out.Infof("Connection tested successfully. Found %v folders in root:", len(folders))

	for _, f := range folders {
		o.out.Infof("  - %v (ID: %v)", f.Name, f.ID)
	}

	o.out.Successf("Remote store is reachable")

	return nil
}
