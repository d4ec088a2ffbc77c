package platform

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/aretw0/tilth/pkg/adapters/fs"
	"github.com/aretw0/tilth/pkg/core"
)

// ErrNotSyncable is returned by Sync when the repository has no remote support.
var ErrNotSyncable = errors.New("repository does not support synchronization")

// Init prepares the content root at uri and returns the configured repository.
func Init(uri string, opts ...Option) (core.Repository, error) {
	o := apply(opts)
	if o.repository != nil {
		return o.repository, nil
	}

	repo := initFS(uri, o)
	if err := repo.Initialize(context.Background()); err != nil {
		return nil, err
	}
	return repo, nil
}

func initFS(path string, o *options) *fs.Repository {
	systemDir := o.systemDir
	if systemDir == "" {
		systemDir = fs.DefaultSystemDir
	}

	var gitless bool
	if o.gitless != nil {
		gitless = *o.gitless
	} else {
		gitless = detectGitless(path, systemDir, o.autoInit)
		if gitless && o.logger != nil {
			o.logger.Debug("auto-detected gitless mode", "reason", ".git missing", "path", path)
		}
	}

	return fs.NewRepository(fs.Config{
		Path:         path,
		AutoInit:     o.autoInit,
		Gitless:      gitless,
		MustExist:    o.mustExist || !o.autoInit,
		ReadOnly:     o.readOnly,
		Strict:       o.strict,
		Logger:       o.logger,
		SystemDir:    systemDir,
		ErrorHandler: o.errorHandler,
	})
}

// detectGitless decides the versioning mode when none was configured.
// An existing .git means git. Without one, a fresh auto-initialized root
// gets git unless a system directory shows it was already used gitless.
func detectGitless(path, systemDir string, autoInit bool) bool {
	if hasFile(path, ".git") {
		return false
	}
	if !autoInit {
		return true
	}
	if !fs.IsGitInstalled() {
		return true
	}
	return hasFile(path, systemDir)
}

// Sync pulls and pushes the repository at uri.
func Sync(uri string, opts ...Option) error {
	o := apply(opts)

	var repo core.Repository = o.repository
	if repo == nil {
		o.mustExist = true
		repo = initFS(uri, o)
	}

	syncable, ok := repo.(core.Syncable)
	if !ok {
		return ErrNotSyncable
	}
	return syncable.Sync(context.Background())
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
