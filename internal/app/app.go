// Package app implements the application layer for forge.
package app

import (
	"context"
	"path/filepath"
	"runtime"
	"time"

	"go.trai.ch/forge/internal/adapters/db"
	"go.trai.ch/forge/internal/adapters/exec"
	"go.trai.ch/forge/internal/adapters/status"
	"go.trai.ch/forge/internal/adapters/watcher"
	"go.trai.ch/forge/internal/buildsystem"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

const watchDebounceWindow = 250 * time.Millisecond

// BuildOptions configure one invocation of the build.
type BuildOptions struct {
	// ManifestPath is the build manifest to load.
	ManifestPath string

	// Target is the target to bring up to date.
	Target string

	// DBPath, when set, attaches the persistent result store.
	DBPath string

	// TracePath, when set, enables the engine trace log.
	TracePath string

	// Parallelism bounds the execution queue; zero means NumCPU.
	Parallelism int

	// Watch keeps the process alive and rebuilds on filesystem changes.
	Watch bool
}

// App ties the adapters to the build system core.
type App struct {
	fsys         ports.FileSystem
	logger       ports.Logger
	recorder     *status.Recorder
	queueFactory *exec.Factory
	loader       buildsystem.ManifestLoader
}

// New creates an App from its dependencies.
func New(
	fsys ports.FileSystem,
	logger ports.Logger,
	recorder *status.Recorder,
	queueFactory *exec.Factory,
	loader buildsystem.ManifestLoader,
) *App {
	return &App{
		fsys:         fsys,
		logger:       logger,
		recorder:     recorder,
		queueFactory: queueFactory,
		loader:       loader,
	}
}

// Run executes the build, optionally watching for changes and rebuilding.
func (a *App) Run(ctx context.Context, opts BuildOptions) error {
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	delegate := NewDelegate(ctx, a.fsys, a.logger, a.recorder, a.queueFactory, parallelism)
	system := buildsystem.New(delegate, a.loader, opts.ManifestPath)

	if opts.DBPath != "" {
		store, err := db.Open(db.Config{
			Path:          opts.DBPath,
			SchemaVersion: domain.MergedSchemaVersion(delegate.Version()),
		})
		if err != nil {
			return zerr.Wrap(err, "failed to attach build database")
		}
		defer store.Close() //nolint:errcheck // best effort close
		system.AttachDB(store)
	}

	if opts.TracePath != "" {
		if err := system.EnableTracing(opts.TracePath); err != nil {
			return err
		}
	}

	err := system.Build(opts.Target)
	if !opts.Watch {
		return err
	}
	if err != nil {
		a.logger.Error(err)
	}
	return a.watchLoop(ctx, system, opts)
}

// watchLoop reruns the build whenever the manifest directory changes,
// debounced so bursts of events trigger one rebuild.
func (a *App) watchLoop(ctx context.Context, system *buildsystem.BuildSystem, opts BuildOptions) error {
	w, err := watcher.New(a.logger)
	if err != nil {
		return zerr.Wrap(err, "failed to create watcher")
	}
	defer w.Stop() //nolint:errcheck // best effort close

	root := filepath.Dir(opts.ManifestPath)
	if err := w.Start(ctx, root); err != nil {
		return zerr.Wrap(err, "failed to start watcher")
	}

	rebuild := make(chan struct{}, 1)
	debouncer := watcher.NewDebouncer(watchDebounceWindow, func([]string) {
		select {
		case rebuild <- struct{}{}:
		default:
		}
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case path, ok := <-w.Events():
			if !ok {
				return nil
			}
			debouncer.Add(path)
		case <-rebuild:
			a.logger.Info("change detected, rebuilding")
			if err := system.Build(opts.Target); err != nil {
				a.logger.Error(err)
			}
		}
	}
}
