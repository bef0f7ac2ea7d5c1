package app

import (
	"context"

	"go.trai.ch/forge/internal/adapters/exec"
	"go.trai.ch/forge/internal/adapters/status"
	"go.trai.ch/forge/internal/buildsystem"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	clientName    = "basic"
	clientVersion = 0
)

var _ buildsystem.Delegate = (*Delegate)(nil)

// Delegate is the CLI's build system delegate: it wires the filesystem,
// logging, status display, cancellation and queue creation into the core.
type Delegate struct {
	ctx          context.Context
	fsys         ports.FileSystem
	logger       ports.Logger
	status       *status.Recorder
	queueFactory *exec.Factory
	parallelism  int
}

// NewDelegate creates a delegate bound to the given context; cancelling the
// context cancels the build.
func NewDelegate(
	ctx context.Context,
	fsys ports.FileSystem,
	logger ports.Logger,
	recorder *status.Recorder,
	queueFactory *exec.Factory,
	parallelism int,
) *Delegate {
	return &Delegate{
		ctx:          ctx,
		fsys:         fsys,
		logger:       logger,
		status:       recorder,
		queueFactory: queueFactory,
		parallelism:  parallelism,
	}
}

// Name identifies the client; manifests must declare the same name.
func (d *Delegate) Name() string { return clientName }

// Version is the client schema version.
func (d *Delegate) Version() uint32 { return clientVersion }

// FileSystem returns the filesystem the build observes.
func (d *Delegate) FileSystem() ports.FileSystem { return d.fsys }

// LookupTool resolves client tools; the CLI only uses the built-ins.
func (d *Delegate) LookupTool(name string) buildsystem.Tool { return nil }

// CreateExecutionQueue builds the worker pool for one build.
func (d *Delegate) CreateExecutionQueue() ports.ExecutionQueue {
	return d.queueFactory.NewQueue(d.ctx, d.parallelism)
}

// IsCancelled reports whether the build context was cancelled.
func (d *Delegate) IsCancelled() bool {
	return d.ctx.Err() != nil
}

// Error reports a build diagnostic.
func (d *Delegate) Error(filename string, at buildsystem.Token, message string) {
	err := zerr.New(message)
	if filename != "" {
		err = zerr.With(err, "file", filename)
	}
	d.logger.Error(err)
}

// SetFileContentsBeingParsed is uninteresting to the CLI.
func (d *Delegate) SetFileContentsBeingParsed(buf []byte) {}

// CommandStarted opens a status vertex for the command.
func (d *Delegate) CommandStarted(command buildsystem.Command) {
	if !command.ShouldShowStatus() {
		return
	}
	d.status.CommandStarted(command.Name(), command.ShortDescription())
}

// CommandFinished completes the command's status vertex.
func (d *Delegate) CommandFinished(command buildsystem.Command) {
	if !command.ShouldShowStatus() {
		return
	}
	d.status.CommandFinished(command.Name())
}

// HadCommandFailure notes a command failure.
func (d *Delegate) HadCommandFailure() {
	d.logger.Warn("command failed during build")
}
