package buildsystem

import (
	"sync/atomic"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine"
	"go.trai.ch/zerr"
)

// ManifestLoader loads the build description. The loader reports parse
// diagnostics through the delegate and resolves tools through it.
type ManifestLoader interface {
	Load(path string, delegate Delegate) (*Manifest, error)
}

var (
	_ Delegate         = (*BuildSystem)(nil)
	_ CommandInterface = (*BuildSystem)(nil)
	_ engine.Delegate  = (*BuildSystem)(nil)
)

// BuildSystem is the orchestration layer between a loaded manifest and the
// engine. It implements the engine delegate (rule factory), the command
// interface handed to commands, and wraps the client delegate to track
// build failure.
type BuildSystem struct {
	client       Delegate
	loader       ManifestLoader
	mainFilename string

	manifest       *Manifest
	dynamicNodes   map[string]*Node
	customCommands []Command

	engine *engine.Engine

	// queue is only valid while a build is in progress.
	queue ports.ExecutionQueue

	// failed latches command failures for the duration of one build. It is
	// written from queue workers.
	failed atomic.Bool
}

// New creates a build system for the manifest at mainFilename.
func New(client Delegate, loader ManifestLoader, mainFilename string) *BuildSystem {
	s := &BuildSystem{
		client:       client,
		loader:       loader,
		mainFilename: mainFilename,
		dynamicNodes: make(map[string]*Node),
	}
	s.engine = engine.New(s)
	return s
}

// AttachDB attaches the persistent result store. Must be called before the
// first Build.
func (s *BuildSystem) AttachDB(db ports.BuildDB) {
	s.engine.AttachDB(db)
}

// EnableTracing appends engine events to the file at path.
func (s *BuildSystem) EnableTracing(path string) error {
	return s.engine.EnableTracing(path)
}

// Build brings the named target up to date. It loads the manifest on first
// use, runs the engine with a fresh execution queue, and drains the queue
// before returning. A failed build returns domain.ErrBuildFailed (or the
// cycle error); an undeclared target returns domain.ErrUnknownTarget; a
// manifest that cannot be loaded returns the loader's error annotated with
// the domain.ErrManifestLoad message. Diagnostics have already been
// reported through the delegate.
func (s *BuildSystem) Build(target string) error {
	if s.manifest == nil {
		manifest, err := s.loader.Load(s.mainFilename, s)
		if err != nil {
			s.Error(s.mainFilename, Token{}, "unable to load build file")
			return zerr.Wrap(err, domain.ErrManifestLoad.Error())
		}
		s.manifest = manifest
	}
	if _, ok := s.manifest.Targets[target]; !ok {
		s.Error(s.mainFilename, Token{}, "unknown target '"+target+"'")
		return domain.ErrUnknownTarget
	}

	s.failed.Store(false)
	s.queue = s.client.CreateExecutionQueue()

	_, err := s.engine.Build(s.keyData(domain.TargetKey(target)))

	// Dropping the queue waits for pending jobs and their completion
	// callbacks.
	s.queue.Close()
	s.queue = nil

	if err != nil {
		return err
	}
	if s.failed.Load() {
		return domain.ErrBuildFailed
	}
	return nil
}

func (s *BuildSystem) keyData(key domain.BuildKey) engine.KeyType {
	return engine.KeyType(key.Encode())
}

// Delegate pass-through with failure bookkeeping. The build system stands
// between commands and the client delegate so that HadCommandFailure also
// marks the running build as failed.

func (s *BuildSystem) Name() string                 { return s.client.Name() }
func (s *BuildSystem) Version() uint32              { return s.client.Version() }
func (s *BuildSystem) FileSystem() ports.FileSystem { return s.client.FileSystem() }
func (s *BuildSystem) LookupTool(name string) Tool  { return s.client.LookupTool(name) }
func (s *BuildSystem) IsCancelled() bool            { return s.client.IsCancelled() }

func (s *BuildSystem) SetFileContentsBeingParsed(b []byte) {
	s.client.SetFileContentsBeingParsed(b)
}

func (s *BuildSystem) CommandStarted(command Command)  { s.client.CommandStarted(command) }
func (s *BuildSystem) CommandFinished(command Command) { s.client.CommandFinished(command) }

func (s *BuildSystem) CreateExecutionQueue() ports.ExecutionQueue {
	return s.client.CreateExecutionQueue()
}

func (s *BuildSystem) Error(filename string, at Token, message string) {
	s.client.Error(filename, at, message)
}

func (s *BuildSystem) HadCommandFailure() {
	s.failed.Store(true)
	s.client.HadCommandFailure()
}

// CommandInterface implementation.

func (s *BuildSystem) Delegate() Delegate { return s }

func (s *BuildSystem) AddJob(job ports.QueueJob) { s.queue.AddJob(job) }

func (s *BuildSystem) ExecutionQueue() ports.ExecutionQueue { return s.queue }

func (s *BuildSystem) TaskNeedsInput(ti *engine.TaskInterface, key domain.BuildKey, inputID int) {
	ti.NeedsInput(s.keyData(key), inputID)
}

func (s *BuildSystem) TaskMustFollow(ti *engine.TaskInterface, key domain.BuildKey) {
	ti.MustFollow(s.keyData(key))
}

func (s *BuildSystem) TaskDiscoveredDependency(ti *engine.TaskInterface, key domain.BuildKey) {
	ti.DiscoveredDependency(s.keyData(key))
}

func (s *BuildSystem) TaskIsComplete(ti *engine.TaskInterface, value domain.BuildValue, forceChange bool) {
	ti.Complete(value.Encode(), forceChange)
}
