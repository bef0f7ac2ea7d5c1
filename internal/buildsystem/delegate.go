// Package buildsystem turns a declarative manifest of targets, commands and
// nodes into engine rules, and owns the built-in command semantics.
package buildsystem

import "go.trai.ch/forge/internal/core/ports"

// Token locates a diagnostic inside the manifest buffer.
type Token struct {
	Start  int
	Length int
}

// Delegate is the host interface the build system is configured with. Error
// and the command callbacks may be invoked from execution queue workers;
// implementations must be safe for concurrent use.
type Delegate interface {
	// Name identifies the client; the manifest's client section must match.
	Name() string

	// Version is the client schema version folded into the database schema.
	Version() uint32

	// FileSystem returns the filesystem the build observes.
	FileSystem() ports.FileSystem

	// LookupTool resolves a client-defined tool, or nil to fall back to the
	// built-in tools.
	LookupTool(name string) Tool

	// CreateExecutionQueue builds the queue used for one build.
	CreateExecutionQueue() ports.ExecutionQueue

	// IsCancelled is polled by commands before scheduling work.
	IsCancelled() bool

	// Error reports a diagnostic. Advisory only; correctness is carried by
	// build values.
	Error(filename string, at Token, message string)

	// SetFileContentsBeingParsed hands over the manifest buffer before
	// decoding, for diagnostic use.
	SetFileContentsBeingParsed(buf []byte)

	// CommandStarted fires before a command performs any I/O.
	CommandStarted(command Command)

	// CommandFinished fires after the command body, before its completion is
	// delivered to the engine.
	CommandFinished(command Command)

	// HadCommandFailure notes that some command failed during the build.
	HadCommandFailure()
}
