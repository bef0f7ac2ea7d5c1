package buildsystem

import (
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine"
)

// Command is a unit of work producing node outputs from node inputs. A
// command is configured once at manifest load time and then driven through
// the engine protocol by a CommandTask, one task per build.
type Command interface {
	Name() string

	// ShortDescription is the status line shown while the command runs.
	ShortDescription() string

	// VerboseDescription is the full invocation for verbose output.
	VerboseDescription() string

	// ShouldShowStatus reports whether status display is wanted; phony
	// commands suppress it.
	ShouldShowStatus() bool

	Inputs() []*Node
	Outputs() []*Node

	// Configuration, called by the manifest loader.
	ConfigureDescription(description string)
	ConfigureInputs(nodes []*Node) error
	ConfigureOutputs(nodes []*Node) error
	ConfigureAttribute(name, value string) error
	ConfigureAttributeList(name string, values []string) error
	ConfigureAttributeMap(name string, values map[string]string) error

	// IsResultValid decides whether a prior cached value can be reused.
	IsResultValid(fsys ports.FileSystem, value domain.BuildValue) bool

	// ResultForOutput projects the command's value onto one of its output
	// nodes.
	ResultForOutput(node *Node, value domain.BuildValue) domain.BuildValue

	// Engine protocol, forwarded by CommandTask.
	Start(bsci CommandInterface, ti *engine.TaskInterface)
	ProvidePriorValue(bsci CommandInterface, ti *engine.TaskInterface, value domain.BuildValue)
	ProvideValue(bsci CommandInterface, ti *engine.TaskInterface, inputID int, value domain.BuildValue)
	InputsAvailable(bsci CommandInterface, ti *engine.TaskInterface)
}

// Tool manufactures commands of one kind.
type Tool interface {
	Name() string

	// ConfigureAttribute applies a tool-level attribute from the manifest.
	ConfigureAttribute(name, value string) error

	// CreateCommand creates a manifest-declared command.
	CreateCommand(name string) Command

	// CreateCustomCommand creates a command for a custom-task key, or nil if
	// this tool does not accept the key.
	CreateCustomCommand(key domain.BuildKey) Command
}

// CommandInterface is what commands see of the build system: key codecs
// around the engine protocol, the execution queue, and the delegate.
type CommandInterface interface {
	Delegate() Delegate

	// AddJob schedules work on the current build's execution queue.
	AddJob(job ports.QueueJob)

	ExecutionQueue() ports.ExecutionQueue

	TaskNeedsInput(ti *engine.TaskInterface, key domain.BuildKey, inputID int)
	TaskMustFollow(ti *engine.TaskInterface, key domain.BuildKey)
	TaskDiscoveredDependency(ti *engine.TaskInterface, key domain.BuildKey)
	TaskIsComplete(ti *engine.TaskInterface, value domain.BuildValue, forceChange bool)
}
