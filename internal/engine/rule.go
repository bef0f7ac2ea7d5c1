// Package engine implements the demand-driven rule/task engine the build
// system layers its semantics on. The engine owns key identity, result
// caching, dependency scanning and cycle detection; it knows nothing about
// nodes, commands or targets.
package engine

// KeyType is an encoded build key. The engine treats it as opaque identity.
type KeyType = string

// ValueType is an encoded build value. The engine treats it as opaque bytes;
// equality of bytes is equality of values.
type ValueType = []byte

// Task is a live computation for one key. The engine drives it through the
// request/deliver protocol: Start, ProvidePriorValue, ProvideValue per
// requested input, then InputsAvailable exactly once. The task must
// eventually call Complete on its TaskInterface, possibly from an execution
// queue worker.
type Task interface {
	Start(ti *TaskInterface)
	ProvidePriorValue(ti *TaskInterface, value ValueType)
	ProvideValue(ti *TaskInterface, inputID int, value ValueType)
	InputsAvailable(ti *TaskInterface)
}

// Rule binds a key to a task factory and a validity predicate over a prior
// cached value. Rules are constructed on demand and not persisted.
type Rule struct {
	CreateTask    func() Task
	IsResultValid func(value ValueType) bool
}

// Delegate is the engine's view of its host.
type Delegate interface {
	// LookupRule produces the rule for a demanded key.
	LookupRule(key KeyType) Rule

	// CycleDetected reports the demand path of a detected cycle, from the
	// root key through to the repeated key.
	CycleDetected(cycle []KeyType)
}

// TaskInterface is the handle a task uses to talk back to the engine.
// NeedsInput and MustFollow are only valid on the engine goroutine (from
// within Start); DiscoveredDependency and Complete may be called from queue
// workers.
type TaskInterface struct {
	engine *Engine
	ts     *taskState
}

// NeedsInput requests the value of key and tags the delivery with inputID.
func (ti *TaskInterface) NeedsInput(key KeyType, inputID int) {
	ti.engine.taskNeedsInput(ti.ts, key, inputID)
}

// MustFollow orders this task after key without consuming its value.
func (ti *TaskInterface) MustFollow(key KeyType) {
	ti.engine.taskMustFollow(ti.ts, key)
}

// DiscoveredDependency records an edge found during execution, e.g. from a
// compiler-emitted dependency file. The edge participates in staleness
// checks on the next build.
func (ti *TaskInterface) DiscoveredDependency(key KeyType) {
	ti.engine.taskDiscoveredDependency(ti.ts, key)
}

// Complete finishes the task with the given value. With forceChange the
// value counts as changed for dependents even if it equals the prior one.
func (ti *TaskInterface) Complete(value ValueType, forceChange bool) {
	ti.engine.taskIsComplete(ti.ts, value, forceChange)
}
