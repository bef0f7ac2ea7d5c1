package buildsystem

import (
	"fmt"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/engine"
)

// targetTask fans a target out into one node request per member, in declared
// order. Targets always rebuild; their value is only a marker.
type targetTask struct {
	system *BuildSystem
	target *Target

	hasMissingInput bool
}

func (t *targetTask) Start(ti *engine.TaskInterface) {
	for i, node := range t.target.Nodes() {
		t.system.TaskNeedsInput(ti, domain.NodeKey(node.Name()), i)
	}
}

func (t *targetTask) ProvidePriorValue(*engine.TaskInterface, engine.ValueType) {}

func (t *targetTask) ProvideValue(ti *engine.TaskInterface, inputID int, data engine.ValueType) {
	value, err := domain.DecodeBuildValue(data)
	if err != nil {
		return
	}
	if value.Kind == domain.ValueKindMissingInput {
		t.hasMissingInput = true
		t.system.Error(t.system.mainFilename, Token{}, fmt.Sprintf(
			"missing input '%s' and no rule to build it", t.target.Nodes()[inputID].Name()))
	}
}

func (t *targetTask) InputsAvailable(ti *engine.TaskInterface) {
	if t.hasMissingInput {
		t.system.Error(t.system.mainFilename, Token{}, fmt.Sprintf(
			"cannot build target '%s' due to missing input", t.target.Name()))
		t.system.HadCommandFailure()
	}
	ti.Complete(domain.TargetValue().Encode(), false)
}

// inputNodeTask observes a leaf node: virtual nodes are marked present,
// files are fingerprinted or reported missing.
type inputNodeTask struct {
	system *BuildSystem
	node   *Node
}

func (t *inputNodeTask) Start(*engine.TaskInterface) {
	if len(t.node.Producers()) != 0 {
		panic("input node task bound to a produced node")
	}
}

func (t *inputNodeTask) ProvidePriorValue(*engine.TaskInterface, engine.ValueType) {}

func (t *inputNodeTask) ProvideValue(*engine.TaskInterface, int, engine.ValueType) {}

func (t *inputNodeTask) InputsAvailable(ti *engine.TaskInterface) {
	if t.node.IsVirtual() {
		ti.Complete(domain.VirtualInputValue().Encode(), false)
		return
	}
	info := t.node.FileInfo(t.system.FileSystem())
	if info.IsMissing() {
		ti.Complete(domain.MissingInputValue().Encode(), false)
		return
	}
	ti.Complete(domain.ExistingInputValue(info).Encode(), false)
}

// inputNodeResultValid is the validity predicate for input nodes: a virtual
// node only needs the right value kind; a file must stat exactly as cached.
func inputNodeResultValid(system *BuildSystem, node *Node, value domain.BuildValue) bool {
	if node.IsVirtual() {
		return value.Kind == domain.ValueKindVirtualInput
	}
	info := node.FileInfo(system.FileSystem())
	if info.IsMissing() {
		return value.Kind == domain.ValueKindMissingInput
	}
	return value.Kind == domain.ValueKindExistingInput && value.OutputInfo() == info
}

// producedNodeTask binds a node to its producing command's output. Nodes
// with multiple producers are unsupported and fail outright.
type producedNodeTask struct {
	system *BuildSystem
	node   *Node

	producer   Command
	nodeResult domain.BuildValue
	isInvalid  bool
}

func (t *producedNodeTask) Start(ti *engine.TaskInterface) {
	producers := t.node.Producers()
	if len(producers) == 1 {
		t.producer = producers[0]
		t.system.TaskNeedsInput(ti, domain.CommandKey(t.producer.Name()), 0)
		return
	}

	t.system.Error("", Token{}, fmt.Sprintf(
		"unable to build node: '%s' (node is produced by multiple commands; e.g., '%s' and '%s')",
		t.node.Name(), producers[0].Name(), producers[1].Name()))
	t.isInvalid = true
}

func (t *producedNodeTask) ProvidePriorValue(*engine.TaskInterface, engine.ValueType) {}

func (t *producedNodeTask) ProvideValue(ti *engine.TaskInterface, inputID int, data engine.ValueType) {
	value, err := domain.DecodeBuildValue(data)
	if err != nil {
		value = domain.InvalidValue()
	}
	t.nodeResult = t.producer.ResultForOutput(t.node, value)
}

func (t *producedNodeTask) InputsAvailable(ti *engine.TaskInterface) {
	if t.isInvalid {
		ti.Complete(domain.FailedInputValue().Encode(), false)
		return
	}
	ti.Complete(t.nodeResult.Encode(), false)
}

// commandTask is a thin adapter forwarding each engine callback to the
// bound command.
type commandTask struct {
	system  *BuildSystem
	command Command
}

func (t *commandTask) Start(ti *engine.TaskInterface) {
	t.command.Start(t.system, ti)
}

func (t *commandTask) ProvidePriorValue(ti *engine.TaskInterface, data engine.ValueType) {
	value, err := domain.DecodeBuildValue(data)
	if err != nil {
		return
	}
	t.command.ProvidePriorValue(t.system, ti, value)
}

func (t *commandTask) ProvideValue(ti *engine.TaskInterface, inputID int, data engine.ValueType) {
	value, err := domain.DecodeBuildValue(data)
	if err != nil {
		value = domain.InvalidValue()
	}
	t.command.ProvideValue(t.system, ti, inputID, value)
}

func (t *commandTask) InputsAvailable(ti *engine.TaskInterface) {
	t.command.InputsAvailable(t.system, ti)
}

// missingCommandTask stands in for a command that is referenced but no
// longer in the manifest. It completes with an invalid value and forces a
// change so every dependent re-evaluates and surfaces its own failure.
type missingCommandTask struct{}

func (t *missingCommandTask) Start(*engine.TaskInterface) {}

func (t *missingCommandTask) ProvidePriorValue(*engine.TaskInterface, engine.ValueType) {}

func (t *missingCommandTask) ProvideValue(*engine.TaskInterface, int, engine.ValueType) {}

func (t *missingCommandTask) InputsAvailable(ti *engine.TaskInterface) {
	ti.Complete(domain.InvalidValue().Encode(), true)
}
