package buildsystem

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine"
	"go.trai.ch/zerr"
)

// mkdirCommand creates its single output directory. It does not follow the
// external-command staleness rules: directory metadata churns, so validity
// only requires the output to exist and be a directory.
type mkdirCommand struct {
	name        string
	description string
	output      *Node
}

func newMkdirCommand(name string) *mkdirCommand {
	return &mkdirCommand{name: name}
}

func (c *mkdirCommand) Name() string { return c.name }

func (c *mkdirCommand) ShortDescription() string {
	if c.description != "" {
		return c.description
	}
	return c.VerboseDescription()
}

func (c *mkdirCommand) VerboseDescription() string {
	return "mkdir " + quoteArg(c.output.Name())
}

func (c *mkdirCommand) ShouldShowStatus() bool { return true }

func (c *mkdirCommand) Inputs() []*Node { return nil }

func (c *mkdirCommand) Outputs() []*Node {
	if c.output == nil {
		return nil
	}
	return []*Node{c.output}
}

func (c *mkdirCommand) ConfigureDescription(description string) { c.description = description }

func (c *mkdirCommand) ConfigureInputs(nodes []*Node) error {
	if len(nodes) > 0 {
		return zerr.With(zerr.New("unexpected explicit input"), "input", nodes[0].Name())
	}
	return nil
}

func (c *mkdirCommand) ConfigureOutputs(nodes []*Node) error {
	switch {
	case len(nodes) == 0:
		return zerr.New("missing declared output")
	case len(nodes) > 1:
		return zerr.With(zerr.New("unexpected explicit output"), "output", nodes[1].Name())
	case nodes[0].IsVirtual():
		return zerr.New("unexpected virtual output")
	}
	c.output = nodes[0]
	return nil
}

func (c *mkdirCommand) ConfigureAttribute(name, value string) error {
	return zerr.With(zerr.New("unexpected attribute"), "attribute", name)
}

func (c *mkdirCommand) ConfigureAttributeList(name string, values []string) error {
	return zerr.With(zerr.New("unexpected attribute"), "attribute", name)
}

func (c *mkdirCommand) ConfigureAttributeMap(name string, values map[string]string) error {
	return zerr.With(zerr.New("unexpected attribute"), "attribute", name)
}

func (c *mkdirCommand) signature() uint64 {
	return xxhash.Sum64String(c.output.Name())
}

// IsResultValid deliberately does not compare the stored FileInfo: the
// output only needs to still exist as a directory.
func (c *mkdirCommand) IsResultValid(fsys ports.FileSystem, value domain.BuildValue) bool {
	if value.Kind != domain.ValueKindSuccessfulCommand {
		return false
	}
	info := c.output.FileInfo(fsys)
	return !info.IsMissing() && info.IsDirectory()
}

func (c *mkdirCommand) ResultForOutput(node *Node, value domain.BuildValue) domain.BuildValue {
	switch value.Kind {
	case domain.ValueKindFailedCommand, domain.ValueKindSkippedCommand, domain.ValueKindInvalid:
		return domain.FailedInputValue()
	case domain.ValueKindSuccessfulCommand:
		return domain.ExistingInputValue(value.OutputInfo())
	default:
		return domain.FailedInputValue()
	}
}

func (c *mkdirCommand) Start(CommandInterface, *engine.TaskInterface) {}

func (c *mkdirCommand) ProvidePriorValue(CommandInterface, *engine.TaskInterface, domain.BuildValue) {
}

func (c *mkdirCommand) ProvideValue(CommandInterface, *engine.TaskInterface, int, domain.BuildValue) {
}

func (c *mkdirCommand) InputsAvailable(bsci CommandInterface, ti *engine.TaskInterface) {
	delegate := bsci.Delegate()
	if delegate.IsCancelled() {
		bsci.TaskIsComplete(ti, domain.SkippedCommandValue(), false)
		return
	}

	bsci.AddJob(func(ctx context.Context) {
		delegate.CommandStarted(c)
		err := delegate.FileSystem().CreateDirectories(c.output.Name())
		delegate.CommandFinished(c)

		if err != nil {
			delegate.Error("", Token{}, fmt.Sprintf(
				"unable to create directory '%s'", c.output.Name()))
			delegate.HadCommandFailure()
			bsci.TaskIsComplete(ti, domain.FailedCommandValue(), false)
			return
		}

		info := c.output.FileInfo(delegate.FileSystem())
		bsci.TaskIsComplete(ti, domain.SuccessfulCommandValue(
			[]domain.FileInfo{info}, c.signature()), false)
	})
}

type mkdirTool struct{ baseTool }

func (t *mkdirTool) CreateCommand(name string) Command { return newMkdirCommand(name) }
