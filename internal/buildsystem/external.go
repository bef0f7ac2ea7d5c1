package buildsystem

import (
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine"
	"go.trai.ch/zerr"
)

// externalCommandHooks are the points a concrete command kind customizes on
// the shared external-command behavior.
type externalCommandHooks interface {
	Command

	// writeSignatureExtras folds subclass state (argv, deps path, ...) into
	// the signature digest.
	writeSignatureExtras(d *xxhash.Digest)

	// executeExternalCommand runs the command body on a queue worker and
	// reports success.
	executeExternalCommand(ctx context.Context, bsci CommandInterface, ti *engine.TaskInterface) bool
}

// externalCommand is the shared behavior of commands that reduce to a job on
// the execution queue: input requests, the 64-bit signature, staleness
// against a prior value, and success/failure encoding.
type externalCommand struct {
	name        string
	description string
	inputs      []*Node
	outputs     []*Node
	hooks       externalCommandHooks

	// Per-build state, reset when the task starts.
	hadFailedInput bool
}

func (c *externalCommand) init(name string, hooks externalCommandHooks) {
	c.name = name
	c.hooks = hooks
}

func (c *externalCommand) Name() string { return c.name }

func (c *externalCommand) ShortDescription() string {
	if c.description != "" {
		return c.description
	}
	return c.name
}

func (c *externalCommand) VerboseDescription() string { return c.ShortDescription() }

func (c *externalCommand) ShouldShowStatus() bool { return true }

func (c *externalCommand) Inputs() []*Node  { return c.inputs }
func (c *externalCommand) Outputs() []*Node { return c.outputs }

func (c *externalCommand) ConfigureDescription(description string) {
	c.description = description
}

func (c *externalCommand) ConfigureInputs(nodes []*Node) error {
	c.inputs = nodes
	return nil
}

func (c *externalCommand) ConfigureOutputs(nodes []*Node) error {
	c.outputs = nodes
	return nil
}

func (c *externalCommand) ConfigureAttribute(name, value string) error {
	return zerr.With(zerr.New("unexpected attribute"), "attribute", name)
}

func (c *externalCommand) ConfigureAttributeList(name string, values []string) error {
	return zerr.With(zerr.New("unexpected attribute"), "attribute", name)
}

func (c *externalCommand) ConfigureAttributeMap(name string, values map[string]string) error {
	return zerr.With(zerr.New("unexpected attribute"), "attribute", name)
}

// signature summarizes everything outside the declared inputs that affects
// the command's behavior: the input and output name lists plus whatever the
// concrete kind folds in. Fields are fed to the digest in order with NUL
// separators; sets are never combined by XOR.
func (c *externalCommand) signature() uint64 {
	d := xxhash.New()
	for _, n := range c.inputs {
		_, _ = d.WriteString(n.Name())
		_, _ = d.Write([]byte{0})
	}
	_, _ = d.Write([]byte{0})
	for _, n := range c.outputs {
		_, _ = d.WriteString(n.Name())
		_, _ = d.Write([]byte{0})
	}
	_, _ = d.Write([]byte{0})
	c.hooks.writeSignatureExtras(d)
	return d.Sum64()
}

// IsResultValid accepts a prior value only if it is a successful run with
// the current signature and every declared non-virtual output still stats
// exactly as recorded. Missing outputs invalidate.
func (c *externalCommand) IsResultValid(fsys ports.FileSystem, value domain.BuildValue) bool {
	if value.Kind != domain.ValueKindSuccessfulCommand {
		return false
	}
	if value.Signature != c.signature() {
		return false
	}
	if len(value.Outputs) != len(c.outputs) {
		return false
	}
	for i, out := range c.outputs {
		if out.IsVirtual() {
			continue
		}
		info := out.FileInfo(fsys)
		if info.IsMissing() || info != value.NthOutputInfo(i) {
			return false
		}
	}
	return true
}

// ResultForOutput projects the command value onto one output node: failures
// and skips become failed inputs, successful runs surface the output's
// recorded fingerprint.
func (c *externalCommand) ResultForOutput(node *Node, value domain.BuildValue) domain.BuildValue {
	switch value.Kind {
	case domain.ValueKindFailedCommand, domain.ValueKindSkippedCommand, domain.ValueKindInvalid:
		return domain.FailedInputValue()
	case domain.ValueKindSuccessfulCommand:
		for i, out := range c.outputs {
			if out == node {
				return domain.ExistingInputValue(value.NthOutputInfo(i))
			}
		}
		return domain.FailedInputValue()
	default:
		return domain.FailedInputValue()
	}
}

func (c *externalCommand) Start(bsci CommandInterface, ti *engine.TaskInterface) {
	c.hadFailedInput = false
	for i, n := range c.inputs {
		bsci.TaskNeedsInput(ti, domain.NodeKey(n.Name()), i)
	}
}

func (c *externalCommand) ProvidePriorValue(CommandInterface, *engine.TaskInterface, domain.BuildValue) {
}

func (c *externalCommand) ProvideValue(bsci CommandInterface, ti *engine.TaskInterface, inputID int, value domain.BuildValue) {
	switch value.Kind {
	case domain.ValueKindFailedInput, domain.ValueKindMissingInput, domain.ValueKindInvalid:
		c.hadFailedInput = true
	}
}

// InputsAvailable schedules the command body, honoring cancellation and
// upstream failure before any work is enqueued. The delegate's
// commandStarted precedes any I/O; commandFinished precedes the completion
// call.
func (c *externalCommand) InputsAvailable(bsci CommandInterface, ti *engine.TaskInterface) {
	delegate := bsci.Delegate()
	if delegate.IsCancelled() {
		bsci.TaskIsComplete(ti, domain.SkippedCommandValue(), false)
		return
	}
	if c.hadFailedInput {
		delegate.HadCommandFailure()
		bsci.TaskIsComplete(ti, domain.FailedCommandValue(), false)
		return
	}

	bsci.AddJob(func(ctx context.Context) {
		delegate.CommandStarted(c.hooks)
		success := c.hooks.executeExternalCommand(ctx, bsci, ti)
		delegate.CommandFinished(c.hooks)

		if !success {
			delegate.HadCommandFailure()
			bsci.TaskIsComplete(ti, domain.FailedCommandValue(), false)
			return
		}

		infos := make([]domain.FileInfo, len(c.outputs))
		for i, out := range c.outputs {
			if out.IsVirtual() {
				continue
			}
			info := out.FileInfo(delegate.FileSystem())
			if info.IsMissing() {
				delegate.Error("", Token{}, fmt.Sprintf(
					"command '%s' did not produce expected output '%s'", c.name, out.Name()))
				delegate.HadCommandFailure()
				bsci.TaskIsComplete(ti, domain.FailedCommandValue(), false)
				return
			}
			infos[i] = info
		}
		bsci.TaskIsComplete(ti, domain.SuccessfulCommandValue(infos, c.signature()), false)
	})
}

// quoteArg renders one argv element for verbose descriptions.
func quoteArg(arg string) string {
	if strings.ContainsAny(arg, " \t") {
		return "\"" + arg + "\""
	}
	return arg
}
