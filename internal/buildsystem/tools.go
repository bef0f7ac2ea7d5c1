package buildsystem

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/depsparser"
	"go.trai.ch/forge/internal/engine"
	"go.trai.ch/zerr"
)

// LookupBuiltinTool resolves one of the built-in tool definitions, or nil.
func LookupBuiltinTool(name string) Tool {
	switch name {
	case "shell":
		return &shellTool{baseTool{name: name}}
	case "phony":
		return &phonyTool{baseTool{name: name}}
	case "clang":
		return &clangTool{baseTool{name: name}}
	case "mkdir":
		return &mkdirTool{baseTool{name: name}}
	default:
		return nil
	}
}

// baseTool carries the shared no-attribute behavior of the built-in tools.
type baseTool struct {
	name string
}

func (t *baseTool) Name() string { return t.name }

func (t *baseTool) ConfigureAttribute(name, value string) error {
	return zerr.With(zerr.New("unexpected attribute"), "attribute", name)
}

func (t *baseTool) CreateCustomCommand(key domain.BuildKey) Command { return nil }

// phony

// phonyCommand performs no work; it exists so downstream invalidation still
// flows through its declared outputs.
type phonyCommand struct {
	externalCommand
}

func newPhonyCommand(name string) *phonyCommand {
	c := &phonyCommand{}
	c.init(name, c)
	return c
}

func (c *phonyCommand) ShouldShowStatus() bool { return false }

func (c *phonyCommand) ShortDescription() string { return c.name }

func (c *phonyCommand) VerboseDescription() string { return c.name }

func (c *phonyCommand) writeSignatureExtras(*xxhash.Digest) {}

func (c *phonyCommand) executeExternalCommand(context.Context, CommandInterface, *engine.TaskInterface) bool {
	return true
}

type phonyTool struct{ baseTool }

func (t *phonyTool) CreateCommand(name string) Command { return newPhonyCommand(name) }

// shell

// shellCommand runs an argv through the execution queue's process API.
type shellCommand struct {
	externalCommand

	args []string
	env  map[string]string
}

func newShellCommand(name string) *shellCommand {
	c := &shellCommand{}
	c.init(name, c)
	return c
}

func (c *shellCommand) VerboseDescription() string {
	quoted := make([]string, len(c.args))
	for i, arg := range c.args {
		quoted[i] = quoteArg(arg)
	}
	return strings.Join(quoted, " ")
}

func (c *shellCommand) ConfigureAttribute(name, value string) error {
	if name != "args" {
		return c.externalCommand.ConfigureAttribute(name, value)
	}
	// A scalar args string runs through the shell.
	c.args = []string{"/bin/sh", "-c", value}
	return nil
}

func (c *shellCommand) ConfigureAttributeList(name string, values []string) error {
	if name != "args" {
		return c.externalCommand.ConfigureAttributeList(name, values)
	}
	if len(values) == 0 {
		return zerr.With(zerr.New("invalid arguments for command"), "command", c.name)
	}
	c.args = values
	return nil
}

func (c *shellCommand) ConfigureAttributeMap(name string, values map[string]string) error {
	if name != "env" {
		return c.externalCommand.ConfigureAttributeMap(name, values)
	}
	c.env = values
	return nil
}

// The environment is deliberately absent from the signature; changing env
// alone does not re-run the command. Known soundness gap, kept for cache
// stability with prior results.
func (c *shellCommand) writeSignatureExtras(d *xxhash.Digest) {
	for _, arg := range c.args {
		_, _ = d.WriteString(arg)
		_, _ = d.Write([]byte{0})
	}
}

func (c *shellCommand) executeExternalCommand(ctx context.Context, bsci CommandInterface, ti *engine.TaskInterface) bool {
	var env []string
	if len(c.env) > 0 {
		keys := make([]string, 0, len(c.env))
		for k := range c.env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		env = make([]string, 0, len(keys))
		for _, k := range keys {
			env = append(env, k+"="+c.env[k])
		}
	}
	return bsci.ExecutionQueue().ExecuteProcess(ctx, c.args, env)
}

type shellTool struct{ baseTool }

func (t *shellTool) CreateCommand(name string) Command { return newShellCommand(name) }

// clang

// clangCommand runs a compiler invocation through the shell and, on
// success, feeds the makefile-format dependency file back to the engine as
// discovered dependencies.
type clangCommand struct {
	externalCommand

	args     string
	depsPath string
}

func newClangCommand(name string) *clangCommand {
	c := &clangCommand{}
	c.init(name, c)
	return c
}

func (c *clangCommand) VerboseDescription() string { return c.args }

func (c *clangCommand) ConfigureAttribute(name, value string) error {
	switch name {
	case "args":
		c.args = value
		return nil
	case "deps":
		c.depsPath = value
		return nil
	default:
		return c.externalCommand.ConfigureAttribute(name, value)
	}
}

func (c *clangCommand) writeSignatureExtras(d *xxhash.Digest) {
	_, _ = d.WriteString(c.args)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(c.depsPath)
}

func (c *clangCommand) executeExternalCommand(ctx context.Context, bsci CommandInterface, ti *engine.TaskInterface) bool {
	if !bsci.ExecutionQueue().ExecuteShellCommand(ctx, c.args) {
		// The dependencies file is unreliable after a failed run.
		return false
	}
	if c.depsPath != "" {
		return c.processDiscoveredDependencies(bsci, ti)
	}
	return true
}

func (c *clangCommand) processDiscoveredDependencies(bsci CommandInterface, ti *engine.TaskInterface) bool {
	contents, err := bsci.Delegate().FileSystem().GetFileContents(c.depsPath)
	if err != nil {
		bsci.Delegate().Error(c.depsPath, Token{}, fmt.Sprintf(
			"unable to open dependencies file (%s)", c.depsPath))
		return false
	}

	actions := &depsActions{bsci: bsci, ti: ti, command: c}
	depsparser.Parse(contents, actions)
	return actions.numErrors == 0
}

// depsActions registers every dependency in the file; the rule names are
// ignored.
type depsActions struct {
	bsci      CommandInterface
	ti        *engine.TaskInterface
	command   *clangCommand
	numErrors int
}

func (a *depsActions) RuleStart(name string) {}

func (a *depsActions) RuleDependency(name string) {
	a.bsci.TaskDiscoveredDependency(a.ti, domain.NodeKey(name))
}

func (a *depsActions) RuleEnd() {}

func (a *depsActions) Error(message string, offset int) {
	a.bsci.Delegate().Error(a.command.depsPath, Token{Start: offset}, fmt.Sprintf(
		"error reading dependency file: %s", message))
	a.numErrors++
}

type clangTool struct{ baseTool }

func (t *clangTool) CreateCommand(name string) Command { return newClangCommand(name) }
