// Package manifest provides the YAML build manifest loader.
package manifest

import (
	"fmt"
	"sort"

	"go.trai.ch/forge/internal/buildsystem"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ buildsystem.ManifestLoader = (*Loader)(nil)

// Loader implements buildsystem.ManifestLoader for YAML manifests.
type Loader struct{}

// NewLoader creates a manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads, decodes and binds the manifest at path. Diagnostics flow
// through the delegate; the returned error aborts the build.
func (l *Loader) Load(path string, delegate buildsystem.Delegate) (*buildsystem.Manifest, error) {
	data, err := delegate.FileSystem().GetFileContents(path)
	if err != nil {
		delegate.Error(path, buildsystem.Token{}, "unable to read build file")
		return nil, zerr.Wrap(err, "failed to read manifest")
	}
	delegate.SetFileContentsBeingParsed(data)

	var file manifestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		delegate.Error(path, buildsystem.Token{}, fmt.Sprintf("invalid manifest: %v", err))
		return nil, zerr.Wrap(err, "failed to parse manifest")
	}

	// The client section must match the configured build system.
	if file.Client.Name != delegate.Name() {
		msg := fmt.Sprintf("unexpected client name '%s'", file.Client.Name)
		delegate.Error(path, buildsystem.Token{}, msg)
		return nil, zerr.With(zerr.New("client name mismatch"), "client", file.Client.Name)
	}
	if file.Client.Version != delegate.Version() {
		msg := fmt.Sprintf("unexpected client version %d", file.Client.Version)
		delegate.Error(path, buildsystem.Token{}, msg)
		return nil, zerr.With(zerr.New("client version mismatch"), "version", file.Client.Version)
	}

	b := binder{
		path:     path,
		delegate: delegate,
		manifest: buildsystem.NewManifest(),
		tools:    make(map[string]buildsystem.Tool),
	}
	b.manifest.ClientName = file.Client.Name
	b.manifest.ClientVersion = file.Client.Version

	if err := b.bindTools(file.Tools); err != nil {
		return nil, err
	}
	for name := range file.Nodes {
		b.manifest.GetOrCreateNode(name)
	}
	if err := b.bindCommands(file.Commands); err != nil {
		return nil, err
	}
	b.bindTargets(file.Targets)

	return b.manifest, nil
}

type binder struct {
	path     string
	delegate buildsystem.Delegate
	manifest *buildsystem.Manifest
	tools    map[string]buildsystem.Tool
}

func (b *binder) errorf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	b.delegate.Error(b.path, buildsystem.Token{}, msg)
	return zerr.New(msg)
}

// bindTools resolves the declared tools in manifest order, applying any
// tool-level attributes.
func (b *binder) bindTools(tools yaml.Node) error {
	if tools.Kind == 0 {
		return nil
	}
	if tools.Kind != yaml.MappingNode {
		return b.errorf("invalid 'tools' section")
	}
	for i := 0; i+1 < len(tools.Content); i += 2 {
		name := tools.Content[i].Value
		tool, err := b.resolveTool(name)
		if err != nil {
			return err
		}

		attrs := tools.Content[i+1]
		if attrs.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(attrs.Content); j += 2 {
			if err := tool.ConfigureAttribute(attrs.Content[j].Value, attrs.Content[j+1].Value); err != nil {
				return b.errorf("tool '%s': %v", name, err)
			}
		}
	}
	return nil
}

// resolveTool consults the delegate first, then the built-in definitions.
// Tools join the manifest list in first-resolution order.
func (b *binder) resolveTool(name string) (buildsystem.Tool, error) {
	if tool, ok := b.tools[name]; ok {
		return tool, nil
	}
	tool := b.delegate.LookupTool(name)
	if tool == nil {
		tool = buildsystem.LookupBuiltinTool(name)
	}
	if tool == nil {
		return nil, b.errorf("invalid tool type in 'tools' map: '%s'", name)
	}
	b.tools[name] = tool
	b.manifest.Tools = append(b.manifest.Tools, tool)
	return tool, nil
}

func (b *binder) bindCommands(commands map[string]commandDTO) error {
	// Deterministic binding order keeps tool registration stable.
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := b.bindCommand(name, commands[name]); err != nil {
			return err
		}
	}
	return nil
}

func (b *binder) bindCommand(name string, dto commandDTO) error {
	if dto.Tool == "" {
		return b.errorf("missing 'tool' key for command '%s'", name)
	}
	tool, err := b.resolveTool(dto.Tool)
	if err != nil {
		return err
	}

	cmd := tool.CreateCommand(name)
	if dto.Description != "" {
		cmd.ConfigureDescription(dto.Description)
	}

	inputs := make([]*buildsystem.Node, len(dto.Inputs))
	for i, n := range dto.Inputs {
		inputs[i] = b.manifest.GetOrCreateNode(n)
	}
	if err := cmd.ConfigureInputs(inputs); err != nil {
		return b.errorf("command '%s': %v", name, err)
	}

	outputs := make([]*buildsystem.Node, len(dto.Outputs))
	for i, n := range dto.Outputs {
		outputs[i] = b.manifest.GetOrCreateNode(n)
	}
	if err := cmd.ConfigureOutputs(outputs); err != nil {
		return b.errorf("command '%s': %v", name, err)
	}
	for _, out := range outputs {
		out.AddProducer(cmd)
	}

	if err := b.applyArgs(cmd, name, dto.Args); err != nil {
		return err
	}
	if len(dto.Env) > 0 {
		if err := cmd.ConfigureAttributeMap("env", dto.Env); err != nil {
			return b.errorf("command '%s': %v", name, err)
		}
	}
	if dto.Deps != "" {
		if err := cmd.ConfigureAttribute("deps", dto.Deps); err != nil {
			return b.errorf("command '%s': %v", name, err)
		}
	}

	b.manifest.Commands[name] = cmd
	return nil
}

// applyArgs dispatches the 'args' attribute by YAML shape: a scalar goes
// through ConfigureAttribute, a sequence through ConfigureAttributeList.
func (b *binder) applyArgs(cmd buildsystem.Command, name string, args yaml.Node) error {
	switch args.Kind {
	case 0:
		return nil
	case yaml.ScalarNode:
		if err := cmd.ConfigureAttribute("args", args.Value); err != nil {
			return b.errorf("command '%s': %v", name, err)
		}
		return nil
	case yaml.SequenceNode:
		values := make([]string, len(args.Content))
		for i, item := range args.Content {
			values[i] = item.Value
		}
		if err := cmd.ConfigureAttributeList("args", values); err != nil {
			return b.errorf("command '%s': %v", name, err)
		}
		return nil
	default:
		return b.errorf("command '%s': invalid 'args' value", name)
	}
}

func (b *binder) bindTargets(targets map[string][]string) {
	for name, nodeNames := range targets {
		nodes := make([]*buildsystem.Node, len(nodeNames))
		for i, n := range nodeNames {
			nodes[i] = b.manifest.GetOrCreateNode(n)
		}
		b.manifest.Targets[name] = buildsystem.NewTarget(name, nodes)
	}
}
