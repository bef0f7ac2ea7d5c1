package buildsystem

import (
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/engine"
)

// neverValid is the validity predicate of keys that always rebuild.
func neverValid(engine.ValueType) bool { return false }

// LookupRule maps a demanded key to a freshly-minted task and its validity
// predicate. It also owns the dynamic node table and the custom commands
// created by tools, both mutated only on the engine goroutine.
func (s *BuildSystem) LookupRule(keyData engine.KeyType) engine.Rule {
	key := domain.DecodeBuildKey([]byte(keyData))

	switch key.Kind {
	case domain.KeyKindCommand:
		command, ok := s.manifest.Commands[key.Name]
		if !ok {
			return engine.Rule{
				CreateTask:    func() engine.Task { return &missingCommandTask{} },
				IsResultValid: neverValid,
			}
		}
		return s.commandRule(command)

	case domain.KeyKindCustomTask:
		for _, tool := range s.manifest.Tools {
			command := tool.CreateCustomCommand(key)
			if command == nil {
				continue
			}
			// The custom command is owned by the engine delegate for the
			// rest of the build.
			s.customCommands = append(s.customCommands, command)
			return s.commandRule(command)
		}
		return engine.Rule{
			CreateTask:    func() engine.Task { return &missingCommandTask{} },
			IsResultValid: neverValid,
		}

	case domain.KeyKindNode:
		node := s.lookupNode(key.Name)
		if len(node.Producers()) == 0 {
			return engine.Rule{
				CreateTask: func() engine.Task { return &inputNodeTask{system: s, node: node} },
				IsResultValid: func(data engine.ValueType) bool {
					value, err := domain.DecodeBuildValue(data)
					if err != nil {
						return false
					}
					return inputNodeResultValid(s, node, value)
				},
			}
		}
		return engine.Rule{
			CreateTask: func() engine.Task { return &producedNodeTask{system: s, node: node} },
			IsResultValid: func(data engine.ValueType) bool {
				value, err := domain.DecodeBuildValue(data)
				if err != nil {
					return false
				}
				// Failures always re-produce; freshness otherwise flows from
				// the producing command.
				return value.Kind != domain.ValueKindFailedInput
			},
		}

	case domain.KeyKindTarget:
		target, ok := s.manifest.Targets[key.Name]
		if !ok {
			s.Error(s.mainFilename, Token{}, "unknown target '"+key.Name+"'")
			s.failed.Store(true)
			return engine.Rule{
				CreateTask:    func() engine.Task { return &missingCommandTask{} },
				IsResultValid: neverValid,
			}
		}
		return engine.Rule{
			CreateTask:    func() engine.Task { return &targetTask{system: s, target: target} },
			IsResultValid: neverValid,
		}

	default:
		s.Error(s.mainFilename, Token{}, "invalid key requested from engine")
		s.failed.Store(true)
		return engine.Rule{
			CreateTask:    func() engine.Task { return &missingCommandTask{} },
			IsResultValid: neverValid,
		}
	}
}

func (s *BuildSystem) commandRule(command Command) engine.Rule {
	return engine.Rule{
		CreateTask: func() engine.Task { return &commandTask{system: s, command: command} },
		IsResultValid: func(data engine.ValueType) bool {
			value, err := domain.DecodeBuildValue(data)
			if err != nil {
				return false
			}
			return command.IsResultValid(s.FileSystem(), value)
		},
	}
}

// lookupNode resolves a name against the manifest's node table, falling
// back to the dynamic table. Dynamic nodes are created on first reference,
// have no producers, and are therefore always input nodes.
func (s *BuildSystem) lookupNode(name string) *Node {
	if node, ok := s.manifest.Nodes[name]; ok {
		return node
	}
	if node, ok := s.dynamicNodes[name]; ok {
		return node
	}
	node := NewNode(name, true)
	s.dynamicNodes[name] = node
	return node
}

// CycleDetected formats the demand path and reports it through the error
// channel.
func (s *BuildSystem) CycleDetected(cycle []engine.KeyType) {
	var b strings.Builder
	b.WriteString("cycle detected while building: ")
	for i, keyData := range cycle {
		if i > 0 {
			b.WriteString(" -> ")
		}
		b.WriteString(domain.DecodeBuildKey([]byte(keyData)).Describe())
	}
	s.Error(s.mainFilename, Token{}, b.String())
}
