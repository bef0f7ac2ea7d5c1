package buildsystem

import (
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
)

// Node is a named buildable entity, typically a file. A node's identity is
// its name: all references to one name resolve to the same object, either in
// the manifest's node table or in the dynamic table populated on first
// implicit reference.
type Node struct {
	name      string
	virtual   bool
	implicit  bool
	producers []Command
}

// NewNode creates a node. The virtual flag is derived from the `<...>` name
// rule.
func NewNode(name string, implicit bool) *Node {
	virtual := len(name) >= 2 && strings.HasPrefix(name, "<") && strings.HasSuffix(name, ">")
	return &Node{name: name, virtual: virtual, implicit: implicit}
}

// Name returns the node's name.
func (n *Node) Name() string { return n.name }

// IsVirtual reports whether the node has no filesystem presence.
func (n *Node) IsVirtual() bool { return n.virtual }

// IsImplicit reports whether the node was created on first reference rather
// than declared.
func (n *Node) IsImplicit() bool { return n.implicit }

// Producers returns the commands declaring this node as an output.
func (n *Node) Producers() []Command { return n.producers }

// AddProducer registers a producing command.
func (n *Node) AddProducer(cmd Command) { n.producers = append(n.producers, cmd) }

// FileInfo stats the node through the given filesystem.
func (n *Node) FileInfo(fsys ports.FileSystem) domain.FileInfo {
	return fsys.GetFileInfo(n.name)
}

// Target is a named ordered sequence of node references. It carries no
// outcome beyond existence.
type Target struct {
	name  string
	nodes []*Node
}

// NewTarget creates a target over the given nodes.
func NewTarget(name string, nodes []*Node) *Target {
	return &Target{name: name, nodes: nodes}
}

// Name returns the target's name.
func (t *Target) Name() string { return t.name }

// Nodes returns the target's nodes in declared order.
func (t *Target) Nodes() []*Node { return t.nodes }

// Manifest is the loaded build description: the declared node table,
// commands, targets, and the tool list in declaration order.
type Manifest struct {
	ClientName    string
	ClientVersion uint32

	Nodes    map[string]*Node
	Targets  map[string]*Target
	Commands map[string]Command
	Tools    []Tool
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		Nodes:    make(map[string]*Node),
		Targets:  make(map[string]*Target),
		Commands: make(map[string]Command),
	}
}

// GetOrCreateNode resolves a declared node, creating it on first use.
func (m *Manifest) GetOrCreateNode(name string) *Node {
	if n, ok := m.Nodes[name]; ok {
		return n
	}
	n := NewNode(name, false)
	m.Nodes[name] = n
	return n
}
