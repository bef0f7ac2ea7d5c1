package manifest_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/adapters/fs"
	"go.trai.ch/forge/internal/adapters/manifest"
	"go.trai.ch/forge/internal/buildsystem"
	"go.trai.ch/forge/internal/core/ports"
)

// loaderDelegate is the minimal delegate the loader needs.
type loaderDelegate struct {
	fsys ports.FileSystem

	mu     sync.Mutex
	errors []string
	parsed []byte
}

func newLoaderDelegate() *loaderDelegate {
	return &loaderDelegate{fsys: fs.New()}
}

func (d *loaderDelegate) Name() string                               { return "basic" }
func (d *loaderDelegate) Version() uint32                            { return 0 }
func (d *loaderDelegate) FileSystem() ports.FileSystem               { return d.fsys }
func (d *loaderDelegate) LookupTool(name string) buildsystem.Tool    { return nil }
func (d *loaderDelegate) CreateExecutionQueue() ports.ExecutionQueue { return nil }
func (d *loaderDelegate) IsCancelled() bool                          { return false }
func (d *loaderDelegate) SetFileContentsBeingParsed(buf []byte)      { d.parsed = buf }
func (d *loaderDelegate) CommandStarted(buildsystem.Command)         {}
func (d *loaderDelegate) CommandFinished(buildsystem.Command)        {}
func (d *loaderDelegate) HadCommandFailure()                         {}

func (d *loaderDelegate) Error(filename string, at buildsystem.Token, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errors = append(d.errors, message)
}

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "build.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoader_FullManifest(t *testing.T) {
	path := writeFile(t, `
client:
  name: basic
  version: 0
tools:
  shell: {}
targets:
  all: [out, <sync>]
nodes:
  out: {}
commands:
  c1:
    tool: shell
    inputs: [in.c]
    outputs: [out]
    description: compile out
    args: ["cc", "-o", "out", "in.c"]
  p1:
    tool: phony
    outputs: [<sync>]
`)

	delegate := newLoaderDelegate()
	m, err := manifest.NewLoader().Load(path, delegate)
	require.NoError(t, err)

	assert.Equal(t, "basic", m.ClientName)
	assert.NotEmpty(t, delegate.parsed)

	// Targets resolve their node references.
	target := m.Targets["all"]
	require.NotNil(t, target)
	require.Len(t, target.Nodes(), 2)
	assert.Equal(t, "out", target.Nodes()[0].Name())
	assert.True(t, target.Nodes()[1].IsVirtual())

	// The command is bound as producer of its output.
	c1 := m.Commands["c1"]
	require.NotNil(t, c1)
	assert.Equal(t, "compile out", c1.ShortDescription())
	out := m.Nodes["out"]
	require.NotNil(t, out)
	require.Len(t, out.Producers(), 1)
	assert.Equal(t, "c1", out.Producers()[0].Name())

	// Node identity: the target references the same node object.
	assert.Same(t, out, target.Nodes()[0])

	// Tools are recorded in declaration-then-reference order.
	require.NotEmpty(t, m.Tools)
	assert.Equal(t, "shell", m.Tools[0].Name())
}

func TestLoader_ClientNameMismatch(t *testing.T) {
	path := writeFile(t, `
client:
  name: somebody-else
  version: 0
`)

	delegate := newLoaderDelegate()
	_, err := manifest.NewLoader().Load(path, delegate)
	require.Error(t, err)
	assert.NotEmpty(t, delegate.errors)
}

func TestLoader_ClientVersionMismatch(t *testing.T) {
	path := writeFile(t, `
client:
  name: basic
  version: 7
`)

	delegate := newLoaderDelegate()
	_, err := manifest.NewLoader().Load(path, delegate)
	require.Error(t, err)
}

func TestLoader_UnknownTool(t *testing.T) {
	path := writeFile(t, `
client:
  name: basic
  version: 0
commands:
  c1:
    tool: swiftc
    outputs: [out]
`)

	delegate := newLoaderDelegate()
	_, err := manifest.NewLoader().Load(path, delegate)
	require.Error(t, err)
	assert.Contains(t, delegate.errors[0], "invalid tool type in 'tools' map: 'swiftc'")
}

func TestLoader_MissingFile(t *testing.T) {
	delegate := newLoaderDelegate()
	_, err := manifest.NewLoader().Load(filepath.Join(t.TempDir(), "nope.yaml"), delegate)
	require.Error(t, err)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := writeFile(t, "::not yaml::\n\t")

	delegate := newLoaderDelegate()
	_, err := manifest.NewLoader().Load(path, delegate)
	require.Error(t, err)
}

func TestLoader_MissingToolKey(t *testing.T) {
	path := writeFile(t, `
client:
  name: basic
  version: 0
commands:
  c1:
    outputs: [out]
`)

	delegate := newLoaderDelegate()
	_, err := manifest.NewLoader().Load(path, delegate)
	require.Error(t, err)
	assert.Contains(t, delegate.errors[0], "missing 'tool' key for command 'c1'")
}
