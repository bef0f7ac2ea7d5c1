package engine_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/adapters/db"
	"go.trai.ch/forge/internal/engine"
)

// fakeTask implements engine.Task with closures.
type fakeTask struct {
	start           func(ti *engine.TaskInterface)
	provideValue    func(ti *engine.TaskInterface, inputID int, value engine.ValueType)
	inputsAvailable func(ti *engine.TaskInterface)
}

func (t *fakeTask) Start(ti *engine.TaskInterface) {
	if t.start != nil {
		t.start(ti)
	}
}

func (t *fakeTask) ProvidePriorValue(*engine.TaskInterface, engine.ValueType) {}

func (t *fakeTask) ProvideValue(ti *engine.TaskInterface, inputID int, value engine.ValueType) {
	if t.provideValue != nil {
		t.provideValue(ti, inputID, value)
	}
}

func (t *fakeTask) InputsAvailable(ti *engine.TaskInterface) {
	if t.inputsAvailable != nil {
		t.inputsAvailable(ti)
	}
}

// fakeDelegate serves rules out of a map and records detected cycles.
type fakeDelegate struct {
	mu     sync.Mutex
	rules  map[engine.KeyType]engine.Rule
	cycles [][]engine.KeyType
}

func newFakeDelegate() *fakeDelegate {
	return &fakeDelegate{rules: make(map[engine.KeyType]engine.Rule)}
}

func (d *fakeDelegate) LookupRule(key engine.KeyType) engine.Rule {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rules[key]
}

func (d *fakeDelegate) CycleDetected(cycle []engine.KeyType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cycles = append(d.cycles, cycle)
}

// leafRule produces a constant value and counts executions. The validity
// predicate reuses the cached value unless *dirty is set.
func leafRule(value string, runs *int, dirty *bool) engine.Rule {
	return engine.Rule{
		CreateTask: func() engine.Task {
			return &fakeTask{
				inputsAvailable: func(ti *engine.TaskInterface) {
					*runs++
					ti.Complete([]byte(value), false)
				},
			}
		},
		IsResultValid: func(engine.ValueType) bool {
			return dirty == nil || !*dirty
		},
	}
}

// consumerRule requests each dep and completes with the concatenation of
// the delivered values.
func consumerRule(deps []engine.KeyType, runs *int) engine.Rule {
	return engine.Rule{
		CreateTask: func() engine.Task {
			values := make([]string, len(deps))
			return &fakeTask{
				start: func(ti *engine.TaskInterface) {
					for i, dep := range deps {
						ti.NeedsInput(dep, i)
					}
				},
				provideValue: func(_ *engine.TaskInterface, inputID int, value engine.ValueType) {
					values[inputID] = string(value)
				},
				inputsAvailable: func(ti *engine.TaskInterface) {
					*runs++
					out := ""
					for _, v := range values {
						out += v
					}
					ti.Complete([]byte(out), false)
				},
			}
		},
		IsResultValid: func(engine.ValueType) bool { return true },
	}
}

func TestEngine_BuildDeliversDependencyValues(t *testing.T) {
	d := newFakeDelegate()
	var leafRuns, rootRuns int
	d.rules["leaf"] = leafRule("L", &leafRuns, nil)
	d.rules["root"] = consumerRule([]engine.KeyType{"leaf"}, &rootRuns)

	e := engine.New(d)
	value, err := e.Build("root")
	require.NoError(t, err)
	assert.Equal(t, "L", string(value))
	assert.Equal(t, 1, leafRuns)
	assert.Equal(t, 1, rootRuns)
}

func TestEngine_SecondBuildReusesResults(t *testing.T) {
	d := newFakeDelegate()
	var leafRuns, rootRuns int
	d.rules["leaf"] = leafRule("L", &leafRuns, nil)
	d.rules["root"] = consumerRule([]engine.KeyType{"leaf"}, &rootRuns)

	e := engine.New(d)
	_, err := e.Build("root")
	require.NoError(t, err)
	_, err = e.Build("root")
	require.NoError(t, err)

	assert.Equal(t, 1, leafRuns)
	assert.Equal(t, 1, rootRuns)
}

func TestEngine_EarlyCutoff(t *testing.T) {
	// An invalidated leaf that recomputes the same value must not re-run
	// its consumer.
	d := newFakeDelegate()
	var leafRuns, rootRuns int
	dirty := false
	d.rules["leaf"] = leafRule("L", &leafRuns, &dirty)
	d.rules["root"] = consumerRule([]engine.KeyType{"leaf"}, &rootRuns)

	e := engine.New(d)
	_, err := e.Build("root")
	require.NoError(t, err)

	dirty = true
	_, err = e.Build("root")
	require.NoError(t, err)

	assert.Equal(t, 2, leafRuns)
	assert.Equal(t, 1, rootRuns)
}

func TestEngine_DependencyChangePropagates(t *testing.T) {
	d := newFakeDelegate()
	var leafRuns, rootRuns int
	dirty := false
	value := "one"
	d.rules["leaf"] = engine.Rule{
		CreateTask: func() engine.Task {
			return &fakeTask{inputsAvailable: func(ti *engine.TaskInterface) {
				leafRuns++
				ti.Complete([]byte(value), false)
			}}
		},
		IsResultValid: func(engine.ValueType) bool { return !dirty },
	}
	d.rules["root"] = consumerRule([]engine.KeyType{"leaf"}, &rootRuns)

	e := engine.New(d)
	_, err := e.Build("root")
	require.NoError(t, err)

	dirty = true
	value = "two"
	out, err := e.Build("root")
	require.NoError(t, err)

	assert.Equal(t, "two", string(out))
	assert.Equal(t, 2, leafRuns)
	assert.Equal(t, 2, rootRuns)
}

func TestEngine_ForceChangeRerunsDependents(t *testing.T) {
	d := newFakeDelegate()
	var leafRuns, rootRuns int
	d.rules["leaf"] = engine.Rule{
		CreateTask: func() engine.Task {
			return &fakeTask{inputsAvailable: func(ti *engine.TaskInterface) {
				leafRuns++
				ti.Complete([]byte("same"), true)
			}}
		},
		// Never valid, so the leaf re-runs every build.
		IsResultValid: func(engine.ValueType) bool { return false },
	}
	d.rules["root"] = consumerRule([]engine.KeyType{"leaf"}, &rootRuns)

	e := engine.New(d)
	_, err := e.Build("root")
	require.NoError(t, err)
	_, err = e.Build("root")
	require.NoError(t, err)

	// The value never changes, but forceChange still propagates.
	assert.Equal(t, 2, leafRuns)
	assert.Equal(t, 2, rootRuns)
}

func TestEngine_AsynchronousCompletion(t *testing.T) {
	d := newFakeDelegate()
	var rootRuns int
	d.rules["async"] = engine.Rule{
		CreateTask: func() engine.Task {
			return &fakeTask{inputsAvailable: func(ti *engine.TaskInterface) {
				go func() {
					time.Sleep(10 * time.Millisecond)
					ti.Complete([]byte("done"), false)
				}()
			}}
		},
		IsResultValid: func(engine.ValueType) bool { return true },
	}
	d.rules["root"] = consumerRule([]engine.KeyType{"async"}, &rootRuns)

	e := engine.New(d)
	value, err := e.Build("root")
	require.NoError(t, err)
	assert.Equal(t, "done", string(value))
}

func TestEngine_PersistsResultsAcrossEngines(t *testing.T) {
	store, err := db.Open(db.Config{InMemory: true, SchemaVersion: 1})
	require.NoError(t, err)
	defer store.Close()

	d := newFakeDelegate()
	var leafRuns, rootRuns int
	d.rules["leaf"] = leafRule("L", &leafRuns, nil)
	d.rules["root"] = consumerRule([]engine.KeyType{"leaf"}, &rootRuns)

	e1 := engine.New(d)
	e1.AttachDB(store)
	_, err = e1.Build("root")
	require.NoError(t, err)
	require.Equal(t, 1, rootRuns)

	// A fresh engine over the same database reuses the stored results.
	e2 := engine.New(d)
	e2.AttachDB(store)
	value, err := e2.Build("root")
	require.NoError(t, err)
	assert.Equal(t, "L", string(value))
	assert.Equal(t, 1, leafRuns)
	assert.Equal(t, 1, rootRuns)
}

func TestEngine_Tracing(t *testing.T) {
	d := newFakeDelegate()
	var runs int
	d.rules["leaf"] = leafRule("L", &runs, nil)

	e := engine.New(d)
	tracePath := filepath.Join(t.TempDir(), "trace.log")
	require.NoError(t, e.EnableTracing(tracePath))

	_, err := e.Build("leaf")
	require.NoError(t, err)

	data, err := os.ReadFile(tracePath)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestEngine_CycleDetected(t *testing.T) {
	d := newFakeDelegate()
	var runs int
	d.rules["a"] = consumerRule([]engine.KeyType{"b"}, &runs)
	d.rules["b"] = consumerRule([]engine.KeyType{"a"}, &runs)

	e := engine.New(d)
	_, err := e.Build("a")
	require.Error(t, err)
	require.Len(t, d.cycles, 1)
	assert.Equal(t, []engine.KeyType{"a", "b", "a"}, d.cycles[0])
}

func TestEngine_DiscoveredDependencyTracksNextBuild(t *testing.T) {
	d := newFakeDelegate()
	var mainRuns, extraRuns int
	extraDirty := false
	extraValue := "one"
	d.rules["extra"] = engine.Rule{
		CreateTask: func() engine.Task {
			return &fakeTask{inputsAvailable: func(ti *engine.TaskInterface) {
				extraRuns++
				ti.Complete([]byte(extraValue), false)
			}}
		},
		IsResultValid: func(engine.ValueType) bool { return !extraDirty },
	}
	d.rules["main"] = engine.Rule{
		CreateTask: func() engine.Task {
			return &fakeTask{inputsAvailable: func(ti *engine.TaskInterface) {
				mainRuns++
				ti.DiscoveredDependency("extra")
				ti.Complete([]byte("out"), false)
			}}
		},
		IsResultValid: func(engine.ValueType) bool { return true },
	}

	e := engine.New(d)

	_, err := e.Build("main")
	require.NoError(t, err)
	assert.Equal(t, 1, mainRuns)

	// Nothing changed; the discovered edge must not trigger a rebuild.
	_, err = e.Build("main")
	require.NoError(t, err)
	assert.Equal(t, 1, mainRuns)

	// The discovered dependency changes; the dependent re-runs.
	extraDirty = true
	extraValue = "two"
	_, err = e.Build("main")
	require.NoError(t, err)
	assert.Equal(t, 2, mainRuns)
	assert.GreaterOrEqual(t, extraRuns, 2)
}
