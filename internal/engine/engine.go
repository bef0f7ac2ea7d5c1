package engine

import (
	"bytes"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// Engine evaluates keys on demand. All scheduling runs on the goroutine that
// called Build; queue workers feed completions back through a drained record
// list, so engine state needs no locking beyond that list.
type Engine struct {
	delegate Delegate
	db       ports.BuildDB
	trace    *traceWriter

	// results caches the last computed result per key, across builds.
	results map[KeyType]*ports.BuildResult

	// Per-build state.
	keys     map[KeyType]*keyState
	work     []func()
	awaiting int

	completions *completionList
}

// New creates an engine driven by the given delegate.
func New(delegate Delegate) *Engine {
	return &Engine{
		delegate:    delegate,
		results:     make(map[KeyType]*ports.BuildResult),
		completions: newCompletionList(),
	}
}

// AttachDB attaches a persistent result store. Must be called before Build.
func (e *Engine) AttachDB(db ports.BuildDB) {
	e.db = db
}

// keyState tracks one key through a single build.
type keyState struct {
	key      KeyType
	rule     Rule
	prior    *ports.BuildResult
	complete bool
	value    ValueType
	changed  bool
	forced   bool

	scanIdx int
	scan    bool
	task    *taskState
	waiters []waiter
}

// waiter is a party blocked on a key's completion: a task input, an ordering
// edge, a cache scanner, or a pending result record.
type waiter struct {
	ts         *taskState
	inputID    int
	mustFollow bool
	scanner    *keyState
	record     *pendingRecord
	recordIdx  int
}

type taskState struct {
	ks                    *keyState
	task                  Task
	ti                    *TaskInterface
	outstanding           int
	startDone             bool
	inputsAvailableCalled bool
	completed             bool
	deps                  []KeyType
	discovered            []KeyType // guarded by completions.mu
}

// pendingRecord defers persisting a result until late-discovered
// dependencies have computed their values.
type pendingRecord struct {
	ks        *keyState
	deps      []ports.DependencyRecord
	remaining int
}

// Build brings the key up to date and returns its value. On a detected
// cycle the demand path is reported through the delegate and an error is
// returned.
func (e *Engine) Build(key KeyType) (ValueType, error) {
	e.keys = make(map[KeyType]*keyState)
	e.work = nil
	e.awaiting = 0
	e.completions.reset()

	root := e.demand(key)

	for {
		if len(e.work) > 0 {
			item := e.work[0]
			e.work = e.work[1:]
			item()
			continue
		}
		if e.drainCompletions() {
			continue
		}
		if e.awaiting > 0 {
			e.completions.wait()
			continue
		}
		if root.complete {
			return root.value, nil
		}
		cycle := e.findCycle(root)
		e.delegate.CycleDetected(cycle)
		return nil, zerr.Wrap(domain.ErrCycleDetected, "build did not converge")
	}
}

func (e *Engine) demand(key KeyType) *keyState {
	if ks, ok := e.keys[key]; ok {
		return ks
	}
	ks := &keyState{key: key}
	e.keys[key] = ks
	e.work = append(e.work, func() { e.processKey(ks) })
	return ks
}

func (e *Engine) processKey(ks *keyState) {
	ks.rule = e.delegate.LookupRule(ks.key)
	e.traceEvent("rule-lookup", ks.key)

	ks.prior = e.priorResult(ks.key)
	if ks.prior != nil && ks.rule.IsResultValid != nil && ks.rule.IsResultValid(ks.prior.Value) {
		ks.scan = true
		e.advanceScan(ks)
		return
	}
	e.runTask(ks)
}

func (e *Engine) priorResult(key KeyType) *ports.BuildResult {
	if r, ok := e.results[key]; ok {
		return r
	}
	if e.db == nil {
		return nil
	}
	r, err := e.db.GetResult([]byte(key))
	if err != nil || r == nil {
		return nil
	}
	e.results[key] = r
	return r
}

// advanceScan walks the stored dependencies in order, bringing each up to
// date. The cached result is reused only when no dependency's value moved.
func (e *Engine) advanceScan(ks *keyState) {
	if ks.task != nil || ks.complete {
		return
	}
	for {
		deps := ks.prior.Deps
		if ks.scanIdx >= len(deps) {
			e.traceEvent("cache-hit", ks.key)
			e.completeKey(ks, ks.prior.Value, false)
			return
		}
		rec := deps[ks.scanIdx]
		dep := e.demand(KeyType(rec.Key))
		if !dep.complete {
			dep.waiters = append(dep.waiters, waiter{scanner: ks})
			return
		}
		if dep.forced || !bytes.Equal(dep.value, rec.Value) {
			e.runTask(ks)
			return
		}
		ks.scanIdx++
	}
}

func (e *Engine) runTask(ks *keyState) {
	if ks.task != nil {
		return
	}
	e.traceEvent("task-start", ks.key)
	ts := &taskState{ks: ks, task: ks.rule.CreateTask()}
	ts.ti = &TaskInterface{engine: e, ts: ts}
	ks.task = ts

	ts.task.Start(ts.ti)
	if ks.prior != nil {
		ts.task.ProvidePriorValue(ts.ti, ks.prior.Value)
	}
	ts.startDone = true
	e.maybeInputsAvailable(ts)
}

func (e *Engine) taskNeedsInput(ts *taskState, key KeyType, inputID int) {
	ts.deps = append(ts.deps, key)
	ts.outstanding++
	dep := e.demand(key)
	if dep.complete {
		e.work = append(e.work, func() { e.deliver(ts, dep, inputID) })
		return
	}
	dep.waiters = append(dep.waiters, waiter{ts: ts, inputID: inputID})
}

func (e *Engine) taskMustFollow(ts *taskState, key KeyType) {
	ts.deps = append(ts.deps, key)
	ts.outstanding++
	dep := e.demand(key)
	if dep.complete {
		e.work = append(e.work, func() { e.settle(ts) })
		return
	}
	dep.waiters = append(dep.waiters, waiter{ts: ts, mustFollow: true})
}

func (e *Engine) taskDiscoveredDependency(ts *taskState, key KeyType) {
	e.completions.addDiscovered(ts, key)
}

func (e *Engine) taskIsComplete(ts *taskState, value ValueType, forceChange bool) {
	e.completions.add(completion{ts: ts, value: value, forceChange: forceChange})
}

func (e *Engine) deliver(ts *taskState, dep *keyState, inputID int) {
	if ts.completed {
		return
	}
	ts.task.ProvideValue(ts.ti, inputID, dep.value)
	e.settle(ts)
}

func (e *Engine) settle(ts *taskState) {
	ts.outstanding--
	e.maybeInputsAvailable(ts)
}

func (e *Engine) maybeInputsAvailable(ts *taskState) {
	if !ts.startDone || ts.outstanding != 0 || ts.inputsAvailableCalled || ts.completed {
		return
	}
	ts.inputsAvailableCalled = true
	e.awaiting++
	ts.task.InputsAvailable(ts.ti)
}

func (e *Engine) drainCompletions() bool {
	done := e.completions.drain()
	if len(done) == 0 {
		return false
	}
	for _, c := range done {
		e.handleCompletion(c)
	}
	return true
}

func (e *Engine) handleCompletion(c completion) {
	ts := c.ts
	if ts.completed {
		return
	}
	ts.completed = true
	if ts.inputsAvailableCalled {
		e.awaiting--
	}
	e.traceEvent("task-complete", ts.ks.key)
	e.completeKey(ts.ks, c.value, c.forceChange)
	e.recordResult(ts)
}

// completeKey finalizes the key's value for this build and releases every
// waiter.
func (e *Engine) completeKey(ks *keyState, value ValueType, forced bool) {
	prior := ks.prior
	ks.value = value
	ks.forced = forced
	ks.changed = forced || prior == nil || !bytes.Equal(prior.Value, value)
	ks.complete = true

	waiters := ks.waiters
	ks.waiters = nil
	for _, w := range waiters {
		switch {
		case w.scanner != nil:
			scanner := w.scanner
			e.work = append(e.work, func() { e.advanceScan(scanner) })
		case w.record != nil:
			w.record.deps[w.recordIdx].Value = ks.value
			w.record.remaining--
			if w.record.remaining == 0 {
				e.finalizeRecord(w.record)
			}
		case w.mustFollow:
			ts := w.ts
			e.work = append(e.work, func() { e.settle(ts) })
		default:
			ts, inputID := w.ts, w.inputID
			e.work = append(e.work, func() { e.deliver(ts, ks, inputID) })
		}
	}
}

// recordResult assembles the dependency records for a freshly computed
// result. Dependencies discovered during execution may not have been built
// this round; they are demanded now and the record is persisted once their
// values are known, so the next build can scan them without a spurious
// rerun.
func (e *Engine) recordResult(ts *taskState) {
	discovered := e.completions.takeDiscovered(ts)
	all := make([]KeyType, 0, len(ts.deps)+len(discovered))
	all = append(all, ts.deps...)
	all = append(all, discovered...)

	pr := &pendingRecord{
		ks:   ts.ks,
		deps: make([]ports.DependencyRecord, len(all)),
	}
	for i, dk := range all {
		pr.deps[i].Key = []byte(dk)
		dep := e.demand(dk)
		if dep.complete {
			pr.deps[i].Value = dep.value
			continue
		}
		pr.remaining++
		dep.waiters = append(dep.waiters, waiter{record: pr, recordIdx: i})
	}
	if pr.remaining == 0 {
		e.finalizeRecord(pr)
	}
}

func (e *Engine) finalizeRecord(pr *pendingRecord) {
	result := &ports.BuildResult{Value: pr.ks.value, Deps: pr.deps}
	e.results[pr.ks.key] = result
	if e.db != nil {
		if err := e.db.SetResult([]byte(pr.ks.key), result); err != nil {
			e.traceEvent("db-write-failed", pr.ks.key)
		}
	}
}

// findCycle walks the pending wait-for edges from the root. When the build
// stalls with no runnable work and no outstanding completions, such a walk
// must revisit a key; the returned path runs from the root through the
// repeated key.
func (e *Engine) findCycle(root *keyState) []KeyType {
	var path []KeyType
	onPath := make(map[KeyType]bool)
	cur := root
	for cur != nil && !cur.complete {
		if onPath[cur.key] {
			path = append(path, cur.key)
			return path
		}
		onPath[cur.key] = true
		path = append(path, cur.key)
		cur = e.pendingEdge(cur)
	}
	return path
}

func (e *Engine) pendingEdge(ks *keyState) *keyState {
	if ks.task != nil {
		for _, dk := range ks.task.deps {
			if dep := e.keys[dk]; dep != nil && !dep.complete {
				return dep
			}
		}
		return nil
	}
	if ks.scan && ks.scanIdx < len(ks.prior.Deps) {
		return e.keys[KeyType(ks.prior.Deps[ks.scanIdx].Key)]
	}
	return nil
}
