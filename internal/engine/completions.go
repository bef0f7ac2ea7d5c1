package engine

import "sync"

// completion is the record a finishing task posts back to the engine loop.
type completion struct {
	ts          *taskState
	value       ValueType
	forceChange bool
}

// completionList is the bridge between queue workers and the engine
// goroutine: workers append records, the engine drains them in its
// scheduling loop. Discovered dependencies ride the same lock since they may
// also be reported from workers.
type completionList struct {
	mu         sync.Mutex
	records    []completion
	discovered map[*taskState][]KeyType
	wake       chan struct{}
}

func newCompletionList() *completionList {
	return &completionList{
		discovered: make(map[*taskState][]KeyType),
		wake:       make(chan struct{}, 1),
	}
}

func (l *completionList) reset() {
	l.mu.Lock()
	l.records = nil
	l.discovered = make(map[*taskState][]KeyType)
	l.mu.Unlock()
	select {
	case <-l.wake:
	default:
	}
}

func (l *completionList) add(c completion) {
	l.mu.Lock()
	l.records = append(l.records, c)
	l.mu.Unlock()
	l.notify()
}

func (l *completionList) addDiscovered(ts *taskState, key KeyType) {
	l.mu.Lock()
	l.discovered[ts] = append(l.discovered[ts], key)
	l.mu.Unlock()
}

func (l *completionList) takeDiscovered(ts *taskState) []KeyType {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := l.discovered[ts]
	delete(l.discovered, ts)
	return keys
}

func (l *completionList) drain() []completion {
	l.mu.Lock()
	defer l.mu.Unlock()
	records := l.records
	l.records = nil
	return records
}

func (l *completionList) wait() {
	<-l.wake
}

func (l *completionList) notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
