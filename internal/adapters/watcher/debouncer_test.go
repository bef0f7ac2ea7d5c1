package watcher_test

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/forge/internal/adapters/watcher"
)

func TestDebouncer_CoalescesEvents(t *testing.T) {
	var mu sync.Mutex
	var batches [][]string
	done := make(chan struct{}, 1)

	d := watcher.NewDebouncer(20*time.Millisecond, func(paths []string) {
		mu.Lock()
		batches = append(batches, paths)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	})

	d.Add("a")
	d.Add("b")
	d.Add("a")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, batches, 1)
	got := append([]string(nil), batches[0]...)
	sort.Strings(got)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestDebouncer_FlushDeliversPending(t *testing.T) {
	var mu sync.Mutex
	var got []string

	d := watcher.NewDebouncer(time.Hour, func(paths []string) {
		mu.Lock()
		got = append(got, paths...)
		mu.Unlock()
	})

	d.Add("x")
	d.Flush()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"x"}, got)
}

func TestDebouncer_FlushWithoutPending(t *testing.T) {
	fired := false
	d := watcher.NewDebouncer(time.Hour, func([]string) { fired = true })

	d.Flush()
	assert.False(t, fired)
}
