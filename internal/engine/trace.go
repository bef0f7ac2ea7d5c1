package engine

import (
	"fmt"
	"os"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

// traceWriter appends one line per engine event to a log file. Tracing is
// diagnostic only; write failures do not affect the build.
type traceWriter struct {
	f *os.File
}

// EnableTracing starts appending engine events to the file at path.
func (e *Engine) EnableTracing(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "unable to open trace file"), "path", path)
	}
	e.trace = &traceWriter{f: f}
	return nil
}

func (e *Engine) traceEvent(event string, key KeyType) {
	if e.trace == nil {
		return
	}
	desc := domain.DecodeBuildKey([]byte(key)).Describe()
	_, _ = fmt.Fprintf(e.trace.f, "%s %s\n", event, desc)
}
