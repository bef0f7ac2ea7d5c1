// Package exec implements the build execution queue: a bounded worker pool
// running command bodies, plus the process and shell execution primitives
// commands reduce to.
package exec

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/semaphore"
)

var _ ports.ExecutionQueue = (*Queue)(nil)

// Queue runs jobs concurrently subject to a parallelism bound. It exists
// for the duration of one build; Close blocks until every job has run.
type Queue struct {
	ctx    context.Context
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	logger ports.Logger
}

// NewQueue creates a queue bounded to the given parallelism.
func NewQueue(ctx context.Context, parallelism int, logger ports.Logger) *Queue {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Queue{
		ctx:    ctx,
		sem:    semaphore.NewWeighted(int64(parallelism)),
		logger: logger,
	}
}

// AddJob schedules a job. Jobs acquire a worker slot before running; on a
// cancelled context the slot is skipped so the job can still observe the
// cancellation and complete its task.
func (q *Queue) AddJob(job ports.QueueJob) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := q.sem.Acquire(q.ctx, 1); err == nil {
			defer q.sem.Release(1)
		}
		job(q.ctx)
	}()
}

// Close drains the queue, blocking until all pending jobs and their
// completion callbacks have run.
func (q *Queue) Close() {
	q.wg.Wait()
}

// ExecuteProcess runs the argv with env entries layered over the inherited
// environment. Output streams through the logger.
func (q *Queue) ExecuteProcess(ctx context.Context, args []string, env []string) bool {
	if len(args) == 0 {
		return false
	}

	cmdEnv := mergeEnvironment(os.Environ(), env)

	name := args[0]
	executable := name
	if !filepath.IsAbs(name) {
		if lp, err := lookPath(name, cmdEnv); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, args[1:]...) //nolint:gosec // manifest provided command
	// Preserve the original name as invoked in Args[0].
	if len(cmd.Args) > 0 {
		cmd.Args[0] = name
	}
	cmd.Env = cmdEnv
	cmd.Stdout = &logWriter{logger: q.logger}
	cmd.Stderr = &logWriter{logger: q.logger, stderr: true}

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		q.logger.Error(zerr.With(zerr.Wrap(err, "command failed"), "exit_code", exitCode))
		return false
	}
	return true
}

// ExecuteShellCommand runs the command line through /bin/sh.
func (q *Queue) ExecuteShellCommand(ctx context.Context, command string) bool {
	return q.ExecuteProcess(ctx, []string{"/bin/sh", "-c", command}, nil)
}

type logWriter struct {
	logger ports.Logger
	stderr bool
}

func (w *logWriter) Write(p []byte) (int, error) {
	lines := strings.Split(strings.TrimSuffix(string(p), "\n"), "\n")
	for _, line := range lines {
		if w.stderr {
			w.logger.Warn(line)
		} else {
			w.logger.Info(line)
		}
	}
	return len(p), nil
}

// mergeEnvironment overlays overrides onto the base KEY=VALUE environment.
func mergeEnvironment(base, overrides []string) []string {
	if len(overrides) == 0 {
		return base
	}
	envMap := make(map[string]string, len(base)+len(overrides))
	var order []string
	apply := func(entries []string) {
		for _, entry := range entries {
			k, v, ok := strings.Cut(entry, "=")
			if !ok {
				continue
			}
			if _, seen := envMap[k]; !seen {
				order = append(order, k)
			}
			envMap[k] = v
		}
	}
	apply(base)
	apply(overrides)

	result := make([]string, 0, len(order))
	for _, k := range order {
		result = append(result, k+"="+envMap[k])
	}
	return result
}

// lookPath searches for an executable in the PATH of the given environment.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			path = strings.TrimPrefix(e, "PATH=")
			break
		}
	}
	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: an empty path element means ".".
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
