package ports

import "context"

// QueueJob is a unit of work scheduled on the execution queue. The context
// is the one the queue was created with; closing the queue does not cancel
// it.
type QueueJob func(ctx context.Context)

// ExecutionQueue runs command bodies on a bounded worker pool. It exists
// only while a build is in progress; Close blocks until every submitted job
// and its completion callback have run.
//
//go:generate go run go.uber.org/mock/mockgen -source=queue.go -destination=mocks/mock_queue.go -package=mocks
type ExecutionQueue interface {
	// AddJob schedules a job for execution.
	AddJob(job QueueJob)

	// ExecuteProcess runs the argv on the host, with env entries (KEY=VALUE)
	// layered over the inherited environment. It reports whether the process
	// exited successfully. Only valid from a queue worker.
	ExecuteProcess(ctx context.Context, args []string, env []string) bool

	// ExecuteShellCommand runs the command line through /bin/sh. Only valid
	// from a queue worker.
	ExecuteShellCommand(ctx context.Context, command string) bool

	// Close drains the queue.
	Close()
}
