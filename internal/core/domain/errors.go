package domain

import "go.trai.ch/zerr"

var (
	// ErrBuildFailed is returned when a build completes with command failures.
	ErrBuildFailed = zerr.New("build failed")

	// ErrCycleDetected is returned when the dependency graph contains a cycle.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrManifestLoad is returned when the build manifest cannot be loaded.
	ErrManifestLoad = zerr.New("unable to load build file")

	// ErrUnknownTarget is returned when a requested target is not declared.
	ErrUnknownTarget = zerr.New("unknown target")

	// ErrSchemaVersionMismatch names the failure to wipe a database written
	// with a different schema version. A mismatch on its own is not an
	// error: the store is wiped and reopened empty.
	ErrSchemaVersionMismatch = zerr.New("build database schema version mismatch")
)
