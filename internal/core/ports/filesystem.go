// Package ports defines the interfaces the build core consumes.
package ports

import "go.trai.ch/forge/internal/core/domain"

// FileSystem abstracts the file observations the build core performs.
//
//go:generate go run go.uber.org/mock/mockgen -source=filesystem.go -destination=mocks/mock_filesystem.go -package=mocks
type FileSystem interface {
	// GetFileInfo stats the path and returns its fingerprint. The missing
	// sentinel (zero FileInfo) is returned when the path does not exist.
	GetFileInfo(path string) domain.FileInfo

	// GetFileContents reads the file at path.
	GetFileContents(path string) ([]byte, error)

	// CreateDirectories creates the directory at path, including any missing
	// parents.
	CreateDirectories(path string) error
}
