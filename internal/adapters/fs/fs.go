// Package fs provides the local filesystem adapter.
package fs

import (
	"os"
	"syscall"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.FileSystem = (*FileSystem)(nil)

// FileSystem implements ports.FileSystem against the host filesystem.
type FileSystem struct{}

// New creates a local filesystem adapter.
func New() *FileSystem {
	return &FileSystem{}
}

// GetFileInfo stats the path into the compact fingerprint. Any stat failure
// maps to the missing sentinel.
func (f *FileSystem) GetFileInfo(path string) domain.FileInfo {
	fi, err := os.Stat(path)
	if err != nil {
		return domain.FileInfo{}
	}

	info := domain.FileInfo{
		Mode: uint32(fi.Mode()),
		Size: uint64(fi.Size()),
	}
	mtime := fi.ModTime()
	info.ModTime = domain.FileTimestamp{
		Seconds:     mtime.Unix(),
		Nanoseconds: uint32(mtime.Nanosecond()),
	}
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		info.Device = uint64(st.Dev)
		info.Inode = uint64(st.Ino)
	}
	return info
}

// GetFileContents reads the file at path.
func (f *FileSystem) GetFileContents(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is controlled by the manifest
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read file"), "path", path)
	}
	return data, nil
}

// CreateDirectories creates the directory and any missing parents.
func (f *FileSystem) CreateDirectories(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create directories"), "path", path)
	}
	return nil
}
