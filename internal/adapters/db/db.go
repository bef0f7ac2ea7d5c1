// Package db implements the persistent build result store on BadgerDB.
//
// The store maps encoded BuildKey bytes to the engine's result records. A
// schema version is kept alongside the data; opening a store written with a
// different merged schema version wipes it, forcing a cold rebuild.
package db

import (
	"encoding/binary"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.BuildDB = (*Store)(nil)

var (
	resultPrefix = []byte("r/")
	schemaKey    = []byte("meta/schema")
)

// Config holds configuration for a build database.
type Config struct {
	// Path is the directory for the database files. Ignored when InMemory
	// is set.
	Path string

	// InMemory enables in-memory mode, useful for testing.
	InMemory bool

	// SchemaVersion is the merged schema version guarding compatibility.
	SchemaVersion uint32
}

// Store implements ports.BuildDB.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store at the configured path. On a schema
// version mismatch the existing data is dropped and the store reopens
// empty under the new version.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open build database"), "path", cfg.Path)
	}

	s := &Store{db: bdb}
	if err := s.checkSchema(cfg.SchemaVersion); err != nil {
		_ = bdb.Close()
		return nil, err
	}
	return s, nil
}

// checkSchema compares the stored schema version against the expected one,
// dropping all data on mismatch.
func (s *Store) checkSchema(version uint32) error {
	var stored uint32
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(schemaKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) == 4 {
				stored = binary.LittleEndian.Uint32(val)
				found = true
			}
			return nil
		})
	})
	if err != nil {
		return zerr.Wrap(err, "failed to read schema version")
	}

	if found && stored != version {
		if err := s.db.DropAll(); err != nil {
			return zerr.Wrap(err, domain.ErrSchemaVersionMismatch.Error())
		}
	}

	buf := binary.LittleEndian.AppendUint32(nil, version)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(schemaKey, buf)
	})
	if err != nil {
		return zerr.Wrap(err, "failed to write schema version")
	}
	return nil
}

// GetResult returns the stored result for the key, or nil when absent.
func (s *Store) GetResult(key []byte) (*ports.BuildResult, error) {
	var result *ports.BuildResult
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(append(resultPrefix, key...))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			r, err := decodeResult(val)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
	})
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read build result")
	}
	return result, nil
}

// SetResult stores the result for the key.
func (s *Store) SetResult(key []byte, result *ports.BuildResult) error {
	buf := encodeResult(result)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(append(resultPrefix, key...), buf)
	})
	if err != nil {
		return zerr.Wrap(err, "failed to write build result")
	}
	return nil
}

// Close releases the store.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return zerr.Wrap(err, "failed to close build database")
	}
	return nil
}

// Result records are length-prefixed: value, then the dependency count and
// per dependency its key and observed value.
func encodeResult(r *ports.BuildResult) []byte {
	size := 4 + len(r.Value) + 4
	for _, d := range r.Deps {
		size += 8 + len(d.Key) + len(d.Value)
	}
	buf := make([]byte, 0, size)
	buf = appendBytes(buf, r.Value)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(r.Deps)))
	for _, d := range r.Deps {
		buf = appendBytes(buf, d.Key)
		buf = appendBytes(buf, d.Value)
	}
	return buf
}

func decodeResult(data []byte) (*ports.BuildResult, error) {
	value, rest, ok := readBytes(data)
	if !ok {
		return nil, zerr.New("truncated build result")
	}
	if len(rest) < 4 {
		return nil, zerr.New("truncated build result")
	}
	count := int(binary.LittleEndian.Uint32(rest))
	rest = rest[4:]

	result := &ports.BuildResult{Value: value}
	for range count {
		var key, val []byte
		key, rest, ok = readBytes(rest)
		if !ok {
			return nil, zerr.New("truncated dependency record")
		}
		val, rest, ok = readBytes(rest)
		if !ok {
			return nil, zerr.New("truncated dependency record")
		}
		result.Deps = append(result.Deps, ports.DependencyRecord{Key: key, Value: val})
	}
	return result, nil
}

func appendBytes(buf, b []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

func readBytes(data []byte) ([]byte, []byte, bool) {
	if len(data) < 4 {
		return nil, nil, false
	}
	n := int(binary.LittleEndian.Uint32(data))
	data = data[4:]
	if len(data) < n {
		return nil, nil, false
	}
	var out []byte
	if n > 0 {
		out = append(out, data[:n]...)
	}
	return out, data[n:], true
}
