package ports

// DependencyRecord is one dependency edge of a stored result: the encoded
// key of the dependency and the dependency's encoded value observed when the
// result was computed.
type DependencyRecord struct {
	Key   []byte
	Value []byte
}

// BuildResult is the persisted outcome of one build key: the encoded value
// plus the ordered dependency set the engine maintains for it.
type BuildResult struct {
	Value []byte
	Deps  []DependencyRecord
}

// BuildDB persists build results keyed by encoded BuildKey. Implementations
// guard compatibility with the merged schema version; a mismatch forces a
// cold rebuild.
//
//go:generate go run go.uber.org/mock/mockgen -source=db.go -destination=mocks/mock_db.go -package=mocks
type BuildDB interface {
	// GetResult returns the stored result for the key, or nil when absent.
	GetResult(key []byte) (*BuildResult, error)

	// SetResult stores the result for the key.
	SetResult(key []byte, result *BuildResult) error

	// Close releases the store.
	Close() error
}
