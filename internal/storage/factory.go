package storage

import "fmt"

// DefaultStoreKind is the backend used when callers do not choose one.
func DefaultStoreKind() string {
	return "memory"
}

// NewStore selects a backend by kind. The empty kind means memory; the
// sqlite kind needs a path and a binary built with -tags sqlite.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// CloseIfSupported closes stores that hold external resources; the memory
// backend has nothing to release.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
