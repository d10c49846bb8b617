package repositories

import (
	"encoding/json"
	"fmt"

	"github.com/desertthunder/deezr/internal/shared"
)

// Collection loads and saves a whole serialized collection.
type Collection[T any] interface {
	// Load returns the last saved collection, or the zero value when nothing was saved.
	Load() (T, error)

	// Save replaces the stored collection with v.
	Save(v T) error
}

// JSONCollection implements [Collection] by JSON-encoding values into a [KVStore] under a fixed key.
type JSONCollection[T any] struct {
	store KVStore
	key   string
}

// NewJSONCollection creates a JSONCollection for key in store
func NewJSONCollection[T any](store KVStore, key string) *JSONCollection[T] {
	return &JSONCollection[T]{store: store, key: key}
}

// Key returns the storage key
func (c *JSONCollection[T]) Key() string { return c.key }

// Load decodes the stored value.
//
// Returns an error wrapping [shared.ErrCorrupt] when the stored value is not valid JSON for T.
func (c *JSONCollection[T]) Load() (T, error) {
	var v T

	raw, ok, err := c.store.Get(c.key)
	if err != nil {
		return v, fmt.Errorf("failed to load %s: %w", c.key, err)
	}
	if !ok || raw == "" {
		return v, nil
	}

	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: key %s: %v", shared.ErrCorrupt, c.key, err)
	}
	return v, nil
}

// Save encodes v and overwrites the stored value
func (c *JSONCollection[T]) Save(v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", c.key, err)
	}
	if err := c.store.Set(c.key, string(data)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPersist, err)
	}
	return nil
}

// Open returns the [KVStore] selected by cfg.
//
// For the sqlite backend the returned close function also closes the database.
func Open(cfg *shared.Config) (KVStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Backend {
	case shared.BackendMemory:
		return NewMemoryStore(nil), noop, nil
	case shared.BackendFile:
		store, err := NewFileStore(cfg.Storage.Dir)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case shared.BackendSQLite, "":
		db, err := shared.OpenDatabase(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLiteStore(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage backend %q", shared.ErrInvalidConfig, cfg.Storage.Backend)
	}
}
