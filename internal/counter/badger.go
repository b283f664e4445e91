package counter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// record is the value layout of a counter in BadgerDB.
type record struct {
	Value     int64     `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BadgerStore persists counters in an embedded BadgerDB so they survive restarts.
type BadgerStore struct {
	db     *badger.DB
	prefix []byte
	owned  bool
	mu     sync.RWMutex
	closed bool
}

// OpenBadgerStore opens (or creates) a BadgerDB at path owned by the returned store.
func OpenBadgerStore(path, prefix string) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", path, err)
	}

	store := NewBadgerStore(db, prefix)
	store.owned = true
	return store, nil
}

// NewBadgerStore wraps a BadgerDB shared with other components. Close does not close db.
func NewBadgerStore(db *badger.DB, prefix string) *BadgerStore {
	if prefix == "" {
		prefix = "counter:"
	}
	return &BadgerStore{db: db, prefix: []byte(prefix)}
}

func (s *BadgerStore) makeKey(key string) []byte {
	out := make([]byte, 0, len(s.prefix)+len(key))
	out = append(out, s.prefix...)
	return append(out, key...)
}

func (s *BadgerStore) Get(ctx context.Context, key string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		observe("badger", "get", ErrStoreClosed, false)
		return 0, false, ErrStoreClosed
	}

	var rec record
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.makeKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})

	observe("badger", "get", err, found)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read counter %s: %w", key, err)
	}

	return rec.Value, found, nil
}

func (s *BadgerStore) Set(ctx context.Context, key string, value int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		observe("badger", "set", ErrStoreClosed, false)
		return ErrStoreClosed
	}

	data, err := json.Marshal(record{Value: value, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode counter %s: %w", key, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.makeKey(key), data)
	})

	observe("badger", "set", err, false)
	if err != nil {
		return fmt.Errorf("failed to write counter %s: %w", key, err)
	}

	return nil
}

func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.owned {
		return s.db.Close()
	}
	return nil
}
