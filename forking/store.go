package forking

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/cheatnet/encoder"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// Store persists fetched fork data between runs. Entries are never
// invalidated since a fork block is immutable.
type Store struct {
	db *pebble.DB
}

// OpenStore opens or creates the cache database in dir
func OpenStore(dir string) (*Store, error) {
	return openStore(dir, &pebble.Options{Logger: silentLogger{}})
}

// NewMemStore opens an in-memory store
func NewMemStore() (*Store, error) {
	return openStore("", &pebble.Options{FS: vfs.NewMem(), Logger: silentLogger{}})
}

func openStore(dir string, options *pebble.Options) (*Store, error) {
	db, err := pebble.Open(dir, options)
	if err != nil {
		return nil, fmt.Errorf("open fork cache: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get decodes the entry at key into v, reporting whether it exists
func (s *Store) Get(key Key, v any) (bool, error) {
	data, closer, err := s.db.Get(key.Marshal())
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	defer closer.Close()

	if err = encoder.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) Put(key Key, v any) error {
	data, err := encoder.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.db.Set(key.Marshal(), data, pebble.NoSync)
}

// Entry describes a persisted entry
type Entry struct {
	Key  Key
	Size int
}

// Iterate calls fn for every entry whose encoded key starts with prefix
func (s *Store) Iterate(prefix []byte, fn func(Entry) error) error {
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return err
	}

	for it.First(); it.Valid(); it.Next() {
		key, err := ParseKey(it.Key())
		if err != nil {
			return errors.Join(err, it.Close())
		}
		if err = fn(Entry{Key: key, Size: len(it.Value())}); err != nil {
			return errors.Join(err, it.Close())
		}
	}
	return it.Close()
}

// DeletePrefix removes every entry whose encoded key starts with prefix
func (s *Store) DeletePrefix(prefix []byte) error {
	return s.db.DeleteRange(prefix, upperBound(prefix), pebble.Sync)
}

// upperBound returns the smallest key greater than all keys with prefix
func upperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	for i := len(bound) - 1; i >= 0; i-- {
		if bound[i] < 0xff {
			bound[i]++
			return bound[:i+1]
		}
	}
	return nil
}

type silentLogger struct{}

func (silentLogger) Infof(string, ...any)  {}
func (silentLogger) Errorf(string, ...any) {}
func (silentLogger) Fatalf(format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}
