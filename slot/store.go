// Package slot keeps named snapshots in an embedded Badger database. Each slot
// can be used as a save sink and a load source.
package slot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// ErrNotFound is returned for slots that were never written or were deleted.
var ErrNotFound = errors.New("slot: not found")

const (
	dataPrefix = "data/"
	metaPrefix = "meta/"
)

// Config holds configuration for a slot store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path       string
	InMemory   bool
	SyncWrites bool
	// Logger receives Badger's internal logging. Nil disables it.
	Logger *zap.Logger
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Info describes a stored slot.
type Info struct {
	Name    string    `json:"name"`
	Size    int       `json:"size"`
	Codec   string    `json:"codec,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// Store is a set of named save slots. It is safe for concurrent use.
type Store struct {
	db    *badger.DB
	codec string
	now   func() time.Time
}

// Open opens or creates the store described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("slot: path is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create slot directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(badgerLogger{cfg.Logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open slot store: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// WithCodec records the codec name in the metadata of subsequent writes.
func (s *Store) WithCodec(name string) *Store {
	s.codec = name
	return s
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put writes data into slot name, replacing its previous contents.
func (s *Store) Put(name string, data []byte) error {
	info := Info{Name: name, Size: len(data), Codec: s.codec, SavedAt: s.now().UTC()}
	meta, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(dataPrefix+name), data); err != nil {
			return err
		}
		return txn.Set([]byte(metaPrefix+name), meta)
	})
}

// Get returns the contents of slot name.
func (s *Store) Get(name string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(dataPrefix + name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return data, err
}

// Stat returns the metadata of slot name.
func (s *Store) Stat(name string) (Info, error) {
	var info Info
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaPrefix + name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &info)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Info{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return info, err
}

// List returns every slot ordered by name.
func (s *Store) List() ([]Info, error) {
	var infos []Info
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(metaPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var info Info
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &info)
			})
			if err != nil {
				return err
			}
			infos = append(infos, info)
		}
		return nil
	})
	return infos, err
}

// Delete removes slot name. Deleting a missing slot returns ErrNotFound.
func (s *Store) Delete(name string) error {
	if _, err := s.Stat(name); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(dataPrefix + name)); err != nil {
			return err
		}
		return txn.Delete([]byte(metaPrefix + name))
	})
}

// badgerLogger adapts zap to Badger's logger interface.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}
