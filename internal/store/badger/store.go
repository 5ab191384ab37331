// Package badger implements session.MessageStore over BadgerDB, so sent
// (and, if the caller chooses to track it, received) messages survive a
// process restart for ResendRequest/gap-fill recovery.
package badger

import (
	"encoding/binary"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/fix44engine/fix44/session"
)

// Direction names the store half a Store instance covers; keys are laid
// out as "{connection_name}:{direction}:{seq_num}".
type Direction string

const (
	Sent     Direction = "sent"
	Received Direction = "received"
)

// Store is a durable session.MessageStore backed by a single BadgerDB
// handle, scoped to one (connectionName, direction) pair. Multiple Store
// values may share one *badger.DB, each using a disjoint key prefix to
// partition the database across several entity types.
type Store struct {
	db     *badgerdb.DB
	prefix []byte
}

// Open opens (or creates) a BadgerDB database at dir. The caller is
// responsible for calling Close on the returned DB once every Store
// built from it is done.
func Open(dir string) (*badgerdb.DB, error) {
	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", dir, err)
	}
	return db, nil
}

// New returns a Store scoped to connectionName and direction within db.
func New(db *badgerdb.DB, connectionName string, direction Direction) *Store {
	prefix := []byte(fmt.Sprintf("%s:%s:", connectionName, direction))
	return &Store{db: db, prefix: prefix}
}

func (s *Store) key(seqNum int) []byte {
	k := make([]byte, len(s.prefix)+8)
	copy(k, s.prefix)
	binary.BigEndian.PutUint64(k[len(s.prefix):], uint64(seqNum))
	return k
}

// Store implements session.MessageStore.
func (s *Store) Store(seqNum int, raw []byte) error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		cp := make([]byte, len(raw))
		copy(cp, raw)
		if err := txn.Set(s.key(seqNum), cp); err != nil {
			return err
		}
		return s.bumpLatest(txn, seqNum)
	})
}

func (s *Store) bumpLatest(txn *badgerdb.Txn, seqNum int) error {
	latestKey := append(append([]byte{}, s.prefix...), "latest"...)
	item, err := txn.Get(latestKey)
	cur := 0
	if err == nil {
		if err := item.Value(func(val []byte) error {
			cur = int(binary.BigEndian.Uint64(val))
			return nil
		}); err != nil {
			return err
		}
	} else if err != badgerdb.ErrKeyNotFound {
		return err
	}
	if seqNum <= cur {
		return nil
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(seqNum))
	return txn.Set(latestKey, buf)
}

// Range implements session.MessageStore.
func (s *Store) Range(begin, end int) ([][]byte, error) {
	out := make([][]byte, 0, end-begin+1)
	err := s.db.View(func(txn *badgerdb.Txn) error {
		for n := begin; n <= end; n++ {
			item, err := txn.Get(s.key(n))
			if err == badgerdb.ErrKeyNotFound {
				return &session.ErrGapInStore{SeqNum: n}
			}
			if err != nil {
				return err
			}
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out = append(out, raw)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Latest implements session.MessageStore.
func (s *Store) Latest() int {
	latestKey := append(append([]byte{}, s.prefix...), "latest"...)
	latest := 0
	_ = s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(latestKey)
		if err != nil {
			return nil // ErrKeyNotFound or any read error: report 0
		}
		return item.Value(func(val []byte) error {
			latest = int(binary.BigEndian.Uint64(val))
			return nil
		})
	})
	return latest
}

var _ session.MessageStore = (*Store)(nil)
