package badger

import (
	"context"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/ragware/ragloop/core"
	"github.com/ragware/ragloop/storage"
)

// Collection implements storage.Collection for BadgerDB.
// Records are stored under a per-collection key prefix and similarity
// search is a full prefix scan with cosine scoring.
type Collection struct {
	backend *Backend
	name    string
	logger  *slog.Logger
}

var _ storage.Collection = (*Collection)(nil)

// NewCollection creates a collection bound to the given backend.
//
// Returns storage.Collection interface to enforce abstraction.
func NewCollection(backend *Backend, name string) storage.Collection {
	return &Collection{
		backend: backend,
		name:    name,
		logger:  slog.Default().With("component", "badger-collection", "collection", name),
	}
}

// Add stores one or more records, overwriting existing Ids.
func (c *Collection) Add(ctx context.Context, records ...*storage.Record) error {
	return c.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			value, err := storage.MarshalRecord(record)
			if err != nil {
				return err
			}
			if err := tx.Set(makeRecordKey(c.name, record.Id), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Query finds records similar to the given vector.
func (c *Collection) Query(ctx context.Context, vector []float32, limit int, where map[string]string) ([]*storage.Match, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*storage.Match
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCollectionPrefix(c.name)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			record, err := readRecord(iter.Item())
			if err != nil {
				return err
			}
			if record == nil || !matchesWhere(record, where) {
				continue
			}

			// Skip records without embeddings
			if len(record.Vector) == 0 {
				continue
			}

			results = append(results, &storage.Match{
				Record: record,
				Score:  core.CosineSimilarity(vector, record.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortStableFunc(results, func(a, b *storage.Match) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// Get retrieves all records matching the where filter.
func (c *Collection) Get(ctx context.Context, where map[string]string) ([]*storage.Record, error) {
	var results []*storage.Record
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCollectionPrefix(c.name)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			record, err := readRecord(iter.Item())
			if err != nil {
				return err
			}
			if record != nil && matchesWhere(record, where) {
				results = append(results, record)
			}
		}
		return nil
	}, false)
	return results, err
}

// GetByID retrieves a single record by its Id.
func (c *Collection) GetByID(ctx context.Context, id string) (*storage.Record, error) {
	var result *storage.Record
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = c.readRecordByKey(tx, makeRecordKey(c.name, id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// Modify applies fn to the stored record and writes it back in one transaction.
func (c *Collection) Modify(ctx context.Context, id string, fn func(r *storage.Record) error) error {
	return c.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(c.name, id)
		record, err := c.readRecordByKey(tx, key)
		if err != nil {
			return err
		}
		if record == nil {
			return storage.ErrNotFound
		}

		if err := fn(record); err != nil {
			return err
		}

		value, err := storage.MarshalRecord(record)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Delete removes records by their Ids. Missing Ids are ignored.
func (c *Collection) Delete(ctx context.Context, ids ...string) error {
	return c.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := tx.Delete(makeRecordKey(c.name, id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Count returns the number of records in the collection.
func (c *Collection) Count(ctx context.Context) (int, error) {
	count := 0
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCollectionPrefix(c.name)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Close releases resources held by the collection.
// The shared backend is closed by its owner, not here.
func (c *Collection) Close() error {
	return nil
}

// readRecordByKey reads a record from the transaction.
// Returns nil without error when the key does not exist.
func (c *Collection) readRecordByKey(tx *badger.Txn, key []byte) (*storage.Record, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	return readRecord(item)
}

// readRecord deserializes a record from an iterator item.
func readRecord(item *badger.Item) (*storage.Record, error) {
	var record *storage.Record
	err := item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalRecord(val)
		return unmarshalErr
	})
	return record, err
}

// matchesWhere reports whether the record carries every key/value pair
// from the filter. A nil or empty filter matches everything.
func matchesWhere(record *storage.Record, where map[string]string) bool {
	for k, v := range where {
		if record.Metadata[k] != v {
			return false
		}
	}
	return true
}
