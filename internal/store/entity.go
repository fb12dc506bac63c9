package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"iter"

	"github.com/dgraph-io/badger/v4"

	apperrors "github.com/sambooru/sambooru-server/internal/errors"
)

// Entity provides generic CRUD operations for one record type.
// Records are JSON-encoded under prefix+id keys.
type Entity[T any] struct {
	store  *Store
	prefix string
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{store: s, prefix: prefix}
}

// Create writes a new record with the given id.
// Returns a conflict error if a record with this id already exists.
func (e *Entity[T]) Create(ctx context.Context, id string, record *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(e.prefix + id)

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return apperrors.Conflictf("%s%s already exists", e.prefix, id)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check existing key: %w", err)
		}
		return txn.Set(key, data)
	})
}

// Get retrieves a record by id.
// Returns apperrors.ErrNotFound if the record does not exist, and a
// data-integrity error if the stored bytes do not decode as T.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record T
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(e.prefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get key: %w", err)
		}

		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &record); err != nil {
				return apperrors.Wrapf(err, apperrors.CodeInternal, "malformed %s%s record", e.prefix, id)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// Update overwrites an existing record.
// Returns apperrors.ErrNotFound if the record does not exist.
func (e *Entity[T]) Update(ctx context.Context, id string, record *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(e.prefix + id)

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get existing key: %w", err)
		}
		return txn.Set(key, data)
	})
}

// Delete removes a record by id.
// Idempotent — no error if the record does not exist.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(e.prefix + id))
	})
}

// List returns an iterator over all records of this entity type.
// This is the store's only bulk primitive — a linear prefix scan over a
// consistent read snapshot.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		_ = e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
				if ctx.Err() != nil {
					yield(nil, ctx.Err())
					return ctx.Err()
				}

				var record T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &record)
				})
				if err != nil {
					yield(nil, apperrors.Wrapf(err, apperrors.CodeInternal,
						"malformed %s record", string(it.Item().Key())))
					return err
				}

				if !yield(&record, nil) {
					return nil // Consumer stopped early
				}
			}
			return nil
		})
	}
}

// All collects every record of this entity type into a slice.
func (e *Entity[T]) All(ctx context.Context) ([]*T, error) {
	var records []*T
	for record, err := range e.List(ctx) {
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
