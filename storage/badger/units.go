package badger

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/wikistream/core"
	"github.com/poiesic/wikistream/storage"
)

// UnitRepository implements storage.UnitRepository for BadgerDB.
type UnitRepository struct {
	backend *Backend
}

var _ storage.UnitRepository = (*UnitRepository)(nil)

// NewUnitRepository creates a new UnitRepository.
func NewUnitRepository(backend *Backend) (*UnitRepository, error) {
	if backend == nil || backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	return &UnitRepository{backend: backend}, nil
}

// Close is a no-op; the backend is owned by the caller.
func (r *UnitRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *UnitRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddUnits upserts units and maintains the article index.
func (r *UnitRepository) AddUnits(ctx context.Context, units ...*core.StoredUnit) ([]*core.StoredUnit, error) {
	for _, unit := range units {
		if err := validCollection(unit.Collection); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, unit := range units {
			key := makeUnitKey(unit.Collection, unit.Id)

			old, err := readUnit(tx, key)
			if err != nil {
				return err
			}
			switch {
			case old != nil:
				unit.InsertedAt = old.InsertedAt
			case unit.InsertedAt.IsZero():
				unit.InsertedAt = now
			}

			if err := tx.Set(key, storage.MarshalStoredUnit(unit)); err != nil {
				return err
			}

			indexKey := makeUnitArticleKey(unit.Collection, unit.ArticleID, unit.Id)
			if err := tx.Set(indexKey, storage.MarshalID(unit.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return units, nil
}

// GetUnit retrieves a single unit by collection and ID.
func (r *UnitRepository) GetUnit(ctx context.Context, collection string, id core.ID) (*core.StoredUnit, error) {
	var result *core.StoredUnit
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readUnit(tx, makeUnitKey(collection, id))
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

// GetUnitsByArticle retrieves all units of an article ordered by section name and position.
func (r *UnitRepository) GetUnitsByArticle(ctx context.Context, collection, articleID string) ([]*core.StoredUnit, error) {
	var result []*core.StoredUnit
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makePartialUnitArticleKey(collection, articleID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		var ids []core.ID
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			ids = append(ids, idFromArticleKey(iter.Item().Key()))
		}

		for _, id := range ids {
			unit, err := readUnit(tx, makeUnitKey(collection, id))
			if err != nil {
				return err
			}
			if unit != nil {
				result = append(result, unit)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(result, func(a, b *core.StoredUnit) int {
		return cmp.Or(
			strings.Compare(a.SectionName, b.SectionName),
			cmp.Compare(a.Position, b.Position),
		)
	})
	return result, nil
}

// CountUnits returns the number of units in a collection.
func (r *UnitRepository) CountUnits(ctx context.Context, collection string) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeUnitCollectionPrefix(collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return ctx.Err()
	}, false)
	return count, err
}

// DeleteCollection removes every unit of a collection and its article index.
func (r *UnitRepository) DeleteCollection(ctx context.Context, collection string) error {
	if err := validCollection(collection); err != nil {
		return err
	}
	r.backend.logger.Info("dropping collection", "collection", collection)
	return r.backend.DropPrefix(
		makeUnitCollectionPrefix(collection),
		makeUnitArticleCollectionPrefix(collection),
	)
}

// Helper methods

// readUnit reads a stored unit from the transaction. Returns nil, nil when absent.
func readUnit(tx *badger.Txn, key []byte) (*core.StoredUnit, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var unit *core.StoredUnit
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		unit, unmarshalErr = storage.UnmarshalStoredUnit(val)
		return unmarshalErr
	})
	return unit, err
}

// validCollection rejects names that would break key prefix boundaries.
func validCollection(collection string) error {
	if collection == "" || strings.Contains(collection, ":") {
		return fmt.Errorf("%w: %q", storage.ErrInvalidCollection, collection)
	}
	return nil
}
