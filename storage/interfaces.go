package storage

import (
	"context"

	"github.com/poiesic/wikistream/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close releases repository resources. It does not close the backend.
	Close() error
}

// UnitRepository stores embedded text units grouped by collection.
type UnitRepository interface {
	Repository

	// AddUnits upserts units keyed by (Collection, Id).
	// A unit that already exists keeps its original InsertedAt, so redelivering
	// the same unit after a resume leaves the store unchanged.
	// Returns the units with InsertedAt populated.
	AddUnits(ctx context.Context, units ...*core.StoredUnit) ([]*core.StoredUnit, error)

	// GetUnit retrieves a single unit.
	// Returns ErrNotFound if the unit doesn't exist.
	GetUnit(ctx context.Context, collection string, id core.ID) (*core.StoredUnit, error)

	// GetUnitsByArticle retrieves all units of an article, ordered by section then position.
	GetUnitsByArticle(ctx context.Context, collection, articleID string) ([]*core.StoredUnit, error)

	// CountUnits returns the number of units stored in a collection.
	CountUnits(ctx context.Context, collection string) (int, error)

	// DeleteCollection removes every unit of a collection and its indices.
	DeleteCollection(ctx context.Context, collection string) error
}
