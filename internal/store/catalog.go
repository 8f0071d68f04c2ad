package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
)

// CatalogStore defines the interface for the priced-operation catalog.
type CatalogStore interface {
	// Create saves a new catalog item.
	Create(ctx context.Context, item *domain.CatalogItem) error

	// GetByID retrieves a catalog item by its unique ID.
	// Returns ErrCatalogItemNotFound if the item does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CatalogItem, error)

	// ListActive returns active items ordered by sort order.
	ListActive(ctx context.Context) ([]*domain.CatalogItem, error)

	// ListByIDs returns the active items among the given IDs; unknown or
	// inactive IDs are silently skipped (the calculator's lookup contract).
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.CatalogItem, error)

	// Update persists changes to an existing item (edits and deactivation
	// apply going forward only; task estimates hold frozen snapshots).
	Update(ctx context.Context, item *domain.CatalogItem) error

	// WithTx returns a store instance bound to the given transaction.
	WithTx(tx *sql.Tx) CatalogStore
}
