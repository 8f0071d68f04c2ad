package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
)

// ShopStore defines the interface for shop items and purchases.
type ShopStore interface {
	// GetItem retrieves a shop item by ID.
	// Returns ErrShopItemNotFound if the item does not exist.
	GetItem(ctx context.Context, id uuid.UUID) (*domain.ShopItem, error)

	// ListActiveItems returns active items ordered by cost ascending.
	ListActiveItems(ctx context.Context) ([]*domain.ShopItem, error)

	// CreatePurchase saves a new purchase.
	CreatePurchase(ctx context.Context, p *domain.Purchase) error

	// GetPurchase retrieves a purchase by ID.
	// Returns ErrPurchaseNotFound if the purchase does not exist.
	GetPurchase(ctx context.Context, id uuid.UUID) (*domain.Purchase, error)

	// UpdatePurchase persists the single pending -> approved mutation.
	UpdatePurchase(ctx context.Context, p *domain.Purchase) error

	// ListPurchasesByUser returns a user's purchases, newest first.
	ListPurchasesByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Purchase, error)

	// CountPurchasesSince returns how many purchases of an item the user
	// made at or after the given time (the monthly limit input).
	CountPurchasesSince(ctx context.Context, userID, itemID uuid.UUID, since time.Time) (int, error)

	// WithTx returns a store instance bound to the given transaction.
	WithTx(tx *sql.Tx) ShopStore
}
