package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/platform/logger"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// ShopStore implements the store.ShopStore interface using PostgreSQL.
type ShopStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewShopStore creates a new PostgreSQL implementation of store.ShopStore.
// If logger is nil, a default logger will be used.
func NewShopStore(db store.DBTX, log *slog.Logger) *ShopStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &ShopStore{
		db:     db,
		logger: log.With(slog.String("component", "shop_store")),
	}
}

// Ensure ShopStore implements store.ShopStore interface
var _ store.ShopStore = (*ShopStore)(nil)

const shopItemColumns = `id, name, description, cost_q, category, icon,
	is_active, max_per_month, requires_approval, created_at`

func scanShopItem(scanner interface{ Scan(...any) error }) (*domain.ShopItem, error) {
	var item domain.ShopItem
	err := scanner.Scan(
		&item.ID, &item.Name, &item.Description, &item.CostQ, &item.Category,
		&item.Icon, &item.IsActive, &item.MaxPerMonth, &item.RequiresApproval,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItem implements store.ShopStore.GetItem.
func (s *ShopStore) GetItem(ctx context.Context, id uuid.UUID) (*domain.ShopItem, error) {
	item, err := scanShopItem(s.db.QueryRowContext(ctx,
		`SELECT `+shopItemColumns+` FROM shop_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrShopItemNotFound
		}
		return nil, err
	}
	return item, nil
}

// ListActiveItems implements store.ShopStore.ListActiveItems.
func (s *ShopStore) ListActiveItems(ctx context.Context) ([]*domain.ShopItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+shopItemColumns+` FROM shop_items
		WHERE is_active
		ORDER BY cost_q ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query shop items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*domain.ShopItem
	for rows.Next() {
		item, err := scanShopItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shop item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shop item rows: %w", err)
	}
	return items, nil
}

const purchaseColumns = `id, user_id, shop_item_id, cost_q, status,
	approved_by, approved_at, created_at`

// CreatePurchase implements store.ShopStore.CreatePurchase.
func (s *ShopStore) CreatePurchase(ctx context.Context, p *domain.Purchase) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO purchases (` + purchaseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.ShopItemID, p.CostQ, p.Status,
		uuidOrNil(p.ApprovedBy), p.ApprovedAt, p.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: referenced user or shop item does not exist", store.ErrInvalidEntity)
		}
		log.Error("failed to create purchase",
			slog.String("error", err.Error()),
			slog.String("purchase_id", p.ID.String()))
		return err
	}

	log.Info("purchase created",
		slog.String("purchase_id", p.ID.String()),
		slog.String("user_id", p.UserID.String()),
		slog.String("status", string(p.Status)))
	return nil
}

func scanPurchase(scanner interface{ Scan(...any) error }) (*domain.Purchase, error) {
	var (
		p          domain.Purchase
		approvedBy uuid.NullUUID
		approvedAt sql.NullTime
	)
	err := scanner.Scan(
		&p.ID, &p.UserID, &p.ShopItemID, &p.CostQ, &p.Status,
		&approvedBy, &approvedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ApprovedBy = uuidPtr(approvedBy)
	p.ApprovedAt = timePtr(approvedAt)
	return &p, nil
}

// GetPurchase implements store.ShopStore.GetPurchase.
func (s *ShopStore) GetPurchase(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	p, err := scanPurchase(s.db.QueryRowContext(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPurchaseNotFound
		}
		return nil, err
	}
	return p, nil
}

// UpdatePurchase implements store.ShopStore.UpdatePurchase.
func (s *ShopStore) UpdatePurchase(ctx context.Context, p *domain.Purchase) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE purchases
		SET status = $2, approved_by = $3, approved_at = $4
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		p.ID, p.Status, uuidOrNil(p.ApprovedBy), p.ApprovedAt,
	)
	if err != nil {
		log.Error("failed to update purchase",
			slog.String("error", err.Error()),
			slog.String("purchase_id", p.ID.String()))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrPurchaseNotFound
	}
	return nil
}

// ListPurchasesByUser implements store.ShopStore.ListPurchasesByUser.
func (s *ShopStore) ListPurchasesByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Purchase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+purchaseColumns+` FROM purchases
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var purchases []*domain.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase row: %w", err)
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchase rows: %w", err)
	}
	return purchases, nil
}

// CountPurchasesSince implements store.ShopStore.CountPurchasesSince.
func (s *ShopStore) CountPurchasesSince(ctx context.Context, userID, itemID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM purchases
		WHERE user_id = $1 AND shop_item_id = $2 AND created_at >= $3`,
		userID, itemID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count purchases: %w", err)
	}
	return count, nil
}

// WithTx implements store.ShopStore.WithTx.
func (s *ShopStore) WithTx(tx *sql.Tx) store.ShopStore {
	return &ShopStore{db: tx, logger: s.logger}
}
