package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/platform/logger"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// CatalogStore implements the store.CatalogStore interface using PostgreSQL.
type CatalogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewCatalogStore creates a new PostgreSQL implementation of store.CatalogStore.
// If logger is nil, a default logger will be used.
func NewCatalogStore(db store.DBTX, log *slog.Logger) *CatalogStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &CatalogStore{
		db:     db,
		logger: log.With(slog.String("component", "catalog_store")),
	}
}

// Ensure CatalogStore implements store.CatalogStore interface
var _ store.CatalogStore = (*CatalogStore)(nil)

const catalogColumns = `id, category, name, description, complexity, base_cost_q,
	min_league, is_active, sort_order, created_at`

// Create implements store.CatalogStore.Create.
func (s *CatalogStore) Create(ctx context.Context, item *domain.CatalogItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO catalog_items (` + catalogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		item.ID, item.Category, item.Name, item.Description, item.Complexity,
		item.BaseCostQ, item.MinLeague, item.IsActive, item.SortOrder, item.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create catalog item",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return err
	}

	log.Info("catalog item created",
		slog.String("item_id", item.ID.String()),
		slog.String("name", item.Name))
	return nil
}

func scanCatalogItem(scanner interface{ Scan(...any) error }) (*domain.CatalogItem, error) {
	var item domain.CatalogItem
	err := scanner.Scan(
		&item.ID, &item.Category, &item.Name, &item.Description,
		&item.Complexity, &item.BaseCostQ, &item.MinLeague,
		&item.IsActive, &item.SortOrder, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetByID implements store.CatalogStore.GetByID.
func (s *CatalogStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.CatalogItem, error) {
	item, err := scanCatalogItem(s.db.QueryRowContext(ctx,
		`SELECT `+catalogColumns+` FROM catalog_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCatalogItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (s *CatalogStore) listByQuery(ctx context.Context, query string, args ...any) ([]*domain.CatalogItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*domain.CatalogItem
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalog item rows: %w", err)
	}
	return items, nil
}

// ListActive implements store.CatalogStore.ListActive.
func (s *CatalogStore) ListActive(ctx context.Context) ([]*domain.CatalogItem, error) {
	return s.listByQuery(ctx, `
		SELECT `+catalogColumns+` FROM catalog_items
		WHERE is_active
		ORDER BY sort_order, name`)
}

// ListByIDs implements store.CatalogStore.ListByIDs.
// Unknown and inactive IDs are skipped, not errored.
func (s *CatalogStore) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.CatalogItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.listByQuery(ctx, `
		SELECT `+catalogColumns+` FROM catalog_items
		WHERE id = ANY($1) AND is_active`, ids)
}

// Update implements store.CatalogStore.Update.
func (s *CatalogStore) Update(ctx context.Context, item *domain.CatalogItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE catalog_items
		SET category = $2, name = $3, description = $4, complexity = $5,
			base_cost_q = $6, min_league = $7, is_active = $8, sort_order = $9
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		item.ID, item.Category, item.Name, item.Description, item.Complexity,
		item.BaseCostQ, item.MinLeague, item.IsActive, item.SortOrder,
	)
	if err != nil {
		log.Error("failed to update catalog item",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrCatalogItemNotFound
	}
	return nil
}

// WithTx implements store.CatalogStore.WithTx.
func (s *CatalogStore) WithTx(tx *sql.Tx) store.CatalogStore {
	return &CatalogStore{db: tx, logger: s.logger}
}
