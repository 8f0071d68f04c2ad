package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/domain/policy"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// EstimateRequestLine is one requested catalog operation with a quantity.
type EstimateRequestLine struct {
	CatalogItemID uuid.UUID `json:"catalog_item_id" validate:"required"`
	Quantity      int       `json:"quantity" validate:"required,min=1"`
}

// CalculatorService prices work from the catalog. The result is a frozen
// breakdown the lifecycle attaches to a task; the calculator never looks
// at it again.
type CalculatorService struct {
	catalog store.CatalogStore
	logger  *slog.Logger
	now     func() time.Time
}

// NewCalculatorService creates a new CalculatorService.
// It returns an error if any of the required dependencies are nil.
func NewCalculatorService(catalog store.CatalogStore, log *slog.Logger) (*CalculatorService, error) {
	if catalog == nil {
		return nil, domain.NewValidationError("catalog", "cannot be nil", domain.ErrValidation)
	}
	if log == nil {
		log = slog.Default()
	}
	return &CalculatorService{
		catalog: catalog,
		logger:  log.With(slog.String("component", "calculator_service")),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock overrides the service clock. Intended for tests.
func (s *CalculatorService) WithClock(now func() time.Time) *CalculatorService {
	s.now = now
	return s
}

// Compute prices the requested lines. Unknown and inactive catalog items
// are skipped; pricing nothing is an error. The breakdown's minimum league
// is the highest gate among its items, so a task is at least as restricted
// as its hardest part.
func (s *CalculatorService) Compute(ctx context.Context, lines []EstimateRequestLine) (*domain.EstimateBreakdown, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyEstimate
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.CatalogItemID)
	}
	items, err := s.catalog.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*domain.CatalogItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	breakdown := &domain.EstimateBreakdown{
		TotalQ:     decimal.Zero,
		MinLeague:  domain.LeagueC,
		ComputedAt: s.now(),
	}
	for _, l := range lines {
		item, ok := byID[l.CatalogItemID]
		if !ok || l.Quantity <= 0 {
			continue
		}
		subtotal := policy.RoundQ(item.BaseCostQ.Mul(decimal.NewFromInt(int64(l.Quantity))))
		breakdown.Lines = append(breakdown.Lines, domain.EstimateLine{
			CatalogItemID: item.ID,
			Name:          item.Name,
			BaseCostQ:     item.BaseCostQ,
			Quantity:      l.Quantity,
			SubtotalQ:     subtotal,
		})
		breakdown.TotalQ = policy.RoundQ(breakdown.TotalQ.Add(subtotal))
		if policy.LeagueOrder(item.MinLeague) > policy.LeagueOrder(breakdown.MinLeague) {
			breakdown.MinLeague = item.MinLeague
		}
	}
	if len(breakdown.Lines) == 0 {
		return nil, ErrEmptyEstimate
	}
	return breakdown, nil
}

// CalibrationLine apportions a task's actual time to one estimate line.
type CalibrationLine struct {
	CatalogItemID uuid.UUID       `json:"catalog_item_id"`
	Name          string          `json:"name"`
	SubtotalQ     decimal.Decimal `json:"subtotal_q"`
	ShareSeconds  int64           `json:"share_seconds"`
}

// Calibrate splits a task's accumulated active seconds across its estimate
// lines proportionally to each line's subtotal share. Reporting input
// only; nothing is recomputed or written back.
func Calibrate(breakdown *domain.EstimateBreakdown, activeSeconds int64) []CalibrationLine {
	if breakdown == nil || len(breakdown.Lines) == 0 || !breakdown.TotalQ.IsPositive() {
		return nil
	}
	total := decimal.NewFromInt(activeSeconds)
	out := make([]CalibrationLine, 0, len(breakdown.Lines))
	for _, line := range breakdown.Lines {
		share := line.SubtotalQ.Div(breakdown.TotalQ)
		out = append(out, CalibrationLine{
			CatalogItemID: line.CatalogItemID,
			Name:          line.Name,
			SubtotalQ:     line.SubtotalQ,
			ShareSeconds:  total.Mul(share).IntPart(),
		})
	}
	return out
}

// ListCatalog returns the active catalog in display order.
func (s *CalculatorService) ListCatalog(ctx context.Context) ([]*domain.CatalogItem, error) {
	return s.catalog.ListActive(ctx)
}

// GetCatalogItem returns one catalog item, active or not.
func (s *CalculatorService) GetCatalogItem(ctx context.Context, itemID uuid.UUID) (*domain.CatalogItem, error) {
	return s.catalog.GetByID(ctx, itemID)
}

// CreateCatalogItem adds a priced operation. Admin only.
func (s *CalculatorService) CreateCatalogItem(ctx context.Context, actor Actor, item *domain.CatalogItem) error {
	if actor.Role != domain.RoleAdmin {
		return ErrNotAdmin
	}
	return s.catalog.Create(ctx, item)
}

// UpdateCatalogItem edits a priced operation going forward; frozen task
// estimates are unaffected. Admin only.
func (s *CalculatorService) UpdateCatalogItem(ctx context.Context, actor Actor, item *domain.CatalogItem) error {
	if actor.Role != domain.RoleAdmin {
		return ErrNotAdmin
	}
	return s.catalog.Update(ctx, item)
}
