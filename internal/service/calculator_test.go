package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
)

type calculatorFixture struct {
	svc     *CalculatorService
	catalog *fakeCatalogStore
	now     time.Time
}

func newCalculatorFixture(t *testing.T) *calculatorFixture {
	t.Helper()
	f := &calculatorFixture{
		catalog: newFakeCatalogStore(),
		now:     time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC),
	}
	svc, err := NewCalculatorService(f.catalog, slog.Default())
	require.NoError(t, err)
	f.svc = svc.WithClock(fixedClock(f.now))
	return f
}

func (f *calculatorFixture) catalogItem(t *testing.T, name, cost string, league domain.League, active bool) *domain.CatalogItem {
	t.Helper()
	item := &domain.CatalogItem{
		ID:         uuid.New(),
		Category:   domain.CategoryETL,
		Name:       name,
		Complexity: domain.ComplexityM,
		BaseCostQ:  decimal.RequireFromString(cost),
		MinLeague:  league,
		IsActive:   active,
		CreatedAt:  f.now,
	}
	require.NoError(t, f.catalog.Create(context.Background(), item))
	return item
}

func TestCalculatorService_Compute(t *testing.T) {
	ctx := context.Background()

	t.Run("prices lines and takes the highest league gate", func(t *testing.T) {
		f := newCalculatorFixture(t)
		parser := f.catalogItem(t, "Source parser", "4.0", domain.LeagueC, true)
		pipeline := f.catalogItem(t, "Pipeline assembly", "6.5", domain.LeagueB, true)

		breakdown, err := f.svc.Compute(ctx, []EstimateRequestLine{
			{CatalogItemID: parser.ID, Quantity: 2},
			{CatalogItemID: pipeline.ID, Quantity: 1},
		})
		require.NoError(t, err)
		require.Len(t, breakdown.Lines, 2)
		assert.True(t, breakdown.Lines[0].SubtotalQ.Equal(decimal.RequireFromString("8.0")))
		assert.True(t, breakdown.Lines[1].SubtotalQ.Equal(decimal.RequireFromString("6.5")))
		assert.True(t, breakdown.TotalQ.Equal(decimal.RequireFromString("14.5")), breakdown.TotalQ.String())
		assert.Equal(t, domain.LeagueB, breakdown.MinLeague)
		assert.Equal(t, f.now, breakdown.ComputedAt)
	})

	t.Run("unknown and inactive items are skipped", func(t *testing.T) {
		f := newCalculatorFixture(t)
		active := f.catalogItem(t, "Parser", "4.0", domain.LeagueC, true)
		retired := f.catalogItem(t, "Legacy export", "9.0", domain.LeagueC, false)

		breakdown, err := f.svc.Compute(ctx, []EstimateRequestLine{
			{CatalogItemID: active.ID, Quantity: 1},
			{CatalogItemID: retired.ID, Quantity: 1},
			{CatalogItemID: uuid.New(), Quantity: 3},
		})
		require.NoError(t, err)
		require.Len(t, breakdown.Lines, 1)
		assert.True(t, breakdown.TotalQ.Equal(decimal.RequireFromString("4.0")))
	})

	t.Run("empty request", func(t *testing.T) {
		f := newCalculatorFixture(t)
		_, err := f.svc.Compute(ctx, nil)
		assert.ErrorIs(t, err, ErrEmptyEstimate)
	})

	t.Run("nothing resolvable", func(t *testing.T) {
		f := newCalculatorFixture(t)
		_, err := f.svc.Compute(ctx, []EstimateRequestLine{{CatalogItemID: uuid.New(), Quantity: 1}})
		assert.ErrorIs(t, err, ErrEmptyEstimate)
	})
}

func TestCalibrate(t *testing.T) {
	breakdown := &domain.EstimateBreakdown{
		Lines: []domain.EstimateLine{
			{Name: "Parser", SubtotalQ: decimal.RequireFromString("3.0")},
			{Name: "Pipeline", SubtotalQ: decimal.RequireFromString("9.0")},
		},
		TotalQ: decimal.RequireFromString("12.0"),
	}

	lines := Calibrate(breakdown, 4800)
	require.Len(t, lines, 2)
	assert.Equal(t, int64(1200), lines[0].ShareSeconds)
	assert.Equal(t, int64(3600), lines[1].ShareSeconds)

	assert.Nil(t, Calibrate(nil, 100))
	assert.Nil(t, Calibrate(&domain.EstimateBreakdown{}, 100))
}

func TestCalculatorService_CatalogAdmin(t *testing.T) {
	ctx := context.Background()
	f := newCalculatorFixture(t)
	users := newFakeUserStore()
	admin := testUser(t, users, domain.RoleAdmin, domain.LeagueA, 0)
	lead := testUser(t, users, domain.RoleTeamlead, domain.LeagueA, 160)

	item := &domain.CatalogItem{
		ID:         uuid.New(),
		Category:   domain.CategoryWidget,
		Name:       "Consent banner",
		Complexity: domain.ComplexityS,
		BaseCostQ:  decimal.RequireFromString("2.0"),
		MinLeague:  domain.LeagueC,
		IsActive:   true,
	}

	t.Run("teamleads cannot edit the catalog", func(t *testing.T) {
		err := f.svc.CreateCatalogItem(ctx, actorFor(lead), item)
		assert.ErrorIs(t, err, ErrNotAdmin)
	})

	t.Run("admin creates and updates", func(t *testing.T) {
		require.NoError(t, f.svc.CreateCatalogItem(ctx, actorFor(admin), item))

		item.BaseCostQ = decimal.RequireFromString("2.5")
		require.NoError(t, f.svc.UpdateCatalogItem(ctx, actorFor(admin), item))

		stored, err := f.svc.GetCatalogItem(ctx, item.ID)
		require.NoError(t, err)
		assert.True(t, stored.BaseCostQ.Equal(decimal.RequireFromString("2.5")))
	})
}
