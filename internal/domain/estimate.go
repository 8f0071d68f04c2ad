package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EstimateLine is one entry of a task's frozen estimation breakdown.
type EstimateLine struct {
	CatalogItemID uuid.UUID       `json:"catalog_item_id"`
	Name          string          `json:"name"`
	BaseCostQ     decimal.Decimal `json:"base_cost_q"`
	Quantity      int             `json:"quantity"`
	SubtotalQ     decimal.Decimal `json:"subtotal_q"`
}

// EstimateBreakdown is the snapshot stored on a task at estimation time.
// It is produced by the calculator and never recomputed afterwards; the
// calibration report only apportions actual time across lines by subtotal
// share.
type EstimateBreakdown struct {
	Lines      []EstimateLine  `json:"lines"`
	TotalQ     decimal.Decimal `json:"total_q"`
	MinLeague  League          `json:"min_league"`
	ComputedAt time.Time       `json:"computed_at"`
}

// Marshal serializes the breakdown for storage on the task row.
func (b *EstimateBreakdown) Marshal() (json.RawMessage, error) {
	return json.Marshal(b)
}

// ParseEstimateBreakdown decodes a stored breakdown snapshot.
// Returns nil for an empty payload (tasks created without an estimate).
func ParseEstimateBreakdown(raw json.RawMessage) (*EstimateBreakdown, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var b EstimateBreakdown
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
