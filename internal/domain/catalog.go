package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCatalogItemID   = errors.New("catalog item ID cannot be empty")
	ErrEmptyCatalogItemName = errors.New("catalog item name cannot be empty")
	ErrNegativeBaseCost     = errors.New("catalog base cost cannot be negative")
	ErrInvalidCategory      = errors.New("invalid catalog category")
)

// CatalogCategory classifies a priced unit of work.
type CatalogCategory string

const (
	CategoryWidget    CatalogCategory = "widget"
	CategoryETL       CatalogCategory = "etl"
	CategoryAPI       CatalogCategory = "api"
	CategoryDocs      CatalogCategory = "docs"
	CategoryProactive CatalogCategory = "proactive"
)

// Valid reports whether c is one of the known categories.
func (c CatalogCategory) Valid() bool {
	switch c {
	case CategoryWidget, CategoryETL, CategoryAPI, CategoryDocs, CategoryProactive:
		return true
	}
	return false
}

// CatalogItem is a priced operation template in the estimation calculator.
// Tasks snapshot the breakdown at estimation time, so editing or
// deactivating an item never rewrites existing estimates.
type CatalogItem struct {
	ID          uuid.UUID       `json:"id"`
	Category    CatalogCategory `json:"category"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Complexity  Complexity      `json:"complexity"`
	BaseCostQ   decimal.Decimal `json:"base_cost_q"`
	MinLeague   League          `json:"min_league"`
	IsActive    bool            `json:"is_active"`
	SortOrder   int             `json:"sort_order"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewCatalogItem creates an active catalog item. Returns an error if
// validation fails.
func NewCatalogItem(category CatalogCategory, name string, complexity Complexity, baseCostQ decimal.Decimal, minLeague League) (*CatalogItem, error) {
	item := &CatalogItem{
		ID:         uuid.New(),
		Category:   category,
		Name:       name,
		Complexity: complexity,
		BaseCostQ:  baseCostQ,
		MinLeague:  minLeague,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// Validate checks if the CatalogItem has valid data.
func (c *CatalogItem) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyCatalogItemID
	}
	if !c.Category.Valid() {
		return ErrInvalidCategory
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCatalogItemName
	}
	if !c.Complexity.Valid() {
		return ErrInvalidComplexity
	}
	if !c.MinLeague.Valid() {
		return ErrInvalidLeague
	}
	if c.BaseCostQ.IsNegative() {
		return ErrNegativeBaseCost
	}
	return nil
}
