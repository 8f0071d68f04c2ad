package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyShopItemID     = errors.New("shop item ID cannot be empty")
	ErrEmptyShopItemName   = errors.New("shop item name cannot be empty")
	ErrNegativeCost        = errors.New("shop item cost cannot be negative")
	ErrEmptyPurchaseID     = errors.New("purchase ID cannot be empty")
	ErrInvalidPurchaseStatus = errors.New("invalid purchase status")
)

// PurchaseStatus is the closed set of purchase states. A purchase is
// mutated at most once, pending -> approved; cancellation is out of scope.
type PurchaseStatus string

const (
	PurchasePending  PurchaseStatus = "pending"
	PurchaseApproved PurchaseStatus = "approved"
)

// Valid reports whether s is one of the known purchase statuses.
func (s PurchaseStatus) Valid() bool {
	return s == PurchasePending || s == PurchaseApproved
}

// ShopItem is a perk buyable with karma.
type ShopItem struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	CostQ            decimal.Decimal `json:"cost_q"`
	Category         string          `json:"category"`
	Icon             string          `json:"icon"`
	IsActive         bool            `json:"is_active"`
	MaxPerMonth      int             `json:"max_per_month"`
	RequiresApproval bool            `json:"requires_approval"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Validate checks if the ShopItem has valid data.
func (s *ShopItem) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptyShopItemID
	}
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyShopItemName
	}
	if s.CostQ.IsNegative() {
		return ErrNegativeCost
	}
	return nil
}

// Purchase is a shop redemption with a cost snapshot taken at purchase time.
type Purchase struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	ShopItemID uuid.UUID       `json:"shop_item_id"`
	CostQ      decimal.Decimal `json:"cost_q"`
	Status     PurchaseStatus  `json:"status"`
	ApprovedBy *uuid.UUID      `json:"approved_by"`
	ApprovedAt *time.Time      `json:"approved_at"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewPurchase creates a purchase in the given status with the item's cost
// snapshotted. Returns an error if validation fails.
func NewPurchase(userID, shopItemID uuid.UUID, costQ decimal.Decimal, status PurchaseStatus) (*Purchase, error) {
	p := &Purchase{
		ID:         uuid.New(),
		UserID:     userID,
		ShopItemID: shopItemID,
		CostQ:      costQ,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks if the Purchase has valid data.
func (p *Purchase) Validate() error {
	if p.ID == uuid.Nil {
		return ErrEmptyPurchaseID
	}
	if p.UserID == uuid.Nil {
		return ErrEmptyUserID
	}
	if p.ShopItemID == uuid.Nil {
		return ErrEmptyShopItemID
	}
	if !p.Status.Valid() {
		return ErrInvalidPurchaseStatus
	}
	if p.CostQ.IsNegative() {
		return ErrNegativeCost
	}
	return nil
}
