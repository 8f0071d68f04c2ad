package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/api/shared"
	"github.com/SemenBogdanov/dpms-system/internal/service"
)

// ShopHandler exposes the karma perks shop.
type ShopHandler struct {
	shop   *service.ShopService
	logger *slog.Logger
}

// NewShopHandler creates a new ShopHandler.
func NewShopHandler(shop *service.ShopService, log *slog.Logger) *ShopHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ShopHandler{
		shop:   shop,
		logger: log.With(slog.String("component", "shop_handler")),
	}
}

// ListItems handles GET /shop/items.
func (h *ShopHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	if _, ok := getActor(w, r); !ok {
		return
	}
	items, err := h.shop.ListItems(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, items)
}

type purchaseRequest struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}

// Purchase handles POST /shop/purchases.
func (h *ShopHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	var req purchaseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	purchase, err := h.shop.Purchase(r.Context(), actor, req.ItemID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, purchase)
}

// Approve handles POST /shop/purchases/{id}/approve.
func (h *ShopHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	purchaseID, err := getPathUUID(r, "id")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	purchase, err := h.shop.Approve(r.Context(), actor, purchaseID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, purchase)
}

// History handles GET /shop/purchases.
func (h *ShopHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	purchases, err := h.shop.History(r.Context(), actor)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, purchases)
}
