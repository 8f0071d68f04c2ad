package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/SemenBogdanov/dpms-system/internal/api/shared"
	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/service"
)

// AdminHandler groups user administration, catalog management and the
// period rollover.
type AdminHandler struct {
	users      *service.UserService
	rollover   *service.RolloverService
	calculator *service.CalculatorService
	logger     *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	users *service.UserService,
	rollover *service.RolloverService,
	calculator *service.CalculatorService,
	log *slog.Logger,
) *AdminHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AdminHandler{
		users:      users,
		rollover:   rollover,
		calculator: calculator,
		logger:     log.With(slog.String("component", "admin_handler")),
	}
}

// CreateUser handles POST /admin/users.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	var req service.CreateUserInput
	if !decodeAndValidate(w, r, &req) {
		return
	}
	user, err := h.users.CreateUser(r.Context(), actor, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, user)
}

// UpdateUser handles PATCH /admin/users/{id}.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	userID, err := getPathUUID(r, "id")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	var req service.UpdateUserInput
	if !decodeAndValidate(w, r, &req) {
		return
	}
	user, err := h.users.UpdateUser(r.Context(), actor, userID, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// DeactivateUser handles DELETE /admin/users/{id}.
func (h *AdminHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	userID, err := getPathUUID(r, "id")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if err := h.users.Deactivate(r.Context(), actor, userID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := getActor(w, r); !ok {
		return
	}
	users, err := h.users.ListActive(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, users)
}

// CloseRollover handles POST /admin/rollover/{period}.
func (h *AdminHandler) CloseRollover(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	period := chi.URLParam(r, "period")
	if err := h.rollover.Close(r.Context(), actor, period); err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"period": period, "status": "closed"})
}

// ApplyLeagues handles POST /admin/leagues/apply.
func (h *AdminHandler) ApplyLeagues(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	changes, err := h.rollover.ApplyLeagueChanges(r.Context(), actor)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, changes)
}

// PeriodHistory handles GET /admin/rollover/{period}.
func (h *AdminHandler) PeriodHistory(w http.ResponseWriter, r *http.Request) {
	if _, ok := getActor(w, r); !ok {
		return
	}
	period := chi.URLParam(r, "period")
	snaps, err := h.rollover.History(r.Context(), period)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, snaps)
}

type catalogItemRequest struct {
	Category    string          `json:"category" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Complexity  string          `json:"complexity" validate:"required"`
	BaseCostQ   decimal.Decimal `json:"base_cost_q"`
	MinLeague   string          `json:"min_league" validate:"required"`
	SortOrder   int             `json:"sort_order"`
}

// CreateCatalogItem handles POST /admin/catalog.
func (h *AdminHandler) CreateCatalogItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	var req catalogItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item, err := domain.NewCatalogItem(
		domain.CatalogCategory(req.Category), req.Name,
		domain.Complexity(req.Complexity), req.BaseCostQ,
		domain.League(req.MinLeague),
	)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	item.Description = req.Description
	item.SortOrder = req.SortOrder

	if err := h.calculator.CreateCatalogItem(r.Context(), actor, item); err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, item)
}

type updateCatalogItemRequest struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	BaseCostQ   *decimal.Decimal `json:"base_cost_q,omitempty"`
	MinLeague   *string          `json:"min_league,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
	SortOrder   *int             `json:"sort_order,omitempty"`
}

// UpdateCatalogItem handles PATCH /admin/catalog/{id}. Price and league
// edits apply to future estimates only; frozen task breakdowns keep the
// prices they were estimated at.
func (h *AdminHandler) UpdateCatalogItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	itemID, err := getPathUUID(r, "id")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	var req updateCatalogItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item, err := h.calculator.GetCatalogItem(r.Context(), itemID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.BaseCostQ != nil {
		item.BaseCostQ = *req.BaseCostQ
	}
	if req.MinLeague != nil {
		item.MinLeague = domain.League(*req.MinLeague)
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	if req.SortOrder != nil {
		item.SortOrder = *req.SortOrder
	}

	if err := h.calculator.UpdateCatalogItem(r.Context(), actor, item); err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, item)
}

// ListCatalog handles GET /catalog.
func (h *AdminHandler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	if _, ok := getActor(w, r); !ok {
		return
	}
	items, err := h.calculator.ListCatalog(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, items)
}

type computeEstimateRequest struct {
	Lines []service.EstimateRequestLine `json:"lines" validate:"required,min=1,dive"`
}

// ComputeEstimate handles POST /calculator/estimate: a dry run of the
// calculator, not attached to any task.
func (h *AdminHandler) ComputeEstimate(w http.ResponseWriter, r *http.Request) {
	if _, ok := getActor(w, r); !ok {
		return
	}
	var req computeEstimateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	breakdown, err := h.calculator.Compute(r.Context(), req.Lines)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, breakdown)
}
