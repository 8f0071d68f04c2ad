package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/SemenBogdanov/dpms-system/internal/api/shared"
	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/service"
)

// WalletHandler exposes balances, ledger history and reconciliation.
type WalletHandler struct {
	wallet *service.WalletService
	logger *slog.Logger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(wallet *service.WalletService, log *slog.Logger) *WalletHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WalletHandler{
		wallet: wallet,
		logger: log.With(slog.String("component", "wallet_handler")),
	}
}

type balancesResponse struct {
	Main  decimal.Decimal `json:"main"`
	Karma decimal.Decimal `json:"karma"`
}

// Balances handles GET /wallet.
func (h *WalletHandler) Balances(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	main, karma, err := h.wallet.Balances(r.Context(), actor.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, balancesResponse{Main: main, Karma: karma})
}

// History handles GET /wallet/history with an optional limit query param.
func (h *WalletHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	history, err := h.wallet.History(r.Context(), actor.ID, limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, history)
}

// Reconcile handles POST /admin/wallet/reconcile: verifies the ledger
// invariant across all active users. Admin only.
func (h *WalletHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	if actor.Role != domain.RoleAdmin {
		respondServiceError(w, r, service.ErrNotAdmin)
		return
	}
	drift, err := h.wallet.Reconcile(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]any{
		"consistent": len(drift) == 0,
		"drift":      drift,
	})
}
