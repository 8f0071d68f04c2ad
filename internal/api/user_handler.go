package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/SemenBogdanov/dpms-system/internal/api/shared"
	"github.com/SemenBogdanov/dpms-system/internal/service"
)

// UserHandler exposes the authenticated user's own views: profile,
// dashboard and period history.
type UserHandler struct {
	users    *service.UserService
	rollover *service.RolloverService
	logger   *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService, rollover *service.RolloverService, log *slog.Logger) *UserHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UserHandler{
		users:    users,
		rollover: rollover,
		logger:   log.With(slog.String("component", "user_handler")),
	}
}

// Me handles GET /me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	user, err := h.users.Get(r.Context(), actor.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, user)
}

// Dashboard handles GET /me/dashboard.
func (h *UserHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	dash, err := h.users.GetDashboard(r.Context(), actor.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, dash)
}

// Periods handles GET /me/periods.
func (h *UserHandler) Periods(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	limit := 12
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	snapshots, err := h.rollover.UserHistory(r.Context(), actor.ID, limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, snapshots)
}
