package api

import (
	"log/slog"
	"net/http"

	"github.com/SemenBogdanov/dpms-system/internal/api/shared"
	"github.com/SemenBogdanov/dpms-system/internal/service"
)

// FocusHandler exposes the per-task stopwatch.
type FocusHandler struct {
	focus  *service.FocusService
	logger *slog.Logger
}

// NewFocusHandler creates a new FocusHandler.
func NewFocusHandler(focus *service.FocusService, log *slog.Logger) *FocusHandler {
	if log == nil {
		log = slog.Default()
	}
	return &FocusHandler{
		focus:  focus,
		logger: log.With(slog.String("component", "focus_handler")),
	}
}

// Start handles POST /tasks/{id}/focus/start.
func (h *FocusHandler) Start(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	taskID, err := getPathUUID(r, "id")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	task, err := h.focus.Start(r.Context(), actor, taskID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// Pause handles POST /tasks/{id}/focus/pause.
func (h *FocusHandler) Pause(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	taskID, err := getPathUUID(r, "id")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	task, err := h.focus.Pause(r.Context(), actor, taskID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

type correctTimeRequest struct {
	ActiveSeconds int64  `json:"active_seconds" validate:"min=0"`
	Reason        string `json:"reason" validate:"required"`
}

// CorrectTime handles POST /tasks/{id}/time.
func (h *FocusHandler) CorrectTime(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	taskID, err := getPathUUID(r, "id")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	var req correctTimeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.focus.CorrectActiveTime(r.Context(), actor, taskID, req.ActiveSeconds, req.Reason)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// Corrections handles GET /tasks/{id}/time/corrections.
func (h *FocusHandler) Corrections(w http.ResponseWriter, r *http.Request) {
	if _, ok := getActor(w, r); !ok {
		return
	}
	taskID, err := getPathUUID(r, "id")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	corrections, err := h.focus.Corrections(r.Context(), taskID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, corrections)
}
