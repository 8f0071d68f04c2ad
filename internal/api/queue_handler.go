package api

import (
	"log/slog"
	"net/http"

	"github.com/SemenBogdanov/dpms-system/internal/api/shared"
	"github.com/SemenBogdanov/dpms-system/internal/service"
)

// QueueHandler serves the annotated queue view. Reading the queue also
// triggers the opportunistic sweeps, so dashboards keep the overdue flags,
// stale escalations and focus auto-pauses current without a scheduler.
type QueueHandler struct {
	queue       *service.QueueService
	maintenance *service.MaintenanceService
	focus       *service.FocusService
	logger      *slog.Logger
}

// NewQueueHandler creates a new QueueHandler.
func NewQueueHandler(
	queue *service.QueueService,
	maintenance *service.MaintenanceService,
	focus *service.FocusService,
	log *slog.Logger,
) *QueueHandler {
	if log == nil {
		log = slog.Default()
	}
	return &QueueHandler{
		queue:       queue,
		maintenance: maintenance,
		focus:       focus,
		logger:      log.With(slog.String("component", "queue_handler")),
	}
}

// View handles GET /queue.
func (h *QueueHandler) View(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}

	// Sweeps are best-effort here; a sweep failure must not hide the queue.
	if _, err := h.maintenance.SweepOverdue(r.Context()); err != nil {
		h.logger.Warn("overdue sweep failed", slog.String("error", err.Error()))
	}
	if _, err := h.maintenance.SweepStaleQueue(r.Context()); err != nil {
		h.logger.Warn("stale queue sweep failed", slog.String("error", err.Error()))
	}
	if _, err := h.focus.AutoPauseSweep(r.Context()); err != nil {
		h.logger.Warn("focus auto-pause sweep failed", slog.String("error", err.Error()))
	}

	entries, err := h.queue.View(r.Context(), actor)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, entries)
}
