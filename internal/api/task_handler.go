package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/api/shared"
	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/service"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// TaskHandler exposes the task lifecycle operations.
type TaskHandler struct {
	tasks      *service.TaskService
	calculator *service.CalculatorService
	logger     *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks *service.TaskService, calculator *service.CalculatorService, log *slog.Logger) *TaskHandler {
	if log == nil {
		log = slog.Default()
	}
	return &TaskHandler{
		tasks:      tasks,
		calculator: calculator,
		logger:     log.With(slog.String("component", "task_handler")),
	}
}

type createTaskRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Type        string   `json:"task_type" validate:"required"`
	Complexity  string   `json:"complexity" validate:"required"`
	Priority    string   `json:"priority" validate:"required"`
	MinLeague   string   `json:"min_league" validate:"required"`
	Tags        []string `json:"tags"`
	IsProactive bool     `json:"is_proactive"`
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	var req createTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.Create(r.Context(), actor, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        domain.TaskType(req.Type),
		Complexity:  domain.Complexity(req.Complexity),
		Priority:    domain.TaskPriority(req.Priority),
		MinLeague:   domain.League(req.MinLeague),
		Tags:        req.Tags,
		IsProactive: req.IsProactive,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, task)
}

type estimateTaskRequest struct {
	Lines []service.EstimateRequestLine `json:"lines" validate:"required,min=1,dive"`
}

// Estimate handles POST /tasks/{id}/estimate: prices the lines through the
// calculator and freezes the breakdown on the task.
func (h *TaskHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	taskID, err := getPathUUID(r, "id")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	var req estimateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	breakdown, err := h.calculator.Compute(r.Context(), req.Lines)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	task, err := h.tasks.ApplyEstimate(r.Context(), actor, taskID, breakdown)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// Enqueue handles POST /tasks/{id}/enqueue.
func (h *TaskHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.tasks.Enqueue)
}

// Pull handles POST /tasks/{id}/pull.
func (h *TaskHandler) Pull(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.tasks.Pull)
}

// Cancel handles POST /tasks/{id}/cancel.
func (h *TaskHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.tasks.Cancel)
}

func (h *TaskHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, actor service.Actor, taskID uuid.UUID) (*domain.Task, error),
) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	taskID, err := getPathUUID(r, "id")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	task, err := op(r.Context(), actor, taskID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

type assignRequest struct {
	ExecutorID uuid.UUID `json:"executor_id" validate:"required"`
}

// Assign handles POST /tasks/{id}/assign.
func (h *TaskHandler) Assign(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	taskID, err := getPathUUID(r, "id")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	var req assignRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.Assign(r.Context(), actor, taskID, req.ExecutorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

type submitRequest struct {
	ResultURL string `json:"result_url"`
}

// Submit handles POST /tasks/{id}/submit.
func (h *TaskHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	taskID, err := getPathUUID(r, "id")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	var req submitRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.Submit(r.Context(), actor, taskID, req.ResultURL)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

type validateRequest struct {
	Approved bool   `json:"approved"`
	Comment  string `json:"comment"`
}

// Validate handles POST /tasks/{id}/validate.
func (h *TaskHandler) Validate(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	taskID, err := getPathUUID(r, "id")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	var req validateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.Validate(r.Context(), actor, taskID, req.Approved, req.Comment)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

type bugfixRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

// CreateBugfix handles POST /tasks/{id}/bugfix: reports a defect against a
// completed task.
func (h *TaskHandler) CreateBugfix(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	parentID, err := getPathUUID(r, "id")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	var req bugfixRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.CreateBugfix(r.Context(), actor, parentID, req.Title, req.Description)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, task)
}

type dueDateRequest struct {
	DueDate time.Time `json:"due_date" validate:"required"`
}

// SetDueDate handles POST /tasks/{id}/due-date: a manager override of the
// SLA-derived deadline.
func (h *TaskHandler) SetDueDate(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	taskID, err := getPathUUID(r, "id")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	var req dueDateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.SetDueDate(r.Context(), actor, taskID, req.DueDate)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// ExportPeriod handles GET /tasks/export/{period}: completed-task report
// rows for one YYYY-MM period.
func (h *TaskHandler) ExportPeriod(w http.ResponseWriter, r *http.Request) {
	actor, ok := getActor(w, r)
	if !ok {
		return
	}
	period := chi.URLParam(r, "period")

	rows, err := h.tasks.ExportPeriod(r.Context(), actor, period)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, rows)
}

// Get handles GET /tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := getActor(w, r); !ok {
		return
	}
	taskID, err := getPathUUID(r, "id")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	task, err := h.tasks.Get(r.Context(), taskID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// List handles GET /tasks with optional status, assignee_id and type
// query filters.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := getActor(w, r); !ok {
		return
	}

	var filter store.TaskFilter
	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.TaskStatus(v)
		filter.Status = &status
	}
	if v := r.URL.Query().Get("assignee_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid assignee_id")
			return
		}
		filter.AssigneeID = &id
	}
	if v := r.URL.Query().Get("type"); v != "" {
		taskType := domain.TaskType(v)
		filter.Type = &taskType
	}

	tasks, err := h.tasks.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tasks)
}
