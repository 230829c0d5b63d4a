package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"bargain-backend/dao"
	"bargain-backend/model"

	"go.uber.org/zap"
)

// Comparator starts comparisons and reports their progress.
// *usecase.Coordinator implements it.
type Comparator interface {
	Start(ctx context.Context, req model.SearchRequest) (string, error)
	GetProgress(taskID string) (model.Task, error)
}

// HistoryReader loads a persisted task. *dao.ResultRepository implements it.
type HistoryReader interface {
	History(ctx context.Context, taskID string) (*model.History, error)
}

type startResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	TaskID  string `json:"task_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type TaskController struct {
	// runs outlive the request that started them
	baseCtx    context.Context
	comparator Comparator
	history    HistoryReader
	logger     *zap.Logger
}

// NewTaskController builds the controller. history may be nil when results
// are not persisted; logger may be nil.
func NewTaskController(baseCtx context.Context, comparator Comparator, history HistoryReader, logger *zap.Logger) *TaskController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskController{
		baseCtx:    baseCtx,
		comparator: comparator,
		history:    history,
		logger:     logger,
	}
}

// POST /api/start_comparison
func (c *TaskController) StartComparison(w http.ResponseWriter, r *http.Request) {
	var req model.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" || req.MaxPrice <= 0 {
		writeError(w, http.StatusBadRequest, "query must be set and max_price positive")
		return
	}

	c.logger.Info("comparison requested", zap.String("query", req.Query), zap.Float64("max_price", req.MaxPrice))

	id, err := c.comparator.Start(c.baseCtx, req)
	if err != nil {
		c.logger.Error("start comparison failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to start comparison")
		return
	}

	writeJSON(w, http.StatusOK, startResponse{
		Success: true,
		Message: "比价任务已启动",
		TaskID:  id,
	})
}

// GET /api/task_progress/{id}
func (c *TaskController) TaskProgress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing task id")
		return
	}

	task, err := c.comparator.GetProgress(id)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			writeError(w, http.StatusNotFound, dao.ErrNotFound.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed getting task")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// GET /api/task_history/{id}
func (c *TaskController) TaskHistory(w http.ResponseWriter, r *http.Request) {
	if c.history == nil {
		writeError(w, http.StatusNotImplemented, "result persistence is disabled")
		return
	}

	h, err := c.history.History(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			writeError(w, http.StatusNotFound, dao.ErrNotFound.Error())
			return
		}
		c.logger.Error("load task history failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed getting task history")
		return
	}
	writeJSON(w, http.StatusOK, h)
}

// GET /healthz
func (c *TaskController) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
