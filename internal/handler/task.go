package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/chorepoints/internal/auth"
	"github.com/dukerupert/chorepoints/internal/ledger"
	"github.com/dukerupert/chorepoints/internal/model"
	"github.com/dukerupert/chorepoints/internal/store"
	"github.com/dukerupert/chorepoints/internal/websocket"
)

type TaskHandler struct {
	tasks  *store.TaskStore
	engine *ledger.Engine
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, engine *ledger.Engine, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: ts, engine: engine, hub: hub, logger: logger}
}

func (h *TaskHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

type taskRequest struct {
	Name         string  `json:"name"`
	Details      string  `json:"details"`
	Image        string  `json:"image"`
	Points       int     `json:"points"`
	CategoryName string  `json:"category_name"`
	Repeat       string  `json:"repeat"`
	AssignedTo   []int64 `json:"assigned_to"`
}

func (req *taskRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "name is required"
	}
	if req.Points <= 0 {
		return "points must be > 0"
	}
	if req.Repeat == "" {
		req.Repeat = model.RepeatNone
	}
	if !model.ValidTaskRepeat(req.Repeat) {
		return "repeat must be none, daily, weekly, or monthly"
	}
	return ""
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	actor, _ := auth.FromContext(r.Context())

	task, err := h.tasks.Create(req.Name, req.Details, req.Image, req.Points, req.CategoryName, actor.AccountID, req.Repeat, req.AssignedTo)
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create task"})
		return
	}

	h.broadcast(websocket.NewEvent("task", "created", task.ID, 0))

	writeJSON(w, http.StatusCreated, task)
}

// List returns the parent's own tasks, or the tasks a kid is assigned to.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())

	var tasks []model.Task
	var err error
	if actor.Role == model.RoleParent {
		tasks, err = h.tasks.ListByCreator(actor.AccountID)
	} else {
		tasks, err = h.tasks.ListByAssignee(actor.AccountID)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.tasks.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	actor, _ := auth.FromContext(r.Context())
	if existing.CreatedBy != actor.AccountID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your task"})
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	task, err := h.tasks.Update(id, req.Name, req.Details, req.Image, req.Points, req.CategoryName, req.Repeat, req.AssignedTo)
	if err != nil {
		h.logger.Error("update task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update task"})
		return
	}

	h.broadcast(websocket.NewEvent("task", "updated", id, 0))

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.tasks.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	actor, _ := auth.FromContext(r.Context())
	if existing.CreatedBy != actor.AccountID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your task"})
		return
	}

	if err := h.tasks.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete task"})
		return
	}

	h.broadcast(websocket.NewEvent("task", "deleted", id, 0))

	w.WriteHeader(http.StatusNoContent)
}

// Complete records the authenticated kid's completion of a task via the
// ledger: immediate point credit plus a pending notification to the parent.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	actor, _ := auth.FromContext(r.Context())
	if actor.Role != model.RoleKid {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only kids complete tasks"})
		return
	}

	result, err := h.engine.CompleteTask(actor.AccountID, id)
	if err != nil {
		writeLedgerError(w, h.logger, err)
		return
	}

	if !result.AlreadyCompleted {
		h.broadcast(websocket.NewEvent("task", "completed", id, result.PointsCredited))
	}

	writeJSON(w, http.StatusOK, result)
}
