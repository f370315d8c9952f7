package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/chorepoints/internal/auth"
	"github.com/dukerupert/chorepoints/internal/model"
	"github.com/dukerupert/chorepoints/internal/store"
)

type CategoryHandler struct {
	categories *store.CategoryStore
	logger     *slog.Logger
}

func NewCategoryHandler(cs *store.CategoryStore, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{categories: cs, logger: logger}
}

type categoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	actor, _ := auth.FromContext(r.Context())

	category, err := h.categories.Create(req.Name, req.Color, actor.AccountID)
	if err != nil {
		h.logger.Error("create category", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create category"})
		return
	}

	writeJSON(w, http.StatusCreated, category)
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())

	categories, err := h.categories.ListByParent(actor.AccountID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list categories"})
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// Update renames a category. The new name cascades to every task that
// referenced the old one.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.categories.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get category"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "category not found"})
		return
	}

	actor, _ := auth.FromContext(r.Context())
	if existing.ParentID != actor.AccountID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your category"})
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	category, err := h.categories.Update(id, req.Name, req.Color)
	if err != nil {
		h.logger.Error("update category", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update category"})
		return
	}

	writeJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.categories.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get category"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "category not found"})
		return
	}

	actor, _ := auth.FromContext(r.Context())
	if existing.ParentID != actor.AccountID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your category"})
		return
	}

	if err := h.categories.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete category"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
