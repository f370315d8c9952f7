package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorepoints/internal/auth"
	"github.com/dukerupert/chorepoints/internal/ledger"
	"github.com/dukerupert/chorepoints/internal/model"
	"github.com/dukerupert/chorepoints/internal/store"
	"github.com/dukerupert/chorepoints/internal/websocket"
)

type NotificationHandler struct {
	notifications *store.NotificationStore
	engine        *ledger.Engine
	hub           *websocket.Hub
	logger        *slog.Logger
}

func NewNotificationHandler(ns *store.NotificationStore, engine *ledger.Engine, hub *websocket.Hub, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: ns, engine: engine, hub: hub, logger: logger}
}

func (h *NotificationHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

// List returns the authenticated account's notifications, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())

	notifications, err := h.notifications.ListByRecipient(actor.Recipient())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list notifications"})
		return
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

// MarkRead sets the read flag on a notification addressed to the actor.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	n, err := h.notifications.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get notification"})
		return
	}
	if n == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
		return
	}

	actor, _ := auth.FromContext(r.Context())
	if n.Recipient != actor.Recipient() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your notification"})
		return
	}

	if err := h.notifications.MarkRead(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to mark read"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type auditRequest struct {
	Decision string `json:"decision"`
	Points   *int   `json:"points"`
	Note     string `json:"note"`
}

// Audit resolves a pending notification with the parent's decision and
// optional point override.
func (h *NotificationHandler) Audit(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req auditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	actor, _ := auth.FromContext(r.Context())

	result, err := h.engine.AuditNotification(actor.Email, id, req.Decision, req.Points, req.Note)
	if err != nil {
		writeLedgerError(w, h.logger, err)
		return
	}

	h.broadcast(websocket.NewEvent("notification", "audited", id, result.PointsApplied))

	writeJSON(w, http.StatusOK, result)
}
