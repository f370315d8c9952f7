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

type RewardHandler struct {
	rewards  *store.RewardStore
	accounts *store.AccountStore
	engine   *ledger.Engine
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewRewardHandler(rs *store.RewardStore, as *store.AccountStore, engine *ledger.Engine, hub *websocket.Hub, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewards: rs, accounts: as, engine: engine, hub: hub, logger: logger}
}

func (h *RewardHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

type rewardRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	PointsNeeded int    `json:"points_needed"`
	Repeat       string `json:"repeat"`
}

func (req *rewardRequest) validate() string {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return "title is required"
	}
	if req.PointsNeeded <= 0 {
		return "points_needed must be > 0"
	}
	if req.Repeat == "" {
		req.Repeat = model.RepeatNone
	}
	if !model.ValidRewardRepeat(req.Repeat) {
		return "repeat must be none, unlimited, daily, or weekly"
	}
	return ""
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	actor, _ := auth.FromContext(r.Context())

	reward, err := h.rewards.Create(req.Title, req.Description, req.PointsNeeded, actor.Email, req.Repeat)
	if err != nil {
		h.logger.Error("create reward", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create reward"})
		return
	}

	h.broadcast(websocket.NewEvent("reward", "created", reward.ID, 0))

	writeJSON(w, http.StatusCreated, reward)
}

// List returns the parent's own rewards, or for kids the rewards offered by
// their linked parent.
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())

	parentEmail := actor.Email
	if actor.Role == model.RoleKid {
		account, err := h.accounts.GetByID(actor.AccountID)
		if err != nil || account == nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list rewards"})
			return
		}
		parentEmail = account.ParentEmail
	}

	rewards, err := h.rewards.ListByParentEmail(parentEmail)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list rewards"})
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.rewards.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get reward"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "reward not found"})
		return
	}

	actor, _ := auth.FromContext(r.Context())
	if existing.ParentEmail != actor.Email {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your reward"})
		return
	}

	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	reward, err := h.rewards.Update(id, req.Title, req.Description, req.PointsNeeded, req.Repeat)
	if err != nil {
		h.logger.Error("update reward", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update reward"})
		return
	}

	h.broadcast(websocket.NewEvent("reward", "updated", id, 0))

	writeJSON(w, http.StatusOK, reward)
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.rewards.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get reward"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "reward not found"})
		return
	}

	actor, _ := auth.FromContext(r.Context())
	if existing.ParentEmail != actor.Email {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your reward"})
		return
	}

	if err := h.rewards.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete reward"})
		return
	}

	h.broadcast(websocket.NewEvent("reward", "deleted", id, 0))

	w.WriteHeader(http.StatusNoContent)
}

// Claim attempts to claim the reward for the authenticated kid via the
// ledger: debit on claim, pending notification to the owning parent.
func (h *RewardHandler) Claim(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	actor, _ := auth.FromContext(r.Context())

	result, err := h.engine.ClaimReward(actor.AccountID, id)
	if err != nil {
		writeLedgerError(w, h.logger, err)
		return
	}

	h.broadcast(websocket.NewEvent("reward", "claimed", id, result.PointsSpent))

	writeJSON(w, http.StatusOK, result)
}
