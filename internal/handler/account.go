package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/chorepoints/internal/auth"
	"github.com/dukerupert/chorepoints/internal/ledger"
	"github.com/dukerupert/chorepoints/internal/model"
	"github.com/dukerupert/chorepoints/internal/store"
)

const (
	sessionCookieName = "chorepoints_session"
	bcryptCost        = 10
)

type AccountHandler struct {
	accounts *store.AccountStore
	sessions *store.SessionStore
	logger   *slog.Logger
}

func NewAccountHandler(as *store.AccountStore, ss *store.SessionStore, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: as, sessions: ss, logger: logger}
}

type registerRequest struct {
	Role        string `json:"role"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	ParentEmail string `json:"parent_email"`
	Password    string `json:"password"`
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	req.ParentEmail = strings.TrimSpace(req.ParentEmail)

	if req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password is required"})
		return
	}

	switch req.Role {
	case model.RoleParent:
		if req.Email == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email is required"})
			return
		}
	case model.RoleKid:
		if req.Username == "" || req.ParentEmail == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username and parent_email are required"})
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "role must be parent or kid"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to register"})
		return
	}

	var account *model.Account
	if req.Role == model.RoleParent {
		existing, err := h.accounts.GetByEmail(req.Email)
		if err != nil {
			h.logger.Error("register lookup", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to register"})
			return
		}
		if existing != nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
			return
		}
		account, err = h.accounts.CreateParent(req.Email, string(hash))
		if err != nil {
			h.logger.Error("create parent", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to register"})
			return
		}
	} else {
		existing, err := h.accounts.GetByUsername(req.Username)
		if err != nil {
			h.logger.Error("register lookup", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to register"})
			return
		}
		if existing != nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "username already taken"})
			return
		}
		account, err = h.accounts.CreateKid(req.Username, req.ParentEmail, string(hash))
		if err != nil {
			h.logger.Error("create kid", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to register"})
			return
		}
	}

	writeJSON(w, http.StatusCreated, account)
}

type loginRequest struct {
	Role     string `json:"role"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	var account *model.Account
	var err error
	switch req.Role {
	case model.RoleParent:
		account, err = h.accounts.GetByEmail(strings.TrimSpace(req.Email))
	case model.RoleKid:
		account, err = h.accounts.GetByUsername(strings.TrimSpace(req.Username))
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "role must be parent or kid"})
		return
	}
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to log in"})
		return
	}
	if account == nil || account.Role != req.Role {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user not found"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid password"})
		return
	}

	sess, err := h.sessions.Create(account.ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to log in"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, account)
}

func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.FromContext(r.Context())
	if ok {
		if err := h.sessions.Delete(actor.SessionID); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// GetPoints returns the authenticated account's point balance.
func (h *AccountHandler) GetPoints(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.GetByID(auth.AccountID(r.Context()))
	if err != nil || account == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get balance"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"account_id": account.ID, "points": account.Points})
}

// ListKids returns the kid accounts linked to the authenticated parent.
func (h *AccountHandler) ListKids(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.FromContext(r.Context())

	kids, err := h.accounts.ListKids(actor.Email)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list kids"})
		return
	}
	if kids == nil {
		kids = []model.Account{}
	}
	writeJSON(w, http.StatusOK, kids)
}

// DeleteKid removes a kid account owned by the authenticated parent.
func (h *AccountHandler) DeleteKid(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	actor, _ := auth.FromContext(r.Context())

	kid, err := h.accounts.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get account"})
		return
	}
	if kid == nil || kid.Role != model.RoleKid {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "kid not found"})
		return
	}
	if kid.ParentEmail != actor.Email {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not your kid"})
		return
	}

	if err := h.accounts.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete kid"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeLedgerError maps a ledger error kind to an HTTP response. Store
// failures surface as a generic 500; everything else carries its message.
func writeLedgerError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ledger.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, ledger.ErrInvalidState), errors.Is(err, ledger.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		logger.Error("ledger operation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "operation failed"})
	}
}
