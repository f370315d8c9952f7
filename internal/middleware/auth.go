package middleware

import (
	"net/http"

	"github.com/dukerupert/chorepoints/internal/auth"
	"github.com/dukerupert/chorepoints/internal/store"
)

const sessionCookieName = "chorepoints_session"

// RequireAuth validates the session cookie and populates the request's
// actor context from the account record.
func RequireAuth(sessionStore *store.SessionStore, accountStore *store.AccountStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			sess, err := sessionStore.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				http.Error(w, "invalid or expired session", http.StatusUnauthorized)
				return
			}

			account, err := accountStore.GetByID(sess.AccountID)
			if err != nil || account == nil {
				http.Error(w, "invalid or expired session", http.StatusUnauthorized)
				return
			}

			actor := auth.Actor{
				AccountID: account.ID,
				Role:      account.Role,
				Email:     account.Email,
				Username:  account.Username,
				SessionID: sess.ID,
			}

			ctx := auth.WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireParent checks that the authenticated actor has the parent role.
func RequireParent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsParent(r.Context()) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
