package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/famstack/famcoin/internal/auth"
	"github.com/famstack/famcoin/internal/store"
)

// RequireChildSession validates the bearer token on child-side routes and
// populates the child context. Expired sessions are deleted on sight so the
// token cannot be retried.
func RequireChildSession(sessions *store.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, "missing session token")
				return
			}

			sess, err := sessions.GetByToken(token)
			if err != nil || sess == nil {
				unauthorized(w, "invalid session")
				return
			}
			if auth.SessionExpired(sess, time.Now()) {
				sessions.Delete(sess.ID)
				unauthorized(w, "session expired")
				return
			}

			sessions.Touch(sess.ID)
			ctx := auth.WithChild(r.Context(), auth.ChildContext{
				ChildID:   sess.ChildID,
				SessionID: sess.ID,
				Dev:       sess.Dev,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
