package handler

import (
	"context"
	"net/http"
	"strings"

	redisrepo "account-service/internal/repository/redis"
)

type contextKey string

const sessionContextKey contextKey = "session"

// AuthMiddleware resolves the bearer token into a session and makes the
// authenticated actor available to handlers. No ambient session state:
// handlers read the actor from the request context explicitly.
func AuthMiddleware(sessions redisrepo.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				respondUnauthorized(w)
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			session, err := sessions.GetSession(r.Context(), token)
			if err != nil {
				respondUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the authenticated actor, if any.
func SessionFromContext(ctx context.Context) (*redisrepo.Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(*redisrepo.Session)
	return session, ok
}

func respondUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success":false,"error":"authentication required"}`))
}
