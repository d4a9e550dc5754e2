package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

// UserIDKey carries the authenticated user's id for the current request
// only; nothing is cached across requests.
const UserIDKey contextKey = "user_id"

// Middleware guards protected routes. Verification failures are logged
// with their real reason but the client always gets the same generic 401,
// so a caller cannot tell an expired token from a tampered one.
func Middleware(tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			userID, err := tokens.Verify(parts[1])
			if err != nil {
				slog.Warn("token rejected", "reason", err, "path", r.URL.Path)
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
