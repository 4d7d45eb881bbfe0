package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"packshop/internal/models"
	"packshop/internal/services"
)

type ctxKey string

const ctxUser ctxKey = "user"

// Authenticator resolves a bearer token to the user it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(ctxUser).(*models.User)
	return u, ok && u != nil
}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxUser, u)
}

// JWTAuth rejects requests without a valid session token. Missing tokens
// and deleted users get 401, bad or expired tokens get 403.
func JWTAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "missing_token", "Authentication token missing")
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, services.ErrSessionTokenExpired):
					writeJSONError(w, http.StatusForbidden, "token_expired", "Token expired")
				case errors.Is(err, services.ErrSessionTokenInvalid):
					writeJSONError(w, http.StatusForbidden, "invalid_token", "Invalid token")
				case errors.Is(err, services.ErrUnauthorized):
					writeJSONError(w, http.StatusUnauthorized, "user_not_found", "User no longer exists")
				default:
					writeJSONError(w, http.StatusInternalServerError, "internal_error", "Authentication failed")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireAdmin must run after JWTAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "missing_token", "Authentication token missing")
			return
		}
		if !user.IsAdmin() {
			writeJSONError(w, http.StatusForbidden, "forbidden", "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func writeJSONError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   code,
		"message": message,
	})
}
