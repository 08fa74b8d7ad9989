package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Abdurahmanit/GroupProject/rental-service/internal/platform/logger"
	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	userIDKey   contextKey = "authenticatedUserID"
	userRoleKey contextKey = "authenticatedUserRole"
)

// Claims is the token payload issued by the identity collaborator.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Auth validates the Bearer token and stores (userID, role) on the request
// context. Requests without a valid token are rejected with 401.
func Auth(jwtSecret string, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Warnf("Auth: missing Authorization header for %s %s", r.Method, r.URL.Path)
				writeUnauthorized(w, "authorization token is not provided")
				return
			}

			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				log.Warnf("Auth: invalid Authorization header format for %s %s", r.Method, r.URL.Path)
				writeUnauthorized(w, "authorization token format is invalid, expected 'Bearer <token>'")
				return
			}
			tokenString := parts[1]

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(jwtSecret), nil
			})
			if err != nil {
				log.Warnf("Auth: token validation failed for %s %s: %v", r.Method, r.URL.Path, err)
				if errors.Is(err, jwt.ErrTokenExpired) {
					writeUnauthorized(w, "token has expired")
					return
				}
				writeUnauthorized(w, "token is invalid")
				return
			}
			if !token.Valid || claims.UserID == "" {
				writeUnauthorized(w, "token is invalid")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			ctx = context.WithValue(ctx, userRoleKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext extracts the authenticated caller placed by Auth.
func UserFromContext(ctx context.Context) (userID, role string, ok bool) {
	userID, ok = ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", "", false
	}
	role, _ = ctx.Value(userRoleKey).(string)
	return userID, role, true
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
