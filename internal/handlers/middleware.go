package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const initiatorKey contextKey = "initiator"

// InitiatorFrom returns the authenticated initiator identity attached to
// the request context, or "" for unauthenticated requests.
func InitiatorFrom(ctx context.Context) string {
	if v, ok := ctx.Value(initiatorKey).(string); ok {
		return v
	}
	return ""
}

// AuthMiddleware validates a bearer token signed with secret and attaches
// its subject as the request's initiator identity. With an empty secret
// the API is open and requests carry no initiator.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			var tokenStr string
			if header := r.Header.Get("Authorization"); header != "" {
				parts := strings.Split(header, " ")
				if len(parts) == 2 && parts[0] == "Bearer" {
					tokenStr = parts[1]
				}
			}
			// Fall back to query parameter for websocket connections.
			if tokenStr == "" {
				tokenStr = r.URL.Query().Get("token")
			}
			if tokenStr == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization")
				return
			}

			token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			subject, _ := token.Claims.GetSubject()
			ctx := context.WithValue(r.Context(), initiatorKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
