package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/locolive/chat-engine/internal/auth"
	"github.com/locolive/chat-engine/pkg/response"
)

type contextKey string

const (
	UserIDKey     contextKey = "user_id"
	userHolderKey contextKey = "user_holder"
)

// userHolder carries the authenticated user back out to LoggingMiddleware,
// which wraps the auth middleware and cannot see its context.
type userHolder struct {
	userID uuid.UUID
	set    bool
}

func withUserHolder(ctx context.Context, h *userHolder) context.Context {
	return context.WithValue(ctx, userHolderKey, h)
}

// AuthMiddleware creates JWT authentication middleware. The verified user id
// becomes the requester identity of every chat operation.
func AuthMiddleware(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				response.Unauthorized(w, "missing or malformed authorization")
				return
			}

			// Validate token
			claims, err := jwtManager.ValidateAccessToken(token)
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					response.Unauthorized(w, "token has expired")
					return
				}
				response.Unauthorized(w, "invalid token")
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken reads the Authorization header. Websocket clients that cannot
// set headers pass the token as ?access_token= on the upgrade request.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if websocketUpgrade(r) {
			token := r.URL.Query().Get("access_token")
			return token, token != ""
		}
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func websocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// WithUserID returns ctx carrying the authenticated user id
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	if h, ok := ctx.Value(userHolderKey).(*userHolder); ok {
		h.userID = userID
		h.set = true
	}
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}
