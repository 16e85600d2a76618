package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"stockroom/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	ActorKey contextKey = "actor"
)

// AuthMiddleware validates JWT tokens and attaches the token's actor to the
// request context. Browsers cannot set headers on EventSource requests, so the
// token is also accepted from the access_token query parameter.
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				logger.Debug("Rejected request without usable token", zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, err.Error())
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				if errors.Is(err, jwt.ErrTokenExpired) {
					RespondWithError(w, http.StatusUnauthorized, "token expired")
				} else {
					RespondWithError(w, http.StatusUnauthorized, "invalid token")
				}
				return
			}
			if !token.Valid {
				RespondWithError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				logger.Error("Failed to extract claims from token")
				RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			actor, err := actorFromClaims(claims)
			if err != nil {
				logger.Debug("Token claims rejected", zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			logger.Debug("User authenticated",
				zap.String("user_id", actor.ID),
				zap.String("role", actor.Role),
			)

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token, nil
		}
		return "", errors.New("missing authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}

// actorFromClaims requires user_id and role; name, full_name and email are optional
func actorFromClaims(claims jwt.MapClaims) (domain.Actor, error) {
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return domain.Actor{}, errors.New("missing user_id claim")
	}
	role, ok := claims["role"].(string)
	if !ok {
		return domain.Actor{}, errors.New("missing role claim")
	}

	str := func(key string) string {
		s, _ := claims[key].(string)
		return s
	}
	return domain.Actor{
		ID:       userID,
		Name:     str("name"),
		FullName: str("full_name"),
		Email:    str("email"),
		Role:     role,
	}, nil
}

// WithActor returns a context carrying actor
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActor extracts the authenticated actor from request context
func GetActor(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(ActorKey).(domain.Actor)
	return actor, ok
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (string, bool) {
	actor, ok := GetActor(ctx)
	return actor.ID, ok
}

// GetUserRole extracts user role from request context
func GetUserRole(ctx context.Context) (string, bool) {
	actor, ok := GetActor(ctx)
	return actor.Role, ok
}
