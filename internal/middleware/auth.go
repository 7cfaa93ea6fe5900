package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/entity"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/port/rest/response"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ContextKey is the type of the keys this package stores in request contexts.
type ContextKey string

const (
	UserIDCtxKey   = ContextKey("user_id")
	UserRoleCtxKey = ContextKey("user_role")
)

// Claims is the JWT payload issued by the user service.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// WithIdentity stores the caller in ctx.
func WithIdentity(ctx context.Context, id entity.Identity) context.Context {
	ctx = context.WithValue(ctx, UserIDCtxKey, id.ID)
	return context.WithValue(ctx, UserRoleCtxKey, id.Role)
}

// IdentityFromContext returns the caller attached by JWTAuth.
func IdentityFromContext(ctx context.Context) (entity.Identity, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(string)
	if !ok || userID == "" {
		return entity.Identity{}, false
	}
	role, _ := ctx.Value(UserRoleCtxKey).(entity.Role)
	return entity.Identity{ID: userID, Role: role}, true
}

func parseToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	if claims.UserID == "" {
		return nil, errors.New("user_id not found in token claims")
	}
	return claims, nil
}

// JWTAuth rejects requests without a valid "Bearer <token>" header and puts
// the caller's identity in the request context.
func JWTAuth(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parts := strings.Fields(r.Header.Get("Authorization"))
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				response.Error(w, http.StatusUnauthorized, "authorization token is missing or malformed")
				return
			}

			claims, err := parseToken(parts[1], secret)
			if err != nil {
				logger.Debug("JWT validation failed", zap.Error(err), zap.String("path", r.URL.Path))
				if errors.Is(err, jwt.ErrTokenExpired) {
					response.Error(w, http.StatusUnauthorized, "token has expired")
					return
				}
				response.Error(w, http.StatusUnauthorized, "token is invalid")
				return
			}

			id := entity.Identity{ID: claims.UserID, Role: entity.Role(strings.ToLower(claims.Role))}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole lets through only callers holding one of roles. It must run after JWTAuth.
func RequireRole(roles ...entity.Role) func(http.Handler) http.Handler {
	allowed := make(map[entity.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				response.Error(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if _, ok := allowed[id.Role]; !ok {
				response.Error(w, http.StatusForbidden, "you are not allowed to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
