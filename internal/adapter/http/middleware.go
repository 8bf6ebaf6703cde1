package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mejaqr/mejaqr/internal/adapter/auth"
	"github.com/mejaqr/mejaqr/internal/adapter/logger"
	"github.com/mejaqr/mejaqr/internal/interfaces"
)

// Principal is the authenticated staff member scoped to one tenant.
type Principal struct {
	TenantID uuid.UUID
	Actor    interfaces.Actor
}

type contextKey string

const principalKey contextKey = "principal"

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

func LoggingMiddleware(logger logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := fmt.Sprintf("req-%d", time.Now().UnixNano())

			logger.Debug("http_request", fmt.Sprintf("%s %s", r.Method, r.URL.Path), requestID, map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
			})

			next.ServeHTTP(w, r)

			logger.Debug("http_response", "Request completed", requestID, map[string]interface{}{
				"duration_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}

func RecoveryMiddleware(logger logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic_recovered", "Panic recovered", "", nil, fmt.Errorf("%v", err))
					http.Error(w, "Internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware validates the staff token and proves the tenant before
// any handler runs. Inactive tenants fail closed.
func AuthMiddleware(tokens *auth.TokenManager, directory interfaces.TenantDirectory, logger logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Validate(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.Debug("auth_rejected", "Invalid token", "", nil)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			tenantID, err := claims.Tenant()
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			userID, err := claims.User()
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ref, err := directory.ResolveID(r.Context(), tenantID)
			if err != nil || !ref.IsActive {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			principal := Principal{
				TenantID: ref.ID,
				Actor: interfaces.Actor{
					UserID: userID,
					Name:   claims.Name,
					Role:   claims.Role,
				},
			}
			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
