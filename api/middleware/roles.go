package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/adspace-backend/api/responses"
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	"github.com/angelmondragon/adspace-backend/pkg/logger"
)

// RequireRole gates a route group on the caller's role. Auth must run first;
// a missing actor answers 401 and a foreign role 403.
func RequireRole(logg *logger.Logger, roles ...enums.Role) func(http.Handler) http.Handler {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = role.String()
	}
	allowed := strings.Join(names, ",")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromContext(r.Context())
			if err := actor.RequireRole(roles...); err != nil {
				ctx := logg.WithFields(r.Context(), map[string]any{
					"required_roles": allowed,
					"actor_role":     actor.Role.String(),
				})
				logg.Debug(ctx, "auth.role_denied")
				responses.WriteError(ctx, logg, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
