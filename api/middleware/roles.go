package middleware

import (
	"net/http"

	"github.com/angelmondragon/admin-analytics/api/responses"
	pkgerrors "github.com/angelmondragon/admin-analytics/pkg/errors"
	"github.com/angelmondragon/admin-analytics/pkg/logger"
)

func RequireRole(role string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != role {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
