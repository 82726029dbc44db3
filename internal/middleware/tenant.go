package middleware

import (
	"net/http"

	"github.com/openpim/importer/internal/auth"

	"github.com/google/uuid"
)

const (
	organizationHeader = "X-Organization-ID"
	userHeader         = "X-User-ID"
)

// TenantScope copies the authenticated organization and user headers into
// the request context. Tenant authentication itself happens upstream; this
// service only enforces that requests stay inside their scope.
func TenantScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if raw := r.Header.Get(organizationHeader); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, "invalid organization header", http.StatusBadRequest)
				return
			}
			ctx = auth.ContextWithOrganizationID(ctx, id)
		}
		if raw := r.Header.Get(userHeader); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, "invalid user header", http.StatusBadRequest)
				return
			}
			ctx = auth.ContextWithUserID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
