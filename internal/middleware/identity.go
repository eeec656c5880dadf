package middleware

import (
	"net/http"
	"strings"

	"github.com/akademi/lms-backend/internal/tenant"
)

// Identity lifts caller identity headers set by the upstream gateway onto the
// request context. Authentication itself happens before requests reach this
// service.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if tenantID := strings.TrimSpace(r.Header.Get("X-Tenant-ID")); tenantID != "" {
				ctx = tenant.WithTenantID(ctx, tenantID)
			}
			if userID := strings.TrimSpace(r.Header.Get("X-User-ID")); userID != "" {
				ctx = tenant.WithUserID(ctx, userID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
