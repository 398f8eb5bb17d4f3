package handler

import (
	"context"
	"net/http"
)

type contextKey string

const tenantIDKey contextKey = "tenantID"

// RequireTenant rejects requests without an X-Tenant-ID header. The
// WhatsApp gateway is strictly per-tenant, so every session route needs
// the header.
func RequireTenant(re *responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := r.Header.Get("X-Tenant-ID")
			if tenantID == "" {
				re.writeFailure(w, r, http.StatusBadRequest, "missing X-Tenant-ID header")
				return
			}
			ctx := context.WithValue(r.Context(), tenantIDKey, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tenantID returns the tenant set by RequireTenant.
func tenantID(r *http.Request) string {
	if v, ok := r.Context().Value(tenantIDKey).(string); ok {
		return v
	}
	return ""
}
