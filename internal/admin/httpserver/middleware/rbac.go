package middleware

import (
	"net/http"

	"finitefield.org/catalog-admin/internal/admin/rbac"
)

// RequireCapability aborts with 403 when the authenticated user lacks capability.
func RequireCapability(capability rbac.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !HasCapability(r, capability) {
				forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HasCapability reports whether the request's user holds capability.
func HasCapability(r *http.Request, capability rbac.Capability) bool {
	user, ok := UserFromContext(r.Context())
	return ok && rbac.HasCapability(user.Roles, capability)
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	if IsHTMXRequest(r.Context()) {
		TriggerToast(w, "You do not have permission to do that.", ToneError)
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}
