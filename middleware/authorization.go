package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/adrianocbaa/defensoria-fogo-control-sub005/utils"
)

// RequireCapability gates a route behind a role capability. The role comes
// straight from the JWT claims, so the check is a pure function of the
// request; denied calls answer 403 with the gate's fallback message instead
// of an empty body.
func RequireCapability(capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r)
			if claims == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			allowed, fallback := utils.CheckAccess(claims.Role, capability)
			if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]string{
					"error": fallback,
					"role":  utils.RoleLabel(claims.Role),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireEdit allows admin and editor roles through.
func RequireEdit(next http.Handler) http.Handler {
	return RequireCapability(utils.CapabilityEdit)(next)
}

// RequireAdmin allows only the admin role through.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireCapability(utils.CapabilityAdmin)(next)
}
