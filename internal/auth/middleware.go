package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sundayezeilo/linkinbio/internal/httpx"
)

// Middleware rejects requests without a valid "Authorization: Bearer" token
// and stores the principal in the request context.
func Middleware(v *Verifier, logger *slog.Logger) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := v.Verify(bearerToken(r))
			if err != nil {
				logger.WarnContext(r.Context(), "authentication failed",
					"request_id", httpx.GetRequestID(r.Context()),
					"path", r.URL.Path,
					"error", err.Error(),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole allows only principals with role. It must run after Middleware.
func RequireRole(role string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required", nil)
				return
			}
			if !principal.HasRole(role) {
				httpx.WriteError(w, http.StatusForbidden, "forbidden", "insufficient role", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
