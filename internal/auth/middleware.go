package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/prodvault/prodvault/internal/access"
	"github.com/prodvault/prodvault/internal/platform/httpx"
	"github.com/prodvault/prodvault/internal/shared"
)

// Middleware resolves the calling principal and stores it in the request
// context. Requests without credentials pass through anonymous; handlers
// requiring a principal reject those themselves.
type Middleware struct {
	Manager *Manager
	Logger  *slog.Logger
	// TrustHeader accepts a bare X-Principal header in place of an API key.
	// Meant for development and hosts that authenticate upstream, mirroring
	// the original runtime where the host supplied the signer identity.
	TrustHeader bool
}

// Resolve is the http middleware entry point.
func (m Middleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var principal access.Principal

		if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
			resolved, err := m.Manager.Verify(r.Context(), strings.TrimSpace(token))
			if err != nil {
				if m.Logger != nil {
					m.Logger.Warn("api key rejected", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid api key")
				return
			}
			principal = resolved
		} else if m.TrustHeader {
			principal = access.Principal(strings.TrimSpace(r.Header.Get("X-Principal")))
		}

		ctx := shared.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
