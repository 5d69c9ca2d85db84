package orchestrator

import (
	"net"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// requireAdmin guards mutating endpoints with a bearer token checked against
// the configured bcrypt hash. With no hash configured the endpoints are
// closed, not open.
func (o *Orchestrator) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if o.cfg.AdminTokenHash == "" {
			http.Error(w, "ADMIN_TOKEN_HASH not set", http.StatusForbidden)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(o.cfg.AdminTokenHash), []byte(token)); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// rateLimited throttles read endpoints per client address.
func (o *Orchestrator) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if o.deps.Limiter != nil && !o.deps.Limiter.Allow(clientKey(r)) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
