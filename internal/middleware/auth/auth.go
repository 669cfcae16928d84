package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Bearer gates requests behind a static API token. With an empty token the
// gate is open.
type Bearer struct {
	token  []byte
	public map[string]bool
	deny   func(http.ResponseWriter, *http.Request)
}

// NewBearer creates a gate for token. Paths in public skip the check.
func NewBearer(token string, public ...string) *Bearer {
	b := &Bearer{token: []byte(token), public: make(map[string]bool, len(public))}
	for _, p := range public {
		b.public[p] = true
	}
	return b
}

// OnDeny sets the response writer used for rejected requests.
func (b *Bearer) OnDeny(fn func(http.ResponseWriter, *http.Request)) *Bearer {
	b.deny = fn
	return b
}

// Enabled reports whether a token is configured.
func (b *Bearer) Enabled() bool {
	return len(b.token) > 0
}

// Authorized reports whether r carries the configured token.
func (b *Bearer) Authorized(r *http.Request) bool {
	if !b.Enabled() || b.public[r.URL.Path] {
		return true
	}
	scheme, credential, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(credential)), b.token) == 1
}

func (b *Bearer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Authorized(r) {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("WWW-Authenticate", `Bearer realm="finanzas"`)
		if b.deny != nil {
			b.deny(w, r)
			return
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}
