package api

import (
	"context"
	"net/http"
	"strings"

	"adsconsole/internal/domain"
)

type principalKey struct{}

// authenticate resolves the bearer token to a principal and rejects unknown
// tokens. Writes additionally pass through the role gate.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := s.principal(r)
		if !p.Authenticated {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if r.Method != http.MethodGet {
			if err := s.writes.Check(p); err != nil {
				respondError(w, http.StatusForbidden, "Forbidden")
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

func (s *Server) principal(r *http.Request) domain.Principal {
	token := tokenFromHeader(r)
	if token == "" {
		return domain.Principal{}
	}
	role, ok := s.tokens[token]
	if !ok {
		return domain.Principal{}
	}
	return domain.Principal{Authenticated: true, Role: role}
}

// PrincipalFrom returns the principal the request was authenticated as.
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}

// tokenFromHeader extracts the token from the Authorization header.
func tokenFromHeader(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return auth
}
