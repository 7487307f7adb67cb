package service

import (
	"fmt"
	"slices"

	"adsconsole/internal/domain"
)

// AuthGate decides whether a principal may open the console.
type AuthGate struct {
	// AllowedRoles restricts access to these roles. Empty admits any
	// authenticated principal.
	AllowedRoles []string
}

// Check is called once when a console session opens.
func (g AuthGate) Check(p domain.Principal) error {
	if !p.Authenticated {
		return domain.Validation("auth", domain.ErrUnauthenticated)
	}
	if len(g.AllowedRoles) > 0 && !slices.Contains(g.AllowedRoles, p.Role) {
		return domain.Validation("auth", fmt.Errorf("%w: %q", domain.ErrForbidden, p.Role))
	}
	return nil
}
