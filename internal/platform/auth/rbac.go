package auth

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
)

// Role is the staff role carried in the token.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleDoctor Role = "doctor"
	RoleViewer Role = "viewer"
)

// Capability is an action a request may perform. Handlers are gated on
// capabilities, never on role names.
type Capability string

const (
	CapViewDashboard    Capability = "view_dashboard"
	CapEnterObservation Capability = "enter_observation"
	CapManageSettings   Capability = "manage_settings"
	CapManageUsers      Capability = "manage_users"
)

var roleCapabilities = map[Role][]Capability{
	RoleAdmin:  {CapViewDashboard, CapEnterObservation, CapManageSettings, CapManageUsers},
	RoleDoctor: {CapViewDashboard, CapEnterObservation},
	RoleViewer: {CapViewDashboard},
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleCapabilities[r]; !ok {
		return "", fmt.Errorf("invalid role: %q", s)
	}
	return r, nil
}

func (r Role) Can(c Capability) bool {
	for _, have := range roleCapabilities[r] {
		if have == c {
			return true
		}
	}
	return false
}

// CapabilitiesFor unions the capabilities of all roles, sorted. Unknown
// roles grant nothing.
func CapabilitiesFor(roles []string) []Capability {
	set := map[Capability]bool{}
	for _, r := range roles {
		for _, c := range roleCapabilities[Role(r)] {
			set[c] = true
		}
	}
	out := make([]Capability, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasCapability reports whether the caller on ctx holds c.
func HasCapability(ctx context.Context, c Capability) bool {
	for _, r := range RolesFromContext(ctx) {
		if Role(r).Can(c) {
			return true
		}
	}
	return false
}

// RequireCapability rejects callers without c with 403.
func RequireCapability(c Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if len(RolesFromContext(ctx.Request().Context())) == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !HasCapability(ctx.Request().Context(), c) {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("required capability: %s", c))
			}
			return next(ctx)
		}
	}
}
