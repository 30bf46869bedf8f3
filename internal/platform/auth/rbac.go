package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that checks if the user has at least one of the specified roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == RoleAdmin {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// IsAdmin reports whether the caller may see records owned by other users.
func IsAdmin(ctx context.Context) bool {
	for _, r := range RolesFromContext(ctx) {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

// OwnerScope returns the user id that list queries are restricted to, or
// "" for administrators, who see everything.
func OwnerScope(ctx context.Context) string {
	if IsAdmin(ctx) {
		return ""
	}
	return UserIDFromContext(ctx)
}
