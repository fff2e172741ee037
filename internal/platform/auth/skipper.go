package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths bypass authentication: health probes and the login endpoint.
var publicPaths = map[string]bool{
	"/health":     true,
	"/health/db":  true,
	"/auth/login": true,
}

// AuthSkipper reports whether the matched route is public.
func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Path())
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
