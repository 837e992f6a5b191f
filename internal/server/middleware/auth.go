package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// AuthMiddleware accepts either the service API key in the X-API-KEY header
// or, when a JWKS endpoint is configured, a bearer JWT in the Authorization
// header. The API key comparison is constant time.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		app := c.(*AppContext).App

		apiKey := c.Request().Header.Get("X-API-KEY")
		if app.APIKey != "" && apiKey != "" {
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(app.APIKey)) == 1 {
				return next(c)
			}
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		authHeader := c.Request().Header.Get("Authorization")
		if app.Key != nil && strings.HasPrefix(authHeader, "Bearer ") {
			token := strings.TrimPrefix(authHeader, "Bearer ")
			k := *app.Key
			parsed, err := jwt.Parse(token, k.Keyfunc)
			if err != nil || !parsed.Valid {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}
			return next(c)
		}

		// No API key configured at all means the deployment opted out of
		// auth, for local development only.
		if app.APIKey == "" && app.Key == nil {
			return next(c)
		}

		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}
}
