package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// authMiddleware checks the bearer token against the configured hash
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Get token from Authorization header
		auth := c.Request().Header.Get("Authorization")
		if auth == "" {
			return c.JSON(http.StatusUnauthorized, message("authorization required"))
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token == "" {
			return c.JSON(http.StatusUnauthorized, message("invalid authorization format"))
		}

		if err := bcrypt.CompareHashAndPassword(s.tokenHash, []byte(token)); err != nil {
			return c.JSON(http.StatusUnauthorized, message("invalid token"))
		}
		return next(c)
	}
}
