package server

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/existflow/taskflow/internal/apperr"
	"github.com/existflow/taskflow/internal/model"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// bearerToken extracts the token of an "Authorization: Bearer" header
func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// authMiddleware requires a valid bearer token
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c)
		if !ok {
			return apperr.Unauthenticated("Missing Authorization header")
		}

		claims, err := s.services.Identity.VerifyToken(token)
		if err != nil {
			return err
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		return next(c)
	}
}

// optionalAuth identifies the caller when a valid token is present and
// otherwise carries on anonymously.
func (s *Server) optionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token, ok := bearerToken(c); ok {
			if claims, err := s.services.Identity.VerifyToken(token); err == nil {
				c.Set(ctxUserID, claims.UserID)
				c.Set(ctxRole, claims.Role)
			}
		}
		return next(c)
	}
}

// requireAdmin gates on the token's global role, not on any workspace role
func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := c.Get(ctxUserID).(string); !ok {
			return apperr.Unauthenticated("Unauthorized")
		}
		if role, _ := c.Get(ctxRole).(model.Role); role != model.RoleAdmin {
			return apperr.Forbidden("Admin only")
		}
		return next(c)
	}
}

func callerID(c echo.Context) string {
	id, _ := c.Get(ctxUserID).(string)
	return id
}
