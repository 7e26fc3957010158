package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/existflow/taskflow/internal/model"
	"github.com/existflow/taskflow/internal/service"
)

type userResponse struct {
	User model.User `json:"user"`
}

type resendRequest struct {
	Email string `json:"email"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// handleSignup handles account creation
func (s *Server) handleSignup(c echo.Context) error {
	var req service.SignupInput
	if err := bind(c, &req); err != nil {
		return err
	}

	sess, err := s.services.Identity.Signup(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sess)
}

// handleLogin exchanges credentials for a token
func (s *Server) handleLogin(c echo.Context) error {
	var req service.LoginInput
	if err := bind(c, &req); err != nil {
		return err
	}

	sess, err := s.services.Identity.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

// handleMe returns the current user
func (s *Server) handleMe(c echo.Context) error {
	u, err := s.services.Identity.Me(c.Request().Context(), callerID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: u})
}

// handleVerifyEmail consumes the token from a verification link
func (s *Server) handleVerifyEmail(c echo.Context) error {
	if err := s.services.Identity.VerifyEmail(c.Request().Context(), c.QueryParam("token")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, okResponse{OK: true})
}

// handleResendVerification sends a new verification link. It answers ok
// whether or not the address belongs to an account.
func (s *Server) handleResendVerification(c echo.Context) error {
	var req resendRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := s.services.Identity.ResendVerification(c.Request().Context(), callerID(c), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, okResponse{OK: true})
}
