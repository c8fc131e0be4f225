package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rezonia/invoicer/internal/auth"
	"github.com/rezonia/invoicer/internal/model"
)

const resetPath = "/auth/reset-password"

func (s *Server) handleSignUp(c *gin.Context) {
	s.enter(c, http.StatusCreated, s.authSignUp)
}

func (s *Server) handleSignIn(c *gin.Context) {
	s.enter(c, http.StatusOK, s.authSignIn)
}

func (s *Server) authSignUp(c *gin.Context, creds auth.Credentials) (*auth.Session, error) {
	return s.auth.SignUp(c.Request.Context(), creds)
}

func (s *Server) authSignIn(c *gin.Context, creds auth.Credentials) (*auth.Session, error) {
	return s.auth.SignIn(c.Request.Context(), creds)
}

func (s *Server) enter(c *gin.Context, status int, fn func(*gin.Context, auth.Credentials) (*auth.Session, error)) {
	if s.auth == nil {
		_ = c.Error(errAuthDisabled)
		return
	}
	var creds auth.Credentials
	if err := bindJSON(c, &creds); err != nil {
		_ = c.Error(err)
		return
	}
	session, err := fn(c, creds)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(status, session)
}

func (s *Server) handleSignOut(c *gin.Context) {
	if s.auth == nil {
		_ = c.Error(errAuthDisabled)
		return
	}
	token := auth.BearerToken(c.GetHeader("Authorization"))
	if token == "" {
		_ = c.Error(model.Unauthorized("missing access token"))
		return
	}
	if err := s.auth.SignOut(c.Request.Context(), token); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSession(c *gin.Context) {
	session, err := auth.RequireSession(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	session.AccessToken = ""
	c.JSON(http.StatusOK, session)
}

func (s *Server) handleResetPassword(c *gin.Context) {
	if s.auth == nil {
		_ = c.Error(errAuthDisabled)
		return
	}
	var req ResetPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	m := auth.NewManager(s.auth, s.logger)
	if err := m.ResetPassword(c.Request.Context(), req.Email, s.resetRedirect(c)); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) resetRedirect(c *gin.Context) string {
	if s.config.ResetRedirectURL != "" {
		return s.config.ResetRedirectURL
	}
	if origin := c.GetHeader("Origin"); origin != "" {
		return strings.TrimRight(origin, "/") + resetPath
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + resetPath
}
