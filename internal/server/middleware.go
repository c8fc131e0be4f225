package server

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/rezonia/invoicer/internal/analytics"
	"github.com/rezonia/invoicer/internal/auth"
	"github.com/rezonia/invoicer/internal/logger"
	"github.com/rezonia/invoicer/internal/model"
)

// errNotConfigured marks routes whose backend is switched off
var errNotConfigured = errors.New("not configured")

var (
	errAuthDisabled      = errors.WithHint(errors.Wrap(errNotConfigured, "auth"), "Sign in is not available on this server.")
	errInvoicesDisabled  = errors.WithHint(errors.Wrap(errNotConfigured, "invoices"), "Saving invoices is not available on this server.")
	errTemplatesDisabled = errors.WithHint(errors.Wrap(errNotConfigured, "templates"), "Templates are not available on this server.")
)

// RequestLogger logs one line per request
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		log.Infow("request",
			"method", c.Request.Method,
			"route", route,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// ErrorHandler renders the last handler error with the status for its class
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status := HTTPStatusFromErr(err)
		if status >= http.StatusInternalServerError {
			log.Errorw("request failed", "route", c.FullPath(), "error", err)
		}

		resp := ErrorResponse{
			Error:   model.UserMessage(err, http.StatusText(status)),
			Details: err.Error(),
		}
		if report, ok := model.ReportOf(err); ok {
			resp.Fields = report.Errors
		}
		c.JSON(status, resp)
	}
}

// HTTPStatusFromErr maps an error class to a status code
func HTTPStatusFromErr(err error) int {
	switch {
	case model.IsValidation(err):
		return http.StatusUnprocessableEntity
	case model.IsPrecondition(err):
		return http.StatusBadRequest
	case model.IsUnauthorized(err):
		return http.StatusUnauthorized
	case model.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, errNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case model.IsExternal(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ClientMetadata puts the caller's user agent and address in the context
// for analytics.
func ClientMetadata() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := analytics.WithClient(c.Request.Context(), analytics.Client{
			UserAgent: c.Request.UserAgent(),
			IPAddress: c.ClientIP(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Authenticate resolves a bearer token into a session. Requests without a
// token pass through anonymously; an invalid token is rejected.
func Authenticate(provider auth.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.BearerToken(c.GetHeader("Authorization"))
		if provider == nil || token == "" {
			c.Next()
			return
		}

		session, err := provider.Resolve(c.Request.Context(), token)
		if err != nil {
			if !model.IsUnauthorized(err) {
				err = model.Unauthorized(err.Error())
			}
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), *session))
		c.Next()
	}
}

// RequireSession rejects anonymous requests
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := auth.RequireSession(c.Request.Context()); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}
