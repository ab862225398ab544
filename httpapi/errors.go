package httpapi

import (
	"errors"
	"net/http"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/gin-gonic/gin"
)

const msgIncorrectCredentials = "Incorrect credentials"

// statusOf maps engine errors to HTTP status codes. Unknown errors are 500.
func statusOf(err error) int {
	switch {
	case errors.Is(err, goAccount.ErrInvalidInput),
		errors.Is(err, goAccount.ErrInvalidHandle),
		errors.Is(err, goAccount.ErrSelfAction),
		errors.Is(err, goAccount.ErrFallbackAccount),
		errors.Is(err, goAccount.ErrPasswordPolicy):
		return http.StatusBadRequest
	case errors.Is(err, goAccount.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, goAccount.ErrAccountDisabled),
		errors.Is(err, goAccount.ErrInvalidCredentials),
		errors.Is(err, goAccount.ErrRecoveryCodeInvalid),
		errors.Is(err, goAccount.ErrRecoveryDisabled),
		errors.Is(err, goAccount.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, goAccount.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, goAccount.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, goAccount.ErrLoginRateLimited),
		errors.Is(err, goAccount.ErrRecoveryRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": messageOf(err)})
}

// writeLoginError hides whether the handle exists or is disabled.
func (s *Server) writeLoginError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, goAccount.ErrAccountNotFound),
		errors.Is(err, goAccount.ErrAccountDisabled),
		errors.Is(err, goAccount.ErrInvalidCredentials):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": msgIncorrectCredentials})
	default:
		s.writeError(c, err)
	}
}

func messageOf(err error) string {
	switch {
	case errors.Is(err, goAccount.ErrLoginRateLimited), errors.Is(err, goAccount.ErrRecoveryRateLimited):
		return "Too many attempts, try again later"
	case errors.Is(err, goAccount.ErrRecoveryCodeInvalid):
		return "Invalid or expired recovery code"
	case errors.Is(err, goAccount.ErrAccountNotFound):
		return "User not found"
	case errors.Is(err, goAccount.ErrAccountDisabled):
		return "User is disabled"
	case errors.Is(err, goAccount.ErrAccountExists):
		return "User already exists"
	case errors.Is(err, goAccount.ErrUnauthorized):
		return "Not logged in"
	case errors.Is(err, goAccount.ErrForbidden):
		return "Permission denied"
	case errors.Is(err, goAccount.ErrInvalidCredentials):
		return msgIncorrectCredentials
	}
	return err.Error()
}
