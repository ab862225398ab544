package httpapi

import (
	"net/http"
	"strings"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	actorKey        = "goaccount.actor"
)

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
		}
		if status >= http.StatusInternalServerError {
			s.logger.Warn(c.Request.Context(), "http request", args...)
			return
		}
		s.logger.Debug(c.Request.Context(), "http request", args...)
	}
}

// throttle caps the request rate of the whole server. Per-address login and
// recovery budgets are enforced by the engine.
func (s *Server) throttle() gin.HandlerFunc {
	if s.opts.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	burst := s.opts.Burst
	if burst < 1 {
		burst = int(s.opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	limiter := rate.NewLimiter(rate.Limit(s.opts.RequestsPerSecond), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}

func (s *Server) clientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(goAccount.WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}

// session attaches the caller's handle when a valid session token is
// presented. Invalid or missing tokens leave the request anonymous.
func (s *Server) session() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := s.sessionToken(c)
		if token == "" || s.sessions == nil {
			c.Next()
			return
		}

		claims, err := s.sessions.Parse(token)
		if err != nil {
			s.logger.Debug(c.Request.Context(), "session rejected", "error", err)
			c.Next()
			return
		}

		c.Set(actorKey, claims.Handle())
		c.Request = c.Request.WithContext(goAccount.WithActor(c.Request.Context(), claims.Handle()))
		c.Next()
	}
}

// sessionToken reads the session cookie, then an Authorization bearer token.
func (s *Server) sessionToken(c *gin.Context) string {
	if token, err := c.Cookie(s.opts.CookieName); err == nil && token != "" {
		return token
	}

	const bearer = "Bearer "
	value := c.GetHeader("Authorization")
	if !strings.HasPrefix(value, bearer) {
		return ""
	}
	return value[len(bearer):]
}

func requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(actorKey); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not logged in"})
			return
		}
		c.Next()
	}
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
