package httpapi

import (
	"net/http"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/internal/logging"
	"github.com/MrEthical07/goAccount/jwt"
	"github.com/gin-gonic/gin"
)

const (
	DefaultCookieName = "goaccount_session"
	maxBodyBytes      = 1 << 20
)

// Options controls the HTTP surface. The zero value is usable.
type Options struct {
	// Discreet hides the public account list (204 instead of 200).
	Discreet bool

	CookieName   string
	SecureCookie bool

	// RequestsPerSecond throttles the whole server. Zero disables throttling.
	RequestsPerSecond float64
	Burst             int

	// TrustedProxies are allowed to set X-Forwarded-For. Nil trusts none, so
	// the client address is the peer address.
	TrustedProxies []string

	// Metrics is mounted at GET /metrics when set.
	Metrics http.Handler
}

// Server exposes an Engine over HTTP under /api/users.
type Server struct {
	engine   *goAccount.Engine
	sessions *jwt.Manager
	logger   logging.Logger
	opts     Options
}

func New(engine *goAccount.Engine, sessions *jwt.Manager, logger logging.Logger, opts Options) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	return &Server{
		engine:   engine,
		sessions: sessions,
		logger:   logger,
		opts:     opts,
	}
}

// Router builds the gin engine with every route and middleware attached.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(s.opts.TrustedProxies); err != nil {
		return nil, err
	}

	r.Use(gin.Recovery(), s.requestID(), s.accessLog(), s.throttle(), s.clientIP(), s.session())

	if s.opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.opts.Metrics))
	}

	users := r.Group("/api/users")
	users.Use(limitBody(maxBodyBytes))

	// -------- PUBLIC --------
	users.POST("/login", s.login)
	users.POST("/recover-step1", s.recoverStep1)
	users.POST("/recover-step2", s.recoverStep2)
	users.POST("/list", s.listPublic)
	users.POST("/logout", s.logout)
	users.POST("/create", s.createAccount)

	// -------- SESSION --------
	private := users.Group("", requireSession())
	private.GET("/me", s.me)
	private.POST("/change-password", s.changePassword)
	private.POST("/change-name", s.changeName)
	private.POST("/change-avatar", s.changeAvatar)

	// -------- ADMIN --------
	private.POST("/get", s.listAccounts)
	private.POST("/enable", s.adminAction(s.engine.EnableAccount))
	private.POST("/disable", s.adminAction(s.engine.DisableAccount))
	private.POST("/promote", s.adminAction(s.engine.PromoteAccount))
	private.POST("/demote", s.adminAction(s.engine.DemoteAccount))
	private.POST("/delete", s.deleteAccount)

	return r, nil
}

// Handler returns Router as an http.Handler.
func (s *Server) Handler() (http.Handler, error) {
	return s.Router()
}

func (s *Server) setSessionCookie(c *gin.Context, token string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(s.opts.CookieName, token, maxAge, "/", "", s.opts.SecureCookie, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(s.opts.CookieName, "", -1, "/", "", s.opts.SecureCookie, true)
}
