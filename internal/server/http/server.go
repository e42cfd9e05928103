// Package httpserver exposes the task API over HTTP using echo.
package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/and161185/taskkeeper/internal/service"
)

const bodyLimit = "10KB"

// Options tunes the router.
type Options struct {
	CORSOrigin string
	RateLimit  rate.Limit // per client IP; 0 disables
	RateBurst  int
}

// Server wires services into HTTP handlers.
type Server struct {
	auth  service.AuthService
	tasks service.TaskService
	log   *zap.Logger
	now   func() time.Time
}

// New constructs a Server with injected services.
func New(auth service.AuthService, tasks service.TaskService, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{auth: auth, tasks: tasks, log: log, now: time.Now}
}

// Router builds the echo instance with middleware and every route.
func (s *Server) Router(opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(s.log)

	e.Use(Logging(s.log))
	e.Use(Recover(s.log))
	if opts.CORSOrigin != "" {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     []string{opts.CORSOrigin},
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
			AllowCredentials: true,
		}))
	}
	e.Use(middleware.BodyLimit(bodyLimit))
	if opts.RateLimit > 0 {
		e.Use(NewRateLimiter(opts.RateLimit, opts.RateBurst).Middleware())
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.GET("/health", s.Health)

	gate := AccessGate(s.auth, s.log)

	auth := api.Group("/auth")
	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
	auth.GET("/me", s.Me, gate)

	users := api.Group("/users", gate)
	users.GET("/profile", s.Me)
	users.PUT("/profile", s.UpdateProfile)
	users.PUT("/change-password", s.ChangePassword)

	tasks := api.Group("/tasks", gate)
	tasks.GET("", s.ListTasks)
	tasks.GET("/stats", s.TaskStats)
	tasks.POST("", s.CreateTask)
	tasks.PUT("/:id", s.UpdateTask)
	tasks.DELETE("/:id", s.DeleteTask)

	return e
}
