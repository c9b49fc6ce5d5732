package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"todo-service/internal/config"
	"todo-service/internal/metrics"
	"todo-service/internal/middleware"
	"todo-service/internal/service"
)

// NewRouter wires the middleware stack and every route onto a fresh echo
// instance. m may be nil, in which case no metrics are recorded or served.
func NewRouter(cfg config.Config, authService *service.AuthService, taskService *service.TaskService, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = HTTPErrorHandler
	e.IPExtractor = echo.ExtractIPDirect()

	// Middleware
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.AllowedOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, "x-access-token", "x-auth-token"},
		AllowCredentials: true,
	}))
	e.Use(middleware.RateLimiter(cfg.RateLimit))
	if cfg.RequestTimeout > 0 {
		e.Use(echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{Timeout: cfg.RequestTimeout}))
	}
	if m != nil {
		e.Use(m.Middleware())
	}

	authHandler := NewAuthHandler(authService, cfg.Auth.CookieSecure)
	taskHandler := NewTaskHandler(taskService)
	session := middleware.Session(authService)

	// Routes
	a := e.Group("/auth")
	a.POST("/register", authHandler.Register)
	a.POST("/login", authHandler.Login)
	a.POST("/logout", authHandler.Logout)
	a.GET("/check-session", authHandler.CheckSession, session)

	t := e.Group("/tasks", session)
	t.GET("", taskHandler.ListTasks)
	t.POST("", taskHandler.CreateTask)
	t.GET("/:id", taskHandler.GetTask)
	t.PUT("/:id", taskHandler.UpdateTask)
	t.DELETE("/:id", taskHandler.DeleteTask)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"service": "todo-service",
			"time":    time.Now().Format(time.RFC3339),
		})
	})
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	return e
}
