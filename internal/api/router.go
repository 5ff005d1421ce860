package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/workdesk/request-tracker/internal/api/handler"
	"github.com/workdesk/request-tracker/internal/api/middleware"
	"github.com/workdesk/request-tracker/internal/core/ports"

	_ "github.com/workdesk/request-tracker/docs"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Auth      ports.AuthService
	Users     ports.UserService
	WorkOrder ports.WorkOrderService
	Tokens    ports.TokenService
	Health    map[string]handler.Pinger
	Logger    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(echoprometheus.NewMiddleware("tracker"))

	// --- Ops (no auth required) ---
	health := handler.NewHealthHandler(d.Health)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	authn := middleware.Authenticated(d.Tokens)
	admin := middleware.AdminOnly()

	// --- Users ---
	authHandler := handler.NewAuthHandler(d.Auth)
	userHandler := handler.NewUserHandler(d.Users)

	e.POST("/users/login", authHandler.Login)

	users := e.Group("/users", authn, admin)
	users.POST("/register", authHandler.Register)
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	// --- Tasks ---
	tasksHandler := handler.NewWorkOrderHandler(d.WorkOrder)

	tasks := e.Group("/tasks", authn)
	tasks.POST("", tasksHandler.Create, admin)
	tasks.GET("", tasksHandler.List)
	tasks.GET("/search", tasksHandler.Search)
	tasks.GET("/filter", tasksHandler.List)
	tasks.GET("/sort/:field", tasksHandler.Sort)
	tasks.GET("/:id", tasksHandler.Get)
	tasks.PUT("/:id/status", tasksHandler.UpdateStatus)
	tasks.PUT("/:id/assign", tasksHandler.Assign, admin)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= 500 {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
