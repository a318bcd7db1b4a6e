package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	mw "github.com/newsmaker-md/content-pipeline/pkg/middleware"
)

const GracefulShutdownTimeout = 10 * time.Second

type Config struct {
	Port        string
	CorsOrigins []string
}

type Server struct {
	Echo *echo.Echo

	cfg     *Config
	health  HealthChecker
	baseCtx context.Context
	stop    context.CancelFunc
}

func New(cfg *Config, health HealthChecker) *Server {
	e := echo.New()
	e.HideBanner = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	return &Server{
		Echo:    e,
		cfg:     cfg,
		health:  health,
		baseCtx: ctx,
		stop:    stop,
	}
}

// Context is canceled on the first interrupt signal.
func (s *Server) Context() context.Context {
	return s.baseCtx
}

func (s *Server) ShutdownSignal() <-chan struct{} {
	return s.baseCtx.Done()
}

func (s *Server) SetupMiddlewares() *Server {
	s.Echo.Use(mw.Logger())
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.cfg.CorsOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete},
	}))
	return s
}

func (s *Server) SetupErrorHandler(h echo.HTTPErrorHandler) *Server {
	s.Echo.HTTPErrorHandler = h
	return s
}

func (s *Server) SetupHealthChecks(path string) *Server {
	s.Echo.GET(path, func(c echo.Context) error {
		if s.health != nil && !s.health.Healthy(c.Request().Context()) {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	return s
}

// Start serves until an interrupt, then shuts down gracefully.
func (s *Server) Start() error {
	defer s.stop()

	go func() {
		if err := s.Echo.Start(":" + s.cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Echo.Logger.Fatal("shutting down the server")
		}
	}()

	<-s.baseCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)
	defer cancel()

	return s.Echo.Shutdown(ctx)
}
