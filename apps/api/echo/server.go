package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/rotaract/reportdesk/core"
	"github.com/rotaract/reportdesk/core/draft"
	"github.com/rotaract/reportdesk/core/report"
	"github.com/rotaract/reportdesk/core/user"
)

const apiPrefix = "/api/v1"

type (
	Deps struct {
		Logger    core.Logger
		UserSvc   *user.Service
		ReportSvc *report.Service
		DraftSvc  *draft.Service
	}

	Server struct {
		conf     *core.Config
		deps     *Deps
		app      *echo.Echo
		tokens   *Tokens
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(conf *core.Config, deps *Deps) *Server {
	s := &Server{
		conf:     conf,
		deps:     deps,
		app:      echo.New(),
		tokens:   NewTokens(conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.conf.Debug
	s.app.Server.ReadTimeout = s.conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = s.conf.Server.WriteTimeout
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.tokens, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Pre(cookieTokenMiddleware())
	s.app.Use(middleware.RequestID())
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     s.conf.Server.AllowOrigins,
		AllowCredentials: true,
	}))
	if s.conf.Server.BodyLimit != "" {
		s.app.Use(middleware.BodyLimit(s.conf.Server.BodyLimit))
	}
	if s.conf.Storage.Driver == core.StorageLocal && s.conf.Storage.LocalDir != "" {
		s.app.Static("/uploads", s.conf.Storage.LocalDir)
	}

	s.app.GET("/", s.home)

	v1 := s.app.Group(apiPrefix)
	jwt := middleware.JWTWithConfig(s.tokens.jwtConfig())
	authed := []echo.MiddlewareFunc{jwt, contextUserMiddleware(s.deps.UserSvc)}

	registerUserAPI(v1, s.tokens, s.deps.UserSvc, authed...)
	rg := v1.Group("/rotaract", authed...)
	registerReportAPI(rg, s.deps.ReportSvc)
	registerDraftAPI(rg, s.deps.DraftSvc)
}

// Start listens on the configured address. Listener failures are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

// Tokens returns the token issuer used by the server.
func (s *Server) Tokens() *Tokens {
	return s.tokens
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
