// Package api serves the data service endpoints and the view sessions the
// timeline renderer drives over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/allocation-timeline/internal/calendar"
	"github.com/p-blackswan/allocation-timeline/internal/dataservice"
	"github.com/p-blackswan/allocation-timeline/internal/health"
	"github.com/p-blackswan/allocation-timeline/internal/metrics"
	"github.com/p-blackswan/allocation-timeline/internal/requestid"
	"github.com/p-blackswan/allocation-timeline/internal/store"
	"github.com/p-blackswan/allocation-timeline/internal/views"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	ListenAddr  string
	AuthConfig  AuthConfig
	RateLimit   RateLimitConfig
	CORSOrigins string
	TLSCert     string
	TLSKey      string
}

// Deps are the collaborators the handlers use. Store and Metrics are
// optional: without a store the seeding routes and the audit log are off.
type Deps struct {
	Data      dataservice.Service
	Store     *store.Store
	Views     *views.Registry
	Grids     *calendar.GridCache
	Checker   *health.Checker
	Metrics   *metrics.Metrics
	Location  *time.Location
	WeekStart time.Weekday
	Now       func() time.Time
}

// Server is the API Fiber application.
type Server struct {
	app    *fiber.App
	deps   Deps
	logger zerolog.Logger
	config ServerConfig
	done   chan struct{}
}

// NewServer creates and configures a new API server.
func NewServer(cfg ServerConfig, deps Deps, logger zerolog.Logger) *Server {
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Grids == nil {
		deps.Grids = calendar.NewGridCache(64)
	}

	s := &Server{
		deps:   deps,
		logger: logger.With().Str("component", "api_server").Logger(),
		config: cfg,
		done:   make(chan struct{}),
	}
	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(s),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	s.setupMiddleware(cfg, logger)
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware(cfg ServerConfig, logger zerolog.Logger) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(requestid.Middleware())

	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
		}))
	}

	if cfg.RateLimit.RPS > 0 {
		s.app.Use(NewRateLimitMiddleware(cfg.RateLimit, s.done))
	}

	s.app.Use(NewAuthMiddleware(cfg.AuthConfig, logger))

	s.app.Use(s.auditMiddleware)
}

// auditMiddleware logs every request and records mutations in the audit
// log once they have completed.
func (s *Server) auditMiddleware(c *fiber.Ctx) error {
	path := c.Path()
	if isProbe(path) {
		return c.Next()
	}

	s.logger.Info().
		Str("method", c.Method()).
		Str("path", path).
		Str("ip", c.IP()).
		Str("request_id", fmt.Sprintf("%v", c.Locals(requestid.LocalsKey))).
		Msg("api request")

	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
	}
	route := c.Route().Path
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordHTTP(route, status)
	}

	if s.deps.Store != nil && c.Method() != fiber.MethodGet && c.Method() != fiber.MethodOptions {
		user, _ := c.Locals("user").(string)
		entry := &store.AuditEntry{
			UserID:   user,
			Action:   c.Method() + " " + route,
			Resource: c.Params("id"),
			Result:   strconv.Itoa(status),
			Details:  fmt.Sprintf("%v", c.Locals(requestid.LocalsKey)),
		}
		if aerr := s.deps.Store.LogAudit(c.UserContext(), entry); aerr != nil {
			s.logger.Warn().Err(aerr).Msg("failed to write audit entry")
		}
	}
	return err
}

func (s *Server) setupRoutes() {
	// Probe endpoints (no auth required, handled in auth middleware)
	s.app.Get("/healthz", health.LivenessHandler())
	if s.deps.Checker != nil {
		s.app.Get("/readyz", s.deps.Checker.ReadinessHandler())
	} else {
		s.app.Get("/readyz", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"status": "ready"})
		})
	}
	if s.deps.Metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(s.deps.Metrics.Handler()))
	} else {
		s.app.Get("/metrics", func(c *fiber.Ctx) error {
			return c.SendString("# No metrics collector configured\n")
		})
	}

	v1 := s.app.Group("/api/v1")
	write := requireRole(RoleEditor)

	// Data service
	if s.deps.Data != nil {
		v1.Post("/chart-data", s.chartData)
		v1.Get("/resources", s.listResources)
		v1.Get("/projects", s.listProjects)
		v1.Post("/allocations", write, s.saveAllocation)
		v1.Delete("/allocations/:id", write, s.deleteAllocation)
	}
	if s.deps.Store != nil {
		v1.Put("/resources/:id", requireRole(RoleAdmin), s.putResource)
		v1.Put("/projects/:id", requireRole(RoleAdmin), s.putProject)
		v1.Get("/audit", requireRole(RoleAdmin), s.listAudit)
	}

	// Engine
	v1.Get("/grid", s.getGrid)
	if s.deps.Views != nil {
		v1.Get("/views/config", s.viewConfig)
		v1.Post("/views", s.openView)
		v1.Get("/views/:id", s.getView)
		v1.Delete("/views/:id", s.closeView)
		v1.Post("/views/:id/refresh", s.refreshView)
		v1.Post("/views/:id/navigate", s.navigate)
		v1.Post("/views/:id/view", s.setView)
		v1.Post("/views/:id/filters", s.openFilter)
		v1.Post("/views/:id/filters/options", s.filterOptions)
		v1.Post("/views/:id/gestures/begin", write, s.beginGesture)
		v1.Post("/views/:id/gestures/enter", write, s.enterGesture)
		v1.Post("/views/:id/gestures/drop", write, s.dropGesture)
		v1.Post("/views/:id/gestures/cancel", write, s.cancelGesture)
		v1.Post("/views/:id/gestures/click", write, s.click)
		v1.Post("/views/:id/dialogs/:kind", s.openDialog)
		v1.Post("/views/:id/dialog/confirm", write, s.confirmDialog)
		v1.Post("/views/:id/dialog/close", s.closeDialog)
	}
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8080"
	}

	s.logger.Info().Str("addr", addr).Msg("API server starting")

	if s.config.TLSCert != "" && s.config.TLSKey != "" {
		return s.app.ListenTLS(addr, s.config.TLSCert, s.config.TLSKey)
	}
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("API server shutting down")
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}
