package server

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/youwow/affiliate/internal/app/ratelimit"
	"github.com/youwow/affiliate/internal/app/service"
	"github.com/youwow/affiliate/internal/http/attribution"
	"github.com/youwow/affiliate/internal/http/handler"
	"github.com/youwow/affiliate/internal/http/middleware"
	httpUtil "github.com/youwow/affiliate/internal/http/util"
	"github.com/youwow/affiliate/internal/payment"
	"go.uber.org/zap"
)

// Dependencies bundles the collaborators required by the HTTP server.
type Dependencies struct {
	Logger *zap.Logger

	Limiter       *ratelimit.Limiter
	AdminAuthRate middleware.RateLimitConfig
	APIRate       middleware.RateLimitConfig

	AdminGuard    *middleware.AdminGuard
	AdminPassword string

	Attribution   attribution.Store
	KnownPartners *service.KnownPartners
	Dispatcher    service.ClickDispatcher

	Clicks      service.ClickRecorder
	Conversions service.ConversionRecorder
	Partners    service.PartnerService
	Payouts     service.PayoutService
	Gateway     payment.Gateway

	HealthChecks map[string]handler.HealthCheck
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with all routes registered.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.AdminGuard == nil {
		deps.AdminGuard = middleware.NewAdminGuard("", deps.Logger)
	}

	app := fiber.New(fiber.Config{
		AppName:               "youwow-affiliate",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(deps.Logger),
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the underlying Fiber app (used by tests).
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS())
	s.app.Use(middleware.PartnerReferral(middleware.PartnerReferralDeps{
		Logger:      s.deps.Logger,
		Attribution: s.deps.Attribution,
		Known:       s.deps.KnownPartners,
		Dispatcher:  s.deps.Dispatcher,
		Skip:        isServiceRoute,
	}))
}

func (s *Server) registerRoutes() {
	var authLimit, apiLimit fiber.Handler
	if s.deps.Limiter != nil {
		authLimit = middleware.RateLimit(s.deps.Limiter, s.deps.AdminAuthRate, s.deps.Logger)
		apiLimit = middleware.RateLimit(s.deps.Limiter, s.deps.APIRate, s.deps.Logger)
	}

	handler.NewHealthHandler(s.deps.HealthChecks).Register(s.app)

	handler.NewAffiliateHandler(handler.AffiliateDeps{
		Logger:      s.deps.Logger,
		Clicks:      s.deps.Clicks,
		Conversions: s.deps.Conversions,
		Attribution: s.deps.Attribution,
		RateLimit:   apiLimit,
	}).Register(s.app)

	handler.NewAdminHandler(handler.AdminDeps{
		Logger:        s.deps.Logger,
		Guard:         s.deps.AdminGuard,
		Password:      s.deps.AdminPassword,
		AuthRateLimit: authLimit,
		Partners:      s.deps.Partners,
		Payouts:       s.deps.Payouts,
	}).Register(s.app)

	handler.NewPaymentHandler(handler.PaymentDeps{
		Logger:      s.deps.Logger,
		Gateway:     s.deps.Gateway,
		Conversions: s.deps.Conversions,
	}).Register(s.app)
}

// isServiceRoute reports paths that never carry referral traffic.
func isServiceRoute(c *fiber.Ctx) bool {
	path := c.Path()
	return strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/health")
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return httpUtil.Fail(c, fiberErr.Code, fiberErr.Message)
		}
		logger.Error("unhandled request error", zap.String("path", c.Path()), zap.Error(err))
		return httpUtil.Fail(c, fiber.StatusInternalServerError, "Internal Server Error")
	}
}
