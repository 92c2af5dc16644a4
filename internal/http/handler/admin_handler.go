package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/youwow/affiliate/internal/app/service"
	"github.com/youwow/affiliate/internal/http/middleware"
	httpUtil "github.com/youwow/affiliate/internal/http/util"
	"go.uber.org/zap"
)

// AdminDeps groups dependencies required by the admin API.
type AdminDeps struct {
	Logger   *zap.Logger
	Guard    *middleware.AdminGuard
	Password string
	// AuthRateLimit throttles login attempts when set.
	AuthRateLimit fiber.Handler
	Partners      service.PartnerService
	Payouts       service.PayoutService
}

// AdminHandler implements the admin endpoints.
type AdminHandler struct {
	logger        *zap.Logger
	guard         *middleware.AdminGuard
	password      string
	authRateLimit fiber.Handler
	partners      service.PartnerService
	payouts       service.PayoutService
}

// NewAdminHandler creates an admin handler with the provided dependencies.
func NewAdminHandler(deps AdminDeps) *AdminHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		logger:        logger,
		guard:         deps.Guard,
		password:      deps.Password,
		authRateLimit: deps.AuthRateLimit,
		partners:      deps.Partners,
		payouts:       deps.Payouts,
	}
}

// Register wires admin routes onto the provided router.
func (h *AdminHandler) Register(router fiber.Router) {
	auth := []fiber.Handler{h.Auth}
	if h.authRateLimit != nil {
		auth = append([]fiber.Handler{h.authRateLimit}, auth...)
	}
	router.Post("/api/admin/auth", auth...)

	guard := h.guard.Middleware()

	partners := router.Group("/api/admin/partners", guard)
	{
		partners.Get("/", h.ListPartners)
		partners.Get("/list", h.ListPartners)
		partners.Post("/", h.CreatePartner)
		partners.Get("/:id", h.GetPartner)
		partners.Patch("/:id/status", h.UpdatePartnerStatus)
		partners.Get("/:id/stats", h.PartnerStats)
	}

	payouts := router.Group("/api/admin/payouts", guard)
	{
		payouts.Post("/", h.CreatePayout)
		payouts.Get("/", h.ListPayouts)
	}
}

// AuthRequest is the body of POST /api/admin/auth.
type AuthRequest struct {
	Password string `json:"password" validate:"required"`
}

// Auth handles POST /api/admin/auth and returns the admin token on success.
// Wrong password and missing configuration share the same response body.
func (h *AdminHandler) Auth(c *fiber.Ctx) error {
	if h.password == "" || !h.guard.Configured() {
		h.logger.Error("admin credentials are not configured")
		return httpUtil.Fail(c, fiber.StatusInternalServerError, "Unauthorized")
	}

	var req AuthRequest
	if err := c.BodyParser(&req); err != nil || validate.Struct(&req) != nil {
		return httpUtil.Fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	if !middleware.PasswordMatches(h.password, req.Password) {
		h.logger.Warn("admin login failed", zap.String("client", httpUtil.ClientIP(c)))
		return httpUtil.Fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	return httpUtil.OK(c, fiber.StatusOK, fiber.Map{"token": h.guard.Token()})
}

// ListPartners handles GET /api/admin/partners/list?status=
func (h *AdminHandler) ListPartners(c *fiber.Ctx) error {
	partners, err := h.partners.ListPartners(c.UserContext(), c.Query("status"))
	if err != nil {
		return writeError(c, h.logger, err, "failed to list partners")
	}
	return httpUtil.OK(c, fiber.StatusOK, partners)
}

// CreatePartnerRequest is the body of POST /api/admin/partners.
type CreatePartnerRequest struct {
	ID             string  `json:"id" validate:"required"`
	Name           string  `json:"name" validate:"required"`
	CommissionRate float64 `json:"commissionRate" validate:"gte=0"`
	Status         string  `json:"status" validate:"omitempty,oneof=active inactive archived"`
}

// CreatePartner handles POST /api/admin/partners.
func (h *AdminHandler) CreatePartner(c *fiber.Ctx) error {
	var req CreatePartnerRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	partner, err := h.partners.CreatePartner(c.UserContext(), service.CreatePartnerInput{
		ID:             req.ID,
		Name:           req.Name,
		CommissionRate: req.CommissionRate,
		Status:         req.Status,
	})
	if err != nil {
		return writeError(c, h.logger, err, "failed to create partner")
	}

	h.logger.Info("partner created", zap.String("partner_id", partner.ID))
	return httpUtil.OK(c, fiber.StatusCreated, partner)
}

// GetPartner handles GET /api/admin/partners/:id
func (h *AdminHandler) GetPartner(c *fiber.Ctx) error {
	partner, err := h.partners.GetPartner(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.logger, err, "failed to get partner")
	}
	return httpUtil.OK(c, fiber.StatusOK, partner)
}

// UpdateStatusRequest is the body of PATCH /api/admin/partners/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive archived"`
}

// UpdatePartnerStatus handles PATCH /api/admin/partners/:id/status
func (h *AdminHandler) UpdatePartnerStatus(c *fiber.Ctx) error {
	var req UpdateStatusRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	id := c.Params("id")
	partner, err := h.partners.UpdateStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return writeError(c, h.logger, err, "failed to update partner status")
	}

	h.logger.Info("partner status updated",
		zap.String("partner_id", partner.ID),
		zap.String("status", string(partner.Status)),
	)
	return httpUtil.OK(c, fiber.StatusOK, partner)
}

// PartnerStats handles GET /api/admin/partners/:id/stats
func (h *AdminHandler) PartnerStats(c *fiber.Ctx) error {
	stats, err := h.partners.Stats(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.logger, err, "failed to load partner stats")
	}
	return httpUtil.OK(c, fiber.StatusOK, stats)
}

// CreatePayoutRequest is the body of POST /api/admin/payouts.
type CreatePayoutRequest struct {
	PartnerID string    `json:"partnerId" validate:"required"`
	From      time.Time `json:"from" validate:"required"`
	To        time.Time `json:"to" validate:"required"`
}

// CreatePayout handles POST /api/admin/payouts
func (h *AdminHandler) CreatePayout(c *fiber.Ctx) error {
	var req CreatePayoutRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	payout, err := h.payouts.CreatePayout(c.UserContext(), req.PartnerID, req.From, req.To)
	if err != nil {
		return writeError(c, h.logger, err, "failed to create payout")
	}

	h.logger.Info("payout created",
		zap.String("payout_id", payout.ID),
		zap.String("partner_id", payout.PartnerID),
		zap.Int("conversions", payout.ConversionCount),
		zap.Float64("amount", payout.Amount),
	)
	return httpUtil.OK(c, fiber.StatusCreated, payout)
}

// ListPayouts handles GET /api/admin/payouts?partnerId=
func (h *AdminHandler) ListPayouts(c *fiber.Ctx) error {
	payouts, err := h.payouts.ListPayouts(c.UserContext(), c.Query("partnerId"))
	if err != nil {
		return writeError(c, h.logger, err, "failed to list payouts")
	}
	return httpUtil.OK(c, fiber.StatusOK, payouts)
}
