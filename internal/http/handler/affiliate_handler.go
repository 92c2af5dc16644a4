package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/youwow/affiliate/internal/app/model"
	"github.com/youwow/affiliate/internal/app/service"
	"github.com/youwow/affiliate/internal/http/attribution"
	httpUtil "github.com/youwow/affiliate/internal/http/util"
	"go.uber.org/zap"
)

// AffiliateDeps groups dependencies required by the affiliate endpoints.
type AffiliateDeps struct {
	Logger      *zap.Logger
	Clicks      service.ClickRecorder
	Conversions service.ConversionRecorder
	Attribution attribution.Store
	// RateLimit guards every affiliate route when set.
	RateLimit fiber.Handler
}

// AffiliateHandler implements click/conversion tracking and attribution lookups.
type AffiliateHandler struct {
	logger      *zap.Logger
	clicks      service.ClickRecorder
	conversions service.ConversionRecorder
	attribution attribution.Store
	rateLimit   fiber.Handler
}

// NewAffiliateHandler creates an affiliate handler with the provided dependencies.
func NewAffiliateHandler(deps AffiliateDeps) *AffiliateHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AffiliateHandler{
		logger:      logger,
		clicks:      deps.Clicks,
		conversions: deps.Conversions,
		attribution: deps.Attribution,
		rateLimit:   deps.RateLimit,
	}
}

// Register wires affiliate routes onto the provided router.
func (h *AffiliateHandler) Register(router fiber.Router) {
	var affiliate fiber.Router
	if h.rateLimit != nil {
		affiliate = router.Group("/api/affiliate", h.rateLimit)
	} else {
		affiliate = router.Group("/api/affiliate")
	}
	{
		affiliate.Post("/track-click", h.TrackClick)
		affiliate.Post("/track-conversion", h.TrackConversion)
		affiliate.Get("/attribution", h.GetAttribution)
		affiliate.Delete("/attribution", h.ClearAttribution)
	}
}

// TrackClickRequest is the body of POST /api/affiliate/track-click.
type TrackClickRequest struct {
	PartnerID   string `json:"partnerId" validate:"required"`
	SessionID   string `json:"sessionId" validate:"required"`
	LandingPage string `json:"landingPage"`
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	Referrer    string `json:"referrer"`
}

// TrackClick handles POST /api/affiliate/track-click.
// 201 for a new click, 200 when an existing click is returned.
func (h *AffiliateHandler) TrackClick(c *fiber.Ctx) error {
	var req TrackClickRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	referrer := req.Referrer
	if referrer == "" {
		referrer = c.Get(fiber.HeaderReferer)
	}

	event, created, err := h.clicks.RecordClick(c.UserContext(), service.RecordClickInput{
		PartnerID:   req.PartnerID,
		SessionID:   req.SessionID,
		LandingPage: req.LandingPage,
		UTM: model.UTM{
			Source:   req.UTMSource,
			Medium:   req.UTMMedium,
			Campaign: req.UTMCampaign,
		},
		ClientIP:  httpUtil.ClientIP(c),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Referrer:  referrer,
	})
	if err != nil {
		return writeError(c, h.logger, err, "failed to record click")
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return httpUtil.OK(c, status, event)
}

// TrackConversionRequest is the body of POST /api/affiliate/track-conversion.
// Partner and session fall back to the caller's attribution token.
type TrackConversionRequest struct {
	PartnerID   string   `json:"partnerId"`
	SessionID   string   `json:"sessionId"`
	OrderID     string   `json:"orderId" validate:"required"`
	ServiceType string   `json:"serviceType" validate:"required"`
	Amount      *float64 `json:"amount" validate:"required,gte=0"`
}

type trackConversionResponse struct {
	Success    bool                   `json:"success"`
	Data       *model.ConversionEvent `json:"data"`
	Commission float64                `json:"commission"`
}

// TrackConversion handles POST /api/affiliate/track-conversion.
func (h *AffiliateHandler) TrackConversion(c *fiber.Ctx) error {
	var req TrackConversionRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	if req.PartnerID == "" && h.attribution != nil {
		if token := h.attribution.Get(c); token != nil {
			req.PartnerID = token.PartnerID
			req.SessionID = token.SessionID
		}
	}
	if req.PartnerID == "" {
		return httpUtil.Fail(c, fiber.StatusBadRequest, "partnerId is required")
	}

	event, created, err := h.conversions.RecordConversion(c.UserContext(), service.RecordConversionInput{
		PartnerID:   req.PartnerID,
		SessionID:   req.SessionID,
		OrderID:     req.OrderID,
		ServiceType: req.ServiceType,
		Amount:      *req.Amount,
	})
	if err != nil {
		return writeError(c, h.logger, err, "failed to record conversion")
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(trackConversionResponse{
		Success:    true,
		Data:       event,
		Commission: event.Commission,
	})
}

// GetAttribution handles GET /api/affiliate/attribution.
func (h *AffiliateHandler) GetAttribution(c *fiber.Ctx) error {
	token := h.attribution.Get(c)
	return c.JSON(fiber.Map{
		"success": true,
		"data":    token,
	})
}

// ClearAttribution handles DELETE /api/affiliate/attribution.
func (h *AffiliateHandler) ClearAttribution(c *fiber.Ctx) error {
	h.attribution.Clear(c)
	return httpUtil.OK(c, fiber.StatusOK, nil)
}
