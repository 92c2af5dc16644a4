package middleware

import (
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/youwow/affiliate/internal/app/model"
	"github.com/youwow/affiliate/internal/app/service"
	"github.com/youwow/affiliate/internal/http/attribution"
	httpUtil "github.com/youwow/affiliate/internal/http/util"
	"go.uber.org/zap"
)

// PartnerParam is the query parameter carrying a referral.
const PartnerParam = "partner"

var trackingParams = []string{
	PartnerParam,
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_term",
	"utm_content",
}

// PartnerReferralDeps groups the collaborators of the referral interceptor.
type PartnerReferralDeps struct {
	Logger      *zap.Logger
	Attribution attribution.Store
	Known       *service.KnownPartners
	Dispatcher  service.ClickDispatcher
	Now         func() time.Time
	// Skip exempts requests (e.g. API routes) from interception.
	Skip func(c *fiber.Ctx) bool
}

// PartnerReferral intercepts GET requests carrying ?partner=<id>. It sets the
// attribution token, hands a click job to the dispatcher without waiting for
// it, and redirects to the same path with the tracking parameters removed.
func PartnerReferral(deps PartnerReferralDeps) fiber.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet || (deps.Skip != nil && deps.Skip(c)) {
			return c.Next()
		}
		partnerID := strings.Clone(c.Query(PartnerParam))
		if partnerID == "" || !model.ValidPartnerID(partnerID) {
			return c.Next()
		}

		// Fiber reuses request buffers; work on a copy.
		u, err := url.ParseRequestURI(strings.Clone(c.OriginalURL()))
		if err != nil {
			return c.Next()
		}
		query := u.Query()
		utm := model.UTM{
			Source:   query.Get("utm_source"),
			Medium:   query.Get("utm_medium"),
			Campaign: query.Get("utm_campaign"),
		}
		for _, p := range trackingParams {
			query.Del(p)
		}
		u.RawQuery = query.Encode()
		target := u.RequestURI()
		landingPage := u.Path

		if !deps.Known.MayExist(partnerID) {
			logger.Debug("ignoring referral for unknown partner", zap.String("partner_id", partnerID))
			return c.Redirect(target, fiber.StatusFound)
		}

		sessionID, err := deps.Attribution.Set(c, partnerID, landingPage)
		if err != nil {
			logger.Error("failed to set attribution token",
				zap.String("partner_id", partnerID),
				zap.Error(err),
			)
			return c.Redirect(target, fiber.StatusFound)
		}

		job := model.ClickJob{
			PartnerID:   partnerID,
			SessionID:   sessionID,
			LandingPage: landingPage,
			UTM:         utm,
			ClientIP:    httpUtil.ClientIP(c),
			UserAgent:   strings.Clone(c.Get(fiber.HeaderUserAgent)),
			Referrer:    strings.Clone(c.Get(fiber.HeaderReferer)),
			QueuedAt:    now().UTC(),
		}
		// Dispatch only buffers the job; a full queue drops the click, never the redirect.
		if deps.Dispatcher != nil {
			if err := deps.Dispatcher.Dispatch(c.UserContext(), job); err != nil {
				logger.Error("failed to dispatch click job",
					zap.String("partner_id", job.PartnerID),
					zap.String("session_id", job.SessionID),
					zap.Error(err),
				)
			}
		}

		return c.Redirect(target, fiber.StatusFound)
	}
}
