// Package attribution carries the partner attribution token between requests.
package attribution

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/youwow/affiliate/internal/app/model"
	httpUtil "github.com/youwow/affiliate/internal/http/util"
)

// CookieName is the cookie holding the attribution token.
const CookieName = "youwow_partner"

// Store reads and writes the attribution context of the current visitor.
// A newer referral always replaces the previous one (last-touch).
type Store interface {
	// Set mints a session id, stores a fresh token and returns the session id.
	Set(c *fiber.Ctx, partnerID, landingPage string) (string, error)
	// Get returns the active token, or nil when absent, expired or unreadable.
	Get(c *fiber.Ctx) *model.AttributionToken
	Clear(c *fiber.Ctx)
}

// CookieStore keeps the token as JSON in a site-wide cookie. When a signer is
// configured the value carries an HMAC so tampered cookies are discarded.
type CookieStore struct {
	signer *httpUtil.TokenSigner
	secure bool
	now    func() time.Time
	newID  func() string
}

// CookieOption customizes a CookieStore.
type CookieOption func(*CookieStore)

// WithSigner enables signed cookie values.
func WithSigner(signer *httpUtil.TokenSigner) CookieOption {
	return func(s *CookieStore) { s.signer = signer }
}

// WithSecure marks the cookie Secure (production).
func WithSecure(secure bool) CookieOption {
	return func(s *CookieStore) { s.secure = secure }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) CookieOption {
	return func(s *CookieStore) { s.now = now }
}

// WithSessionIDs overrides session id generation.
func WithSessionIDs(newID func() string) CookieOption {
	return func(s *CookieStore) { s.newID = newID }
}

// NewCookieStore builds a cookie-backed Store.
func NewCookieStore(opts ...CookieOption) *CookieStore {
	s := &CookieStore{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CookieStore) Set(c *fiber.Ctx, partnerID, landingPage string) (string, error) {
	token := model.AttributionToken{
		PartnerID:   partnerID,
		SessionID:   s.newID(),
		ClickedAt:   s.now().UTC(),
		LandingPage: landingPage,
	}

	value, err := s.encode(token)
	if err != nil {
		return "", err
	}

	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(model.AttributionWindow / time.Second),
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return token.SessionID, nil
}

func (s *CookieStore) Get(c *fiber.Ctx) *model.AttributionToken {
	raw := c.Cookies(CookieName)
	if raw == "" {
		return nil
	}

	token, ok := s.decode(raw)
	if !ok || token.Expired(s.now()) {
		s.Clear(c)
		return nil
	}
	return token
}

func (s *CookieStore) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *CookieStore) encode(token model.AttributionToken) (string, error) {
	payload, err := json.Marshal(token)
	if err != nil {
		return "", err
	}
	value := url.QueryEscape(string(payload))
	if !s.signer.Enabled() {
		return value, nil
	}
	sig, err := s.signer.Sign(payload)
	if err != nil {
		return "", err
	}
	return value + "." + sig, nil
}

func (s *CookieStore) decode(raw string) (*model.AttributionToken, bool) {
	encoded := raw
	var sig string
	if s.signer.Enabled() {
		i := strings.LastIndex(raw, ".")
		if i < 0 {
			return nil, false
		}
		encoded, sig = raw[:i], raw[i+1:]
	}

	payload, err := url.QueryUnescape(encoded)
	if err != nil {
		return nil, false
	}
	if s.signer.Enabled() {
		if err := s.signer.Verify([]byte(payload), sig); err != nil {
			return nil, false
		}
	}

	var token model.AttributionToken
	if err := json.Unmarshal([]byte(payload), &token); err != nil {
		return nil, false
	}
	if !model.ValidPartnerID(token.PartnerID) || token.SessionID == "" {
		return nil, false
	}
	return &token, true
}
