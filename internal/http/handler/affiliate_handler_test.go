package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youwow/affiliate/internal/app/model"
	"github.com/youwow/affiliate/internal/app/repository"
	"github.com/youwow/affiliate/internal/app/service"
	"github.com/youwow/affiliate/internal/http/attribution"
)

func newAffiliateApp(clicks service.ClickRecorder, conversions service.ConversionRecorder, store attribution.Store) *fiber.App {
	app := fiber.New()
	NewAffiliateHandler(AffiliateDeps{
		Clicks:      clicks,
		Conversions: conversions,
		Attribution: store,
	}).Register(app)
	return app
}

func TestTrackClick_StatusTaxonomy(t *testing.T) {
	clicks := &mockClickRecorder{
		recordFn: func(ctx context.Context, in service.RecordClickInput) (*model.ClickEvent, bool, error) {
			switch in.PartnerID {
			case "ghost":
				return nil, false, repository.ErrPartnerNotFound
			case "sleepy":
				return nil, false, service.ErrPartnerInactive
			case "boom":
				return nil, false, assert.AnError
			}
			event := &model.ClickEvent{ID: "click-1", PartnerID: in.PartnerID, IPAddress: in.ClientIP}
			return event, in.SessionID == "new", nil
		},
	}
	app := newAffiliateApp(clicks, nil, nil)

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"missing fields", `{"partnerId":"acme"}`, fiber.StatusBadRequest},
		{"malformed", `{`, fiber.StatusBadRequest},
		{"unknown partner", `{"partnerId":"ghost","sessionId":"s"}`, fiber.StatusNotFound},
		{"inactive partner", `{"partnerId":"sleepy","sessionId":"s"}`, fiber.StatusForbidden},
		{"internal error", `{"partnerId":"boom","sessionId":"s"}`, fiber.StatusInternalServerError},
		{"new click", `{"partnerId":"acme","sessionId":"new"}`, fiber.StatusCreated},
		{"dedup hit", `{"partnerId":"acme","sessionId":"again"}`, fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := jsonRequest(fiber.MethodPost, "/api/affiliate/track-click", tc.body)
			req.Header.Set("X-Forwarded-For", "9.9.9.9")
			resp, body := do(t, app, req)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.status < 300, body["success"])
			if tc.status >= 300 {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestTrackClick_PassesClientIdentity(t *testing.T) {
	var got service.RecordClickInput
	clicks := &mockClickRecorder{
		recordFn: func(ctx context.Context, in service.RecordClickInput) (*model.ClickEvent, bool, error) {
			got = in
			return &model.ClickEvent{ID: "c"}, true, nil
		},
	}
	app := newAffiliateApp(clicks, nil, nil)

	req := jsonRequest(fiber.MethodPost, "/api/affiliate/track-click",
		`{"partnerId":"acme","sessionId":"s1","landingPage":"/gifts","utm_source":"ig","utm_medium":"social"}`)
	req.Header.Set("X-Real-IP", "10.0.0.1")
	resp, _ := do(t, app, req)

	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "10.0.0.1", got.ClientIP)
	assert.Equal(t, "/gifts", got.LandingPage)
	assert.Equal(t, model.UTM{Source: "ig", Medium: "social"}, got.UTM)
}

func TestTrackConversion(t *testing.T) {
	conversions := &mockConversionRecorder{
		recordFn: func(ctx context.Context, in service.RecordConversionInput) (*model.ConversionEvent, bool, error) {
			event := &model.ConversionEvent{
				ID:         "conv-1",
				PartnerID:  in.PartnerID,
				SessionID:  in.SessionID,
				OrderID:    in.OrderID,
				Amount:     in.Amount,
				Commission: 200,
			}
			return event, in.OrderID == "ord-1", nil
		},
	}
	app := newAffiliateApp(nil, conversions, attribution.NewCookieStore())

	resp, body := do(t, app, jsonRequest(fiber.MethodPost, "/api/affiliate/track-conversion",
		`{"partnerId":"acme","sessionId":"s1","orderId":"ord-1","serviceType":"song","amount":590}`))
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, 200.0, body["commission"])

	resp, body = do(t, app, jsonRequest(fiber.MethodPost, "/api/affiliate/track-conversion",
		`{"partnerId":"acme","sessionId":"s1","orderId":"ord-old","serviceType":"song","amount":590}`))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 200.0, body["commission"])

	resp, _ = do(t, app, jsonRequest(fiber.MethodPost, "/api/affiliate/track-conversion",
		`{"orderId":"ord-2","serviceType":"song","amount":590}`))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "no partner in body or cookie")

	resp, _ = do(t, app, jsonRequest(fiber.MethodPost, "/api/affiliate/track-conversion",
		`{"partnerId":"acme","orderId":"ord-3","serviceType":"song"}`))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "amount is required")
}

func TestTrackConversion_FallsBackToAttributionCookie(t *testing.T) {
	store := attribution.NewCookieStore(attribution.WithSessionIDs(func() string { return "sess-from-cookie" }))

	var got service.RecordConversionInput
	conversions := &mockConversionRecorder{
		recordFn: func(ctx context.Context, in service.RecordConversionInput) (*model.ConversionEvent, bool, error) {
			got = in
			return &model.ConversionEvent{ID: "c", Commission: 50}, true, nil
		},
	}
	app := newAffiliateApp(nil, conversions, store)

	// Mint a cookie value through the store itself.
	minter := fiber.New()
	minter.Get("/", func(c *fiber.Ctx) error {
		_, err := store.Set(c, "acme", "/gifts")
		return err
	})
	mintResp, err := minter.Test(jsonRequest(fiber.MethodGet, "/", ""))
	require.NoError(t, err)
	var cookie *http.Cookie
	for _, c := range mintResp.Cookies() {
		if c.Name == attribution.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	req := jsonRequest(fiber.MethodPost, "/api/affiliate/track-conversion",
		`{"orderId":"ord-9","serviceType":"video","amount":100}`)
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	resp, _ := do(t, app, req)

	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, "acme", got.PartnerID)
	assert.Equal(t, "sess-from-cookie", got.SessionID)
}

func TestAttributionEndpoints(t *testing.T) {
	app := newAffiliateApp(nil, nil, attribution.NewCookieStore(attribution.WithClock(func() time.Time {
		return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	})))

	resp, body := do(t, app, jsonRequest(fiber.MethodGet, "/api/affiliate/attribution", ""))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Nil(t, body["data"])

	resp, body = do(t, app, jsonRequest(fiber.MethodDelete, "/api/affiliate/attribution", ""))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	var cleared bool
	for _, c := range resp.Cookies() {
		if c.Name == attribution.CookieName && c.Value == "" {
			cleared = true
		}
	}
	assert.True(t, cleared)
}
