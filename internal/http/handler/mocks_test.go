package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"github.com/youwow/affiliate/internal/app/model"
	"github.com/youwow/affiliate/internal/app/service"
)

type mockClickRecorder struct {
	recordFn func(ctx context.Context, in service.RecordClickInput) (*model.ClickEvent, bool, error)
}

func (m *mockClickRecorder) RecordClick(ctx context.Context, in service.RecordClickInput) (*model.ClickEvent, bool, error) {
	return m.recordFn(ctx, in)
}

type mockConversionRecorder struct {
	calls    int
	recordFn func(ctx context.Context, in service.RecordConversionInput) (*model.ConversionEvent, bool, error)
}

func (m *mockConversionRecorder) RecordConversion(ctx context.Context, in service.RecordConversionInput) (*model.ConversionEvent, bool, error) {
	m.calls++
	return m.recordFn(ctx, in)
}

type mockPartnerService struct {
	createFn func(ctx context.Context, in service.CreatePartnerInput) (*model.Partner, error)
	getFn    func(ctx context.Context, id string) (*model.Partner, error)
	listFn   func(ctx context.Context, status string) ([]model.Partner, error)
	statusFn func(ctx context.Context, id, status string) (*model.Partner, error)
	statsFn  func(ctx context.Context, id string) (*model.PartnerStats, error)
}

func (m *mockPartnerService) CreatePartner(ctx context.Context, in service.CreatePartnerInput) (*model.Partner, error) {
	return m.createFn(ctx, in)
}

func (m *mockPartnerService) GetPartner(ctx context.Context, id string) (*model.Partner, error) {
	return m.getFn(ctx, id)
}

func (m *mockPartnerService) ListPartners(ctx context.Context, status string) ([]model.Partner, error) {
	return m.listFn(ctx, status)
}

func (m *mockPartnerService) UpdateStatus(ctx context.Context, id, status string) (*model.Partner, error) {
	return m.statusFn(ctx, id, status)
}

func (m *mockPartnerService) Stats(ctx context.Context, id string) (*model.PartnerStats, error) {
	return m.statsFn(ctx, id)
}

type mockPayoutService struct {
	createFn func(ctx context.Context, partnerID string, from, to time.Time) (*model.Payout, error)
	listFn   func(ctx context.Context, partnerID string) ([]model.Payout, error)
}

func (m *mockPayoutService) CreatePayout(ctx context.Context, partnerID string, from, to time.Time) (*model.Payout, error) {
	return m.createFn(ctx, partnerID, from, to)
}

func (m *mockPayoutService) ListPayouts(ctx context.Context, partnerID string) ([]model.Payout, error) {
	return m.listFn(ctx, partnerID)
}

func jsonRequest(method, target, body string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp, body
}
