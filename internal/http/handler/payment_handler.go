package handler

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/youwow/affiliate/internal/app/service"
	httpUtil "github.com/youwow/affiliate/internal/http/util"
	"github.com/youwow/affiliate/internal/payment"
	"go.uber.org/zap"
)

// PaymentDeps groups dependencies required by the payment webhook.
type PaymentDeps struct {
	Logger      *zap.Logger
	Gateway     payment.Gateway
	Conversions service.ConversionRecorder
}

// PaymentHandler receives payment status callbacks from the gateway.
type PaymentHandler struct {
	logger      *zap.Logger
	gateway     payment.Gateway
	conversions service.ConversionRecorder
}

// NewPaymentHandler creates a payment handler with the provided dependencies.
func NewPaymentHandler(deps PaymentDeps) *PaymentHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentHandler{
		logger:      logger,
		gateway:     deps.Gateway,
		conversions: deps.Conversions,
	}
}

// Register wires the webhook route onto the provided router.
func (h *PaymentHandler) Register(router fiber.Router) {
	router.Post("/api/payments/webhook", h.Webhook)
}

// Webhook handles POST /api/payments/webhook. Once the callback is verified
// the gateway always gets a 200: conversion tracking never fails a payment.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	event, err := h.gateway.VerifyWebhook(http.Header(c.GetReqHeaders()), c.Body())
	switch {
	case errors.Is(err, payment.ErrInvalidCallbackToken):
		h.logger.Warn("rejected payment webhook with invalid token", zap.String("client", httpUtil.ClientIP(c)))
		return httpUtil.Fail(c, fiber.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, payment.ErrGatewayMisconfigured):
		h.logger.Error("payment webhook token is not configured")
		return httpUtil.Fail(c, fiber.StatusInternalServerError, "Unauthorized")
	case errors.Is(err, payment.ErrInvalidPayload):
		return httpUtil.Fail(c, fiber.StatusBadRequest, "invalid webhook payload")
	case err != nil:
		h.logger.Error("failed to verify payment webhook", zap.Error(err))
		return httpUtil.Fail(c, fiber.StatusInternalServerError, "Internal Server Error")
	}

	h.logger.Info("payment status received",
		zap.String("order_id", event.OrderID),
		zap.String("status", string(event.Status)),
	)

	if event.Paid() && event.Attributed() {
		service.RecordConversionBestEffort(c.UserContext(), h.conversions, h.logger, service.RecordConversionInput{
			PartnerID:   event.Metadata.PartnerID,
			SessionID:   event.Metadata.SessionID,
			OrderID:     event.OrderID,
			ServiceType: event.ServiceType,
			Amount:      event.Amount,
		})
	}

	return httpUtil.OK(c, fiber.StatusOK, fiber.Map{
		"orderId": event.OrderID,
		"status":  event.Status,
	})
}
