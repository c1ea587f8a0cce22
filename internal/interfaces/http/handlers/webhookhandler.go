package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/gatekeeper/internal/application/billing"
	"github.com/orris-inc/gatekeeper/internal/application/ledger"
	"github.com/orris-inc/gatekeeper/internal/infrastructure/telegram"
	"github.com/orris-inc/gatekeeper/internal/shared/logger"
	"github.com/orris-inc/gatekeeper/internal/shared/utils"
)

// maxWebhookBody caps provider payloads. Stripe events stay well below it.
const maxWebhookBody = 1 << 20

type PaymentWebhooks interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*ledger.Result, error)
}

// WebhookHandler receives Stripe events and Telegram updates.
type WebhookHandler struct {
	payments      PaymentWebhooks
	updates       telegram.UpdateHandler
	webhookSecret string
	logger        logger.Interface
}

func NewWebhookHandler(payments PaymentWebhooks, updates telegram.UpdateHandler, webhookSecret string, logger logger.Interface) *WebhookHandler {
	return &WebhookHandler{
		payments:      payments,
		updates:       updates,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// Stripe handles POST /webhooks/stripe. A bad signature is a 400 so the
// provider stops retrying; any processing failure is a 500 so it retries.
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	res, err := h.payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	switch {
	case errors.Is(err, billing.ErrInvalidSignature):
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid signature")
		return
	case errors.Is(err, billing.ErrNotConfigured):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "billing not configured")
		return
	case err != nil:
		h.logger.Errorw("failed to process payment webhook", "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to process event")
		return
	}

	resp := gin.H{"received": true}
	if res != nil {
		resp["duplicate"] = res.Duplicate
		resp["renewal"] = res.Renewal
	}
	c.JSON(http.StatusOK, resp)
}

// Telegram handles POST /webhooks/telegram. Without a configured secret
// every request is refused.
func (h *WebhookHandler) Telegram(c *gin.Context) {
	if h.webhookSecret == "" {
		h.logger.Errorw("webhook secret not configured, rejecting request")
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "webhook not configured")
		return
	}

	secretHeader := c.GetHeader("X-Telegram-Bot-Api-Secret-Token")
	if subtle.ConstantTimeCompare([]byte(secretHeader), []byte(h.webhookSecret)) != 1 {
		h.logger.Warnw("webhook secret verification failed", "received_secret_empty", secretHeader == "")
		utils.ErrorResponse(c, http.StatusUnauthorized, "invalid webhook secret")
		return
	}

	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Warnw("failed to parse webhook update", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	// Logged only: a non-2xx makes Telegram redeliver the update.
	if err := h.updates.HandleUpdate(c.Request.Context(), &update); err != nil {
		h.logger.Errorw("failed to handle update", "update_id", update.UpdateID, "kind", update.Kind(), "error", err)
	}
	c.Status(http.StatusOK)
}
