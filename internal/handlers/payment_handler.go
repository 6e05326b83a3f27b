package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/BruksfildServices01/clinic-api/internal/httperr"
	"github.com/BruksfildServices01/clinic-api/internal/middleware"
	"github.com/BruksfildServices01/clinic-api/internal/payment"
	ucPayment "github.com/BruksfildServices01/clinic-api/internal/usecase/payment"
)

// maxWebhookBody bounds provider notifications.
const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	gateway payment.Gateway
	settler *ucPayment.Settler
	log     zerolog.Logger
}

func NewPaymentHandler(gateway payment.Gateway, settler *ucPayment.Settler, log zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{gateway: gateway, settler: settler, log: log}
}

type VerifyPaymentRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// Verify checks the checkout the customer returned from and settles the
// invoice when the provider reports it paid.
func (h *PaymentHandler) Verify(c *gin.Context) {
	var req VerifyPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	inv, err := h.settler.Verify(c.Request.Context(), middleware.Principal(c), strings.TrimSpace(req.SessionID))
	if err != nil {
		httperr.From(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

// Webhook receives provider notifications. It is public; authenticity is
// established by the provider signature.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	if h.gateway == nil {
		httperr.Write(c, http.StatusServiceUnavailable, "payments_disabled", "Payments are not configured.")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		httperr.BadRequest(c, "invalid_payload", "Unreadable body.")
		return
	}

	ev, err := h.gateway.ParseWebhook(c.Request.Context(), payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			h.log.Warn().Str("provider", h.gateway.Name()).Msg("webhook rejected: bad signature")
			httperr.BadRequest(c, "invalid_signature", "Signature verification failed.")
			return
		}
		httperr.BadRequest(c, "invalid_payload", err.Error())
		return
	}

	if err := h.settler.Webhook(c.Request.Context(), ev); err != nil {
		httperr.From(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
