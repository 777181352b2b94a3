package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hungrytum/franchise-billing/internal/application/reconciliation"
	"github.com/hungrytum/franchise-billing/internal/infrastructure/logger"
	"github.com/hungrytum/franchise-billing/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body
const SignatureHeader = "X-Webhook-Signature"

// PaymentWebhookHandler receives invoice and payment notifications from the
// payment collector
type PaymentWebhookHandler struct {
	BaseHandler
	service *reconciliation.Service
	secret  []byte
}

// NewPaymentWebhookHandler creates a new PaymentWebhookHandler. An empty
// secret accepts unsigned deliveries.
func NewPaymentWebhookHandler(service *reconciliation.Service, secret string) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{service: service, secret: []byte(secret)}
}

// Handle verifies and applies one delivery. Repeated and stale events are
// acknowledged so the collector stops retrying them.
//
//	@Router	/webhooks/payments [post]
func (h *PaymentWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Could not read request body")
		return
	}
	if !h.verify(body, c.GetHeader(SignatureHeader)) {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeInvalidSignature, "Invalid webhook signature")
		return
	}

	var evt reconciliation.PaymentEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		h.BadRequest(c, "Malformed event payload")
		return
	}
	if evt.ID == "" {
		h.BadRequest(c, "Event id is required")
		return
	}

	outcome, err := h.service.ApplyPaymentEvent(c.Request.Context(), evt)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	logger.GetGinLogger(c).Info("Payment event received",
		zap.String("event_id", evt.ID),
		zap.String("event_type", string(evt.Type)),
		zap.Bool("applied", outcome.Applied),
		zap.Bool("duplicate", outcome.Duplicate),
	)
	h.Success(c, outcome)
}

// verify checks the signature in constant time
func (h *PaymentWebhookHandler) verify(body []byte, signature string) bool {
	if len(h.secret) == 0 {
		return true
	}
	got, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Sign returns the signature header value for body; collectors and tests use it
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
