// README: Payment gateway webhook endpoint.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spotly/internal/modules/settlement"
	"spotly/internal/payments"
)

type WebhookHandler struct {
	settlement *settlement.Service
	log        *zap.Logger
}

func NewWebhookHandler(svc *settlement.Service, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{settlement: svc, log: log}
}

// HandlePayment receives gateway deliveries. Responses carry no business
// detail: 400 tells the gateway the delivery was unauthentic, 500 asks it to
// retry, 200 acknowledges everything else.
func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		writeError(c, http.StatusBadRequest, "unreadable payload")
		return
	}

	err = h.settlement.HandleGatewayEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			writeError(c, http.StatusBadRequest, "invalid signature")
			return
		}
		h.log.Error("webhook processing failed", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
