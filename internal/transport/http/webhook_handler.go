package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/waste3d/course-marketplace/internal/application"
	"github.com/waste3d/course-marketplace/internal/infrastructure/payment"
)

const maxWebhookBody = 64 << 10

type WebhookHandler struct {
	verifier *payment.Verifier
	events   *application.PaymentEventHandler
}

func NewWebhookHandler(verifier *payment.Verifier, events *application.PaymentEventHandler) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, events: events}
}

// POST /api/v1/payments/webhook
func (h *WebhookHandler) Receive(c *gin.Context) {
	// 1. Signature covers the raw body
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable body"})
		return
	}
	if err := h.verifier.Verify(body, c.GetHeader(payment.SignatureHeader)); err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}
		writeError(c, err)
		return
	}

	// 2. Decode and dispatch
	event, err := payment.ParseEvent(body, time.Now())
	if err != nil {
		writeError(c, err)
		return
	}
	enrollment, err := h.events.Handle(c, event)
	if err != nil {
		writeError(c, err)
		return
	}

	res := gin.H{"received": true}
	if enrollment != nil {
		res["enrollment"] = enrollment
	}
	c.JSON(http.StatusOK, res)
}
