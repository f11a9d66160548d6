package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/Mnunley1/gearboxe-reservations/internal/domain"
	"github.com/Mnunley1/gearboxe-reservations/internal/service/payments"
	"github.com/gin-gonic/gin"
)

type WebhookHandler struct {
	service payments.WebhookUseCase
}

func NewWebhookHandler(service payments.WebhookUseCase) *WebhookHandler {
	return &WebhookHandler{service: service}
}

func (h *WebhookHandler) Register(router *gin.RouterGroup) {
	router.POST("/webhooks/stripe", h.handleStripe)
	router.POST("/registrations/:id/resend", h.resend)
}

func (h *WebhookHandler) handleStripe(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	if err := h.service.HandleDelivery(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		if errors.Is(err, domain.ErrUnverifiedSignature) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// Non-2xx makes the provider redeliver later.
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandler) resend(c *gin.Context) {
	if err := h.service.ResendConfirmation(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"scheduled": true})
}
