package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v72"

	"growth-engine/internal/payment"
)

const maxWebhookBytes = int64(65536)

// CreateCheckoutSession starts a Stripe Checkout for the PRO plan.
func (h *handlers) CreateCheckoutSession(c *gin.Context) {
	if h.payments == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	p, err := h.profiles.Get(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if p.IsPro() {
		badRequest(c, "already on PRO")
		return
	}

	id, url, err := h.payments.CreateCheckoutSession(p.ID, p.Email,
		h.publicURL+"/pro?checkout=success",
		h.publicURL+"/pro?checkout=cancel",
	)
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
			return
		}
		h.log.Errorw("stripe checkout session failed", "user_id", p.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create checkout session"})
		return
	}

	h.log.Infow("checkout session created", "user_id", p.ID, "session_id", id)
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// StripeWebhook verifies Stripe events and upgrades the user once their
// checkout completes. Any non-2xx answer makes Stripe retry the delivery.
func (h *handlers) StripeWebhook(c *gin.Context) {
	if h.payments == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		h.log.Errorw("Failed to read webhook body", "error", err)
		badRequest(c, "invalid payload")
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		h.log.Warnw("Missing Stripe signature header")
		badRequest(c, "missing signature")
		return
	}

	event, err := h.payments.ParseWebhook(body, signature)
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			h.log.Errorw("Webhook secret is not configured")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
			return
		}
		h.log.Warnw("Failed to verify webhook signature", "error", err)
		badRequest(c, "signature verification failed")
		return
	}

	switch event.Type {
	case payment.EventCheckoutCompleted:
		uid, err := payment.CheckoutUser(event)
		if err != nil {
			h.log.Errorw("Invalid checkout session", "event_id", event.ID, "error", err)
			badRequest(c, "invalid checkout session")
			return
		}
		if _, err := h.profiles.Upgrade(c.Request.Context(), uid); err != nil {
			h.log.Errorw("Failed to upgrade after checkout", "event_id", event.ID, "user_id", uid, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upgrade failed"})
			return
		}
		h.log.Infow("Payment processed", "event_id", event.ID, "user_id", uid)

	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			h.log.Errorw("Failed to parse payment intent", "error", err)
			break
		}
		h.log.Warnw("Payment failed", "payment_id", intent.ID, "error", intent.LastPaymentError)

	default:
		h.log.Debugw("Ignoring Stripe event", "type", event.Type)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
