// internal/payment/stripe.go
package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/checkout/session"
	"github.com/stripe/stripe-go/v72/webhook"
)

const EventCheckoutCompleted = "checkout.session.completed"

var ErrNotConfigured = errors.New("stripe is not configured")

type Config struct {
	SecretKey  string
	WebhookKey string
	ProductID  string
	PriceID    string
}

type StripeClient struct {
	secretKey     string
	webhookSecret string
	priceID       string
	productID     string
}

func NewStripeClient(config Config) *StripeClient {
	stripe.Key = config.SecretKey

	return &StripeClient{
		secretKey:     config.SecretKey,
		webhookSecret: config.WebhookKey,
		priceID:       config.PriceID,
		productID:     config.ProductID,
	}
}

// CreateCheckoutSession starts a one-off PRO purchase for the user and
// returns the session id and the hosted checkout URL.
func (s *StripeClient) CreateCheckoutSession(userID, email, successURL, cancelURL string) (string, string, error) {
	if s.secretKey == "" || s.priceID == "" {
		return "", "", ErrNotConfigured
	}
	if stripe.Key != s.secretKey {
		stripe.Key = s.secretKey
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(userID),
	}
	if email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	params.AddMetadata("product_id", s.productID)

	sess, err := session.New(params)
	if err != nil {
		return "", "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	return sess.ID, sess.URL, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (s *StripeClient) ParseWebhook(payload []byte, signature string) (stripe.Event, error) {
	if s.webhookSecret == "" {
		return stripe.Event{}, ErrNotConfigured
	}
	return webhook.ConstructEvent(payload, signature, s.webhookSecret)
}

// CheckoutUser returns the user a completed checkout was started for.
func CheckoutUser(event stripe.Event) (string, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return "", fmt.Errorf("failed to parse checkout session: %w", err)
	}
	if sess.ClientReferenceID == "" {
		return "", fmt.Errorf("checkout session %s has no client reference id", sess.ID)
	}
	return sess.ClientReferenceID, nil
}
