package payment

import (
	"context"
	"fmt"
	"os"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

// InitStripe initializes the Stripe API with the secret key.
func InitStripe() {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
}

// StripeConfirmer answers "did this payment succeed" for the booking ledger.
// Charging, refunds and webhooks live with the payment collaborator, not
// here; the ledger only needs the yes/no to move a booking past pending.
type StripeConfirmer struct{}

func NewStripeConfirmer() *StripeConfirmer {
	return &StripeConfirmer{}
}

// Confirm looks up a payment intent and reports whether it succeeded.
func (c *StripeConfirmer) Confirm(ctx context.Context, paymentRef string) (bool, error) {
	pi, err := paymentintent.Get(paymentRef, nil)
	if err != nil {
		return false, fmt.Errorf("failed to fetch payment intent %s: %w", paymentRef, err)
	}
	return pi.Status == stripe.PaymentIntentStatusSucceeded, nil
}
