// README: Stripe implementation of the payment gateway collaborator.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"spotly/internal/types"
)

// metadata key carrying the booking identity through the gateway round-trip
const metadataBookingID = "booking_id"

type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api, webhookSecret: webhookSecret}
}

// Authorize creates a manual-capture PaymentIntent for the booking total and
// returns the intent id plus client secret for the renter to complete.
func (g *StripeGateway) Authorize(ctx context.Context, amount types.Money, bookingID types.ID) (*Authorization, error) {
	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Amount:        stripe.Int64(amount.Amount),
		Currency:      stripe.String(strings.ToLower(amount.Currency)),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	params.AddMetadata(metadataBookingID, string(bookingID))

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return &Authorization{ProviderRef: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// VerifyEvent authenticates the payload signature first, then maps the
// provider event onto the settlement model. Unknown event types come back
// as EventIgnored so the endpoint can acknowledge them without action.
func (g *StripeGateway) VerifyEvent(payload []byte, sigHeader string) (*Event, error) {
	ev, err := webhook.ConstructEvent(payload, sigHeader, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var kind EventKind
	switch ev.Type {
	case "payment_intent.succeeded":
		kind = EventSucceeded
	case "payment_intent.payment_failed":
		kind = EventFailed
	default:
		return &Event{Kind: EventIgnored}, nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(ev.Data.Raw, &intent); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	return &Event{
		Kind:        kind,
		BookingID:   types.ID(intent.Metadata[metadataBookingID]),
		ProviderRef: intent.ID,
	}, nil
}
