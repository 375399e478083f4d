// README: Payment gateway collaborator interfaces and event model.
package payments

import (
	"context"
	"errors"

	"spotly/internal/types"
)

var (
	// ErrGateway wraps provider-side failures. Authorization is not
	// idempotent, so callers surface this instead of retrying.
	ErrGateway = errors.New("payment gateway request failed")

	// ErrInvalidSignature means the webhook payload could not be
	// authenticated against the shared endpoint secret.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Authorization is the client-usable payment handle returned from a
// successful authorization request.
type Authorization struct {
	ProviderRef  string `json:"provider_ref"`
	ClientSecret string `json:"client_secret"`
}

// Gateway issues payment authorizations tagged with the booking identity.
type Gateway interface {
	Authorize(ctx context.Context, amount types.Money, bookingID types.ID) (*Authorization, error)
}

type EventKind int

const (
	EventIgnored EventKind = iota
	EventSucceeded
	EventFailed
)

// Event is the provider-agnostic view of a gateway outcome notification.
// BookingID is empty when the provider event carried no booking identity.
type Event struct {
	Kind        EventKind
	BookingID   types.ID
	ProviderRef string
}

// Verifier authenticates a raw webhook payload and parses it into an Event.
// Signature verification happens before any business field is read.
type Verifier interface {
	VerifyEvent(payload []byte, sigHeader string) (*Event, error)
}

// NopVerifier rejects every delivery. It stands in when no provider is
// configured so the webhook endpoint stays safe to expose.
type NopVerifier struct{}

func (NopVerifier) VerifyEvent([]byte, string) (*Event, error) {
	return nil, ErrInvalidSignature
}
