// README: Settlement reconciler; applies asynchronous gateway outcomes to
// bookings and payments idempotently.
package settlement

import (
	"context"
	"time"

	"go.uber.org/zap"

	"spotly/internal/events"
	"spotly/internal/modules/booking"
	"spotly/internal/payments"
	"spotly/internal/types"
)

// Store is the slice of the booking store the reconciler mutates.
// *booking.PostgresStore satisfies it.
type Store interface {
	Get(ctx context.Context, id types.ID) (*booking.Booking, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to booking.Status) (bool, error)
	UpdatePaymentStatus(ctx context.Context, bookingID types.ID, status booking.PaymentStatus) (bool, error)
	AppendEvent(ctx context.Context, e *booking.StateEvent) error
}

type Service struct {
	store     Store
	verifier  payments.Verifier
	publisher *events.Publisher
	log       *zap.Logger
}

func NewService(store Store, verifier payments.Verifier, publisher *events.Publisher, log *zap.Logger) *Service {
	return &Service{
		store:     store,
		verifier:  verifier,
		publisher: publisher,
		log:       log.With(zap.String("service", "settlement")),
	}
}

// HandleGatewayEvent authenticates and applies one webhook delivery. The
// signature check runs before any business field is parsed or any state is
// touched. Events that cannot be matched to a booking are logged and
// acknowledged — the gateway retrying them would not help. All writes set
// absorbing values, so duplicate deliveries converge on the same state.
func (s *Service) HandleGatewayEvent(ctx context.Context, payload []byte, sigHeader string) error {
	ev, err := s.verifier.VerifyEvent(payload, sigHeader)
	if err != nil {
		return err
	}

	if ev.Kind == payments.EventIgnored {
		return nil
	}
	if ev.BookingID == "" {
		s.log.Warn("gateway event without booking id",
			zap.String("provider_ref", ev.ProviderRef),
		)
		return nil
	}

	switch ev.Kind {
	case payments.EventSucceeded:
		return s.applySuccess(ctx, ev)
	case payments.EventFailed:
		return s.applyFailure(ctx, ev)
	}
	return nil
}

func (s *Service) applySuccess(ctx context.Context, ev *payments.Event) error {
	updated, err := s.store.UpdatePaymentStatus(ctx, ev.BookingID, booking.PaymentCompleted)
	if err != nil {
		return err
	}
	if !updated {
		s.log.Warn("succeeded event for booking without payment row",
			zap.String("booking_id", string(ev.BookingID)),
			zap.String("provider_ref", ev.ProviderRef),
		)
	}

	ok, err := s.store.UpdateStatus(ctx, ev.BookingID, booking.StatusCompleted, booking.StatusConfirmed)
	if err != nil {
		return err
	}
	if !ok {
		// duplicate delivery, or the booking is missing / in an
		// unexpected state; either way a retry would not help
		b, err := s.store.Get(ctx, ev.BookingID)
		if err != nil || b.Status != booking.StatusConfirmed {
			s.log.Warn("succeeded event did not confirm booking",
				zap.String("booking_id", string(ev.BookingID)),
				zap.Error(err),
			)
		}
		return nil
	}

	_ = s.store.AppendEvent(ctx, &booking.StateEvent{
		BookingID:  ev.BookingID,
		FromStatus: booking.StatusCompleted,
		ToStatus:   booking.StatusConfirmed,
		ActorType:  "gateway",
		CreatedAt:  time.Now(),
	})
	s.publishOutcome(ctx, events.KeyBookingConfirmed, ev, string(booking.StatusConfirmed))

	s.log.Info("booking confirmed",
		zap.String("booking_id", string(ev.BookingID)),
		zap.String("provider_ref", ev.ProviderRef),
	)
	return nil
}

func (s *Service) applyFailure(ctx context.Context, ev *payments.Event) error {
	updated, err := s.store.UpdatePaymentStatus(ctx, ev.BookingID, booking.PaymentFailed)
	if err != nil {
		return err
	}
	if !updated {
		s.log.Warn("failed event for booking without payment row",
			zap.String("booking_id", string(ev.BookingID)),
			zap.String("provider_ref", ev.ProviderRef),
		)
		return nil
	}

	// the booking stays COMPLETED: the parking event already happened
	s.publishOutcome(ctx, events.KeyPaymentFailed, ev, string(booking.PaymentFailed))

	s.log.Info("payment marked failed",
		zap.String("booking_id", string(ev.BookingID)),
		zap.String("provider_ref", ev.ProviderRef),
	)
	return nil
}

func (s *Service) publishOutcome(ctx context.Context, key string, ev *payments.Event, status string) {
	err := s.publisher.Publish(ctx, key, events.BookingEvent{
		BookingID: ev.BookingID,
		Status:    status,
	})
	if err != nil {
		s.log.Warn("event publish failed",
			zap.String("booking_id", string(ev.BookingID)),
			zap.String("event", key),
			zap.Error(err),
		)
	}
}
