// README: Settlement reconciler tests with a scripted verifier and store.
package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"spotly/internal/modules/booking"
	"spotly/internal/payments"
	"spotly/internal/types"
)

type scriptedVerifier struct {
	event *payments.Event
	err   error
}

func (v *scriptedVerifier) VerifyEvent([]byte, string) (*payments.Event, error) {
	return v.event, v.err
}

type recordingStore struct {
	mu       sync.Mutex
	bookings map[types.ID]*booking.Booking
	payments map[types.ID]booking.PaymentStatus
	events   []*booking.StateEvent
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		bookings: make(map[types.ID]*booking.Booking),
		payments: make(map[types.ID]booking.PaymentStatus),
	}
}

func (r *recordingStore) Get(_ context.Context, id types.ID) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *recordingStore) UpdateStatus(_ context.Context, id types.ID, from, to booking.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (r *recordingStore) UpdatePaymentStatus(_ context.Context, bookingID types.ID, status booking.PaymentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[bookingID]; !ok {
		return false, nil
	}
	r.payments[bookingID] = status
	return true, nil
}

func (r *recordingStore) AppendEvent(_ context.Context, e *booking.StateEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func seedCompleted(store *recordingStore, id types.ID) {
	store.bookings[id] = &booking.Booking{
		ID:     id,
		Status: booking.StatusCompleted,
		Type:   booking.TypeOnDemand,
	}
	store.payments[id] = booking.PaymentPending
}

func newTestService(store Store, v payments.Verifier) *Service {
	return NewService(store, v, nil, zap.NewNop())
}

func TestInvalidSignatureRejectsBeforeAnyWrite(t *testing.T) {
	store := newRecordingStore()
	seedCompleted(store, "b-1")
	svc := newTestService(store, &scriptedVerifier{err: payments.ErrInvalidSignature})

	err := svc.HandleGatewayEvent(context.Background(), []byte("{}"), "bad-sig")
	if !errors.Is(err, payments.ErrInvalidSignature) {
		t.Fatalf("want ErrInvalidSignature, got %v", err)
	}
	if store.bookings["b-1"].Status != booking.StatusCompleted {
		t.Fatal("booking mutated despite invalid signature")
	}
	if store.payments["b-1"] != booking.PaymentPending {
		t.Fatal("payment mutated despite invalid signature")
	}
}

func TestSuccessConfirmsBookingAndPayment(t *testing.T) {
	store := newRecordingStore()
	seedCompleted(store, "b-1")
	svc := newTestService(store, &scriptedVerifier{event: &payments.Event{
		Kind:        payments.EventSucceeded,
		BookingID:   "b-1",
		ProviderRef: "pi_1",
	}})

	if err := svc.HandleGatewayEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("HandleGatewayEvent: %v", err)
	}
	if store.bookings["b-1"].Status != booking.StatusConfirmed {
		t.Fatalf("got status %s", store.bookings["b-1"].Status)
	}
	if store.payments["b-1"] != booking.PaymentCompleted {
		t.Fatalf("got payment %s", store.payments["b-1"])
	}
	if len(store.events) != 1 || store.events[0].ToStatus != booking.StatusConfirmed {
		t.Fatalf("expected one CONFIRMED state event, got %v", store.events)
	}
}

func TestDuplicateSuccessDeliveryIsIdempotent(t *testing.T) {
	store := newRecordingStore()
	seedCompleted(store, "b-1")
	svc := newTestService(store, &scriptedVerifier{event: &payments.Event{
		Kind:      payments.EventSucceeded,
		BookingID: "b-1",
	}})
	ctx := context.Background()

	if err := svc.HandleGatewayEvent(ctx, []byte("{}"), "sig"); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := svc.HandleGatewayEvent(ctx, []byte("{}"), "sig"); err != nil {
		t.Fatalf("duplicate delivery: %v", err)
	}
	if store.bookings["b-1"].Status != booking.StatusConfirmed {
		t.Fatalf("got status %s", store.bookings["b-1"].Status)
	}
	// only the first delivery appends a state event
	if len(store.events) != 1 {
		t.Fatalf("got %d state events, want 1", len(store.events))
	}
}

func TestFailureMarksPaymentOnly(t *testing.T) {
	store := newRecordingStore()
	seedCompleted(store, "b-1")
	svc := newTestService(store, &scriptedVerifier{event: &payments.Event{
		Kind:      payments.EventFailed,
		BookingID: "b-1",
	}})

	if err := svc.HandleGatewayEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("HandleGatewayEvent: %v", err)
	}
	if store.payments["b-1"] != booking.PaymentFailed {
		t.Fatalf("got payment %s", store.payments["b-1"])
	}
	// the parking event happened; the booking keeps its terminal state
	if store.bookings["b-1"].Status != booking.StatusCompleted {
		t.Fatalf("got status %s", store.bookings["b-1"].Status)
	}
}

func TestEventWithoutBookingIDIsAcknowledged(t *testing.T) {
	store := newRecordingStore()
	seedCompleted(store, "b-1")
	svc := newTestService(store, &scriptedVerifier{event: &payments.Event{
		Kind:        payments.EventSucceeded,
		ProviderRef: "pi_unmatched",
	}})

	if err := svc.HandleGatewayEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("want ack, got %v", err)
	}
	if store.bookings["b-1"].Status != booking.StatusCompleted {
		t.Fatal("unrelated booking mutated")
	}
}

func TestIgnoredEventKindIsAcknowledged(t *testing.T) {
	store := newRecordingStore()
	svc := newTestService(store, &scriptedVerifier{event: &payments.Event{
		Kind: payments.EventIgnored,
	}})

	if err := svc.HandleGatewayEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("want ack, got %v", err)
	}
	if len(store.events) != 0 {
		t.Fatalf("expected no writes, got %v", store.events)
	}
}
