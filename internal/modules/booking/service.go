// README: Booking service; on-demand admission and session lifecycle plus
// advance reservations.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"spotly/internal/events"
	"spotly/internal/modules/geo"
	"spotly/internal/modules/pricing"
	"spotly/internal/modules/spot"
	"spotly/internal/payments"
	"spotly/internal/types"
)

var (
	ErrNotFound            = errors.New("booking not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrBadRequest          = errors.New("bad request")
	ErrInvalidState        = errors.New("operation not valid for booking state")
	ErrSpotOccupied        = errors.New("spot already has an active session")
	ErrOnDemandUnsupported = errors.New("spot does not support on-demand sessions")
	ErrNoSpotCoordinate    = errors.New("spot has no coordinate for geofence check")
	ErrOutOfRange          = errors.New("coordinate outside spot geofence")
)

// SpotReader is the read-only slice of the spot module the booking service
// needs.
type SpotReader interface {
	Get(ctx context.Context, id types.ID) (*spot.ParkingSpot, error)
}

type Service struct {
	store      Store
	spots      SpotReader
	gateway    payments.Gateway // nil when no provider is configured
	publisher  *events.Publisher
	feePercent float64
	log        *zap.Logger
	now        func() time.Time
}

func NewService(store Store, spots SpotReader, gateway payments.Gateway, publisher *events.Publisher, feePercent float64, log *zap.Logger) *Service {
	return &Service{
		store:      store,
		spots:      spots,
		gateway:    gateway,
		publisher:  publisher,
		feePercent: feePercent,
		log:        log.With(zap.String("service", "booking")),
		now:        time.Now,
	}
}

type PrepareCommand struct {
	SpotID          types.ID
	RenterID        types.ID
	Coordinate      types.Point
	RequireGeofence bool
}

// PrepareResult is the dry-run admission decision. It never reflects a
// write; Start re-runs the same checks with the conditional insert as the
// final authority.
type PrepareResult struct {
	Spot              *spot.ParkingSpot
	RatePerMinute     float64
	OnDemandSupported bool
	GeofenceVerified  bool
	SpotAvailable     bool
	CanStart          bool
	Reason            string
}

func (s *Service) Prepare(ctx context.Context, cmd PrepareCommand) (*PrepareResult, error) {
	if cmd.SpotID == "" || cmd.RenterID == "" {
		return nil, ErrBadRequest
	}
	sp, err := s.spots.Get(ctx, cmd.SpotID)
	if err != nil {
		return nil, err
	}

	res := &PrepareResult{
		Spot:              sp,
		RatePerMinute:     pricing.PerMinuteRate(sp.PricePerMinute, sp.PricePerHour),
		OnDemandSupported: sp.OnDemandEnabled,
	}

	if err := verifyGeofence(sp, cmd.Coordinate, cmd.RequireGeofence); err != nil {
		res.Reason = err.Error()
	} else {
		res.GeofenceVerified = true
	}

	active, err := s.store.HasActiveBySpot(ctx, cmd.SpotID)
	if err != nil {
		return nil, err
	}
	res.SpotAvailable = !active

	res.CanStart = res.OnDemandSupported && res.GeofenceVerified && res.SpotAvailable
	if res.Reason == "" && !res.CanStart {
		switch {
		case !res.OnDemandSupported:
			res.Reason = ErrOnDemandUnsupported.Error()
		case !res.SpotAvailable:
			res.Reason = ErrSpotOccupied.Error()
		}
	}
	return res, nil
}

type StartCommand struct {
	SpotID          types.ID
	RenterID        types.ID
	PlateNumber     string
	Coordinate      types.Point
	RequireGeofence bool
}

// Start admits an on-demand session and creates the STARTED booking. The
// pre-insert availability read only fails fast; two racing starts are
// decided by the unique index inside CreateStarted.
func (s *Service) Start(ctx context.Context, cmd StartCommand) (*Booking, error) {
	if cmd.SpotID == "" || cmd.RenterID == "" || cmd.PlateNumber == "" {
		return nil, ErrBadRequest
	}
	sp, err := s.spots.Get(ctx, cmd.SpotID)
	if err != nil {
		return nil, err
	}
	if !sp.OnDemandEnabled {
		return nil, ErrOnDemandUnsupported
	}
	if err := verifyGeofence(sp, cmd.Coordinate, cmd.RequireGeofence); err != nil {
		return nil, err
	}
	active, err := s.store.HasActiveBySpot(ctx, cmd.SpotID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrSpotOccupied
	}

	now := s.now()
	coord := cmd.Coordinate
	b := &Booking{
		ID:              types.ID(uuid.NewString()),
		SpotID:          cmd.SpotID,
		RenterID:        cmd.RenterID,
		Type:            TypeOnDemand,
		Status:          StatusStarted,
		ActualStart:     &now,
		PlateNumber:     cmd.PlateNumber,
		StartCoordinate: &coord,
		CreatedAt:       now,
	}
	if err := s.store.CreateStarted(ctx, b); err != nil {
		return nil, err
	}

	_ = s.store.AppendEvent(ctx, &StateEvent{
		BookingID:  b.ID,
		FromStatus: "",
		ToStatus:   StatusStarted,
		ActorType:  "renter",
		ActorID:    &cmd.RenterID,
		CreatedAt:  now,
	})
	s.publish(ctx, events.KeyBookingStarted, b)

	s.log.Info("session started",
		zap.String("booking_id", string(b.ID)),
		zap.String("spot_id", string(b.SpotID)),
		zap.String("renter_id", string(b.RenterID)),
	)
	return b, nil
}

type StopCommand struct {
	BookingID types.ID
	CallerID  types.ID
}

// StopResult carries the completed booking and, when settlement started,
// the client-usable payment handle.
type StopResult struct {
	Booking       *Booking
	Payment       *Payment
	Authorization *payments.Authorization
}

// Stop meters the session, writes the COMPLETED state, and requests a
// payment authorization. A gateway failure after the COMPLETED write is
// surfaced without rolling the booking back — the parking event happened;
// the missing Payment row is the operator's retry signal.
func (s *Service) Stop(ctx context.Context, cmd StopCommand) (*StopResult, error) {
	if cmd.BookingID == "" || cmd.CallerID == "" {
		return nil, ErrBadRequest
	}
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if b.RenterID != cmd.CallerID {
		return nil, ErrInvalidState
	}
	if b.Type != TypeOnDemand || b.Status != StatusStarted || b.ActualStart == nil {
		return nil, ErrInvalidState
	}

	sp, err := s.spots.Get(ctx, b.SpotID)
	if err != nil {
		return nil, err
	}
	rate := pricing.PerMinuteRate(sp.PricePerMinute, sp.PricePerHour)

	now := s.now()
	minutes, parking := pricing.Charge(rate, *b.ActualStart, now)
	fee := pricing.ServiceFee(parking, s.feePercent)
	total := pricing.Add(parking, fee)

	ok, err := s.store.Complete(ctx, b.ID, now, minutes, total)
	if err != nil {
		return nil, err
	}
	if !ok {
		// a concurrent stop already advanced the row
		return nil, ErrInvalidState
	}

	b.Status = StatusCompleted
	b.ActualEnd = &now
	b.DurationMinutes = minutes
	b.TotalPrice = &total

	_ = s.store.AppendEvent(ctx, &StateEvent{
		BookingID:  b.ID,
		FromStatus: StatusStarted,
		ToStatus:   StatusCompleted,
		ActorType:  "renter",
		ActorID:    &cmd.CallerID,
		CreatedAt:  now,
	})
	s.publish(ctx, events.KeyBookingCompleted, b)

	res := &StopResult{Booking: b}
	if total.IsZero() || s.gateway == nil {
		// degraded-but-valid terminal state: COMPLETED with no payment
		s.log.Info("session completed without settlement",
			zap.String("booking_id", string(b.ID)),
			zap.Int64("total_minor", total.Amount),
			zap.Bool("gateway_configured", s.gateway != nil),
		)
		return res, nil
	}

	auth, err := s.gateway.Authorize(ctx, total, b.ID)
	if err != nil {
		s.log.Error("payment authorization failed",
			zap.String("booking_id", string(b.ID)),
			zap.String("renter_id", string(b.RenterID)),
			zap.Error(err),
		)
		return res, fmt.Errorf("authorize booking %s: %w", b.ID, err)
	}

	p := &Payment{
		ID:           types.ID(uuid.NewString()),
		BookingID:    b.ID,
		Amount:       total,
		ProviderRef:  auth.ProviderRef,
		ClientSecret: auth.ClientSecret,
		Status:       PaymentPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreatePayment(ctx, p); err != nil {
		s.log.Error("payment row creation failed after authorization",
			zap.String("booking_id", string(b.ID)),
			zap.String("provider_ref", auth.ProviderRef),
			zap.Error(err),
		)
		return res, fmt.Errorf("record payment for booking %s: %w", b.ID, err)
	}

	s.log.Info("session stopped",
		zap.String("booking_id", string(b.ID)),
		zap.Int("duration_minutes", minutes),
		zap.Int64("total_minor", total.Amount),
	)
	res.Payment = p
	res.Authorization = auth
	return res, nil
}

type Summary struct {
	BookingID       types.ID
	Status          Status
	DurationMinutes int
	DurationSeconds int
	ParkingPrice    types.Money
	ServiceFee      types.Money
	Total           types.Money
	PaymentStatus   string
}

// GetSummary reports the duration and price breakdown. On an open session
// it returns a running estimate computed at read time.
func (s *Service) GetSummary(ctx context.Context, bookingID, callerID types.ID) (*Summary, error) {
	b, err := s.store.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.RenterID != callerID {
		return nil, ErrInvalidState
	}
	if b.Type != TypeOnDemand || b.ActualStart == nil {
		return nil, ErrInvalidState
	}

	sp, err := s.spots.Get(ctx, b.SpotID)
	if err != nil {
		return nil, err
	}
	rate := pricing.PerMinuteRate(sp.PricePerMinute, sp.PricePerHour)

	sum := &Summary{BookingID: b.ID, Status: b.Status, PaymentStatus: "NONE"}

	end := s.now()
	minutes := b.DurationMinutes
	var parking types.Money
	if b.Status == StatusStarted {
		minutes, parking = pricing.Estimate(rate, *b.ActualStart, end)
	} else {
		if b.ActualEnd != nil {
			end = *b.ActualEnd
		}
		parking = pricing.ForMinutes(rate, minutes)
	}
	fee := pricing.ServiceFee(parking, s.feePercent)

	sum.DurationMinutes = minutes
	sum.DurationSeconds = int(end.Sub(*b.ActualStart).Seconds())
	sum.ParkingPrice = parking
	sum.ServiceFee = fee
	sum.Total = pricing.Add(parking, fee)
	if b.TotalPrice != nil {
		// the stored charge is authoritative once the session is closed
		sum.Total = *b.TotalPrice
	}

	if p, err := s.store.GetPaymentByBooking(ctx, b.ID); err == nil {
		sum.PaymentStatus = string(p.Status)
	} else if !errors.Is(err, ErrPaymentNotFound) {
		return nil, err
	}
	return sum, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Booking, error) {
	return s.store.Get(ctx, id)
}

type ReserveCommand struct {
	SpotID      types.ID
	RenterID    types.ID
	Start       time.Time
	End         time.Time
	PlateNumber string
}

// Reserve creates a PENDING advance booking for a scheduled interval.
// Calendar conflict resolution lives with the (external) scheduling flow.
func (s *Service) Reserve(ctx context.Context, cmd ReserveCommand) (*Booking, error) {
	if cmd.SpotID == "" || cmd.RenterID == "" {
		return nil, ErrBadRequest
	}
	if !cmd.End.After(cmd.Start) || cmd.Start.Before(s.now()) {
		return nil, ErrBadRequest
	}
	if _, err := s.spots.Get(ctx, cmd.SpotID); err != nil {
		return nil, err
	}

	now := s.now()
	b := &Booking{
		ID:             types.ID(uuid.NewString()),
		SpotID:         cmd.SpotID,
		RenterID:       cmd.RenterID,
		Type:           TypeAdvance,
		Status:         StatusPending,
		ScheduledStart: &cmd.Start,
		ScheduledEnd:   &cmd.End,
		PlateNumber:    cmd.PlateNumber,
		CreatedAt:      now,
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, err
	}
	_ = s.store.AppendEvent(ctx, &StateEvent{
		BookingID:  b.ID,
		FromStatus: "",
		ToStatus:   StatusPending,
		ActorType:  "renter",
		ActorID:    &cmd.RenterID,
		CreatedAt:  now,
	})
	return b, nil
}

type CancelCommand struct {
	BookingID types.ID
	CallerID  types.ID
}

// Cancel cancels an advance booking before its scheduled start.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*Booking, error) {
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if b.RenterID != cmd.CallerID || b.Type != TypeAdvance {
		return nil, ErrInvalidState
	}
	if !CanTransition(b.Status, StatusCancelled) {
		return nil, ErrInvalidState
	}
	if b.ScheduledStart != nil && s.now().After(*b.ScheduledStart) {
		return nil, ErrInvalidState
	}

	ok, err := s.store.UpdateStatus(ctx, b.ID, b.Status, StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}
	from := b.Status
	b.Status = StatusCancelled
	_ = s.store.AppendEvent(ctx, &StateEvent{
		BookingID:  b.ID,
		FromStatus: from,
		ToStatus:   StatusCancelled,
		ActorType:  "renter",
		ActorID:    &cmd.CallerID,
		CreatedAt:  s.now(),
	})
	return b, nil
}

// verifyGeofence applies the presence check. With requireGeofence false the
// check passes vacuously.
func verifyGeofence(sp *spot.ParkingSpot, coord types.Point, requireGeofence bool) error {
	if !requireGeofence {
		return nil
	}
	if sp.Coordinate == nil {
		return ErrNoSpotCoordinate
	}
	if !geo.WithinRadius(*sp.Coordinate, coord, sp.GeofenceRadiusM) {
		return ErrOutOfRange
	}
	return nil
}

func (s *Service) publish(ctx context.Context, key string, b *Booking) {
	data := events.BookingEvent{
		BookingID: b.ID,
		SpotID:    b.SpotID,
		RenterID:  b.RenterID,
		Status:    string(b.Status),
	}
	if b.TotalPrice != nil {
		data.Amount = b.TotalPrice.Amount
		data.Currency = b.TotalPrice.Currency
	}
	if err := s.publisher.Publish(ctx, key, data); err != nil {
		s.log.Warn("event publish failed",
			zap.String("booking_id", string(b.ID)),
			zap.String("event", key),
			zap.Error(err),
		)
	}
}
