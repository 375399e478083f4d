// README: Booking aggregate, payment record, and status definitions.
package booking

import (
	"time"

	"spotly/internal/types"
)

type Type string

const (
	TypeAdvance  Type = "ADVANCE"
	TypeOnDemand Type = "ON_DEMAND"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusStarted   Status = "STARTED"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Booking is never deleted; it stays behind as the audit record of the
// parking event.
type Booking struct {
	ID       types.ID
	SpotID   types.ID
	RenterID types.ID
	Type     Type
	Status   Status

	// ADVANCE bookings carry the reserved interval.
	ScheduledStart *time.Time
	ScheduledEnd   *time.Time

	// ON_DEMAND sessions carry the metered interval.
	ActualStart *time.Time
	ActualEnd   *time.Time

	PlateNumber     string
	StartCoordinate *types.Point
	DurationMinutes int
	TotalPrice      *types.Money
	CreatedAt       time.Time
}

type Payment struct {
	ID           types.ID
	BookingID    types.ID
	Amount       types.Money
	ProviderRef  string
	ClientSecret string
	Status       PaymentStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type StateEvent struct {
	ID         int64
	BookingID  types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the booking state flow as code. ADVANCE
// moves PENDING→CONFIRMED→CANCELLED; ON_DEMAND moves STARTED→COMPLETED and
// settles to CONFIRMED. A failed settlement marks only the Payment FAILED —
// the parking event happened, so COMPLETED is never rolled back.
var AllowedTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
	StatusStarted:   {StatusCompleted},
	StatusCompleted: {StatusConfirmed},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
