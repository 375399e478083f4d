// README: Booking store backed by PostgreSQL; the partial unique index on
// active on-demand sessions is the mutual-exclusion authority.
package booking

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"spotly/internal/types"
)

// activeSessionIndex is the partial unique index enforcing at most one
// STARTED on-demand booking per spot (see migrations/0001_init.sql).
const activeSessionIndex = "uniq_active_on_demand_per_spot"

const uniqueViolation = "23505"

type Store interface {
	// CreateStarted atomically inserts a STARTED on-demand booking. A
	// concurrent active session on the same spot surfaces as
	// ErrSpotOccupied, never as a lost update.
	CreateStarted(ctx context.Context, b *Booking) error
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id types.ID) (*Booking, error)
	HasActiveBySpot(ctx context.Context, spotID types.ID) (bool, error)
	// Complete performs the conditional STARTED→COMPLETED update; it
	// reports false when the booking already advanced.
	Complete(ctx context.Context, id types.ID, end time.Time, minutes int, total types.Money) (bool, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status) (bool, error)
	CreatePayment(ctx context.Context, p *Payment) error
	GetPaymentByBooking(ctx context.Context, bookingID types.ID) (*Payment, error)
	UpdatePaymentStatus(ctx context.Context, bookingID types.ID, status PaymentStatus) (bool, error)
	AppendEvent(ctx context.Context, e *StateEvent) error
}

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateStarted(ctx context.Context, b *Booking) error {
	err := s.insert(ctx, b)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == activeSessionIndex {
		return ErrSpotOccupied
	}
	return err
}

func (s *PostgresStore) Create(ctx context.Context, b *Booking) error {
	return s.insert(ctx, b)
}

func (s *PostgresStore) insert(ctx context.Context, b *Booking) error {
	var startLat, startLng *float64
	if b.StartCoordinate != nil {
		startLat, startLng = &b.StartCoordinate.Lat, &b.StartCoordinate.Lng
	}
	var totalMinor *int64
	currency := ""
	if b.TotalPrice != nil {
		totalMinor = &b.TotalPrice.Amount
		currency = b.TotalPrice.Currency
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO bookings (
			id, spot_id, renter_id, booking_type, status,
			scheduled_start, scheduled_end, actual_start, actual_end,
			plate_number, start_lat, start_lng,
			duration_minutes, total_price, currency, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12,
			$13, $14, $15, $16
		)`,
		string(b.ID),
		string(b.SpotID),
		string(b.RenterID),
		string(b.Type),
		string(b.Status),
		b.ScheduledStart, b.ScheduledEnd, b.ActualStart, b.ActualEnd,
		b.PlateNumber,
		startLat, startLng,
		b.DurationMinutes,
		totalMinor,
		currency,
		b.CreatedAt,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*Booking, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, spot_id, renter_id, booking_type, status,
		       scheduled_start, scheduled_end, actual_start, actual_end,
		       plate_number, start_lat, start_lng,
		       duration_minutes, total_price, currency, created_at
		FROM bookings
		WHERE id = $1`, string(id),
	)

	var b Booking
	var scheduledStart, scheduledEnd, actualStart, actualEnd sql.NullTime
	var startLat, startLng sql.NullFloat64
	var totalMinor sql.NullInt64
	var currency sql.NullString

	err := row.Scan(
		&b.ID, &b.SpotID, &b.RenterID, &b.Type, &b.Status,
		&scheduledStart, &scheduledEnd, &actualStart, &actualEnd,
		&b.PlateNumber, &startLat, &startLng,
		&b.DurationMinutes, &totalMinor, &currency, &b.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	b.ScheduledStart = toTimePtr(scheduledStart)
	b.ScheduledEnd = toTimePtr(scheduledEnd)
	b.ActualStart = toTimePtr(actualStart)
	b.ActualEnd = toTimePtr(actualEnd)
	if startLat.Valid && startLng.Valid {
		b.StartCoordinate = &types.Point{Lat: startLat.Float64, Lng: startLng.Float64}
	}
	if totalMinor.Valid {
		b.TotalPrice = &types.Money{Amount: totalMinor.Int64, Currency: currency.String}
	}
	return &b, nil
}

func (s *PostgresStore) HasActiveBySpot(ctx context.Context, spotID types.ID) (bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE spot_id = $1
			  AND booking_type = 'ON_DEMAND'
			  AND status = 'STARTED'
		)`, string(spotID),
	)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PostgresStore) Complete(ctx context.Context, id types.ID, end time.Time, minutes int, total types.Money) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = 'COMPLETED',
		    actual_end = $2,
		    duration_minutes = $3,
		    total_price = $4,
		    currency = $5
		WHERE id = $1 AND booking_type = 'ON_DEMAND' AND status = 'STARTED'`,
		string(id), end, minutes, total.Amount, total.Currency,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = $3
		WHERE id = $1 AND status = $2`,
		string(id), string(from), string(to),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) CreatePayment(ctx context.Context, p *Payment) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO payments (
			id, booking_id, amount, currency, provider_ref, client_secret,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(p.ID),
		string(p.BookingID),
		p.Amount.Amount,
		p.Amount.Currency,
		p.ProviderRef,
		p.ClientSecret,
		string(p.Status),
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) GetPaymentByBooking(ctx context.Context, bookingID types.ID) (*Payment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, booking_id, amount, currency, provider_ref, client_secret,
		       status, created_at, updated_at
		FROM payments
		WHERE booking_id = $1`, string(bookingID),
	)

	var p Payment
	err := row.Scan(
		&p.ID, &p.BookingID, &p.Amount.Amount, &p.Amount.Currency,
		&p.ProviderRef, &p.ClientSecret, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) UpdatePaymentStatus(ctx context.Context, bookingID types.ID, status PaymentStatus) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE payments
		SET status = $2, updated_at = NOW()
		WHERE booking_id = $1`,
		string(bookingID), string(status),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) AppendEvent(ctx context.Context, e *StateEvent) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO booking_state_events (
			booking_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.BookingID),
		string(e.FromStatus),
		string(e.ToStatus),
		e.ActorType,
		toStringPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
