// README: Spot store backed by PostgreSQL.
package spot

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"spotly/internal/types"
)

type Store interface {
	Create(ctx context.Context, s *ParkingSpot) error
	Get(ctx context.Context, id types.ID) (*ParkingSpot, error)
	ListByOwner(ctx context.Context, ownerID types.ID) ([]*ParkingSpot, error)
}

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, sp *ParkingSpot) error {
	var lat, lng *float64
	if sp.Coordinate != nil {
		lat, lng = &sp.Coordinate.Lat, &sp.Coordinate.Lng
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO spots (
			id, owner_id, address, lat, lng, geofence_radius_m,
			price_per_minute, price_per_hour, on_demand_enabled, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		string(sp.ID),
		string(sp.OwnerID),
		sp.Address,
		lat, lng,
		sp.GeofenceRadiusM,
		sp.PricePerMinute,
		sp.PricePerHour,
		sp.OnDemandEnabled,
		sp.CreatedAt,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*ParkingSpot, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, owner_id, address, lat, lng, geofence_radius_m,
		       price_per_minute, price_per_hour, on_demand_enabled, created_at
		FROM spots
		WHERE id = $1`, string(id),
	)
	sp, err := scanSpot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sp, err
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID types.ID) ([]*ParkingSpot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, owner_id, address, lat, lng, geofence_radius_m,
		       price_per_minute, price_per_hour, on_demand_enabled, created_at
		FROM spots
		WHERE owner_id = $1
		ORDER BY created_at`, string(ownerID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ParkingSpot
	for rows.Next() {
		sp, err := scanSpot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func scanSpot(row pgx.Row) (*ParkingSpot, error) {
	var sp ParkingSpot
	var lat, lng sql.NullFloat64
	var perMinute, perHour sql.NullFloat64

	err := row.Scan(
		&sp.ID, &sp.OwnerID, &sp.Address, &lat, &lng, &sp.GeofenceRadiusM,
		&perMinute, &perHour, &sp.OnDemandEnabled, &sp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid {
		sp.Coordinate = &types.Point{Lat: lat.Float64, Lng: lng.Float64}
	}
	if perMinute.Valid {
		v := perMinute.Float64
		sp.PricePerMinute = &v
	}
	if perHour.Valid {
		v := perHour.Float64
		sp.PricePerHour = &v
	}
	return &sp, nil
}
