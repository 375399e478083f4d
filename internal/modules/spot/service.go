// README: Spot registration and lookup; geocodes addresses when needed.
package spot

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"spotly/internal/types"
)

var (
	ErrNotFound   = errors.New("spot not found")
	ErrBadRequest = errors.New("bad request")
)

// Geocoder resolves a street address to a coordinate. Nil when no maps API
// key is configured.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*types.Point, error)
}

type Service struct {
	store         Store
	geocoder      Geocoder
	defaultRadius float64
	log           *zap.Logger
}

func NewService(store Store, geocoder Geocoder, defaultRadiusM float64, log *zap.Logger) *Service {
	if defaultRadiusM <= 0 {
		defaultRadiusM = DefaultGeofenceRadiusM
	}
	return &Service{
		store:         store,
		geocoder:      geocoder,
		defaultRadius: defaultRadiusM,
		log:           log.With(zap.String("service", "spot")),
	}
}

type RegisterCommand struct {
	OwnerID         types.ID
	Address         string
	Coordinate      *types.Point
	GeofenceRadiusM float64
	PricePerMinute  *float64
	PricePerHour    *float64
	OnDemandEnabled bool
}

func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*ParkingSpot, error) {
	if cmd.OwnerID == "" || cmd.Address == "" {
		return nil, ErrBadRequest
	}

	coordinate := cmd.Coordinate
	if coordinate == nil && s.geocoder != nil {
		p, err := s.geocoder.Geocode(ctx, cmd.Address)
		if err != nil {
			// The spot is still usable without a coordinate; on-demand
			// geofencing just stays unavailable until the owner sets one.
			s.log.Warn("geocode failed",
				zap.String("owner_id", string(cmd.OwnerID)),
				zap.Error(err),
			)
		} else {
			coordinate = p
		}
	}

	radius := cmd.GeofenceRadiusM
	if radius <= 0 {
		radius = s.defaultRadius
	}

	sp := &ParkingSpot{
		ID:              types.ID(uuid.NewString()),
		OwnerID:         cmd.OwnerID,
		Address:         cmd.Address,
		Coordinate:      coordinate,
		GeofenceRadiusM: radius,
		PricePerMinute:  cmd.PricePerMinute,
		PricePerHour:    cmd.PricePerHour,
		OnDemandEnabled: cmd.OnDemandEnabled,
		CreatedAt:       time.Now(),
	}
	if err := s.store.Create(ctx, sp); err != nil {
		return nil, err
	}

	s.log.Info("spot registered",
		zap.String("spot_id", string(sp.ID)),
		zap.String("owner_id", string(sp.OwnerID)),
		zap.Bool("has_coordinate", sp.Coordinate != nil),
		zap.Bool("on_demand", sp.OnDemandEnabled),
	)
	return sp, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*ParkingSpot, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, ownerID types.ID) ([]*ParkingSpot, error) {
	return s.store.ListByOwner(ctx, ownerID)
}
