// README: Spot service tests.
package spot

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"spotly/internal/types"
)

type memStore struct {
	spots map[types.ID]*ParkingSpot
}

func newMemStore() *memStore {
	return &memStore{spots: make(map[types.ID]*ParkingSpot)}
}

func (m *memStore) Create(_ context.Context, sp *ParkingSpot) error {
	cp := *sp
	m.spots[sp.ID] = &cp
	return nil
}

func (m *memStore) Get(_ context.Context, id types.ID) (*ParkingSpot, error) {
	sp, ok := m.spots[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sp
	return &cp, nil
}

func (m *memStore) ListByOwner(_ context.Context, ownerID types.ID) ([]*ParkingSpot, error) {
	var out []*ParkingSpot
	for _, sp := range m.spots {
		if sp.OwnerID == ownerID {
			cp := *sp
			out = append(out, &cp)
		}
	}
	return out, nil
}

type scriptedGeocoder struct {
	point *types.Point
	err   error
	calls int
}

func (g *scriptedGeocoder) Geocode(context.Context, string) (*types.Point, error) {
	g.calls++
	return g.point, g.err
}

func TestRegisterUsesDefaultRadius(t *testing.T) {
	svc := NewService(newMemStore(), nil, 0, zap.NewNop())

	rate := 0.5
	sp, err := svc.Register(context.Background(), RegisterCommand{
		OwnerID:         "owner-1",
		Address:         "Storgata 1, Oslo",
		Coordinate:      &types.Point{Lat: 59.9139, Lng: 10.7522},
		PricePerMinute:  &rate,
		OnDemandEnabled: true,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if sp.GeofenceRadiusM != DefaultGeofenceRadiusM {
		t.Fatalf("got radius %v, want %v", sp.GeofenceRadiusM, DefaultGeofenceRadiusM)
	}
	if sp.ID == "" {
		t.Fatal("missing id")
	}
}

func TestRegisterGeocodesMissingCoordinate(t *testing.T) {
	geo := &scriptedGeocoder{point: &types.Point{Lat: 59.9139, Lng: 10.7522}}
	svc := NewService(newMemStore(), geo, 50, zap.NewNop())

	sp, err := svc.Register(context.Background(), RegisterCommand{
		OwnerID: "owner-1",
		Address: "Storgata 1, Oslo",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if geo.calls != 1 {
		t.Fatalf("geocoder called %d times", geo.calls)
	}
	if sp.Coordinate == nil || sp.Coordinate.Lat != 59.9139 {
		t.Fatalf("got coordinate %+v", sp.Coordinate)
	}
}

func TestRegisterSurvivesGeocodeFailure(t *testing.T) {
	geo := &scriptedGeocoder{err: errors.New("quota exceeded")}
	svc := NewService(newMemStore(), geo, 50, zap.NewNop())

	sp, err := svc.Register(context.Background(), RegisterCommand{
		OwnerID: "owner-1",
		Address: "Storgata 1, Oslo",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if sp.Coordinate != nil {
		t.Fatalf("got coordinate %+v, want nil", sp.Coordinate)
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	svc := NewService(newMemStore(), nil, 50, zap.NewNop())

	if _, err := svc.Register(context.Background(), RegisterCommand{Address: "x"}); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("missing owner: want ErrBadRequest, got %v", err)
	}
	if _, err := svc.Register(context.Background(), RegisterCommand{OwnerID: "o"}); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("missing address: want ErrBadRequest, got %v", err)
	}
}
