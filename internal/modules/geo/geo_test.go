package geo

import (
	"math"
	"testing"

	"spotly/internal/types"
)

func TestDistanceMeters_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.Point
		wantM     float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         types.Point{Lat: 59.9139, Lng: 10.7522},
			b:         types.Point{Lat: 59.9139, Lng: 10.7522},
			wantM:     0,
			tolerance: 0.001,
		},
		{
			name:      "Oslo Central Station to Royal Palace (~1.5km)",
			a:         types.Point{Lat: 59.9109, Lng: 10.7527},
			b:         types.Point{Lat: 59.9169, Lng: 10.7276},
			wantM:     1550,
			tolerance: 200,
		},
		{
			name:      "Oslo to Bergen (~305km)",
			a:         types.Point{Lat: 59.9139, Lng: 10.7522},
			b:         types.Point{Lat: 60.3913, Lng: 5.3221},
			wantM:     305000,
			tolerance: 5000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.a, tt.b)
			if math.Abs(got-tt.wantM) > tt.tolerance {
				t.Errorf("DistanceMeters() = %f, want %f (±%f)", got, tt.wantM, tt.tolerance)
			}
		})
	}
}

func TestDistanceMeters_Symmetry(t *testing.T) {
	a := types.Point{Lat: 59.0, Lng: 10.0}
	b := types.Point{Lat: 60.0, Lng: 11.0}
	d1 := DistanceMeters(a, b)
	d2 := DistanceMeters(b, a)
	if math.Abs(d1-d2) > 0.0001 {
		t.Errorf("distance is not symmetric: %f vs %f", d1, d2)
	}
}

func TestWithinRadius(t *testing.T) {
	spot := types.Point{Lat: 59.9139, Lng: 10.7522}

	// zero distance is inside any positive radius
	if !WithinRadius(spot, spot, 1) {
		t.Errorf("expected same point to be within 1m radius")
	}

	// ~70m offset in latitude (1 degree lat ≈ 111.2km)
	nearby := types.Point{Lat: spot.Lat + 0.00063, Lng: spot.Lng}
	if !WithinRadius(spot, nearby, 100) {
		t.Errorf("expected ~70m offset to be within 100m radius")
	}
	if WithinRadius(spot, nearby, 50) {
		t.Errorf("expected ~70m offset to be outside 50m radius")
	}
}
