// README: Parking spot aggregate.
package spot

import (
	"time"

	"spotly/internal/types"
)

// DefaultGeofenceRadiusM is used when a spot is registered without an
// explicit tolerance.
const DefaultGeofenceRadiusM = 50.0

type ParkingSpot struct {
	ID      types.ID
	OwnerID types.ID
	Address string
	// Coordinate is optional; a spot without one cannot pass a geofence
	// check.
	Coordinate      *types.Point
	GeofenceRadiusM float64
	PricePerMinute  *float64
	PricePerHour    *float64
	OnDemandEnabled bool
	CreatedAt       time.Time
}
