// README: Google Maps geocoder adapter.
package spot

import (
	"context"
	"errors"

	"googlemaps.github.io/maps"

	"spotly/internal/types"
)

type MapsGeocoder struct {
	client *maps.Client
}

func NewMapsGeocoder(client *maps.Client) *MapsGeocoder {
	return &MapsGeocoder{client: client}
}

func (g *MapsGeocoder) Geocode(ctx context.Context, address string) (*types.Point, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, errors.New("no geocoding result for address")
	}
	loc := results[0].Geometry.Location
	return &types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}
