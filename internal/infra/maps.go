// README: Google Maps client for geocoding spot addresses.
package infra

import "googlemaps.github.io/maps"

func NewMaps(apiKey string) (*maps.Client, error) {
	return maps.NewClient(maps.WithAPIKey(apiKey))
}
