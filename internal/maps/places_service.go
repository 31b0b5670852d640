// README: Geocoding lookups turning free-text addresses into place ids.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// Geocode returns the place id of the best match for address, or "" when
// the provider found nothing.
func (c *DirectionsClient) Geocode(ctx context.Context, address string) (string, error) {
	results, err := c.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		if status, ok := StatusFromError(err); ok && status == "ZERO_RESULTS" {
			return "", nil
		}
		return "", fmt.Errorf("geocoding api error: %w", err)
	}
	for _, r := range results {
		if r.PlaceID != "" {
			return r.PlaceID, nil
		}
	}
	return "", nil
}
