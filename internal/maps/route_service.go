// README: Google Maps directions client backing the quote engine.
package maps

import (
	"context"
	"fmt"
	"regexp"

	"googlemaps.github.io/maps"

	"rideline/internal/modules/quote"
)

// routeStatuses are provider answers meaning "no route", as opposed to a
// transport or credential problem.
var routeStatuses = map[string]bool{
	"ZERO_RESULTS":              true,
	"NOT_FOUND":                 true,
	"MAX_WAYPOINTS_EXCEEDED":    true,
	"MAX_ROUTE_LENGTH_EXCEEDED": true,
}

var statusPattern = regexp.MustCompile(`^maps: ([A-Z_]+) - `)

// DirectionsClient handles interactions with the Google Maps Directions and
// Geocoding APIs.
type DirectionsClient struct {
	client *maps.Client
}

func NewDirectionsClient(apiKey string, opts ...maps.ClientOption) (*DirectionsClient, error) {
	opts = append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &DirectionsClient{client: client}, nil
}

// Directions asks for a driving route departing now with live traffic.
// A "no route" status comes back as Route.Status with a nil error.
func (c *DirectionsClient) Directions(ctx context.Context, origin, destination string) (quote.Route, error) {
	r := &maps.DirectionsRequest{
		Origin:        origin,
		Destination:   destination,
		Mode:          maps.TravelModeDriving,
		DepartureTime: "now",
		TrafficModel:  maps.TrafficModelBestGuess,
	}

	routes, _, err := c.client.Directions(ctx, r)
	if err != nil {
		if status, ok := StatusFromError(err); ok && routeStatuses[status] {
			return quote.Route{Status: status}, nil
		}
		return quote.Route{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return quote.Route{Status: "ZERO_RESULTS"}, nil
	}

	out := quote.Route{Legs: make([]quote.Leg, 0, len(routes[0].Legs))}
	for _, leg := range routes[0].Legs {
		out.Legs = append(out.Legs, quote.Leg{
			DistanceMeters:    leg.Distance.Meters,
			Duration:          leg.Duration,
			DurationInTraffic: leg.DurationInTraffic,
		})
	}
	return out, nil
}

// StatusFromError extracts the API status from errors the maps client
// formats as "maps: STATUS - message".
func StatusFromError(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return "", false
	}
	return m[1], true
}
