// README: Quote module types: endpoints, provider contract, results and failures.
package quote

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrBadRequest = errors.New("bad request")

const (
	TrafficModelBestGuess = "best_guess"
	TrafficModelNone      = "none"
)

// Location is one trip endpoint. When more than one form is set the place
// reference wins, then the address, then coordinates.
type Location struct {
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	Address string   `json:"address,omitempty"`
	PlaceID string   `json:"placeId,omitempty"`
}

func Coords(lat, lng float64) Location {
	return Location{Lat: &lat, Lng: &lng}
}

func (l Location) hasCoords() bool { return l.Lat != nil && l.Lng != nil }

func (l Location) Validate() error {
	if l.PlaceID != "" || l.Address != "" {
		return nil
	}
	if !l.hasCoords() {
		return fmt.Errorf("%w: location needs placeId, address or lat/lng", ErrBadRequest)
	}
	if *l.Lat < -90 || *l.Lat > 90 || *l.Lng < -180 || *l.Lng > 180 {
		return fmt.Errorf("%w: coordinates out of range", ErrBadRequest)
	}
	return nil
}

// Format renders the location the way the directions provider accepts it.
func (l Location) Format() string {
	switch {
	case l.PlaceID != "":
		return "place_id:" + l.PlaceID
	case l.Address != "":
		return l.Address
	case l.hasCoords():
		return strconv.FormatFloat(*l.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(*l.Lng, 'f', -1, 64)
	}
	return ""
}

// Leg is one origin to destination segment. DurationInTraffic is zero when
// the provider returned no live traffic estimate.
type Leg struct {
	DistanceMeters    int
	Duration          time.Duration
	DurationInTraffic time.Duration
}

// Route is a provider answer. Status carries the provider status when no
// route was found (ZERO_RESULTS, NOT_FOUND, ...).
type Route struct {
	Legs   []Leg
	Status string
}

// Provider is the directions and geocoding backend.
type Provider interface {
	Directions(ctx context.Context, origin, destination string) (Route, error)
	// Geocode resolves an address to a place id.
	Geocode(ctx context.Context, address string) (string, error)
}

type Quote struct {
	Origin        Location  `json:"origin"`
	Destination   Location  `json:"destination"`
	DistanceMiles float64   `json:"distanceMiles"`
	DriveMinutes  int       `json:"driveMin"`
	ComputedAt    time.Time `json:"computedAt"`
	TrafficModel  string    `json:"trafficModel"`
}

// Failure means the provider could not produce a route. Reason is the
// provider status or a short cause.
type Failure struct {
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return "quote unavailable: " + f.Reason + ": " + f.Err.Error()
	}
	return "quote unavailable: " + f.Reason
}

func (f *Failure) Unwrap() error { return f.Err }
