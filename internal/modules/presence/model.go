// README: Driver presence types and errors.
package presence

import (
	"errors"
	"time"

	"rideline/internal/types"
)

var (
	ErrBadRequest       = errors.New("bad request")
	ErrDriverNotFound   = errors.New("driver not found")
	ErrPermissionDenied = errors.New("location permission not granted")
	ErrSessionClosed    = errors.New("presence session closed")
)

// DriverLocation is one document per driver, written only from that
// driver's own session.
type DriverLocation struct {
	DriverID    types.ID   `firestore:"-" json:"driver_id"`
	Latitude    float64    `firestore:"latitude" json:"latitude"`
	Longitude   float64    `firestore:"longitude" json:"longitude"`
	Status      bool       `firestore:"status" json:"status"`
	LastOnline  *time.Time `firestore:"last_online,omitempty" json:"last_online,omitempty"`
	LastOffline *time.Time `firestore:"last_offline,omitempty" json:"last_offline,omitempty"`
}

// LocationEvent is published for every accepted position update.
type LocationEvent struct {
	DriverID types.ID  `json:"driver_id"`
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	Online   bool      `json:"online"`
	At       time.Time `json:"at"`
}

func validPoint(p types.Point) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
