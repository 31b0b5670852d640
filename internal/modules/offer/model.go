// README: Ride offer document, status values and the transition table.
package offer

import (
	"time"

	"rideline/internal/types"
)

type Status string

const (
	StatusRequested              Status = "requested"
	StatusScheduledRequested     Status = "scheduled_requested"
	StatusRequestedPendingDriver Status = "requested_pending_driver"
	StatusAccepted               Status = "accepted"
	StatusDeclined               Status = "declined"
	StatusInProgress             Status = "in_progress"
	StatusCompleted              Status = "completed"
	StatusCancelled              Status = "cancelled"
)

type Acceptance string

const (
	AcceptanceNone     Acceptance = ""
	AcceptanceAccepted Acceptance = "accepted"
	AcceptanceDeclined Acceptance = "declined"
)

// Offer mirrors one ride document. Field names follow the stored document
// so the Firestore and Postgres stores share them.
type Offer struct {
	ID                types.ID   `firestore:"-" json:"id"`
	Status            Status     `firestore:"status" json:"status"`
	DriverID          types.ID   `firestore:"driver_id" json:"driver_id"`
	DeclinedDriverIDs []types.ID `firestore:"declined_driver_ids" json:"declined_driver_ids"`
	DriverAcceptance  Acceptance `firestore:"driver_acceptance,omitempty" json:"driver_acceptance,omitempty"`
	RequestedAt       *time.Time `firestore:"requested_at,omitempty" json:"requested_at,omitempty"`
	AcceptedAt        *time.Time `firestore:"accepted_at,omitempty" json:"accepted_at,omitempty"`
	ProcessedAt       *time.Time `firestore:"processed_at,omitempty" json:"processed_at,omitempty"`
	StartedAt         *time.Time `firestore:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt       *time.Time `firestore:"completed_at,omitempty" json:"completed_at,omitempty"`
	CancelledAt       *time.Time `firestore:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	CancelReason      string     `firestore:"cancel_reason,omitempty" json:"cancel_reason,omitempty"`
}

// Event is one committed transition, kept for audit.
type Event struct {
	ID         int64
	RideID     types.ID
	FromStatus Status
	ToStatus   Status
	Operation  string
	DriverID   types.ID
	CreatedAt  time.Time
}

// AllowedTransitions represents the offer state flow as code. Anything not
// listed is rejected. "declined" is a legacy value with no outgoing edges.
var AllowedTransitions = map[Status][]Status{
	StatusRequested:              {StatusAccepted, StatusRequestedPendingDriver, StatusCancelled},
	StatusScheduledRequested:     {StatusAccepted, StatusRequestedPendingDriver, StatusCancelled},
	StatusRequestedPendingDriver: {StatusRequested, StatusCancelled},
	StatusAccepted:               {StatusInProgress, StatusCancelled},
	StatusInProgress:             {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// IsRequestedClass reports whether accept/decline are valid from s.
func IsRequestedClass(s Status) bool {
	return s == StatusRequested || s == StatusScheduledRequested
}

func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusScheduledRequested, StatusRequestedPendingDriver, StatusAccepted,
		StatusDeclined, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (o *Offer) HasDeclined(driverID types.ID) bool {
	for _, d := range o.DeclinedDriverIDs {
		if d == driverID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so transaction callbacks cannot alias stored state.
func (o *Offer) Clone() *Offer {
	cp := *o
	cp.DeclinedDriverIDs = append([]types.ID(nil), o.DeclinedDriverIDs...)
	cp.RequestedAt = cloneTime(o.RequestedAt)
	cp.AcceptedAt = cloneTime(o.AcceptedAt)
	cp.ProcessedAt = cloneTime(o.ProcessedAt)
	cp.StartedAt = cloneTime(o.StartedAt)
	cp.CompletedAt = cloneTime(o.CompletedAt)
	cp.CancelledAt = cloneTime(o.CancelledAt)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
