// README: Offer repository contract, field diffing and the in-memory implementation.
package offer

import (
	"context"
	"sync"
	"time"

	"rideline/internal/types"
)

// Repository is the durable home of ride documents. Transact must run fn
// inside one indivisible read-check-write on the single document: fn sees
// the current state, mutates it in place, and any error it returns aborts
// the write entirely.
type Repository interface {
	Get(ctx context.Context, id types.ID) (*Offer, error)
	Transact(ctx context.Context, id types.ID, fn func(o *Offer) error) (*Offer, error)
}

// EventLog records committed transitions. Optional.
type EventLog interface {
	AppendEvent(ctx context.Context, e *Event) error
}

// FieldChange is a single document field to merge on commit.
type FieldChange struct {
	Field string
	Value any
}

// Changes lists the scalar fields that differ between before and after,
// plus driver ids newly added to declined_driver_ids. Stores that support
// merge updates write only these.
func Changes(before, after *Offer) ([]FieldChange, []types.ID) {
	var out []FieldChange
	if before.Status != after.Status {
		out = append(out, FieldChange{Field: "status", Value: string(after.Status)})
	}
	if before.DriverID != after.DriverID {
		out = append(out, FieldChange{Field: "driver_id", Value: string(after.DriverID)})
	}
	if before.DriverAcceptance != after.DriverAcceptance {
		out = append(out, FieldChange{Field: "driver_acceptance", Value: string(after.DriverAcceptance)})
	}
	if before.CancelReason != after.CancelReason {
		out = append(out, FieldChange{Field: "cancel_reason", Value: after.CancelReason})
	}
	timeFields := []struct {
		name          string
		before, after *time.Time
	}{
		{"requested_at", before.RequestedAt, after.RequestedAt},
		{"accepted_at", before.AcceptedAt, after.AcceptedAt},
		{"processed_at", before.ProcessedAt, after.ProcessedAt},
		{"started_at", before.StartedAt, after.StartedAt},
		{"completed_at", before.CompletedAt, after.CompletedAt},
		{"cancelled_at", before.CancelledAt, after.CancelledAt},
	}
	// timestamps are set once; a field that was already set is never rewritten
	for _, f := range timeFields {
		if f.before == nil && f.after != nil {
			out = append(out, FieldChange{Field: f.name, Value: *f.after})
		}
	}

	var appended []types.ID
	for _, id := range after.DeclinedDriverIDs {
		if !before.HasDeclined(id) {
			appended = append(appended, id)
		}
	}
	return out, appended
}

// MemoryStore serialises every transaction behind one mutex. Used by tests
// and local runs without a document store.
type MemoryStore struct {
	mu     sync.Mutex
	offers map[types.ID]*Offer
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{offers: make(map[types.ID]*Offer)}
}

// Put stores o as the dispatcher would.
func (m *MemoryStore) Put(o *Offer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offers[o.ID] = o.Clone()
}

func (m *MemoryStore) Get(_ context.Context, id types.ID) (*Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

func (m *MemoryStore) Transact(ctx context.Context, id types.ID, fn func(o *Offer) error) (*Offer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.offers[id]
	if !ok {
		return nil, ErrNotFound
	}
	work := cur.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}
	m.offers[id] = work
	return work.Clone(), nil
}

func (m *MemoryStore) AppendEvent(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev := *e
	ev.ID = int64(len(m.events) + 1)
	m.events = append(m.events, ev)
	return nil
}

// Events returns the recorded events for id in commit order.
func (m *MemoryStore) Events(id types.ID) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.RideID == id {
			out = append(out, e)
		}
	}
	return out
}
