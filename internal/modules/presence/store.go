// README: Presence store contract with Firestore and in-memory implementations.
package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"rideline/internal/types"
)

type Store interface {
	// ResolveDriver finds the driver document owned by accountID.
	ResolveDriver(ctx context.Context, accountID string) (types.ID, error)
	MarkOnline(ctx context.Context, driverID types.ID, p types.Point, at time.Time) error
	MarkOffline(ctx context.Context, driverID types.ID, at time.Time) error
	Get(ctx context.Context, driverID types.ID) (*DriverLocation, error)
}

type FirestoreStore struct {
	client       *firestore.Client
	drivers      string
	locations    string
	accountField string
}

func NewFirestoreStore(client *firestore.Client, driversCollection, locationsCollection, accountField string) *FirestoreStore {
	return &FirestoreStore{
		client:       client,
		drivers:      driversCollection,
		locations:    locationsCollection,
		accountField: accountField,
	}
}

func (s *FirestoreStore) ResolveDriver(ctx context.Context, accountID string) (types.ID, error) {
	iter := s.client.Collection(s.drivers).Where(s.accountField, "==", accountID).Limit(1).Documents(ctx)
	defer iter.Stop()
	doc, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return "", ErrDriverNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve driver for account %s: %w", accountID, err)
	}
	return types.ID(doc.Ref.ID), nil
}

func (s *FirestoreStore) MarkOnline(ctx context.Context, driverID types.ID, p types.Point, at time.Time) error {
	_, err := s.client.Collection(s.locations).Doc(string(driverID)).Set(ctx, map[string]any{
		"driver_id":   string(driverID),
		"latitude":    p.Lat,
		"longitude":   p.Lng,
		"status":      true,
		"last_online": at,
	}, firestore.MergeAll)
	return err
}

func (s *FirestoreStore) MarkOffline(ctx context.Context, driverID types.ID, at time.Time) error {
	_, err := s.client.Collection(s.locations).Doc(string(driverID)).Set(ctx, map[string]any{
		"driver_id":    string(driverID),
		"status":       false,
		"last_offline": at,
	}, firestore.MergeAll)
	return err
}

func (s *FirestoreStore) Get(ctx context.Context, driverID types.ID) (*DriverLocation, error) {
	snap, err := s.client.Collection(s.locations).Doc(string(driverID)).Get(ctx)
	if err != nil {
		if snap != nil && !snap.Exists() {
			return nil, ErrDriverNotFound
		}
		return nil, err
	}
	var loc DriverLocation
	if err := snap.DataTo(&loc); err != nil {
		return nil, fmt.Errorf("decode driver location %s: %w", driverID, err)
	}
	loc.DriverID = driverID
	return &loc, nil
}

// MemoryStore backs tests and local runs.
type MemoryStore struct {
	mu        sync.Mutex
	accounts  map[string]types.ID
	locations map[types.ID]DriverLocation
	// FailOffline makes MarkOffline fail, for exercising best-effort paths.
	FailOffline error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: map[string]types.ID{}, locations: map[types.ID]DriverLocation{}}
}

func (m *MemoryStore) AddDriver(accountID string, driverID types.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[accountID] = driverID
}

func (m *MemoryStore) ResolveDriver(_ context.Context, accountID string) (types.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.accounts[accountID]
	if !ok {
		return "", ErrDriverNotFound
	}
	return id, nil
}

func (m *MemoryStore) MarkOnline(ctx context.Context, driverID types.ID, p types.Point, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	loc := m.locations[driverID]
	loc.DriverID = driverID
	loc.Latitude, loc.Longitude = p.Lat, p.Lng
	loc.Status = true
	loc.LastOnline = &at
	m.locations[driverID] = loc
	return nil
}

func (m *MemoryStore) MarkOffline(ctx context.Context, driverID types.ID, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailOffline != nil {
		return m.FailOffline
	}
	loc := m.locations[driverID]
	loc.DriverID = driverID
	loc.Status = false
	loc.LastOffline = &at
	m.locations[driverID] = loc
	return nil
}

func (m *MemoryStore) Get(_ context.Context, driverID types.ID) (*DriverLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loc, ok := m.locations[driverID]
	if !ok {
		return nil, ErrDriverNotFound
	}
	return &loc, nil
}
