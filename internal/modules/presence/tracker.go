// README: Presence tracker: per-driver online sessions and stateless updates.
package presence

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rideline/internal/logging"
	"rideline/internal/observability"
	"rideline/internal/types"
)

type Tracker struct {
	store          Store
	index          Index
	publisher      Publisher
	log            *slog.Logger
	now            func() time.Time
	offlineTimeout time.Duration

	detached sync.WaitGroup
}

type Option func(*Tracker)

func WithIndex(i Index) Option { return func(t *Tracker) { t.index = i } }

func WithPublisher(p Publisher) Option { return func(t *Tracker) { t.publisher = p } }

func WithLogger(l *slog.Logger) Option { return func(t *Tracker) { t.log = l } }

func WithClock(now func() time.Time) Option { return func(t *Tracker) { t.now = now } }

func WithOfflineTimeout(d time.Duration) Option { return func(t *Tracker) { t.offlineTimeout = d } }

func NewTracker(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:          store,
		log:            logging.Discard(),
		now:            time.Now,
		offlineTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Resolve returns the driver id owned by accountID.
func (t *Tracker) Resolve(ctx context.Context, accountID string) (types.ID, error) {
	if accountID == "" {
		return "", ErrBadRequest
	}
	return t.store.ResolveDriver(ctx, accountID)
}

// Start opens a presence session for the driver owned by accountID. Without
// foreground location permission the driver stays offline and nothing is
// written.
func (t *Tracker) Start(ctx context.Context, accountID string, permissionGranted bool) (*Session, error) {
	if accountID == "" {
		return nil, ErrBadRequest
	}
	if !permissionGranted {
		return nil, ErrPermissionDenied
	}
	driverID, err := t.store.ResolveDriver(ctx, accountID)
	if err != nil {
		return nil, err
	}
	t.log.Info("presence session started", "driver_id", driverID)
	return &Session{tracker: t, driverID: driverID}, nil
}

// Update records one position outside of a session.
func (t *Tracker) Update(ctx context.Context, driverID types.ID, p types.Point) error {
	if driverID == "" || !validPoint(p) {
		return ErrBadRequest
	}
	at := t.now().UTC()
	if err := t.store.MarkOnline(ctx, driverID, p, at); err != nil {
		return fmt.Errorf("mark driver %s online: %w", driverID, err)
	}
	t.sideWrites(ctx, driverID, p, at)
	return nil
}

// SetOffline flags the driver offline. Failures are logged, never returned.
func (t *Tracker) SetOffline(ctx context.Context, driverID types.ID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.offlineTimeout)
	defer cancel()
	at := t.now().UTC()
	if err := t.store.MarkOffline(ctx, driverID, at); err != nil {
		observability.PresenceWriteFailures.Inc()
		t.log.Warn("mark driver offline", "driver_id", driverID, "error", err)
	}
	if t.index != nil {
		if err := t.index.Remove(ctx, driverID); err != nil {
			observability.PresenceWriteFailures.Inc()
			t.log.Warn("remove driver from geo index", "driver_id", driverID, "error", err)
		}
	}
}

// SetOfflineDetached runs SetOffline in the background and returns at once.
// Wait blocks until every detached write has finished.
func (t *Tracker) SetOfflineDetached(ctx context.Context, driverID types.ID) {
	ctx = context.WithoutCancel(ctx)
	t.detached.Add(1)
	go func() {
		defer t.detached.Done()
		t.SetOffline(ctx, driverID)
	}()
}

func (t *Tracker) Wait() { t.detached.Wait() }

// Nearby lists online drivers around p, closest first.
func (t *Tracker) Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error) {
	if !validPoint(p) || radiusKm <= 0 {
		return nil, ErrBadRequest
	}
	if t.index == nil {
		return []types.ID{}, nil
	}
	return t.index.Nearby(ctx, p, radiusKm)
}

func (t *Tracker) sideWrites(ctx context.Context, driverID types.ID, p types.Point, at time.Time) {
	if t.index != nil {
		if err := t.index.Add(ctx, driverID, p); err != nil {
			observability.PresenceWriteFailures.Inc()
			t.log.Warn("add driver to geo index", "driver_id", driverID, "error", err)
		}
	}
	if t.publisher != nil {
		ev := LocationEvent{DriverID: driverID, Lat: p.Lat, Lng: p.Lng, Online: true, At: at}
		if err := t.publisher.PublishLocation(ctx, ev); err != nil {
			observability.PresenceWriteFailures.Inc()
			t.log.Warn("publish driver location", "driver_id", driverID, "error", err)
		}
	}
}

// Session is one driver's online period. It ends on Stop, which is safe to
// call more than once.
type Session struct {
	tracker  *Tracker
	driverID types.ID

	mu     sync.Mutex
	online bool
	closed bool
}

func (s *Session) DriverID() types.ID { return s.driverID }

func (s *Session) Update(ctx context.Context, p types.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if err := s.tracker.Update(ctx, s.driverID, p); err != nil {
		return err
	}
	if !s.online {
		s.online = true
		observability.DriversOnline.Inc()
	}
	return nil
}

// Stop ends the session with a best-effort offline write that survives
// cancellation of ctx.
func (s *Session) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.online {
		s.online = false
		observability.DriversOnline.Dec()
	}
	s.tracker.SetOffline(ctx, s.driverID)
	s.tracker.log.Info("presence session ended", "driver_id", s.driverID)
}
