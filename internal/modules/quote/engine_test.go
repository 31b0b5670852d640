// README: Quote engine tests with a scripted provider.
package quote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type directionsCall struct {
	origin, destination string
}

type fakeProvider struct {
	mu          sync.Mutex
	routes      []Route
	errs        []error
	calls       []directionsCall
	geocodes    map[string]string
	geocodeErr  error
	geocodeSeen []string
}

func (p *fakeProvider) Directions(_ context.Context, origin, destination string) (Route, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := len(p.calls)
	p.calls = append(p.calls, directionsCall{origin, destination})
	var err error
	if i < len(p.errs) {
		err = p.errs[i]
	}
	if i < len(p.routes) {
		return p.routes[i], err
	}
	return Route{Status: "ZERO_RESULTS"}, err
}

func (p *fakeProvider) Geocode(_ context.Context, address string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.geocodeSeen = append(p.geocodeSeen, address)
	if p.geocodeErr != nil {
		return "", p.geocodeErr
	}
	return p.geocodes[address], nil
}

var quoteNow = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

func newEngine(p Provider) *Engine {
	return NewEngine(p, WithClock(func() time.Time { return quoteNow }))
}

func TestComputePrefersTrafficDuration(t *testing.T) {
	p := &fakeProvider{routes: []Route{{Legs: []Leg{{
		DistanceMeters:    8046,
		Duration:          600 * time.Second,
		DurationInTraffic: 900 * time.Second,
	}}}}}
	q, err := newEngine(p).Compute(context.Background(), Coords(25.033, 121.565), Location{Address: "Taipei 101"})
	require.NoError(t, err)
	assert.Equal(t, 5.0, q.DistanceMiles)
	assert.Equal(t, 15, q.DriveMinutes)
	assert.Equal(t, TrafficModelBestGuess, q.TrafficModel)
	assert.Equal(t, quoteNow, q.ComputedAt)
	require.Len(t, p.calls, 1)
	assert.Equal(t, "25.033,121.565", p.calls[0].origin)
	assert.Equal(t, "Taipei 101", p.calls[0].destination)
}

func TestComputeBaseDurationWithoutTraffic(t *testing.T) {
	p := &fakeProvider{routes: []Route{{Legs: []Leg{{DistanceMeters: 1609, Duration: 754 * time.Second}}}}}
	q, err := newEngine(p).Compute(context.Background(), Location{PlaceID: "a"}, Location{PlaceID: "b"})
	require.NoError(t, err)
	assert.Equal(t, 13, q.DriveMinutes)
	assert.Equal(t, 1.0, q.DistanceMiles)
	assert.Equal(t, TrafficModelNone, q.TrafficModel)
}

func TestMinutesFloor(t *testing.T) {
	for _, s := range []int{0, 1, 29} {
		assert.Equal(t, 1, Minutes(time.Duration(s)*time.Second), "seconds=%d", s)
	}
	assert.Equal(t, 1, Minutes(89*time.Second))
	assert.Equal(t, 2, Minutes(90*time.Second))
}

func TestLocationFormatPriority(t *testing.T) {
	lat, lng := 25.0, 121.5
	all := Location{Lat: &lat, Lng: &lng, Address: "Main St", PlaceID: "ChIJ"}
	assert.Equal(t, "place_id:ChIJ", all.Format())
	all.PlaceID = ""
	assert.Equal(t, "Main St", all.Format())
	all.Address = ""
	assert.Equal(t, "25,121.5", all.Format())
}

func TestComputeRejectsMalformedLocation(t *testing.T) {
	p := &fakeProvider{}
	_, err := newEngine(p).Compute(context.Background(), Location{}, Location{Address: "x"})
	require.ErrorIs(t, err, ErrBadRequest)

	_, err = newEngine(p).Compute(context.Background(), Coords(91, 0), Location{Address: "x"})
	require.ErrorIs(t, err, ErrBadRequest)
	assert.Empty(t, p.calls)
}

func TestFallbackGeocodesBothEndpointsAndRetriesOnce(t *testing.T) {
	p := &fakeProvider{
		routes: []Route{
			{Status: "ZERO_RESULTS"},
			{Legs: []Leg{{DistanceMeters: 3218, Duration: 420 * time.Second}}},
		},
		geocodes: map[string]string{"1 Main St": "pA", "2 Side St": "pB"},
	}
	q, err := newEngine(p).Compute(context.Background(), Location{Address: "1 Main St"}, Location{Address: "2 Side St"})
	require.NoError(t, err)
	assert.Equal(t, 7, q.DriveMinutes)
	assert.Equal(t, 2.0, q.DistanceMiles)
	assert.ElementsMatch(t, []string{"1 Main St", "2 Side St"}, p.geocodeSeen)
	require.Len(t, p.calls, 2)
	assert.Equal(t, directionsCall{"place_id:pA", "place_id:pB"}, p.calls[1])
	assert.Equal(t, "1 Main St", q.Origin.Address)
}

func TestFallbackStillNoRouteFails(t *testing.T) {
	p := &fakeProvider{
		routes:   []Route{{Status: "ZERO_RESULTS"}, {Status: "NOT_FOUND"}},
		geocodes: map[string]string{"nowhere": "pX"},
	}
	_, err := newEngine(p).Compute(context.Background(), Location{Address: "nowhere"}, Coords(1, 1))
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "NOT_FOUND", f.Reason)
	assert.Len(t, p.calls, 2)
}

func TestNoRouteWithoutAddressesFailsWithoutRetry(t *testing.T) {
	p := &fakeProvider{routes: []Route{{Status: "ZERO_RESULTS"}}}
	_, err := newEngine(p).Compute(context.Background(), Coords(1, 1), Location{PlaceID: "p"})
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "ZERO_RESULTS", f.Reason)
	assert.Len(t, p.calls, 1)
	assert.Empty(t, p.geocodeSeen)
}

func TestGeocodeFailureStillRetriesOnce(t *testing.T) {
	p := &fakeProvider{
		routes:     []Route{{Status: "ZERO_RESULTS"}, {Status: "NOT_FOUND"}},
		geocodeErr: errors.New("quota"),
	}
	_, err := newEngine(p).Compute(context.Background(), Location{Address: "1 Main St"}, Location{Address: "2 Side St"})
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "NOT_FOUND", f.Reason)
	assert.ElementsMatch(t, []string{"1 Main St", "2 Side St"}, p.geocodeSeen)
	require.Len(t, p.calls, 2)
	assert.Equal(t, directionsCall{"1 Main St", "2 Side St"}, p.calls[1])
}

func TestPartialGeocodeRetriesWithWhatResolved(t *testing.T) {
	p := &fakeProvider{
		routes: []Route{
			{Status: "ZERO_RESULTS"},
			{Legs: []Leg{{DistanceMeters: 1609, Duration: 300 * time.Second}}},
		},
		geocodes: map[string]string{"1 Main St": "pA"},
	}
	q, err := newEngine(p).Compute(context.Background(), Location{Address: "1 Main St"}, Location{Address: "2 Side St"})
	require.NoError(t, err)
	assert.Equal(t, 5, q.DriveMinutes)
	require.Len(t, p.calls, 2)
	assert.Equal(t, directionsCall{"place_id:pA", "2 Side St"}, p.calls[1])
}

func TestProviderErrorIsFailure(t *testing.T) {
	p := &fakeProvider{errs: []error{errors.New("connection reset")}}
	_, err := newEngine(p).Compute(context.Background(), Coords(1, 1), Coords(2, 2))
	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, reasonProviderError, f.Reason)
}

type blockingProvider struct{}

func (blockingProvider) Directions(ctx context.Context, _, _ string) (Route, error) {
	<-ctx.Done()
	return Route{}, ctx.Err()
}

func (blockingProvider) Geocode(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestComputeHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newEngine(blockingProvider{}).Compute(ctx, Coords(1, 1), Coords(2, 2))
	require.ErrorIs(t, err, context.Canceled)

	_, err = NewEngine(blockingProvider{}, WithTimeout(20*time.Millisecond)).Compute(context.Background(), Coords(1, 1), Coords(2, 2))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
