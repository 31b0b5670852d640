// README: Quote engine: directions with live traffic, geocode fallback, rounding.
package quote

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"rideline/internal/logging"
	"rideline/internal/observability"
)

const (
	metersPerMile = 1609.344

	reasonNoRoute       = "NO_ROUTE"
	reasonProviderError = "PROVIDER_ERROR"
)

type Engine struct {
	provider Provider
	timeout  time.Duration
	log      *slog.Logger
	now      func() time.Time
}

type EngineOption func(*Engine)

func WithTimeout(d time.Duration) EngineOption { return func(e *Engine) { e.timeout = d } }

func WithLogger(l *slog.Logger) EngineOption { return func(e *Engine) { e.log = l } }

func WithClock(now func() time.Time) EngineOption { return func(e *Engine) { e.now = now } }

func NewEngine(p Provider, opts ...EngineOption) *Engine {
	e := &Engine{provider: p, log: logging.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute returns distance and drive time between origin and destination.
// Nothing is cached; every call goes to the provider.
func (e *Engine) Compute(ctx context.Context, origin, destination Location) (Quote, error) {
	if err := origin.Validate(); err != nil {
		return Quote{}, err
	}
	if err := destination.Validate(); err != nil {
		return Quote{}, err
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	q, err := e.compute(ctx, origin, destination)
	observability.QuotesTotal.WithLabelValues(quoteOutcome(err)).Inc()
	if err != nil {
		e.log.Warn("quote failed", "origin", origin.Format(), "destination", destination.Format(), "error", err)
		return Quote{}, err
	}
	return q, nil
}

func (e *Engine) compute(ctx context.Context, origin, destination Location) (Quote, error) {
	route, err := e.directions(ctx, origin, destination)
	if err != nil {
		return Quote{}, err
	}
	if len(route.Legs) > 0 {
		return e.build(origin, destination, route.Legs[0]), nil
	}

	// one retry after geocoding address-only endpoints; endpoints that did
	// not resolve are sent as they were
	o, d, attempted := e.resolvePlaces(ctx, origin, destination)
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}
	if !attempted {
		return Quote{}, &Failure{Reason: statusOr(route.Status)}
	}
	retry, err := e.directions(ctx, o, d)
	if err != nil {
		return Quote{}, err
	}
	if len(retry.Legs) == 0 {
		return Quote{}, &Failure{Reason: statusOr(retry.Status)}
	}
	return e.build(origin, destination, retry.Legs[0]), nil
}

func (e *Engine) directions(ctx context.Context, origin, destination Location) (Route, error) {
	start := time.Now()
	route, err := e.provider.Directions(ctx, origin.Format(), destination.Format())
	observability.QuoteProviderLatency.WithLabelValues("directions").Observe(time.Since(start).Seconds())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Route{}, ctxErr
		}
		return Route{}, &Failure{Reason: reasonProviderError, Err: err}
	}
	return route, nil
}

// resolvePlaces geocodes both endpoints concurrently. Endpoints that already
// carry a place id, or have no address, are left as they are.
func (e *Engine) resolvePlaces(ctx context.Context, origin, destination Location) (Location, Location, bool) {
	endpoints := []Location{origin, destination}
	placeIDs := make([]string, len(endpoints))

	g, gctx := errgroup.WithContext(ctx)
	pending := 0
	for i, loc := range endpoints {
		if loc.PlaceID != "" || loc.Address == "" {
			continue
		}
		pending++
		g.Go(func() error {
			start := time.Now()
			id, err := e.provider.Geocode(gctx, loc.Address)
			observability.QuoteProviderLatency.WithLabelValues("geocode").Observe(time.Since(start).Seconds())
			if err != nil {
				e.log.Warn("geocode failed", "address", loc.Address, "error", err)
				return nil
			}
			placeIDs[i] = id
			return nil
		})
	}
	if pending == 0 {
		return origin, destination, false
	}
	_ = g.Wait()

	for i := range endpoints {
		if placeIDs[i] != "" {
			endpoints[i].PlaceID = placeIDs[i]
		}
	}
	return endpoints[0], endpoints[1], true
}

func (e *Engine) build(origin, destination Location, leg Leg) Quote {
	d := leg.Duration
	model := TrafficModelNone
	if leg.DurationInTraffic > 0 {
		d = leg.DurationInTraffic
		model = TrafficModelBestGuess
	}
	return Quote{
		Origin:        origin,
		Destination:   destination,
		DistanceMiles: Miles(leg.DistanceMeters),
		DriveMinutes:  Minutes(d),
		ComputedAt:    e.now().UTC(),
		TrafficModel:  model,
	}
}

// Minutes rounds to the nearest minute with a floor of one.
func Minutes(d time.Duration) int {
	m := int(math.Round(d.Seconds() / 60))
	if m < 1 {
		return 1
	}
	return m
}

// Miles converts meters to miles rounded to one decimal.
func Miles(meters int) float64 {
	return math.Round(float64(meters)/metersPerMile*10) / 10
}

func statusOr(status string) string {
	if status == "" {
		return reasonNoRoute
	}
	return status
}

func quoteOutcome(err error) string {
	var f *Failure
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.As(err, &f):
		return "unavailable"
	default:
		return "error"
	}
}
