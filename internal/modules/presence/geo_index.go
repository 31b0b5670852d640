// README: Redis GEO index of online drivers.
package presence

import (
	"context"

	"github.com/redis/go-redis/v9"

	"rideline/internal/types"
)

// Index tracks which drivers are online and where.
type Index interface {
	Add(ctx context.Context, driverID types.ID, p types.Point) error
	Remove(ctx context.Context, driverID types.ID) error
	Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error)
}

type GeoIndex struct {
	redis *redis.Client
	key   string
}

func NewGeoIndex(rdb *redis.Client, key string) *GeoIndex {
	return &GeoIndex{redis: rdb, key: key}
}

func (g *GeoIndex) Add(ctx context.Context, driverID types.ID, p types.Point) error {
	return g.redis.GeoAdd(ctx, g.key, &redis.GeoLocation{
		Name:      string(driverID),
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err()
}

func (g *GeoIndex) Remove(ctx context.Context, driverID types.ID) error {
	return g.redis.ZRem(ctx, g.key, string(driverID)).Err()
}

func (g *GeoIndex) Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error) {
	results, err := g.redis.GeoSearch(ctx, g.key, &redis.GeoSearchQuery{
		Longitude:  p.Lng,
		Latitude:   p.Lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(results))
	for i, r := range results {
		ids[i] = types.ID(r)
	}
	return ids, nil
}
