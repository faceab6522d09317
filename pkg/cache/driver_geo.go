// Package cache keeps the Redis GEO index of driver positions. Postgres stays
// authoritative; the index only narrows the candidate set for ranking.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const driverGeoKey = "dispatch:drivers:geo"

func NewRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis failed: %w", err)
	}
	return client, nil
}

type DriverGeoIndex struct {
	redis *redis.Client
	log   *zap.Logger
}

func NewDriverGeoIndex(client *redis.Client, log *zap.Logger) *DriverGeoIndex {
	return &DriverGeoIndex{
		redis: client,
		log:   log.With(zap.String("cache", "driver_geo")),
	}
}

func (g *DriverGeoIndex) Upsert(ctx context.Context, driverID uuid.UUID, lat, lng float64) error {
	err := g.redis.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      driverID.String(),
		Longitude: lng,
		Latitude:  lat,
	}).Err()
	if err != nil {
		return fmt.Errorf("geoadd driver %s: %w", driverID, err)
	}
	return nil
}

func (g *DriverGeoIndex) Remove(ctx context.Context, driverID uuid.UUID) error {
	if err := g.redis.ZRem(ctx, driverGeoKey, driverID.String()).Err(); err != nil {
		return fmt.Errorf("remove driver %s: %w", driverID, err)
	}
	return nil
}

// Nearby returns ids of indexed drivers within radiusKm, nearest first.
func (g *DriverGeoIndex) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]uuid.UUID, error) {
	results, err := g.redis.GeoSearch(ctx, driverGeoKey, &redis.GeoSearchQuery{
		Longitude:  lng,
		Latitude:   lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geosearch: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(results))
	for _, member := range results {
		id, err := uuid.Parse(member)
		if err != nil {
			g.log.Warn("Skipping malformed geo member", zap.String("member", member))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
