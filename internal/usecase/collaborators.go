package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Geocoder resolves a pickup address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (float64, float64, error)
}

// DriverLocator is a spatial index of driver positions used to narrow the
// ranking scan. Postgres remains the source of truth.
type DriverLocator interface {
	Upsert(ctx context.Context, driverID uuid.UUID, lat, lng float64) error
	Remove(ctx context.Context, driverID uuid.UUID) error
	Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]uuid.UUID, error)
}

// EventPublisher delivers domain events to other systems.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Dependencies are the optional external collaborators. Nil fields disable
// the feature that uses them.
type Dependencies struct {
	Geocoder Geocoder
	Locator  DriverLocator
	Events   EventPublisher
	Now      func() time.Time
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

func (d Dependencies) withDefaults() Dependencies {
	if d.Events == nil {
		d.Events = nopPublisher{}
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}
