package entity

import (
	"time"

	"github.com/google/uuid"
)

type DriverLocation struct {
	DriverID  uuid.UUID    `db:"driver_id"`
	Lat       float64      `db:"current_lat"`
	Lng       float64      `db:"current_lng"`
	Status    DriverStatus `db:"status"`
	UpdatedAt time.Time    `db:"location_updated_at"`
}

type DriverLocationHistory struct {
	BaseSimple
	DriverID   uuid.UUID `db:"driver_id"`
	Lat        float64   `db:"lat"`
	Lng        float64   `db:"lng"`
	RecordedAt time.Time `db:"recorded_at"`
}
