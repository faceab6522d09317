package entity

import (
	"time"

	"github.com/google/uuid"
)

type DriverStatus string

const (
	DriverStatusAvailable DriverStatus = "available"
	DriverStatusBusy      DriverStatus = "busy"
	DriverStatusOffline   DriverStatus = "offline"
	DriverStatusInactive  DriverStatus = "inactive"
)

func (s DriverStatus) Valid() bool {
	switch s {
	case DriverStatusAvailable, DriverStatusBusy, DriverStatusOffline, DriverStatusInactive:
		return true
	}
	return false
}

// Driver lives in core1. CurrentLat/CurrentLng are nil until the first
// location update.
type Driver struct {
	BaseNoDelete
	UserID            *uuid.UUID   `db:"user_id"`
	FullName          string       `db:"full_name"`
	Phone             string       `db:"phone"`
	LicenseNumber     string       `db:"license_number"`
	LicenseExpiry     *time.Time   `db:"license_expiry"`
	Rating            float64      `db:"rating"`
	Status            DriverStatus `db:"status"`
	CurrentLat        *float64     `db:"current_lat"`
	CurrentLng        *float64     `db:"current_lng"`
	LocationUpdatedAt *time.Time   `db:"location_updated_at"`
}

// DriverCandidate is an available driver with the vehicle currently attached
// to it, if that vehicle is active.
type DriverCandidate struct {
	Driver  Driver
	Vehicle *Vehicle
}
