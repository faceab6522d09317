package usecase

import "time"

// Event payloads published on the dispatch exchange.

type BookingAssignedEvent struct {
	BookingID  string    `json:"booking_id"`
	DriverID   string    `json:"driver_id"`
	VehicleID  string    `json:"vehicle_id"`
	DistanceKm *float64  `json:"distance_km,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type BookingUnassignedEvent struct {
	BookingID  string    `json:"booking_id"`
	DriverID   string    `json:"driver_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

type BookingStatusChangedEvent struct {
	BookingID  string    `json:"booking_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	DriverID   string    `json:"driver_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type DriverDeactivatedEvent struct {
	DriverID        string    `json:"driver_id"`
	DetachedVehicle string    `json:"detached_vehicle_id,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

type ConsistencyWarningEvent struct {
	WarningID  string    `json:"warning_id"`
	Operation  string    `json:"operation"`
	BookingID  string    `json:"booking_id,omitempty"`
	DriverID   string    `json:"driver_id,omitempty"`
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurred_at"`
}
