package response

import (
	"time"

	"movers-dispatch/internal/data/entity"
)

// AssignmentResponse is returned by both assign operations. Distance and ETA
// are only known when the driver was picked by the ranker.
type AssignmentResponse struct {
	BookingID  string               `json:"booking_id"`
	DriverID   string               `json:"driver_id"`
	VehicleID  string               `json:"vehicle_id"`
	Driver     *DriverResponse      `json:"driver,omitempty"`
	Vehicle    *VehicleResponse     `json:"vehicle,omitempty"`
	Status     entity.BookingStatus `json:"status"`
	AssignedAt time.Time            `json:"assigned_at"`
	DistanceKm *float64             `json:"distance_km,omitempty"`
	EtaMinutes *int                 `json:"eta_minutes,omitempty"`
}

type UnassignResponse struct {
	BookingID      string               `json:"booking_id"`
	DriverID       string               `json:"driver_id"`
	Status         entity.BookingStatus `json:"status"`
	DriverReleased bool                 `json:"driver_released"`
}
