package response

import (
	"math"
	"time"

	"movers-dispatch/internal/data/entity"
)

type VehicleResponse struct {
	ID               string               `json:"id"`
	PlateNumber      string               `json:"plate_number"`
	Model            string               `json:"model"`
	Capacity         int                  `json:"capacity"`
	Status           entity.VehicleStatus `json:"status"`
	AssignedDriverID *string              `json:"assigned_driver_id"`
}

type DriverResponse struct {
	ID                string              `json:"id"`
	FullName          string              `json:"full_name"`
	Phone             string              `json:"phone"`
	LicenseNumber     string              `json:"license_number"`
	Rating            float64             `json:"rating"`
	Status            entity.DriverStatus `json:"status"`
	CurrentLat        *float64            `json:"current_lat,omitempty"`
	CurrentLng        *float64            `json:"current_lng,omitempty"`
	LocationUpdatedAt *time.Time          `json:"location_updated_at,omitempty"`
	Vehicle           *VehicleResponse    `json:"vehicle,omitempty"`
}

type AssignmentHistoryResponse struct {
	ID             string     `json:"id"`
	VehicleID      string     `json:"vehicle_id"`
	BookingID      *string    `json:"booking_id,omitempty"`
	AssignedDate   time.Time  `json:"assigned_date"`
	UnassignedDate *time.Time `json:"unassigned_date,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

type DriverDetailResponse struct {
	DriverResponse
	Assignments []AssignmentHistoryResponse `json:"assignments"`
}

// NearestDriverResponse is one row of the ranked list.
type NearestDriverResponse struct {
	Driver     DriverResponse `json:"driver"`
	DistanceKm float64        `json:"distance_km"`
	EtaMinutes int            `json:"eta_minutes"`
}

type LocationResponse struct {
	DriverID   string              `json:"driver_id"`
	Lat        float64             `json:"lat"`
	Lng        float64             `json:"lng"`
	Status     entity.DriverStatus `json:"status"`
	UpdatedAt  time.Time           `json:"updated_at"`
	AgeSeconds int64               `json:"age_seconds"`
}

type LocationPointResponse struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
}

// LocationHistoryResponse lists recorded positions, newest first.
type LocationHistoryResponse struct {
	DriverID string                  `json:"driver_id"`
	Points   []LocationPointResponse `json:"points"`
}

type AvailabilityResponse struct {
	DriverID string              `json:"driver_id"`
	Status   entity.DriverStatus `json:"status"`
	Changed  bool                `json:"changed"`
}

type DeactivateResponse struct {
	DriverID        string              `json:"driver_id"`
	Status          entity.DriverStatus `json:"status"`
	DetachedVehicle *string             `json:"detached_vehicle_id,omitempty"`
}

// RoundKm keeps three decimals, enough for metre precision.
func RoundKm(km float64) float64 {
	return math.Round(km*1000) / 1000
}

func VehicleToResponse(v *entity.Vehicle) VehicleResponse {
	return VehicleResponse{
		ID:               v.ID.String(),
		PlateNumber:      v.PlateNumber,
		Model:            v.Model,
		Capacity:         v.Capacity,
		Status:           v.Status,
		AssignedDriverID: idString(v.AssignedDriverID),
	}
}

func DriverToResponse(d *entity.Driver, vehicle *entity.Vehicle) DriverResponse {
	resp := DriverResponse{
		ID:            d.ID.String(),
		FullName:      d.FullName,
		Phone:         d.Phone,
		LicenseNumber: d.LicenseNumber,
		Rating:        d.Rating,
		Status:        d.Status,
		CurrentLat:    d.CurrentLat,
		CurrentLng:    d.CurrentLng,
	}
	if d.LocationUpdatedAt != nil {
		t := d.LocationUpdatedAt.UTC()
		resp.LocationUpdatedAt = &t
	}
	if vehicle != nil {
		v := VehicleToResponse(vehicle)
		resp.Vehicle = &v
	}
	return resp
}

func AssignmentHistoryToResponse(h *entity.AssignmentHistory) AssignmentHistoryResponse {
	resp := AssignmentHistoryResponse{
		ID:           h.ID.String(),
		VehicleID:    h.VehicleID.String(),
		BookingID:    idString(h.BookingID),
		AssignedDate: h.AssignedDate.UTC(),
		Notes:        h.Notes,
	}
	if h.UnassignedDate != nil {
		t := h.UnassignedDate.UTC()
		resp.UnassignedDate = &t
	}
	return resp
}

func LocationToResponse(loc *entity.DriverLocation, now time.Time) LocationResponse {
	age := int64(now.Sub(loc.UpdatedAt) / time.Second)
	if age < 0 {
		age = 0
	}
	return LocationResponse{
		DriverID:   loc.DriverID.String(),
		Lat:        loc.Lat,
		Lng:        loc.Lng,
		Status:     loc.Status,
		UpdatedAt:  loc.UpdatedAt.UTC(),
		AgeSeconds: age,
	}
}

func LocationHistoryToResponse(driverID string, history []*entity.DriverLocationHistory) LocationHistoryResponse {
	resp := LocationHistoryResponse{
		DriverID: driverID,
		Points:   make([]LocationPointResponse, 0, len(history)),
	}
	for _, h := range history {
		resp.Points = append(resp.Points, LocationPointResponse{
			Lat:        h.Lat,
			Lng:        h.Lng,
			RecordedAt: h.RecordedAt.UTC(),
		})
	}
	return resp
}
