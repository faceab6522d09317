package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// AllowedTransitions is the booking lifecycle. Terminal states have no entry.
var AllowedTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:  {BookingStatusInProgress, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted, BookingStatusCancelled},
}

func CanTransition(from, to BookingStatus) bool {
	for _, next := range AllowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// Assignable reports whether a driver may be bound in this status.
func (s BookingStatus) Assignable() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// Booking lives in core2. DriverID and VehicleID are both set or both nil.
type Booking struct {
	BaseNoDelete
	BookingNumber            string        `db:"booking_number"`
	CustomerID               uuid.UUID     `db:"customer_id"`
	PickupAddress            string        `db:"pickup_address"`
	PickupLat                *float64      `db:"pickup_lat"`
	PickupLng                *float64      `db:"pickup_lng"`
	DropoffAddress           string        `db:"dropoff_address"`
	DropoffLat               *float64      `db:"dropoff_lat"`
	DropoffLng               *float64      `db:"dropoff_lng"`
	PickupTime               time.Time     `db:"pickup_time"`
	Status                   BookingStatus `db:"status"`
	DriverID                 *uuid.UUID    `db:"driver_id"`
	VehicleID                *uuid.UUID    `db:"vehicle_id"`
	EstimatedFare            float64       `db:"estimated_fare"`
	EstimatedDistanceKm      *float64      `db:"estimated_distance_km"`
	EstimatedDurationMinutes *int          `db:"estimated_duration_minutes"`
	CancellationReason       *string       `db:"cancellation_reason"`
	StatusVersion            int           `db:"status_version"`
}

func (b *Booking) HasDriver() bool {
	return b.DriverID != nil
}

type BookingStatusHistory struct {
	BaseSimple
	BookingID  uuid.UUID      `db:"booking_id"`
	FromStatus *BookingStatus `db:"from_status"`
	ToStatus   BookingStatus  `db:"to_status"`
	ChangedBy  *uuid.UUID     `db:"changed_by"`
	Reason     *string        `db:"reason"`
}
