package entity

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentHistory is append-only. Dispatch bindings carry the booking id;
// plain vehicle attachments leave it nil.
type AssignmentHistory struct {
	BaseSimple
	VehicleID      uuid.UUID  `db:"vehicle_id"`
	DriverID       uuid.UUID  `db:"driver_id"`
	BookingID      *uuid.UUID `db:"booking_id"`
	AssignedDate   time.Time  `db:"assigned_date"`
	UnassignedDate *time.Time `db:"unassigned_date"`
	Notes          *string    `db:"notes"`
}

func (h *AssignmentHistory) IsOpen() bool {
	return h.UnassignedDate == nil
}
