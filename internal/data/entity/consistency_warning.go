package entity

import "github.com/google/uuid"

// ConsistencyWarning records a cross-store write whose compensation failed and
// needs an operator to reconcile.
type ConsistencyWarning struct {
	BaseSimple
	Operation string     `db:"operation"`
	BookingID *uuid.UUID `db:"booking_id"`
	DriverID  *uuid.UUID `db:"driver_id"`
	Detail    string     `db:"detail"`
}
