package request

import "time"

type CreateBookingRequest struct {
	CustomerID     string    `json:"customer_id" validate:"required,uuid"`
	PickupAddress  string    `json:"pickup_address" validate:"required,max=500"`
	PickupLat      *float64  `json:"pickup_lat,omitempty" validate:"omitempty,latitude"`
	PickupLng      *float64  `json:"pickup_lng,omitempty" validate:"omitempty,longitude"`
	DropoffAddress string    `json:"dropoff_address" validate:"required,max=500"`
	DropoffLat     *float64  `json:"dropoff_lat,omitempty" validate:"omitempty,latitude"`
	DropoffLng     *float64  `json:"dropoff_lng,omitempty" validate:"omitempty,longitude"`
	PickupTime     time.Time `json:"pickup_time" validate:"required"`
}

// BookingListRequest is read from the query string.
type BookingListRequest struct {
	PageQuery
	Status string `json:"status"`
}

// ChangeStatusRequest moves a booking through its lifecycle. FareAmount and
// PaymentMethod are only used when completing.
type ChangeStatusRequest struct {
	Status        string   `json:"status" validate:"required"`
	Reason        *string  `json:"reason,omitempty" validate:"omitempty,max=255"`
	FareAmount    *float64 `json:"fare_amount,omitempty" validate:"omitempty,gte=0"`
	PaymentMethod string   `json:"payment_method,omitempty" validate:"omitempty,oneof=cash card ewallet"`
}
