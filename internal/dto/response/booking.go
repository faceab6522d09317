package response

import (
	"time"

	"movers-dispatch/internal/data/entity"
	"movers-dispatch/pkg/utils"

	"github.com/google/uuid"
)

type PlaceResponse struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

type BookingResponse struct {
	ID                       string               `json:"id"`
	BookingNumber            string               `json:"booking_number"`
	CustomerID               string               `json:"customer_id"`
	Pickup                   PlaceResponse        `json:"pickup"`
	Dropoff                  PlaceResponse        `json:"dropoff"`
	PickupTime               time.Time            `json:"pickup_time"`
	Status                   entity.BookingStatus `json:"status"`
	DriverID                 *string              `json:"driver_id"`
	VehicleID                *string              `json:"vehicle_id"`
	EstimatedFare            utils.Money          `json:"estimated_fare"`
	EstimatedDistanceKm      *float64             `json:"estimated_distance_km,omitempty"`
	EstimatedDurationMinutes *int                 `json:"estimated_duration_minutes,omitempty"`
	CancellationReason       *string              `json:"cancellation_reason,omitempty"`
	CreatedAt                time.Time            `json:"created_at"`
	UpdatedAt                time.Time            `json:"updated_at"`
}

type StatusHistoryResponse struct {
	FromStatus *entity.BookingStatus `json:"from_status"`
	ToStatus   entity.BookingStatus  `json:"to_status"`
	ChangedBy  *string               `json:"changed_by,omitempty"`
	Reason     *string               `json:"reason,omitempty"`
	ChangedAt  time.Time             `json:"changed_at"`
}

type PaymentResponse struct {
	ID            string               `json:"id"`
	BookingID     string               `json:"booking_id"`
	Amount        utils.Money          `json:"amount"`
	Method        string               `json:"method"`
	Status        entity.PaymentStatus `json:"status"`
	TransactionID *string              `json:"transaction_id,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

type BookingDetailResponse struct {
	BookingResponse
	History []StatusHistoryResponse `json:"history"`
	Payment *PaymentResponse        `json:"payment,omitempty"`
}

// StatusChangeResponse reports whether anything was written. Changed is false
// when the booking was already in the requested status.
type StatusChangeResponse struct {
	Booking        BookingResponse `json:"booking"`
	Changed        bool            `json:"changed"`
	DriverReleased bool            `json:"driver_released"`
}

// Helper converters
func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func BookingToResponse(b *entity.Booking) BookingResponse {
	return BookingResponse{
		ID:                       b.ID.String(),
		BookingNumber:            b.BookingNumber,
		CustomerID:               b.CustomerID.String(),
		Pickup:                   PlaceResponse{Address: b.PickupAddress, Lat: b.PickupLat, Lng: b.PickupLng},
		Dropoff:                  PlaceResponse{Address: b.DropoffAddress, Lat: b.DropoffLat, Lng: b.DropoffLng},
		PickupTime:               b.PickupTime.UTC(),
		Status:                   b.Status,
		DriverID:                 idString(b.DriverID),
		VehicleID:                idString(b.VehicleID),
		EstimatedFare:            utils.NewMoney(b.EstimatedFare),
		EstimatedDistanceKm:      b.EstimatedDistanceKm,
		EstimatedDurationMinutes: b.EstimatedDurationMinutes,
		CancellationReason:       b.CancellationReason,
		CreatedAt:                b.CreatedAt.UTC(),
		UpdatedAt:                b.UpdatedAt.UTC(),
	}
}

func StatusHistoryToResponse(h *entity.BookingStatusHistory) StatusHistoryResponse {
	return StatusHistoryResponse{
		FromStatus: h.FromStatus,
		ToStatus:   h.ToStatus,
		ChangedBy:  idString(h.ChangedBy),
		Reason:     h.Reason,
		ChangedAt:  h.CreatedAt.UTC(),
	}
}

func PaymentToResponse(p *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID.String(),
		BookingID:     p.BookingID.String(),
		Amount:        utils.NewMoney(p.Amount),
		Method:        p.Method,
		Status:        p.Status,
		TransactionID: p.TransactionID,
		CreatedAt:     p.CreatedAt.UTC(),
	}
}

func BookingDetailToResponse(b *entity.Booking, history []*entity.BookingStatusHistory, payment *entity.Payment) BookingDetailResponse {
	resp := BookingDetailResponse{
		BookingResponse: BookingToResponse(b),
		History:         make([]StatusHistoryResponse, 0, len(history)),
	}
	for _, h := range history {
		resp.History = append(resp.History, StatusHistoryToResponse(h))
	}
	if payment != nil {
		p := PaymentToResponse(payment)
		resp.Payment = &p
	}
	return resp
}
