package adaptor

import (
	"net/http"

	"movers-dispatch/internal/dto/request"
	"movers-dispatch/internal/usecase"
	"movers-dispatch/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BookingHandler serves the booking lifecycle and the dispatch operations
// that act on a booking.
type BookingHandler struct {
	service  usecase.BookingService
	dispatch usecase.DispatchService
	log      *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, dispatch usecase.DispatchService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service:  service,
		dispatch: dispatch,
		log:      log.With(zap.String("handler", "booking")),
	}
}

// CreateBooking handles POST /api/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req request.CreateBookingRequest
	if err := decodeBody(r, &req, false); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), principal(r), &req)
	if err != nil {
		writeError(w, h.log, err, "create booking")
		return
	}

	utils.ResponseCreated(w, "Booking created", booking)
}

// ListBookings handles GET /api/bookings?page=1&per_page=10&status=pending
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.BookingListRequest{Status: query.Get("status")}
	req.Page = utils.ParseInt(query.Get("page"), 1)
	req.PerPage = utils.ParseInt(query.Get("per_page"), request.DefaultPerPage)

	bookings, err := h.service.ListBookings(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err, "list bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// GetBooking handles GET /api/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err, "get booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// ChangeStatus handles POST /api/bookings/{id}/status
func (h *BookingHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req request.ChangeStatusRequest
	if err := decodeBody(r, &req, false); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	resp, err := h.service.ChangeStatus(r.Context(), principal(r), chi.URLParam(r, "id"), &req)
	if err != nil {
		writeError(w, h.log, err, "change booking status")
		return
	}

	message := "Booking status updated"
	if !resp.Changed {
		message = "Booking already in requested status"
	}
	utils.ResponseSuccess(w, message, resp)
}

// Assign handles POST /api/bookings/{id}/assign
func (h *BookingHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req request.AssignDriverRequest
	if err := decodeBody(r, &req, false); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	resp, err := h.dispatch.Assign(r.Context(), principal(r), chi.URLParam(r, "id"), &req)
	if err != nil {
		writeError(w, h.log, err, "assign driver")
		return
	}

	utils.ResponseSuccess(w, "Driver assigned", resp)
}

// AssignNearest handles POST /api/bookings/{id}/assign-nearest. The body is
// optional.
func (h *BookingHandler) AssignNearest(w http.ResponseWriter, r *http.Request) {
	var req request.AssignNearestRequest
	if err := decodeBody(r, &req, true); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	resp, err := h.dispatch.AssignNearest(r.Context(), principal(r), chi.URLParam(r, "id"), &req)
	if err != nil {
		writeError(w, h.log, err, "assign nearest driver")
		return
	}

	utils.ResponseSuccess(w, "Nearest driver assigned", resp)
}

// Unassign handles POST /api/bookings/{id}/unassign
func (h *BookingHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	var req request.UnassignRequest
	if err := decodeBody(r, &req, true); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	resp, err := h.dispatch.Unassign(r.Context(), principal(r), chi.URLParam(r, "id"), &req)
	if err != nil {
		writeError(w, h.log, err, "unassign driver")
		return
	}

	utils.ResponseSuccess(w, "Driver unassigned", resp)
}
