package wire

import (
	"net/http"

	"movers-dispatch/internal/adaptor"
	"movers-dispatch/pkg/middleware"
	"movers-dispatch/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	auth func(http.Handler) http.Handler,
	log *zap.Logger,
) {
	// Every booking route needs a session with manage_bookings
	r.Route("/api/bookings", func(r chi.Router) {
		r.Use(auth)
		r.Use(middleware.RequirePermission(log, utils.PermManageBookings))

		r.Post("/", bookingHandler.CreateBooking)
		r.Get("/", bookingHandler.ListBookings)
		r.Get("/{id}", bookingHandler.GetBooking)

		// dispatch
		r.Post("/{id}/assign", bookingHandler.Assign)
		r.Post("/{id}/assign-nearest", bookingHandler.AssignNearest)
		r.Post("/{id}/unassign", bookingHandler.Unassign)

		// lifecycle
		r.Post("/{id}/status", bookingHandler.ChangeStatus)
	})
}
