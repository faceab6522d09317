package wire

import (
	"net/http"

	"movers-dispatch/internal/adaptor"
	"movers-dispatch/pkg/middleware"
	"movers-dispatch/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireDriver(
	r chi.Router,
	driverHandler *adaptor.DriverHandler,
	auth func(http.Handler) http.Handler,
	log *zap.Logger,
) {
	r.Route("/api/drivers", func(r chi.Router) {
		r.Use(auth)

		// ==================== READ ROUTES ====================
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(log, utils.PermViewDrivers))

			// GET /api/drivers/nearest?lat=14.6&lng=120.98&max_distance=10&limit=5
			r.Get("/nearest", driverHandler.NearestDrivers)
			r.Get("/{id}", driverHandler.GetDriver)
			r.Get("/{id}/location", driverHandler.GetLocation)
			r.Get("/{id}/location/history", driverHandler.LocationHistory)
		})

		// ==================== DRIVER SELF-SERVICE ====================
		// The service also checks the caller is this driver unless it manages drivers
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermission(log, utils.PermUpdateLocation, utils.PermManageDrivers))

			r.Post("/{id}/location", driverHandler.UpdateLocation)
			r.Post("/{id}/availability", driverHandler.SetAvailability)
		})

		// ==================== ADMIN ROUTES ====================
		r.With(middleware.RequirePermission(log, utils.PermManageDrivers)).
			Post("/{id}/deactivate", driverHandler.Deactivate)
	})
}
