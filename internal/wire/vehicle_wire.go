package wire

import (
	"net/http"

	"movers-dispatch/internal/adaptor"
	"movers-dispatch/pkg/middleware"
	"movers-dispatch/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireVehicle(
	r chi.Router,
	vehicleHandler *adaptor.VehicleHandler,
	auth func(http.Handler) http.Handler,
	log *zap.Logger,
) {
	r.Route("/api/vehicles", func(r chi.Router) {
		r.Use(auth)
		r.Use(middleware.RequirePermission(log, utils.PermManageVehicles))

		r.Post("/{id}/assign-driver", vehicleHandler.AttachDriver)
		r.Post("/{id}/unassign-driver", vehicleHandler.DetachDriver)
	})
}
