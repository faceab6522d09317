package adaptor

import (
	"net/http"

	"movers-dispatch/internal/dto/request"
	"movers-dispatch/internal/usecase"
	"movers-dispatch/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type VehicleHandler struct {
	service usecase.VehicleService
	log     *zap.Logger
}

func NewVehicleHandler(service usecase.VehicleService, log *zap.Logger) *VehicleHandler {
	return &VehicleHandler{
		service: service,
		log:     log.With(zap.String("handler", "vehicle")),
	}
}

// AttachDriver handles POST /api/vehicles/{id}/assign-driver
func (h *VehicleHandler) AttachDriver(w http.ResponseWriter, r *http.Request) {
	var req request.AttachVehicleRequest
	if err := decodeBody(r, &req, false); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	vehicle, err := h.service.AttachDriver(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		writeError(w, h.log, err, "attach vehicle")
		return
	}

	utils.ResponseSuccess(w, "Vehicle assigned to driver", vehicle)
}

// DetachDriver handles POST /api/vehicles/{id}/unassign-driver
func (h *VehicleHandler) DetachDriver(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.service.DetachDriver(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err, "detach vehicle")
		return
	}

	utils.ResponseSuccess(w, "Vehicle unassigned", vehicle)
}
