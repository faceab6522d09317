package adaptor

import (
	"math"
	"net/http"

	"movers-dispatch/internal/dto/request"
	"movers-dispatch/internal/usecase"
	"movers-dispatch/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type DriverHandler struct {
	service  usecase.DriverService
	location usecase.LocationService
	ranker   usecase.RankerService
	log      *zap.Logger
}

func NewDriverHandler(
	service usecase.DriverService,
	location usecase.LocationService,
	ranker usecase.RankerService,
	log *zap.Logger,
) *DriverHandler {
	return &DriverHandler{
		service:  service,
		location: location,
		ranker:   ranker,
		log:      log.With(zap.String("handler", "driver")),
	}
}

// NearestDrivers handles GET /api/drivers/nearest?lat=..&lng=..&max_distance=..&limit=..
// max_distance_km is accepted as an alias of max_distance.
func (h *DriverHandler) NearestDrivers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	errs := map[string]string{}

	if query.Get("lat") == "" {
		errs["lat"] = "This field is required"
	}
	if query.Get("lng") == "" {
		errs["lng"] = "This field is required"
	}
	lat, ok := utils.ParseFloat(query.Get("lat"), 0)
	if !ok {
		errs["lat"] = "Must be a number"
	}
	lng, ok := utils.ParseFloat(query.Get("lng"), 0)
	if !ok {
		errs["lng"] = "Must be a number"
	}
	radiusParam := "max_distance"
	if query.Get(radiusParam) == "" && query.Get("max_distance_km") != "" {
		radiusParam = "max_distance_km"
	}
	maxKm, ok := utils.ParseFloat(query.Get(radiusParam), 0)
	if !ok || math.IsNaN(maxKm) || math.IsInf(maxKm, 0) || maxKm < 0 {
		errs[radiusParam] = "Must be a positive number"
	}
	if len(errs) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", errs)
		return
	}

	req := &request.NearestDriversRequest{
		Lat:           lat,
		Lng:           lng,
		MaxDistanceKm: maxKm,
		Limit:         utils.ParseInt(query.Get("limit"), 0),
	}

	drivers, err := h.ranker.NearestDrivers(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err, "rank nearest drivers")
		return
	}

	utils.ResponseSuccess(w, "success", drivers)
}

// GetDriver handles GET /api/drivers/{id}
func (h *DriverHandler) GetDriver(w http.ResponseWriter, r *http.Request) {
	driver, err := h.service.GetDriver(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err, "get driver")
		return
	}

	utils.ResponseSuccess(w, "success", driver)
}

// UpdateLocation handles POST /api/drivers/{id}/location
func (h *DriverHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateLocationRequest
	if err := decodeBody(r, &req, false); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	loc, err := h.location.UpdateLocation(r.Context(), principal(r), chi.URLParam(r, "id"), &req)
	if err != nil {
		writeError(w, h.log, err, "update location")
		return
	}

	utils.ResponseSuccess(w, "Location updated", loc)
}

// GetLocation handles GET /api/drivers/{id}/location
func (h *DriverHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := h.location.GetLocation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err, "get location")
		return
	}

	utils.ResponseSuccess(w, "success", loc)
}

// LocationHistory handles GET /api/drivers/{id}/location/history?limit=..
func (h *DriverHandler) LocationHistory(w http.ResponseWriter, r *http.Request) {
	limit := utils.ParseInt(r.URL.Query().Get("limit"), 0)
	history, err := h.location.LocationHistory(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, h.log, err, "location history")
		return
	}

	utils.ResponseSuccess(w, "success", history)
}

// SetAvailability handles POST /api/drivers/{id}/availability
func (h *DriverHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	var req request.AvailabilityRequest
	if err := decodeBody(r, &req, false); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	resp, err := h.service.SetAvailability(r.Context(), principal(r), chi.URLParam(r, "id"), &req)
	if err != nil {
		writeError(w, h.log, err, "set availability")
		return
	}

	utils.ResponseSuccess(w, "Availability updated", resp)
}

// Deactivate handles POST /api/drivers/{id}/deactivate
func (h *DriverHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Deactivate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err, "deactivate driver")
		return
	}

	utils.ResponseSuccess(w, "Driver deactivated", resp)
}
