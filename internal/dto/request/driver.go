package request

// UpdateLocationRequest uses pointers so a missing coordinate is told apart
// from a zero one. Range checks happen in the location service.
type UpdateLocationRequest struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lng *float64 `json:"lng" validate:"required"`
}

type AvailabilityRequest struct {
	Status string `json:"status" validate:"required,oneof=available offline"`
}

// NearestDriversRequest is read from the query string. Zero values fall back
// to the configured defaults.
type NearestDriversRequest struct {
	Lat           float64
	Lng           float64
	MaxDistanceKm float64
	Limit         int
}

type AttachVehicleRequest struct {
	DriverID string `json:"driver_id" validate:"required,uuid"`
}
