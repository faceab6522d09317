package request

type AssignDriverRequest struct {
	DriverID string `json:"driver_id" validate:"required,uuid"`
}

type AssignNearestRequest struct {
	MaxDistanceKm *float64 `json:"max_distance_km,omitempty" validate:"omitempty,gt=0,lte=500"`
}

type UnassignRequest struct {
	Reason string `json:"reason" validate:"max=255"`
}
