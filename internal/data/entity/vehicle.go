package entity

import "github.com/google/uuid"

type VehicleStatus string

const (
	VehicleStatusActive      VehicleStatus = "active"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
	VehicleStatusInactive    VehicleStatus = "inactive"
)

type Vehicle struct {
	BaseNoDelete
	PlateNumber      string        `db:"plate_number"`
	Model            string        `db:"model"`
	Capacity         int           `db:"capacity"`
	Status           VehicleStatus `db:"status"`
	AssignedDriverID *uuid.UUID    `db:"assigned_driver_id"`
}
