package repository

import (
	"movers-dispatch/pkg/database"

	"go.uber.org/zap"
)

// Repository groups the stores. core1 holds drivers, vehicles, assignment
// history and locations; core2 holds users, sessions, bookings and payments.
type Repository struct {
	Driver     DriverRepository
	Vehicle    VehicleRepository
	Assignment AssignmentRepository
	Location   LocationRepository
	Audit      AuditRepository

	User       UserRepository
	Session    SessionRepository
	Permission PermissionRepository
	Booking    BookingRepository
	Payment    PaymentRepository
}

func NewRepository(core1, core2 database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Driver:     NewDriverRepository(core1, log),
		Vehicle:    NewVehicleRepository(core1, log),
		Assignment: NewAssignmentRepository(core1, log),
		Location:   NewLocationRepository(core1, log),
		Audit:      NewAuditRepository(core1, log),

		User:       NewUserRepository(core2, log),
		Session:    NewSessionRepository(core2, log),
		Permission: NewPermissionRepository(core2, log),
		Booking:    NewBookingRepository(core2, log),
		Payment:    NewPaymentRepository(core2, log),
	}
}
