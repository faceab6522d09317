package usecase

import (
	"movers-dispatch/internal/data/repository"
	"movers-dispatch/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	Auth     AuthService
	Booking  BookingService
	Dispatch DispatchService
	Ranker   RankerService
	Location LocationService
	Driver   DriverService
	Vehicle  VehicleService
}

func NewService(repo *repository.Repository, deps Dependencies, config *utils.Config, log *zap.Logger) *Service {
	deps = deps.withDefaults()
	ranker := NewRankerService(repo, deps, config, log)
	return &Service{
		Auth:     NewAuthService(repo, deps, config, log),
		Booking:  NewBookingService(repo, deps, config, log),
		Dispatch: NewDispatchService(repo, ranker, deps, config, log),
		Ranker:   ranker,
		Location: NewLocationService(repo, deps, log),
		Driver:   NewDriverService(repo, deps, log),
		Vehicle:  NewVehicleService(repo, deps, log),
	}
}

// parseID turns a path or body identifier into a UUID, reporting a
// validation error against field.
func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, validationError(map[string]string{field: "Must be a valid UUID"})
	}
	return id, nil
}
