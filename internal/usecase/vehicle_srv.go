package usecase

import (
	"context"
	"errors"
	"time"

	"movers-dispatch/internal/data/entity"
	"movers-dispatch/internal/data/repository"
	"movers-dispatch/internal/dto/request"
	"movers-dispatch/internal/dto/response"
	"movers-dispatch/pkg/utils"

	"go.uber.org/zap"
)

type VehicleService interface {
	AttachDriver(ctx context.Context, vehicleID string, req *request.AttachVehicleRequest) (*response.VehicleResponse, error)
	DetachDriver(ctx context.Context, vehicleID string) (*response.VehicleResponse, error)
}

type vehicleService struct {
	repo *repository.Repository
	now  func() time.Time
	log  *zap.Logger
}

func NewVehicleService(repo *repository.Repository, deps Dependencies, log *zap.Logger) VehicleService {
	deps = deps.withDefaults()
	return &vehicleService{
		repo: repo,
		now:  deps.Now,
		log:  log.With(zap.String("service", "vehicle")),
	}
}

func (s *vehicleService) AttachDriver(ctx context.Context, vehicleID string, req *request.AttachVehicleRequest) (*response.VehicleResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	vehicle, err := s.findVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle.Status != entity.VehicleStatusActive {
		return nil, newError(CodeVehicleUnavailable, "Vehicle %s is %s", vehicle.ID, vehicle.Status)
	}
	if vehicle.AssignedDriverID != nil {
		return nil, newError(CodeVehicleUnavailable, "Vehicle %s is already assigned", vehicle.ID)
	}

	driverID, err := parseID("driver_id", req.DriverID)
	if err != nil {
		return nil, err
	}
	driver, err := s.repo.Driver.FindByID(ctx, driverID)
	if err != nil {
		return nil, internalError("find driver", err)
	}
	if driver == nil {
		return nil, newError(CodeDriverNotFound, "Driver %s not found", driverID)
	}
	if driver.Status == entity.DriverStatusInactive {
		return nil, newError(CodeDriverInactive, "Driver %s is inactive", driverID)
	}

	existing, err := s.repo.Vehicle.FindByDriverID(ctx, driverID)
	if err != nil {
		return nil, internalError("find driver vehicle", err)
	}
	if existing != nil {
		return nil, newError(CodeDriverHasVehicle, "Driver %s already drives vehicle %s", driverID, existing.PlateNumber)
	}

	ok, err := s.repo.Vehicle.AttachDriver(ctx, vehicle.ID, driverID, s.now())
	if errors.Is(err, repository.ErrDriverHasVehicle) {
		return nil, newError(CodeDriverHasVehicle, "Driver %s already has a vehicle", driverID)
	}
	if errors.Is(err, repository.ErrDriverInactive) {
		return nil, newError(CodeDriverInactive, "Driver %s is inactive", driverID)
	}
	if err != nil {
		return nil, internalError("attach vehicle", err)
	}
	if !ok {
		return nil, newError(CodeVehicleUnavailable, "Vehicle %s is no longer available", vehicle.ID)
	}

	s.log.Info("Vehicle attached",
		zap.String("vehicle_id", vehicle.ID.String()),
		zap.String("driver_id", driverID.String()),
	)

	vehicle.AssignedDriverID = &driverID
	resp := response.VehicleToResponse(vehicle)
	return &resp, nil
}

func (s *vehicleService) DetachDriver(ctx context.Context, vehicleID string) (*response.VehicleResponse, error) {
	vehicle, err := s.findVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle.AssignedDriverID == nil {
		return nil, newError(CodeVehicleNotAssigned, "Vehicle %s has no driver", vehicle.ID)
	}

	driverID, err := s.repo.Vehicle.DetachDriver(ctx, vehicle.ID, s.now())
	if err != nil {
		return nil, internalError("detach vehicle", err)
	}
	if driverID == nil {
		current, ferr := s.repo.Vehicle.FindByID(ctx, vehicle.ID)
		if ferr == nil && current != nil && current.AssignedDriverID == nil {
			return nil, newError(CodeVehicleNotAssigned, "Vehicle %s has no driver", vehicle.ID)
		}
		return nil, newError(CodeDriverBusy, "Driver of vehicle %s is on a booking", vehicle.ID)
	}

	s.log.Info("Vehicle detached",
		zap.String("vehicle_id", vehicle.ID.String()),
		zap.String("driver_id", driverID.String()),
	)

	vehicle.AssignedDriverID = nil
	resp := response.VehicleToResponse(vehicle)
	return &resp, nil
}

func (s *vehicleService) findVehicle(ctx context.Context, vehicleID string) (*entity.Vehicle, error) {
	id, err := parseID("vehicle_id", vehicleID)
	if err != nil {
		return nil, err
	}
	vehicle, err := s.repo.Vehicle.FindByID(ctx, id)
	if err != nil {
		return nil, internalError("find vehicle", err)
	}
	if vehicle == nil {
		return nil, newError(CodeVehicleNotFound, "Vehicle %s not found", id)
	}
	return vehicle, nil
}
