package usecase

import (
	"context"
	"time"

	"movers-dispatch/internal/data/entity"
	"movers-dispatch/internal/data/repository"
	"movers-dispatch/internal/dto/request"
	"movers-dispatch/internal/dto/response"
	"movers-dispatch/pkg/events"
	"movers-dispatch/pkg/geo"
	"movers-dispatch/pkg/utils"

	"go.uber.org/zap"
)

const recentAssignments = 20

type DriverService interface {
	GetDriver(ctx context.Context, driverID string) (*response.DriverDetailResponse, error)
	// SetAvailability toggles a driver between available and offline. Busy
	// and inactive drivers cannot toggle themselves.
	SetAvailability(ctx context.Context, actor *utils.Principal, driverID string, req *request.AvailabilityRequest) (*response.AvailabilityResponse, error)
	// Deactivate retires a driver that is not on a booking and detaches its vehicle.
	Deactivate(ctx context.Context, driverID string) (*response.DeactivateResponse, error)
}

type driverService struct {
	repo    *repository.Repository
	locator DriverLocator
	events  EventPublisher
	now     func() time.Time
	log     *zap.Logger
}

func NewDriverService(repo *repository.Repository, deps Dependencies, log *zap.Logger) DriverService {
	deps = deps.withDefaults()
	return &driverService{
		repo:    repo,
		locator: deps.Locator,
		events:  deps.Events,
		now:     deps.Now,
		log:     log.With(zap.String("service", "driver")),
	}
}

func (s *driverService) GetDriver(ctx context.Context, driverID string) (*response.DriverDetailResponse, error) {
	driver, err := s.findDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}

	vehicle, err := s.repo.Vehicle.FindByDriverID(ctx, driver.ID)
	if err != nil {
		return nil, internalError("find driver vehicle", err)
	}

	history, err := s.repo.Assignment.ListByDriver(ctx, driver.ID, recentAssignments)
	if err != nil {
		return nil, internalError("list assignment history", err)
	}

	resp := response.DriverDetailResponse{
		DriverResponse: response.DriverToResponse(driver, vehicle),
		Assignments:    make([]response.AssignmentHistoryResponse, 0, len(history)),
	}
	for _, h := range history {
		resp.Assignments = append(resp.Assignments, response.AssignmentHistoryToResponse(h))
	}
	return &resp, nil
}

func (s *driverService) SetAvailability(ctx context.Context, actor *utils.Principal, driverID string, req *request.AvailabilityRequest) (*response.AvailabilityResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	driver, err := s.findDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !actsForDriver(actor, driver) {
		return nil, newError(CodeForbidden, "Only the driver or a driver manager may change availability")
	}

	target := entity.DriverStatus(req.Status)
	switch driver.Status {
	case entity.DriverStatusBusy:
		return nil, newError(CodeDriverBusy, "Driver %s is on a booking", driver.ID)
	case entity.DriverStatusInactive:
		return nil, newError(CodeDriverInactive, "Driver %s is inactive", driver.ID)
	case target:
		return &response.AvailabilityResponse{DriverID: driver.ID.String(), Status: target}, nil
	}

	ok, err := s.repo.Driver.SetAvailability(ctx, driver.ID, driver.Status, target, s.now())
	if err != nil {
		return nil, internalError("set availability", err)
	}
	if !ok {
		return nil, newError(CodeConflict, "Driver %s changed status concurrently", driver.ID)
	}

	if s.locator != nil {
		if target == entity.DriverStatusOffline {
			err = s.locator.Remove(ctx, driver.ID)
		} else if geo.HasLocation(driver.CurrentLat, driver.CurrentLng) {
			err = s.locator.Upsert(ctx, driver.ID, *driver.CurrentLat, *driver.CurrentLng)
		}
		if err != nil {
			s.log.Warn("Failed to update driver index", zap.Error(err), zap.String("driver_id", driver.ID.String()))
		}
	}

	s.log.Info("Driver availability changed",
		zap.String("driver_id", driver.ID.String()),
		zap.String("from", string(driver.Status)),
		zap.String("to", string(target)),
	)
	return &response.AvailabilityResponse{DriverID: driver.ID.String(), Status: target, Changed: true}, nil
}

func (s *driverService) Deactivate(ctx context.Context, driverID string) (*response.DeactivateResponse, error) {
	driver, err := s.findDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}

	switch driver.Status {
	case entity.DriverStatusInactive:
		return &response.DeactivateResponse{DriverID: driver.ID.String(), Status: entity.DriverStatusInactive}, nil
	case entity.DriverStatusBusy:
		return nil, newError(CodeDriverBusy, "Driver %s is on a booking", driver.ID)
	}

	now := s.now()
	vehicleID, ok, err := s.repo.Driver.Deactivate(ctx, driver.ID, now)
	if err != nil {
		return nil, internalError("deactivate driver", err)
	}
	if !ok {
		// Lost a race with an assignment or another deactivation.
		current, ferr := s.repo.Driver.FindByID(ctx, driver.ID)
		if ferr == nil && current != nil && current.Status == entity.DriverStatusInactive {
			return &response.DeactivateResponse{DriverID: driver.ID.String(), Status: entity.DriverStatusInactive}, nil
		}
		return nil, newError(CodeDriverBusy, "Driver %s is on a booking", driver.ID)
	}

	if s.locator != nil {
		if err := s.locator.Remove(ctx, driver.ID); err != nil {
			s.log.Warn("Failed to remove driver from index", zap.Error(err), zap.String("driver_id", driver.ID.String()))
		}
	}

	resp := &response.DeactivateResponse{DriverID: driver.ID.String(), Status: entity.DriverStatusInactive}
	event := DriverDeactivatedEvent{DriverID: driver.ID.String(), OccurredAt: now}
	if vehicleID != nil {
		v := vehicleID.String()
		resp.DetachedVehicle = &v
		event.DetachedVehicle = v
	}
	if err := s.events.Publish(ctx, events.DriverDeactivated, event); err != nil {
		s.log.Warn("Failed to publish event", zap.String("routing_key", events.DriverDeactivated), zap.Error(err))
	}

	s.log.Info("Driver deactivated", zap.String("driver_id", driver.ID.String()))
	return resp, nil
}

func (s *driverService) findDriver(ctx context.Context, driverID string) (*entity.Driver, error) {
	id, err := parseID("driver_id", driverID)
	if err != nil {
		return nil, err
	}
	driver, err := s.repo.Driver.FindByID(ctx, id)
	if err != nil {
		return nil, internalError("find driver", err)
	}
	if driver == nil {
		return nil, newError(CodeDriverNotFound, "Driver %s not found", id)
	}
	return driver, nil
}

