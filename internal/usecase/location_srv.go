package usecase

import (
	"context"
	"time"

	"movers-dispatch/internal/data/entity"
	"movers-dispatch/internal/data/repository"
	"movers-dispatch/internal/dto/request"
	"movers-dispatch/internal/dto/response"
	"movers-dispatch/pkg/geo"
	"movers-dispatch/pkg/utils"

	"go.uber.org/zap"
)

type LocationService interface {
	UpdateLocation(ctx context.Context, actor *utils.Principal, driverID string, req *request.UpdateLocationRequest) (*response.LocationResponse, error)
	GetLocation(ctx context.Context, driverID string) (*response.LocationResponse, error)
	// LocationHistory returns up to limit recorded positions, newest first.
	// limit <= 0 selects the default.
	LocationHistory(ctx context.Context, driverID string, limit int) (*response.LocationHistoryResponse, error)
	// WarmIndex loads every located driver into the spatial index.
	WarmIndex(ctx context.Context) (int, error)
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type locationService struct {
	repo    *repository.Repository
	locator DriverLocator
	now     func() time.Time
	log     *zap.Logger
}

func NewLocationService(repo *repository.Repository, deps Dependencies, log *zap.Logger) LocationService {
	deps = deps.withDefaults()
	return &locationService{
		repo:    repo,
		locator: deps.Locator,
		now:     deps.Now,
		log:     log.With(zap.String("service", "location")),
	}
}

func (s *locationService) UpdateLocation(ctx context.Context, actor *utils.Principal, driverID string, req *request.UpdateLocationRequest) (*response.LocationResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}
	if !geo.ValidCoordinates(*req.Lat, *req.Lng) {
		return nil, newError(CodeInvalidCoordinates, "Coordinates out of range: lat %v, lng %v", *req.Lat, *req.Lng)
	}

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
	if !actsForDriver(actor, driver) {
		return nil, newError(CodeForbidden, "Only the driver or a driver manager may update this location")
	}

	loc, err := s.repo.Location.Update(ctx, id, *req.Lat, *req.Lng, s.now())
	if err != nil {
		return nil, internalError("update location", err)
	}
	if loc == nil {
		return nil, newError(CodeDriverNotFound, "Driver %s not found", id)
	}

	if s.locator != nil {
		s.syncIndex(ctx, loc)
	}

	resp := response.LocationToResponse(loc, s.now())
	return &resp, nil
}

func (s *locationService) GetLocation(ctx context.Context, driverID string) (*response.LocationResponse, error) {
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
	if !geo.HasLocation(driver.CurrentLat, driver.CurrentLng) || driver.LocationUpdatedAt == nil {
		return nil, newError(CodeNoLocation, "Driver %s has not reported a location", id)
	}

	resp := response.LocationToResponse(&entity.DriverLocation{
		DriverID:  driver.ID,
		Lat:       *driver.CurrentLat,
		Lng:       *driver.CurrentLng,
		Status:    driver.Status,
		UpdatedAt: *driver.LocationUpdatedAt,
	}, s.now())
	return &resp, nil
}

func (s *locationService) LocationHistory(ctx context.Context, driverID string, limit int) (*response.LocationHistoryResponse, error) {
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

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	history, err := s.repo.Location.History(ctx, id, limit)
	if err != nil {
		return nil, internalError("location history", err)
	}

	resp := response.LocationHistoryToResponse(id.String(), history)
	return &resp, nil
}

func (s *locationService) WarmIndex(ctx context.Context) (int, error) {
	if s.locator == nil {
		return 0, nil
	}

	located, err := s.repo.Driver.ListLocated(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for i := range located {
		if located[i].Status == entity.DriverStatusInactive {
			continue
		}
		if err := s.locator.Upsert(ctx, located[i].DriverID, located[i].Lat, located[i].Lng); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// syncIndex mirrors a stored position into the spatial index. Index errors
// are logged; the ranker falls back to the database scan.
func (s *locationService) syncIndex(ctx context.Context, loc *entity.DriverLocation) {
	var err error
	if loc.Status == entity.DriverStatusInactive || !geo.HasLocation(&loc.Lat, &loc.Lng) {
		err = s.locator.Remove(ctx, loc.DriverID)
	} else {
		err = s.locator.Upsert(ctx, loc.DriverID, loc.Lat, loc.Lng)
	}
	if err != nil {
		s.log.Warn("Failed to update driver index", zap.Error(err), zap.String("driver_id", loc.DriverID.String()))
	}
}

// actsForDriver reports whether actor may act on behalf of driver: either it
// is the driver's own login or it manages drivers.
func actsForDriver(actor *utils.Principal, driver *entity.Driver) bool {
	if actor.Can(utils.PermManageDrivers) {
		return true
	}
	return actor != nil && driver.UserID != nil && *driver.UserID == actor.UserID
}
