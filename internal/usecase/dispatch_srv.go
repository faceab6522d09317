package usecase

import (
	"context"
	"fmt"

	"movers-dispatch/internal/data/entity"
	"movers-dispatch/internal/data/repository"
	"movers-dispatch/internal/dto/request"
	"movers-dispatch/internal/dto/response"
	"movers-dispatch/pkg/events"
	"movers-dispatch/pkg/geo"
	"movers-dispatch/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DispatchService binds bookings (core2) to drivers and vehicles (core1).
// Each operation is a two-step saga with a compensating write.
type DispatchService interface {
	Assign(ctx context.Context, actor *utils.Principal, bookingID string, req *request.AssignDriverRequest) (*response.AssignmentResponse, error)
	AssignNearest(ctx context.Context, actor *utils.Principal, bookingID string, req *request.AssignNearestRequest) (*response.AssignmentResponse, error)
	Unassign(ctx context.Context, actor *utils.Principal, bookingID string, req *request.UnassignRequest) (*response.UnassignResponse, error)
}

type dispatchService struct {
	repo     *repository.Repository
	ranker   RankerService
	geocoder Geocoder
	saga     *saga
	config   utils.DispatchConfig
	log      *zap.Logger
}

func NewDispatchService(repo *repository.Repository, ranker RankerService, deps Dependencies, config *utils.Config, log *zap.Logger) DispatchService {
	deps = deps.withDefaults()
	log = log.With(zap.String("service", "dispatch"))
	return &dispatchService{
		repo:     repo,
		ranker:   ranker,
		geocoder: deps.Geocoder,
		saga:     newSaga(repo, deps, log),
		config:   config.Dispatch,
		log:      log,
	}
}

func (s *dispatchService) Assign(ctx context.Context, actor *utils.Principal, bookingID string, req *request.AssignDriverRequest) (*response.AssignmentResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Assign driver validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}

	bID, err := parseID("booking_id", bookingID)
	if err != nil {
		return nil, err
	}
	dID, err := parseID("driver_id", req.DriverID)
	if err != nil {
		return nil, err
	}

	booking, err := s.assignableBooking(ctx, bID)
	if err != nil {
		return nil, err
	}

	driver, err := s.repo.Driver.FindByID(ctx, dID)
	if err != nil {
		return nil, internalError("find driver", err)
	}
	if driver == nil {
		return nil, newError(CodeDriverNotFound, "Driver %s not found", dID)
	}
	if driver.Status != entity.DriverStatusAvailable {
		return nil, newError(CodeDriverUnavailable, "Driver %s is %s", dID, driver.Status)
	}

	vehicle, err := s.repo.Vehicle.FindByDriverID(ctx, dID)
	if err != nil {
		return nil, internalError("find driver vehicle", err)
	}
	if vehicle == nil || vehicle.Status != entity.VehicleStatusActive {
		return nil, newError(CodeNoVehicle, "Driver %s has no active vehicle", dID)
	}

	return s.bind(ctx, actor, booking, driver, vehicle, nil)
}

func (s *dispatchService) AssignNearest(ctx context.Context, actor *utils.Principal, bookingID string, req *request.AssignNearestRequest) (*response.AssignmentResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Assign nearest validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}

	bID, err := parseID("booking_id", bookingID)
	if err != nil {
		return nil, err
	}

	booking, err := s.assignableBooking(ctx, bID)
	if err != nil {
		return nil, err
	}

	lat, lng, err := s.pickupPoint(ctx, booking)
	if err != nil {
		return nil, err
	}

	attempts := s.config.NearestAttempts
	if attempts < 1 {
		attempts = 1
	}

	query := NearestQuery{Lat: lat, Lng: lng, Limit: attempts, RequireVehicle: true}
	if req.MaxDistanceKm != nil {
		query.MaxDistanceKm = *req.MaxDistanceKm
	}

	ranked, err := s.ranker.Nearest(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, newError(CodeNoDriverAvailable, "No available driver near the pickup point")
	}

	var lastErr error
	for i := range ranked {
		candidate := ranked[i]
		resp, err := s.bind(ctx, actor, booking, &candidate.Driver, candidate.Vehicle, &candidate)
		if err == nil {
			return resp, nil
		}

		code := CodeOf(err)
		if code != CodeDriverUnavailable && code != CodeNoVehicle {
			return nil, err
		}
		s.log.Info("Nearest candidate was taken",
			zap.String("booking_id", booking.ID.String()),
			zap.String("driver_id", candidate.Driver.ID.String()),
			zap.String("code", string(code)),
			zap.Int("attempt", i+1),
		)
		lastErr = err
	}
	return nil, lastErr
}

func (s *dispatchService) Unassign(ctx context.Context, actor *utils.Principal, bookingID string, req *request.UnassignRequest) (*response.UnassignResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	bID, err := parseID("booking_id", bookingID)
	if err != nil {
		return nil, err
	}

	booking, err := s.findBooking(ctx, bID)
	if err != nil {
		return nil, err
	}
	if booking.Status.Terminal() {
		return nil, newError(CodeBookingNotAssignable, "Booking %s is %s", bID, booking.Status)
	}
	if !booking.HasDriver() {
		return nil, newError(CodeNotAssigned, "Booking %s has no driver", bID)
	}

	driverID, vehicleID := *booking.DriverID, *booking.VehicleID
	now := s.saga.now()

	cleared, err := s.repo.Booking.ClearDriver(ctx, bID, driverID, changedBy(actor), now)
	if err != nil {
		return nil, internalError("clear booking driver", err)
	}
	if !cleared {
		return nil, s.unassignRaceError(ctx, bID)
	}

	reason := req.Reason
	if reason == "" {
		reason = "unassigned by dispatcher"
	}

	sagaCtx, cancel := sagaContext(ctx)
	defer cancel()

	released, err := s.repo.Driver.ReleaseFromBooking(sagaCtx, driverID, bID, reason, now)
	if err != nil {
		s.log.Error("Driver release failed, restoring booking",
			zap.Error(err),
			zap.String("booking_id", bID.String()),
			zap.String("driver_id", driverID.String()),
		)
		restored, rerr := s.repo.Booking.RestoreDriver(sagaCtx, bID, driverID, vehicleID, booking.Status, s.saga.now())
		if rerr == nil && !restored {
			rerr = fmt.Errorf("booking changed before it could be restored")
		}
		if rerr != nil {
			return nil, s.saga.consistencyWarning(ctx, "unassign", &bID, &driverID,
				fmt.Errorf("release driver: %v; restore booking: %w", err, rerr))
		}
		return nil, internalError("release driver", err)
	}
	if !released {
		s.log.Warn("Unassigned driver was not busy",
			zap.String("booking_id", bID.String()),
			zap.String("driver_id", driverID.String()),
		)
	}

	s.saga.publish(sagaCtx, events.BookingUnassigned, BookingUnassignedEvent{
		BookingID:  bID.String(),
		DriverID:   driverID.String(),
		Reason:     reason,
		OccurredAt: now,
	})

	s.log.Info("Driver unassigned",
		zap.String("booking_id", bID.String()),
		zap.String("driver_id", driverID.String()),
	)

	return &response.UnassignResponse{
		BookingID:      bID.String(),
		DriverID:       driverID.String(),
		Status:         entity.BookingStatusPending,
		DriverReleased: released,
	}, nil
}

// bind claims the driver in core1, then assigns the booking in core2. A failed
// booking write releases the driver again.
func (s *dispatchService) bind(ctx context.Context, actor *utils.Principal, booking *entity.Booking, driver *entity.Driver, vehicle *entity.Vehicle, ranked *RankedDriver) (*response.AssignmentResponse, error) {
	now := s.saga.now()
	driverID, vehicleID := driver.ID, vehicle.ID

	claimed, err := s.repo.Driver.ClaimForBooking(ctx, driverID, vehicleID, booking.ID, now)
	if err != nil {
		return nil, internalError("claim driver", err)
	}
	if !claimed {
		return nil, s.claimRaceError(ctx, driverID)
	}

	sagaCtx, cancel := sagaContext(ctx)
	defer cancel()

	assigned, err := s.repo.Booking.AssignDriver(sagaCtx, booking.ID, driverID, vehicleID, changedBy(actor), now)
	if err != nil || !assigned {
		if _, rerr := s.saga.releaseDriver(ctx, driverID, booking.ID, "assignment rolled back"); rerr != nil {
			cause := fmt.Errorf("booking not assigned (%v); release driver: %w", err, rerr)
			return nil, s.saga.consistencyWarning(ctx, "assign", &booking.ID, &driverID, cause)
		}
		if err != nil {
			return nil, internalError("assign booking", err)
		}
		return nil, s.assignRaceError(ctx, booking.ID)
	}

	event := BookingAssignedEvent{
		BookingID:  booking.ID.String(),
		DriverID:   driverID.String(),
		VehicleID:  vehicleID.String(),
		OccurredAt: now,
	}
	claimedDriver := *driver
	claimedDriver.Status = entity.DriverStatusBusy
	driverResp := response.DriverToResponse(&claimedDriver, nil)
	vehicleResp := response.VehicleToResponse(vehicle)
	resp := &response.AssignmentResponse{
		BookingID:  booking.ID.String(),
		DriverID:   driverID.String(),
		VehicleID:  vehicleID.String(),
		Driver:     &driverResp,
		Vehicle:    &vehicleResp,
		Status:     entity.BookingStatusConfirmed,
		AssignedAt: now.UTC(),
	}
	if ranked != nil {
		km := response.RoundKm(ranked.DistanceKm)
		eta := ranked.EtaMinutes
		resp.DistanceKm = &km
		resp.EtaMinutes = &eta
		event.DistanceKm = &km
	}

	s.saga.publish(sagaCtx, events.BookingAssigned, event)

	s.log.Info("Driver assigned",
		zap.String("booking_id", booking.ID.String()),
		zap.String("driver_id", driverID.String()),
		zap.String("vehicle_id", vehicleID.String()),
	)
	return resp, nil
}

func (s *dispatchService) findBooking(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, internalError("find booking", err)
	}
	if booking == nil {
		return nil, newError(CodeBookingNotFound, "Booking %s not found", id)
	}
	return booking, nil
}

func (s *dispatchService) assignableBooking(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !booking.Status.Assignable() {
		return nil, newError(CodeBookingNotAssignable, "Booking %s is %s", id, booking.Status)
	}
	if booking.HasDriver() {
		return nil, newError(CodeAlreadyAssigned, "Booking %s already has driver %s", id, booking.DriverID)
	}
	return booking, nil
}

func (s *dispatchService) pickupPoint(ctx context.Context, booking *entity.Booking) (float64, float64, error) {
	if geo.HasLocation(booking.PickupLat, booking.PickupLng) {
		return *booking.PickupLat, *booking.PickupLng, nil
	}

	if s.geocoder == nil {
		return 0, 0, newError(CodeNoPickupCoordinates, "Booking %s has no pickup coordinates", booking.ID)
	}

	lat, lng, err := s.geocoder.Geocode(ctx, booking.PickupAddress)
	if err != nil || !geo.ValidCoordinates(lat, lng) {
		s.log.Warn("Failed to geocode pickup address",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return 0, 0, newError(CodeNoPickupCoordinates, "Pickup address of booking %s could not be located", booking.ID)
	}
	return lat, lng, nil
}

// claimRaceError explains a lost driver claim: either the driver left the
// available pool or its vehicle changed.
func (s *dispatchService) claimRaceError(ctx context.Context, driverID uuid.UUID) error {
	driver, err := s.repo.Driver.FindByID(ctx, driverID)
	if err == nil && driver != nil && driver.Status == entity.DriverStatusAvailable {
		return newError(CodeNoVehicle, "Driver %s has no active vehicle", driverID)
	}
	return newError(CodeDriverUnavailable, "Driver %s is no longer available", driverID)
}

func (s *dispatchService) assignRaceError(ctx context.Context, bookingID uuid.UUID) error {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	switch {
	case err != nil:
		return internalError("reload booking", err)
	case booking == nil:
		return newError(CodeBookingNotFound, "Booking %s not found", bookingID)
	case booking.HasDriver():
		return newError(CodeAlreadyAssigned, "Booking %s already has driver %s", bookingID, booking.DriverID)
	case !booking.Status.Assignable():
		return newError(CodeBookingNotAssignable, "Booking %s is %s", bookingID, booking.Status)
	}
	return newError(CodeConflict, "Booking %s was modified concurrently", bookingID)
}

func (s *dispatchService) unassignRaceError(ctx context.Context, bookingID uuid.UUID) error {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	switch {
	case err != nil:
		return internalError("reload booking", err)
	case booking == nil:
		return newError(CodeBookingNotFound, "Booking %s not found", bookingID)
	case booking.Status.Terminal():
		return newError(CodeBookingNotAssignable, "Booking %s is %s", bookingID, booking.Status)
	case !booking.HasDriver():
		return newError(CodeNotAssigned, "Booking %s has no driver", bookingID)
	}
	return newError(CodeConflict, "Booking %s was modified concurrently", bookingID)
}
