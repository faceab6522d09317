package usecase

import (
	"context"
	"fmt"
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

const defaultPaymentMethod = "cash"

type BookingService interface {
	CreateBooking(ctx context.Context, actor *utils.Principal, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	GetBooking(ctx context.Context, bookingID string) (*response.BookingDetailResponse, error)
	ListBookings(ctx context.Context, req *request.BookingListRequest) (*response.PaginatedResponse[response.BookingResponse], error)

	// ChangeStatus applies one lifecycle step. Leaving the booking through
	// cancellation or completion releases its driver.
	ChangeStatus(ctx context.Context, actor *utils.Principal, bookingID string, req *request.ChangeStatusRequest) (*response.StatusChangeResponse, error)
}

type bookingService struct {
	repo   *repository.Repository
	saga   *saga
	config utils.DispatchConfig
	log    *zap.Logger
}

func NewBookingService(repo *repository.Repository, deps Dependencies, config *utils.Config, log *zap.Logger) BookingService {
	deps = deps.withDefaults()
	log = log.With(zap.String("service", "booking"))
	return &bookingService{
		repo:   repo,
		saga:   newSaga(repo, deps, log),
		config: config.Dispatch,
		log:    log,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, actor *utils.Principal, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	errs := utils.ValidateStruct(req)
	if (req.PickupLat == nil) != (req.PickupLng == nil) {
		if errs == nil {
			errs = map[string]string{}
		}
		errs["PickupLat"] = "Latitude and longitude must be given together"
	}
	if (req.DropoffLat == nil) != (req.DropoffLng == nil) {
		if errs == nil {
			errs = map[string]string{}
		}
		errs["DropoffLat"] = "Latitude and longitude must be given together"
	}
	if len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}

	customerID, err := parseID("customer_id", req.CustomerID)
	if err != nil {
		return nil, err
	}

	customer, err := s.repo.User.FindByID(ctx, customerID)
	if err != nil {
		return nil, internalError("find customer", err)
	}
	if customer == nil || customer.Role != entity.RoleCustomer {
		return nil, newError(CodeCustomerNotFound, "Customer %s not found", customerID)
	}

	now := s.saga.now()
	booking := &entity.Booking{
		BaseNoDelete:   entity.NewBaseNoDelete(now),
		BookingNumber:  utils.GenerateBookingNumber(now),
		CustomerID:     customerID,
		PickupAddress:  req.PickupAddress,
		PickupLat:      req.PickupLat,
		PickupLng:      req.PickupLng,
		DropoffAddress: req.DropoffAddress,
		DropoffLat:     req.DropoffLat,
		DropoffLng:     req.DropoffLng,
		PickupTime:     req.PickupTime.UTC(),
		Status:         entity.BookingStatusPending,
		EstimatedFare:  s.config.BaseFare,
		StatusVersion:  1,
	}

	if geo.HasLocation(req.PickupLat, req.PickupLng) && geo.HasLocation(req.DropoffLat, req.DropoffLng) {
		km := geo.HaversineKm(*req.PickupLat, *req.PickupLng, *req.DropoffLat, *req.DropoffLng)
		rounded := response.RoundKm(km)
		minutes := geo.EstimatedMinutes(km)
		booking.EstimatedDistanceKm = &rounded
		booking.EstimatedDurationMinutes = &minutes
		booking.EstimatedFare = s.config.BaseFare + s.config.PerKmRate*km
	}
	booking.EstimatedFare = utils.NewMoney(booking.EstimatedFare).Float64()

	if err := s.repo.Booking.Create(ctx, booking, changedBy(actor)); err != nil {
		return nil, internalError("create booking", err)
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("booking_number", booking.BookingNumber),
	)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetBooking(ctx context.Context, bookingID string) (*response.BookingDetailResponse, error) {
	id, err := parseID("booking_id", bookingID)
	if err != nil {
		return nil, err
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, internalError("find booking", err)
	}
	if booking == nil {
		return nil, newError(CodeBookingNotFound, "Booking %s not found", id)
	}

	history, err := s.repo.Booking.History(ctx, id)
	if err != nil {
		return nil, internalError("booking history", err)
	}

	payment, err := s.repo.Payment.FindByBookingID(ctx, id)
	if err != nil {
		return nil, internalError("find payment", err)
	}

	resp := response.BookingDetailToResponse(booking, history, payment)
	return &resp, nil
}

func (s *bookingService) ListBookings(ctx context.Context, req *request.BookingListRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	var status *entity.BookingStatus
	if req.Status != "" {
		st := entity.BookingStatus(req.Status)
		if !st.Valid() {
			return nil, newError(CodeInvalidStatus, "Unknown booking status %q", req.Status)
		}
		status = &st
	}

	total, err := s.repo.Booking.Count(ctx, status)
	if err != nil {
		return nil, internalError("count bookings", err)
	}

	bookings, err := s.repo.Booking.FindAll(ctx, status, req.Limit(), req.Offset())
	if err != nil {
		return nil, internalError("list bookings", err)
	}

	data := make([]response.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		data = append(data, response.BookingToResponse(b))
	}

	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *bookingService) ChangeStatus(ctx context.Context, actor *utils.Principal, bookingID string, req *request.ChangeStatusRequest) (*response.StatusChangeResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Change status validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}

	target := entity.BookingStatus(req.Status)
	if !target.Valid() {
		return nil, newError(CodeInvalidStatus, "Unknown booking status %q", req.Status)
	}

	id, err := parseID("booking_id", bookingID)
	if err != nil {
		return nil, err
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, internalError("find booking", err)
	}
	if booking == nil {
		return nil, newError(CodeBookingNotFound, "Booking %s not found", id)
	}

	if booking.Status == target {
		return &response.StatusChangeResponse{Booking: response.BookingToResponse(booking)}, nil
	}
	if !entity.CanTransition(booking.Status, target) {
		return nil, newError(CodeInvalidTransition, "Cannot change booking status from %s to %s", booking.Status, target)
	}
	if target == entity.BookingStatusInProgress && !booking.HasDriver() {
		return nil, newError(CodeDriverRequired, "Booking %s needs a driver before it can start", id)
	}

	now := s.saga.now()
	previous := booking.Status
	change := repository.StatusChange{
		BookingID: id,
		From:      previous,
		To:        target,
		Version:   booking.StatusVersion,
		Reason:    req.Reason,
		ChangedBy: changedBy(actor),
		At:        now,
	}
	if target == entity.BookingStatusCompleted {
		change.Payment = s.newPayment(booking, req, now)
	}

	ok, err := s.repo.Booking.TransitionStatus(ctx, change)
	if err != nil {
		return nil, internalError("transition booking status", err)
	}
	if !ok {
		return nil, newError(CodeConflict, "Booking %s was modified concurrently", id)
	}

	booking.Status = target
	booking.StatusVersion++
	booking.UpdatedAt = now
	if target == entity.BookingStatusCancelled {
		booking.CancellationReason = req.Reason
	}

	sagaCtx, cancel := sagaContext(ctx)
	defer cancel()

	released := false
	if target.Terminal() && booking.HasDriver() {
		driverID := *booking.DriverID
		released, err = s.saga.releaseDriver(ctx, driverID, id, fmt.Sprintf("booking %s", target))
		if err != nil {
			s.log.Error("Driver release failed, reverting status",
				zap.Error(err),
				zap.String("booking_id", id.String()),
				zap.String("driver_id", driverID.String()),
			)
			reason := "reverted: driver release failed"
			revert := repository.StatusChange{
				BookingID:   id,
				From:        target,
				To:          previous,
				Version:     booking.StatusVersion,
				Reason:      &reason,
				At:          s.saga.now(),
				VoidPayment: target == entity.BookingStatusCompleted,
			}
			reverted, rerr := s.repo.Booking.TransitionStatus(sagaCtx, revert)
			if rerr == nil && !reverted {
				rerr = fmt.Errorf("booking changed before it could be reverted")
			}
			if rerr != nil {
				return nil, s.saga.consistencyWarning(ctx, "change_status", &id, &driverID,
					fmt.Errorf("release driver: %v; revert status: %w", err, rerr))
			}
			return nil, internalError("release driver", err)
		}
	}

	event := BookingStatusChangedEvent{
		BookingID:  id.String(),
		From:       string(previous),
		To:         string(target),
		OccurredAt: now,
	}
	if booking.DriverID != nil {
		event.DriverID = booking.DriverID.String()
	}
	s.saga.publish(sagaCtx, events.BookingStatusChanged, event)

	s.log.Info("Booking status changed",
		zap.String("booking_id", id.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(target)),
	)

	return &response.StatusChangeResponse{
		Booking:        response.BookingToResponse(booking),
		Changed:        true,
		DriverReleased: released,
	}, nil
}

func (s *bookingService) newPayment(booking *entity.Booking, req *request.ChangeStatusRequest, now time.Time) *entity.Payment {
	amount := booking.EstimatedFare
	if req.FareAmount != nil {
		amount = *req.FareAmount
	}
	method := req.PaymentMethod
	if method == "" {
		method = defaultPaymentMethod
	}
	return &entity.Payment{
		BaseNoDelete: entity.NewBaseNoDelete(now),
		BookingID:    booking.ID,
		Amount:       utils.NewMoney(amount).Float64(),
		Method:       method,
		Status:       entity.PaymentStatusCompleted,
	}
}
