package usecase

import (
	"context"
	"fmt"
	"time"

	"movers-dispatch/internal/data/entity"
	"movers-dispatch/internal/data/repository"
	"movers-dispatch/pkg/events"
	"movers-dispatch/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sagaTimeout = 5 * time.Second

// sagaContext outlives the request: once the first store is written, the
// remaining steps and their compensations must run even if the caller left.
func sagaContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), sagaTimeout)
}

// saga holds what every cross-store operation needs to finish or undo its
// writes and to report the ones it could not undo.
type saga struct {
	repo   *repository.Repository
	events EventPublisher
	now    func() time.Time
	log    *zap.Logger
}

func newSaga(repo *repository.Repository, deps Dependencies, log *zap.Logger) *saga {
	return &saga{
		repo:   repo,
		events: deps.Events,
		now:    deps.Now,
		log:    log,
	}
}

// consistencyWarning records a failed compensation in every place an operator
// looks: the error log, the core1 audit table and the event bus.
func (s *saga) consistencyWarning(ctx context.Context, operation string, bookingID, driverID *uuid.UUID, cause error) *AppError {
	detail := cause.Error()
	s.log.Error("CONSISTENCY_WARNING",
		zap.String("operation", operation),
		zap.Stringer("booking_id", optionalID(bookingID)),
		zap.Stringer("driver_id", optionalID(driverID)),
		zap.Error(cause),
	)

	now := s.now()
	warning := &entity.ConsistencyWarning{
		BaseSimple: entity.NewBaseSimple(now),
		Operation:  operation,
		BookingID:  bookingID,
		DriverID:   driverID,
		Detail:     detail,
	}

	auditCtx, cancel := sagaContext(ctx)
	defer cancel()
	if err := s.repo.Audit.RecordConsistencyWarning(auditCtx, warning); err != nil {
		s.log.Error("Failed to persist consistency warning", zap.Error(err), zap.String("operation", operation))
	}

	s.publish(auditCtx, events.ConsistencyWarning, ConsistencyWarningEvent{
		WarningID:  warning.ID.String(),
		Operation:  operation,
		BookingID:  optionalID(bookingID).String(),
		DriverID:   optionalID(driverID).String(),
		Detail:     detail,
		OccurredAt: now,
	})

	return &AppError{
		Code:    CodeConsistencyWarning,
		Message: "Operation partially applied and could not be rolled back; it has been flagged for review",
		Err:     fmt.Errorf("%s: %w", operation, cause),
	}
}

// releaseDriver undoes a driver claim. It runs detached from the request.
func (s *saga) releaseDriver(ctx context.Context, driverID, bookingID uuid.UUID, reason string) (bool, error) {
	releaseCtx, cancel := sagaContext(ctx)
	defer cancel()

	released, err := s.repo.Driver.ReleaseFromBooking(releaseCtx, driverID, bookingID, reason, s.now())
	if err != nil {
		return false, err
	}
	if !released {
		s.log.Warn("Driver was not busy when released",
			zap.String("driver_id", driverID.String()),
			zap.String("booking_id", bookingID.String()),
		)
	}
	return released, nil
}

// publish never fails the operation; the state change is already committed.
func (s *saga) publish(ctx context.Context, routingKey string, payload any) {
	if err := s.events.Publish(ctx, routingKey, payload); err != nil {
		s.log.Warn("Failed to publish event", zap.String("routing_key", routingKey), zap.Error(err))
	}
}

func changedBy(actor *utils.Principal) *uuid.UUID {
	if actor == nil || actor.UserID == uuid.Nil {
		return nil
	}
	id := actor.UserID
	return &id
}

type nullableID struct{ id *uuid.UUID }

func (n nullableID) String() string {
	if n.id == nil {
		return ""
	}
	return n.id.String()
}

func optionalID(id *uuid.UUID) nullableID {
	return nullableID{id: id}
}
