package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"movers-dispatch/internal/data/entity"
	"movers-dispatch/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// StatusChange is a versioned status write. Payment, when set, is inserted in
// the same transaction.
type StatusChange struct {
	BookingID uuid.UUID
	From      entity.BookingStatus
	To        entity.BookingStatus
	Version   int
	Reason    *string
	ChangedBy *uuid.UUID
	Payment   *entity.Payment
	At        time.Time

	// VoidPayment deletes the booking's payment, used when reverting a completion.
	VoidPayment bool
}

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking, changedBy *uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindAll(ctx context.Context, status *entity.BookingStatus, limit, offset int) ([]*entity.Booking, error)
	Count(ctx context.Context, status *entity.BookingStatus) (int64, error)
	History(ctx context.Context, bookingID uuid.UUID) ([]*entity.BookingStatusHistory, error)

	// AssignDriver binds driver and vehicle and confirms the booking, only if
	// it has no driver and is still pending or confirmed.
	AssignDriver(ctx context.Context, bookingID, driverID, vehicleID uuid.UUID, changedBy *uuid.UUID, at time.Time) (bool, error)
	// ClearDriver unbinds driverID and returns the booking to pending, only if
	// that driver is still bound and the booking is not terminal.
	ClearDriver(ctx context.Context, bookingID, driverID uuid.UUID, changedBy *uuid.UUID, at time.Time) (bool, error)
	// RestoreDriver undoes ClearDriver when the driver release failed.
	RestoreDriver(ctx context.Context, bookingID, driverID, vehicleID uuid.UUID, status entity.BookingStatus, at time.Time) (bool, error)
	// TransitionStatus applies change only if status and version still match.
	TransitionStatus(ctx context.Context, change StatusChange) (bool, error)
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, booking_number, customer_id, pickup_address, pickup_lat, pickup_lng,
	dropoff_address, dropoff_lat, dropoff_lng, pickup_time, status, driver_id, vehicle_id,
	estimated_fare, estimated_distance_km, estimated_duration_minutes, cancellation_reason,
	status_version, created_at, updated_at`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var b entity.Booking
	err := row.Scan(
		&b.ID,
		&b.BookingNumber,
		&b.CustomerID,
		&b.PickupAddress,
		&b.PickupLat,
		&b.PickupLng,
		&b.DropoffAddress,
		&b.DropoffLat,
		&b.DropoffLng,
		&b.PickupTime,
		&b.Status,
		&b.DriverID,
		&b.VehicleID,
		&b.EstimatedFare,
		&b.EstimatedDistanceKm,
		&b.EstimatedDurationMinutes,
		&b.CancellationReason,
		&b.StatusVersion,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	return &b, err
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking, changedBy *uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (id, booking_number, customer_id, pickup_address, pickup_lat, pickup_lng,
		                      dropoff_address, dropoff_lat, dropoff_lng, pickup_time, status,
		                      estimated_fare, estimated_distance_km, estimated_duration_minutes,
		                      status_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		booking.ID,
		booking.BookingNumber,
		booking.CustomerID,
		booking.PickupAddress,
		booking.PickupLat,
		booking.PickupLng,
		booking.DropoffAddress,
		booking.DropoffLat,
		booking.DropoffLng,
		booking.PickupTime,
		booking.Status,
		booking.EstimatedFare,
		booking.EstimatedDistanceKm,
		booking.EstimatedDurationMinutes,
		booking.StatusVersion,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_number", booking.BookingNumber),
			zap.String("customer_id", booking.CustomerID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.BookingNumber, err)
	}

	if err := insertStatusHistory(ctx, tx, booking.ID, nil, booking.Status, changedBy, nil, booking.CreatedAt); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create booking tx: %w", err)
	}
	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id, err)
	}
	return b, nil
}

func (r *bookingRepository) FindAll(ctx context.Context, status *entity.BookingStatus, limit, offset int) ([]*entity.Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, status, limit, offset)
	if err != nil {
		r.log.Error("Failed to list bookings", zap.Error(err))
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking", zap.Error(err))
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) Count(ctx context.Context, status *entity.BookingStatus) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM bookings WHERE ($1::text IS NULL OR status = $1)
	`, status).Scan(&total)
	if err != nil {
		r.log.Error("Failed to count bookings", zap.Error(err))
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return total, nil
}

func (r *bookingRepository) History(ctx context.Context, bookingID uuid.UUID) ([]*entity.BookingStatusHistory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, booking_id, from_status, to_status, changed_by, reason, created_at
		FROM booking_status_history
		WHERE booking_id = $1
		ORDER BY created_at, id
	`, bookingID)
	if err != nil {
		r.log.Error("Failed to query booking history", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, fmt.Errorf("query booking history: %w", err)
	}
	defer rows.Close()

	var history []*entity.BookingStatusHistory
	for rows.Next() {
		var h entity.BookingStatusHistory
		if err := rows.Scan(&h.ID, &h.BookingID, &h.FromStatus, &h.ToStatus, &h.ChangedBy, &h.Reason, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking history: %w", err)
		}
		history = append(history, &h)
	}
	return history, rows.Err()
}

func (r *bookingRepository) AssignDriver(ctx context.Context, bookingID, driverID, vehicleID uuid.UUID, changedBy *uuid.UUID, at time.Time) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin assign tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var previous entity.BookingStatus
	err = tx.QueryRow(ctx, `
		WITH old AS (
			SELECT id, status FROM bookings WHERE id = $1 FOR UPDATE
		)
		UPDATE bookings b
		SET driver_id = $2,
		    vehicle_id = $3,
		    status = 'confirmed',
		    status_version = b.status_version + 1,
		    updated_at = $4
		FROM old
		WHERE b.id = old.id
		  AND b.driver_id IS NULL
		  AND b.status IN ('pending', 'confirmed')
		RETURNING old.status
	`, bookingID, driverID, vehicleID, at).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		r.log.Error("Failed to assign driver to booking",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("driver_id", driverID.String()),
		)
		return false, fmt.Errorf("assign driver to booking %s: %w", bookingID, err)
	}

	if previous != entity.BookingStatusConfirmed {
		reason := "driver assigned"
		if err := insertStatusHistory(ctx, tx, bookingID, &previous, entity.BookingStatusConfirmed, changedBy, &reason, at); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit assign tx: %w", err)
	}
	return true, nil
}

func (r *bookingRepository) ClearDriver(ctx context.Context, bookingID, driverID uuid.UUID, changedBy *uuid.UUID, at time.Time) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin unassign tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var previous entity.BookingStatus
	err = tx.QueryRow(ctx, `
		WITH old AS (
			SELECT id, status FROM bookings WHERE id = $1 FOR UPDATE
		)
		UPDATE bookings b
		SET driver_id = NULL,
		    vehicle_id = NULL,
		    status = 'pending',
		    status_version = b.status_version + 1,
		    updated_at = $3
		FROM old
		WHERE b.id = old.id
		  AND b.driver_id = $2
		  AND b.status IN ('pending', 'confirmed', 'in_progress')
		RETURNING old.status
	`, bookingID, driverID, at).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		r.log.Error("Failed to clear booking driver",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return false, fmt.Errorf("clear driver of booking %s: %w", bookingID, err)
	}

	if previous != entity.BookingStatusPending {
		reason := "driver unassigned"
		if err := insertStatusHistory(ctx, tx, bookingID, &previous, entity.BookingStatusPending, changedBy, &reason, at); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit unassign tx: %w", err)
	}
	return true, nil
}

func (r *bookingRepository) RestoreDriver(ctx context.Context, bookingID, driverID, vehicleID uuid.UUID, status entity.BookingStatus, at time.Time) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin restore tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET driver_id = $2,
		    vehicle_id = $3,
		    status = $4,
		    status_version = status_version + 1,
		    updated_at = $5
		WHERE id = $1 AND driver_id IS NULL AND status = 'pending'
	`, bookingID, driverID, vehicleID, status, at)
	if err != nil {
		r.log.Error("Failed to restore booking driver",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return false, fmt.Errorf("restore driver of booking %s: %w", bookingID, err)
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	if status != entity.BookingStatusPending {
		from := entity.BookingStatusPending
		reason := "compensation: driver release failed"
		if err := insertStatusHistory(ctx, tx, bookingID, &from, status, nil, &reason, at); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit restore tx: %w", err)
	}
	return true, nil
}

func (r *bookingRepository) TransitionStatus(ctx context.Context, change StatusChange) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin status tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET status = $2,
		    status_version = status_version + 1,
		    cancellation_reason = CASE
		        WHEN $2 = 'cancelled' THEN $5
		        WHEN $3 = 'cancelled' THEN NULL
		        ELSE cancellation_reason
		    END,
		    updated_at = $6
		WHERE id = $1 AND status = $3 AND status_version = $4
	`, change.BookingID, change.To, change.From, change.Version, change.Reason, change.At)
	if err != nil {
		r.log.Error("Failed to update booking status",
			zap.Error(err),
			zap.String("booking_id", change.BookingID.String()),
			zap.String("from", string(change.From)),
			zap.String("to", string(change.To)),
		)
		return false, fmt.Errorf("update status of booking %s: %w", change.BookingID, err)
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	from := change.From
	if err := insertStatusHistory(ctx, tx, change.BookingID, &from, change.To, change.ChangedBy, change.Reason, change.At); err != nil {
		return false, err
	}

	if p := change.Payment; p != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO payments (id, booking_id, amount, method, status, transaction_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, p.ID, p.BookingID, p.Amount, p.Method, p.Status, p.TransactionID, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			r.log.Error("Failed to record payment",
				zap.Error(err),
				zap.String("booking_id", change.BookingID.String()),
			)
			return false, fmt.Errorf("record payment for booking %s: %w", change.BookingID, err)
		}
	}

	if change.VoidPayment {
		if _, err := tx.Exec(ctx, `DELETE FROM payments WHERE booking_id = $1`, change.BookingID); err != nil {
			return false, fmt.Errorf("void payment for booking %s: %w", change.BookingID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit status tx: %w", err)
	}
	return true, nil
}

func insertStatusHistory(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID, from *entity.BookingStatus, to entity.BookingStatus, changedBy *uuid.UUID, reason *string, at time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO booking_status_history (id, booking_id, from_status, to_status, changed_by, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New(), bookingID, from, to, changedBy, reason, at)
	if err != nil {
		return fmt.Errorf("append status history of booking %s: %w", bookingID, err)
	}
	return nil
}
