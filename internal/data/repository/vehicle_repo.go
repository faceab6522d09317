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
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// ErrDriverHasVehicle is returned when attaching would give a driver a second vehicle.
var ErrDriverHasVehicle = errors.New("driver already has a vehicle")

// ErrDriverInactive is returned when the driver is missing or was deactivated.
var ErrDriverInactive = errors.New("driver is inactive")

type VehicleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Vehicle, error)
	FindByDriverID(ctx context.Context, driverID uuid.UUID) (*entity.Vehicle, error)
	// AttachDriver binds an unassigned active vehicle to a driver that is not
	// inactive and opens an attachment record. false means the vehicle was
	// taken or not active.
	AttachDriver(ctx context.Context, vehicleID, driverID uuid.UUID, at time.Time) (bool, error)
	// DetachDriver unbinds the vehicle unless its driver is on a booking and
	// returns the driver it was bound to. nil means nothing was detached.
	DetachDriver(ctx context.Context, vehicleID uuid.UUID, at time.Time) (*uuid.UUID, error)
}

type vehicleRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewVehicleRepository(db database.PgxIface, log *zap.Logger) VehicleRepository {
	return &vehicleRepository{
		db:  db,
		log: log.With(zap.String("repository", "vehicle")),
	}
}

const vehicleColumns = `id, plate_number, model, capacity, status, assigned_driver_id, created_at, updated_at`

func (r *vehicleRepository) scanOne(ctx context.Context, query string, arg any) (*entity.Vehicle, error) {
	var v entity.Vehicle
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&v.ID,
		&v.PlateNumber,
		&v.Model,
		&v.Capacity,
		&v.Status,
		&v.AssignedDriverID,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *vehicleRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Vehicle, error) {
	v, err := r.scanOne(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id)
	if err != nil {
		r.log.Error("Failed to find vehicle by ID", zap.Error(err), zap.String("vehicle_id", id.String()))
		return nil, fmt.Errorf("find vehicle by ID %s: %w", id, err)
	}
	return v, nil
}

func (r *vehicleRepository) FindByDriverID(ctx context.Context, driverID uuid.UUID) (*entity.Vehicle, error) {
	v, err := r.scanOne(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE assigned_driver_id = $1`, driverID)
	if err != nil {
		r.log.Error("Failed to find vehicle by driver", zap.Error(err), zap.String("driver_id", driverID.String()))
		return nil, fmt.Errorf("find vehicle of driver %s: %w", driverID, err)
	}
	return v, nil
}

func (r *vehicleRepository) AttachDriver(ctx context.Context, vehicleID, driverID uuid.UUID, at time.Time) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin attach tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Driver rows are locked before vehicle rows in every transaction that
	// touches both; Deactivate does the same through its UPDATE.
	status, err := lockDriver(ctx, tx, driverID)
	if err != nil {
		r.log.Error("Failed to lock driver for attach", zap.Error(err), zap.String("driver_id", driverID.String()))
		return false, fmt.Errorf("lock driver %s: %w", driverID, err)
	}
	if status == "" || status == entity.DriverStatusInactive {
		return false, ErrDriverInactive
	}

	tag, err := tx.Exec(ctx, `
		UPDATE vehicles
		SET assigned_driver_id = $2, updated_at = $3
		WHERE id = $1 AND assigned_driver_id IS NULL AND status = 'active'
	`, vehicleID, driverID, at)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, ErrDriverHasVehicle
		}
		r.log.Error("Failed to attach vehicle",
			zap.Error(err),
			zap.String("vehicle_id", vehicleID.String()),
			zap.String("driver_id", driverID.String()),
		)
		return false, fmt.Errorf("attach vehicle %s: %w", vehicleID, err)
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO assignment_history (id, vehicle_id, driver_id, assigned_date, notes, created_at)
		VALUES ($1, $2, $3, $4, 'vehicle attached', $4)
	`, uuid.New(), vehicleID, driverID, at)
	if err != nil {
		return false, fmt.Errorf("open attachment record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit attach tx: %w", err)
	}
	return true, nil
}

func (r *vehicleRepository) DetachDriver(ctx context.Context, vehicleID uuid.UUID, at time.Time) (*uuid.UUID, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin detach tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var driverID *uuid.UUID
	err = tx.QueryRow(ctx, `SELECT assigned_driver_id FROM vehicles WHERE id = $1`, vehicleID).Scan(&driverID)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && driverID == nil) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to read vehicle driver", zap.Error(err), zap.String("vehicle_id", vehicleID.String()))
		return nil, fmt.Errorf("read driver of vehicle %s: %w", vehicleID, err)
	}

	status, err := lockDriver(ctx, tx, *driverID)
	if err != nil {
		r.log.Error("Failed to lock driver for detach", zap.Error(err), zap.String("driver_id", driverID.String()))
		return nil, fmt.Errorf("lock driver %s: %w", *driverID, err)
	}
	if status == entity.DriverStatusBusy {
		return nil, nil
	}

	tag, err := tx.Exec(ctx, `
		UPDATE vehicles
		SET assigned_driver_id = NULL, updated_at = $3
		WHERE id = $1 AND assigned_driver_id = $2
	`, vehicleID, *driverID, at)
	if err != nil {
		r.log.Error("Failed to detach vehicle", zap.Error(err), zap.String("vehicle_id", vehicleID.String()))
		return nil, fmt.Errorf("detach vehicle %s: %w", vehicleID, err)
	}
	if tag.RowsAffected() != 1 {
		return nil, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE assignment_history
		SET unassigned_date = $2,
		    notes = COALESCE(notes || '; ', '') || 'vehicle detached'
		WHERE vehicle_id = $1 AND booking_id IS NULL AND unassigned_date IS NULL
	`, vehicleID, at)
	if err != nil {
		return nil, fmt.Errorf("close attachment record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit detach tx: %w", err)
	}
	return driverID, nil
}

// lockDriver takes the driver row lock and returns its status, or "" when the
// driver does not exist.
func lockDriver(ctx context.Context, tx pgx.Tx, driverID uuid.UUID) (entity.DriverStatus, error) {
	var status entity.DriverStatus
	err := tx.QueryRow(ctx, `SELECT status FROM drivers WHERE id = $1 FOR UPDATE`, driverID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return status, err
}
