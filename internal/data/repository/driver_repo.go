package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"movers-dispatch/internal/data/entity"
	"movers-dispatch/pkg/database"
	"movers-dispatch/pkg/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// CandidateFilter narrows the available-driver scan. DriverIDs nil means no
// id restriction.
type CandidateFilter struct {
	Box            geo.BoundingBox
	DriverIDs      []uuid.UUID
	RequireVehicle bool
}

type DriverRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Driver, error)
	FindAvailableCandidates(ctx context.Context, filter CandidateFilter) ([]entity.DriverCandidate, error)
	ListLocated(ctx context.Context) ([]entity.DriverLocation, error)

	// ClaimForBooking moves an available driver to busy and opens the dispatch
	// record in one transaction. false means the driver was no longer available
	// or vehicleID is no longer its active vehicle.
	ClaimForBooking(ctx context.Context, driverID, vehicleID, bookingID uuid.UUID, at time.Time) (bool, error)
	// ReleaseFromBooking moves a busy driver back to available and closes the
	// open dispatch record of bookingID. false means the driver was not busy.
	ReleaseFromBooking(ctx context.Context, driverID, bookingID uuid.UUID, reason string, at time.Time) (bool, error)

	SetAvailability(ctx context.Context, id uuid.UUID, from, to entity.DriverStatus, at time.Time) (bool, error)
	// Deactivate marks a non-busy driver inactive, detaches its vehicle and
	// closes the open attachment record. It returns the detached vehicle id.
	Deactivate(ctx context.Context, id uuid.UUID, at time.Time) (*uuid.UUID, bool, error)
}

type driverRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewDriverRepository(db database.PgxIface, log *zap.Logger) DriverRepository {
	return &driverRepository{
		db:  db,
		log: log.With(zap.String("repository", "driver")),
	}
}

const driverColumns = `d.id, d.user_id, d.full_name, d.phone, d.license_number, d.license_expiry,
	d.rating, d.status, d.current_lat, d.current_lng, d.location_updated_at, d.created_at, d.updated_at`

func driverScanTargets(d *entity.Driver) []any {
	return []any{
		&d.ID,
		&d.UserID,
		&d.FullName,
		&d.Phone,
		&d.LicenseNumber,
		&d.LicenseExpiry,
		&d.Rating,
		&d.Status,
		&d.CurrentLat,
		&d.CurrentLng,
		&d.LocationUpdatedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	}
}

func (r *driverRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers d WHERE d.id = $1`

	var driver entity.Driver
	err := r.db.QueryRow(ctx, query, id).Scan(driverScanTargets(&driver)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find driver by ID",
			zap.Error(err),
			zap.String("driver_id", id.String()),
		)
		return nil, fmt.Errorf("find driver by ID %s: %w", id, err)
	}

	return &driver, nil
}

func (r *driverRepository) FindAvailableCandidates(ctx context.Context, filter CandidateFilter) ([]entity.DriverCandidate, error) {
	query := `
		SELECT ` + driverColumns + `,
		       v.id, v.plate_number, v.model, v.capacity, v.status, v.created_at, v.updated_at
		FROM drivers d
		LEFT JOIN vehicles v ON v.assigned_driver_id = d.id AND v.status = 'active'
		WHERE d.status = 'available'
		  AND d.current_lat IS NOT NULL AND d.current_lng IS NOT NULL
		  AND NOT (d.current_lat = 0 AND d.current_lng = 0)
		  AND d.current_lat BETWEEN $1 AND $2
		  AND ($3::boolean = FALSE OR d.current_lng BETWEEN $4 AND $5)
		  AND ($6::uuid[] IS NULL OR d.id = ANY($6::uuid[]))
		  AND ($7::boolean = FALSE OR v.id IS NOT NULL)
	`

	var ids []string
	if filter.DriverIDs != nil {
		ids = make([]string, len(filter.DriverIDs))
		for i, id := range filter.DriverIDs {
			ids[i] = id.String()
		}
	}

	rows, err := r.db.Query(ctx, query,
		filter.Box.MinLat,
		filter.Box.MaxLat,
		filter.Box.LngBounded,
		filter.Box.MinLng,
		filter.Box.MaxLng,
		ids,
		filter.RequireVehicle,
	)
	if err != nil {
		r.log.Error("Failed to query available drivers", zap.Error(err))
		return nil, fmt.Errorf("query available drivers: %w", err)
	}
	defer rows.Close()

	var candidates []entity.DriverCandidate
	for rows.Next() {
		var (
			c         entity.DriverCandidate
			vehicleID *uuid.UUID
			plate     *string
			model     *string
			capacity  *int
			vStatus   *entity.VehicleStatus
			vCreated  *time.Time
			vUpdated  *time.Time
		)

		targets := append(driverScanTargets(&c.Driver),
			&vehicleID, &plate, &model, &capacity, &vStatus, &vCreated, &vUpdated)
		if err := rows.Scan(targets...); err != nil {
			r.log.Error("Failed to scan driver candidate", zap.Error(err))
			return nil, fmt.Errorf("scan driver candidate: %w", err)
		}

		if vehicleID != nil {
			driverID := c.Driver.ID
			c.Vehicle = &entity.Vehicle{
				BaseNoDelete:     entity.BaseNoDelete{ID: *vehicleID, CreatedAt: *vCreated, UpdatedAt: *vUpdated},
				PlateNumber:      *plate,
				Model:            *model,
				Capacity:         *capacity,
				Status:           *vStatus,
				AssignedDriverID: &driverID,
			}
		}
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate driver candidates: %w", err)
	}

	return candidates, nil
}

// ListLocated returns every non-inactive driver with a usable position.
func (r *driverRepository) ListLocated(ctx context.Context) ([]entity.DriverLocation, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, current_lat, current_lng, status, location_updated_at
		FROM drivers
		WHERE status <> 'inactive'
		  AND current_lat IS NOT NULL AND current_lng IS NOT NULL
		  AND NOT (current_lat = 0 AND current_lng = 0)
	`)
	if err != nil {
		r.log.Error("Failed to list located drivers", zap.Error(err))
		return nil, fmt.Errorf("list located drivers: %w", err)
	}
	defer rows.Close()

	var locations []entity.DriverLocation
	for rows.Next() {
		var loc entity.DriverLocation
		if err := rows.Scan(&loc.DriverID, &loc.Lat, &loc.Lng, &loc.Status, &loc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan located driver: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

func (r *driverRepository) ClaimForBooking(ctx context.Context, driverID, vehicleID, bookingID uuid.UUID, at time.Time) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockDriver(ctx, tx, driverID)
	if err != nil {
		r.log.Error("Failed to lock driver for claim", zap.Error(err), zap.String("driver_id", driverID.String()))
		return false, fmt.Errorf("lock driver %s: %w", driverID, err)
	}
	if status != entity.DriverStatusAvailable {
		return false, nil
	}

	tag, err := tx.Exec(ctx, `
		UPDATE drivers
		SET status = 'busy', updated_at = $3
		WHERE id = $1 AND status = 'available'
		  AND EXISTS (
			SELECT 1 FROM vehicles
			WHERE id = $2 AND assigned_driver_id = $1 AND status = 'active'
		  )
	`, driverID, vehicleID, at)
	if err != nil {
		r.log.Error("Failed to mark driver busy",
			zap.Error(err),
			zap.String("driver_id", driverID.String()),
		)
		return false, fmt.Errorf("mark driver %s busy: %w", driverID, err)
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	notes := fmt.Sprintf("dispatched to booking %s", bookingID)
	_, err = tx.Exec(ctx, `
		INSERT INTO assignment_history (id, vehicle_id, driver_id, booking_id, assigned_date, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $5)
	`, uuid.New(), vehicleID, driverID, bookingID, at, notes)
	if err != nil {
		r.log.Error("Failed to open dispatch record",
			zap.Error(err),
			zap.String("driver_id", driverID.String()),
			zap.String("booking_id", bookingID.String()),
		)
		return false, fmt.Errorf("open dispatch record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit claim tx: %w", err)
	}
	return true, nil
}

func (r *driverRepository) ReleaseFromBooking(ctx context.Context, driverID, bookingID uuid.UUID, reason string, at time.Time) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin release tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE drivers
		SET status = 'available', updated_at = $2
		WHERE id = $1 AND status = 'busy'
	`, driverID, at)
	if err != nil {
		r.log.Error("Failed to mark driver available",
			zap.Error(err),
			zap.String("driver_id", driverID.String()),
		)
		return false, fmt.Errorf("mark driver %s available: %w", driverID, err)
	}
	released := tag.RowsAffected() == 1

	_, err = tx.Exec(ctx, `
		UPDATE assignment_history
		SET unassigned_date = $3,
		    notes = COALESCE(notes || '; ', '') || $4
		WHERE driver_id = $1 AND booking_id = $2 AND unassigned_date IS NULL
	`, driverID, bookingID, at, reason)
	if err != nil {
		r.log.Error("Failed to close dispatch record",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return false, fmt.Errorf("close dispatch record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit release tx: %w", err)
	}
	return released, nil
}

func (r *driverRepository) SetAvailability(ctx context.Context, id uuid.UUID, from, to entity.DriverStatus, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE drivers
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`, id, from, to, at)
	if err != nil {
		r.log.Error("Failed to set driver availability",
			zap.Error(err),
			zap.String("driver_id", id.String()),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("set driver %s availability: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *driverRepository) Deactivate(ctx context.Context, id uuid.UUID, at time.Time) (*uuid.UUID, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin deactivate tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE drivers
		SET status = 'inactive', updated_at = $2
		WHERE id = $1 AND status IN ('available', 'offline')
	`, id, at)
	if err != nil {
		r.log.Error("Failed to deactivate driver", zap.Error(err), zap.String("driver_id", id.String()))
		return nil, false, fmt.Errorf("deactivate driver %s: %w", id, err)
	}
	if tag.RowsAffected() != 1 {
		return nil, false, nil
	}

	var vehicleID *uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE vehicles
		SET assigned_driver_id = NULL, updated_at = $2
		WHERE assigned_driver_id = $1
		RETURNING id
	`, id, at).Scan(&vehicleID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		r.log.Error("Failed to detach vehicle", zap.Error(err), zap.String("driver_id", id.String()))
		return nil, false, fmt.Errorf("detach vehicle from driver %s: %w", id, err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE assignment_history
		SET unassigned_date = $2,
		    notes = COALESCE(notes || '; ', '') || 'driver deactivated'
		WHERE driver_id = $1 AND unassigned_date IS NULL
	`, id, at)
	if err != nil {
		return nil, false, fmt.Errorf("close assignment records of driver %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit deactivate tx: %w", err)
	}
	return vehicleID, true, nil
}
