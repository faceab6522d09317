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

type LocationRepository interface {
	// Update stores the current position and appends it to the history.
	// nil means the driver does not exist.
	Update(ctx context.Context, driverID uuid.UUID, lat, lng float64, at time.Time) (*entity.DriverLocation, error)
	History(ctx context.Context, driverID uuid.UUID, limit int) ([]*entity.DriverLocationHistory, error)
}

type locationRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewLocationRepository(db database.PgxIface, log *zap.Logger) LocationRepository {
	return &locationRepository{
		db:  db,
		log: log.With(zap.String("repository", "location")),
	}
}

func (r *locationRepository) Update(ctx context.Context, driverID uuid.UUID, lat, lng float64, at time.Time) (*entity.DriverLocation, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin location tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// location_updated_at never moves backwards, even with clock skew
	// between application nodes.
	loc := entity.DriverLocation{DriverID: driverID, Lat: lat, Lng: lng}
	err = tx.QueryRow(ctx, `
		UPDATE drivers
		SET current_lat = $2,
		    current_lng = $3,
		    location_updated_at = GREATEST($4, COALESCE(location_updated_at + INTERVAL '1 microsecond', $4)),
		    updated_at = $4
		WHERE id = $1
		RETURNING status, location_updated_at
	`, driverID, lat, lng, at).Scan(&loc.Status, &loc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to update driver location",
			zap.Error(err),
			zap.String("driver_id", driverID.String()),
		)
		return nil, fmt.Errorf("update location of driver %s: %w", driverID, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO driver_location_history (id, driver_id, lat, lng, recorded_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, uuid.New(), driverID, lat, lng, loc.UpdatedAt)
	if err != nil {
		r.log.Error("Failed to append location history",
			zap.Error(err),
			zap.String("driver_id", driverID.String()),
		)
		return nil, fmt.Errorf("append location history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit location tx: %w", err)
	}
	return &loc, nil
}

func (r *locationRepository) History(ctx context.Context, driverID uuid.UUID, limit int) ([]*entity.DriverLocationHistory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, driver_id, lat, lng, recorded_at, created_at
		FROM driver_location_history
		WHERE driver_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, driverID, limit)
	if err != nil {
		r.log.Error("Failed to query location history", zap.Error(err), zap.String("driver_id", driverID.String()))
		return nil, fmt.Errorf("query location history: %w", err)
	}
	defer rows.Close()

	var history []*entity.DriverLocationHistory
	for rows.Next() {
		var h entity.DriverLocationHistory
		if err := rows.Scan(&h.ID, &h.DriverID, &h.Lat, &h.Lng, &h.RecordedAt, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan location history: %w", err)
		}
		history = append(history, &h)
	}
	return history, rows.Err()
}
