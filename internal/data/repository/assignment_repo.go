package repository

import (
	"context"
	"errors"
	"fmt"

	"movers-dispatch/internal/data/entity"
	"movers-dispatch/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// AssignmentRepository reads assignment_history. Writes happen inside the
// driver and vehicle transactions that change the binding.
type AssignmentRepository interface {
	FindOpenByBooking(ctx context.Context, bookingID uuid.UUID) (*entity.AssignmentHistory, error)
	ListByDriver(ctx context.Context, driverID uuid.UUID, limit int) ([]*entity.AssignmentHistory, error)
}

type assignmentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewAssignmentRepository(db database.PgxIface, log *zap.Logger) AssignmentRepository {
	return &assignmentRepository{
		db:  db,
		log: log.With(zap.String("repository", "assignment_history")),
	}
}

const assignmentColumns = `id, vehicle_id, driver_id, booking_id, assigned_date, unassigned_date, notes, created_at`

func scanAssignment(row pgx.Row) (*entity.AssignmentHistory, error) {
	var h entity.AssignmentHistory
	err := row.Scan(
		&h.ID,
		&h.VehicleID,
		&h.DriverID,
		&h.BookingID,
		&h.AssignedDate,
		&h.UnassignedDate,
		&h.Notes,
		&h.CreatedAt,
	)
	return &h, err
}

func (r *assignmentRepository) FindOpenByBooking(ctx context.Context, bookingID uuid.UUID) (*entity.AssignmentHistory, error) {
	h, err := scanAssignment(r.db.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignment_history
		WHERE booking_id = $1 AND unassigned_date IS NULL
	`, bookingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find open dispatch record", zap.Error(err), zap.String("booking_id", bookingID.String()))
		return nil, fmt.Errorf("find open dispatch record of booking %s: %w", bookingID, err)
	}
	return h, nil
}

func (r *assignmentRepository) ListByDriver(ctx context.Context, driverID uuid.UUID, limit int) ([]*entity.AssignmentHistory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignment_history
		WHERE driver_id = $1
		ORDER BY assigned_date DESC
		LIMIT $2
	`, driverID, limit)
	if err != nil {
		r.log.Error("Failed to list assignment history", zap.Error(err), zap.String("driver_id", driverID.String()))
		return nil, fmt.Errorf("list assignment history: %w", err)
	}
	defer rows.Close()

	var history []*entity.AssignmentHistory
	for rows.Next() {
		h, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
