package repository

import (
	"context"
	"fmt"

	"movers-dispatch/internal/data/entity"
	"movers-dispatch/pkg/database"

	"go.uber.org/zap"
)

type AuditRepository interface {
	RecordConsistencyWarning(ctx context.Context, w *entity.ConsistencyWarning) error
}

type auditRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewAuditRepository(db database.PgxIface, log *zap.Logger) AuditRepository {
	return &auditRepository{
		db:  db,
		log: log.With(zap.String("repository", "audit")),
	}
}

func (r *auditRepository) RecordConsistencyWarning(ctx context.Context, w *entity.ConsistencyWarning) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO consistency_warnings (id, operation, booking_id, driver_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, w.ID, w.Operation, w.BookingID, w.DriverID, w.Detail, w.CreatedAt)
	if err != nil {
		r.log.Error("Failed to record consistency warning",
			zap.Error(err),
			zap.String("operation", w.Operation),
		)
		return fmt.Errorf("record consistency warning: %w", err)
	}
	return nil
}
