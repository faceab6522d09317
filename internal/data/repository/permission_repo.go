package repository

import (
	"context"
	"fmt"

	"movers-dispatch/internal/data/entity"
	"movers-dispatch/pkg/database"

	"go.uber.org/zap"
)

type PermissionRepository interface {
	ListByRole(ctx context.Context, role entity.UserRole) ([]string, error)
}

type permissionRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPermissionRepository(db database.PgxIface, log *zap.Logger) PermissionRepository {
	return &permissionRepository{
		db:  db,
		log: log.With(zap.String("repository", "permission")),
	}
}

func (r *permissionRepository) ListByRole(ctx context.Context, role entity.UserRole) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT permission FROM role_permissions WHERE role = $1 ORDER BY permission
	`, role)
	if err != nil {
		r.log.Error("Failed to list role permissions", zap.Error(err), zap.String("role", string(role)))
		return nil, fmt.Errorf("list permissions of role %s: %w", role, err)
	}
	defer rows.Close()

	var permissions []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		permissions = append(permissions, p)
	}
	return permissions, rows.Err()
}
