package utils

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	PrincipalKey contextKey = "principal"
	TokenKey     contextKey = "token"
)

// Permission names stored in role_permissions.
const (
	PermManageBookings = "manage_bookings"
	PermViewDrivers    = "view_drivers"
	PermUpdateLocation = "update_location"
	PermManageDrivers  = "manage_drivers"
	PermManageVehicles = "manage_vehicles"
)

// Principal is the authenticated caller of a single request.
type Principal struct {
	UserID      uuid.UUID
	Role        string
	Permissions map[string]bool
}

func NewPrincipal(userID uuid.UUID, role string, permissions []string) *Principal {
	p := &Principal{UserID: userID, Role: role, Permissions: make(map[string]bool, len(permissions))}
	for _, perm := range permissions {
		p.Permissions[perm] = true
	}
	return p
}

func (p *Principal) Can(permission string) bool {
	return p != nil && p.Permissions[permission]
}

func SetPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

func GetPrincipal(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*Principal)
	return p, ok && p != nil
}

// GetTokenFromContext returns the bearer token of the current session
func GetTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// SetTokenContext stores the bearer token of the current session
func SetTokenContext(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, TokenKey, token)
}
