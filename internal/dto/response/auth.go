package response

import (
	"sort"
	"time"

	"movers-dispatch/internal/data/entity"
)

type AuthResponse struct {
	UserID      string          `json:"user_id"`
	Token       string          `json:"token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Email       string          `json:"email"`
	Username    string          `json:"username"`
	Role        entity.UserRole `json:"role"`
	Permissions []string        `json:"permissions"`
}

func AuthToResponse(user *entity.User, session *entity.Session, permissions []string) AuthResponse {
	perms := append([]string{}, permissions...)
	sort.Strings(perms)

	resp := AuthResponse{
		UserID:      user.ID.String(),
		Email:       user.Email,
		Username:    user.Username,
		Role:        user.Role,
		Permissions: perms,
	}

	if session != nil {
		resp.Token = session.Token.String()
		resp.ExpiresAt = session.ExpiresAt.UTC()
	}

	return resp
}
