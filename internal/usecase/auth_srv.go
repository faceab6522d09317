package usecase

import (
	"context"
	"time"

	"movers-dispatch/internal/data/entity"
	"movers-dispatch/internal/data/repository"
	"movers-dispatch/internal/dto/request"
	"movers-dispatch/internal/dto/response"
	"movers-dispatch/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService interface {
	Login(ctx context.Context, req *request.LoginRequest, userAgent, ipAddress string) (*response.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	// Authenticate resolves a bearer token to the caller. It returns nil, nil
	// when the token is unknown, expired or revoked.
	Authenticate(ctx context.Context, token string) (*utils.Principal, error)
}

type authService struct {
	repo   *repository.Repository
	config *utils.Config
	now    func() time.Time
	log    *zap.Logger
}

func NewAuthService(
	repo *repository.Repository,
	deps Dependencies,
	config *utils.Config,
	log *zap.Logger,
) AuthService {
	deps = deps.withDefaults()
	return &authService{
		repo:   repo,
		config: config,
		now:    deps.Now,
		log:    log.With(zap.String("service", "auth")),
	}
}

func (s *authService) Login(ctx context.Context, req *request.LoginRequest, userAgent, ipAddress string) (*response.AuthResponse, error) {
	// 1. Validate
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Login validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}

	// 2. Find user by email, then by username
	user, err := s.repo.User.FindByEmail(ctx, req.Username)
	if err != nil {
		return nil, internalError("find user by email", err)
	}
	if user == nil {
		user, err = s.repo.User.FindByUsername(ctx, req.Username)
		if err != nil {
			return nil, internalError("find user by username", err)
		}
	}

	// 3. Same answer for unknown user and wrong password
	if user == nil || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		s.log.Warn("Invalid login attempt", zap.String("identifier", req.Username))
		return nil, newError(CodeInvalidCredentials, "Invalid username or password")
	}

	// 4. Check if user is active
	if !user.IsActive {
		s.log.Warn("Inactive user tried to login", zap.String("user_id", user.ID.String()))
		return nil, newError(CodeAccountDisabled, "Account is deactivated")
	}

	permissions, err := s.repo.Permission.ListByRole(ctx, user.Role)
	if err != nil {
		return nil, internalError("list permissions", err)
	}

	// 5. Create session
	now := s.now()
	session := &entity.Session{
		BaseSimple: entity.NewBaseSimple(now),
		UserID:     user.ID,
		Token:      uuid.New(),
		UserAgent:  optionalString(userAgent),
		IPAddress:  optionalString(ipAddress),
		ExpiresAt:  now.Add(time.Duration(s.config.Session.ExpiryHours) * time.Hour),
	}
	if err := s.repo.Session.Create(ctx, session); err != nil {
		return nil, internalError("create session", err)
	}

	s.log.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))

	resp := response.AuthToResponse(user, session, permissions)
	return &resp, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	tokenUUID, err := uuid.Parse(token)
	if err != nil {
		return newError(CodeUnauthorized, "Invalid session token")
	}

	revoked, err := s.repo.Session.Revoke(ctx, tokenUUID)
	if err != nil {
		return internalError("revoke session", err)
	}
	if !revoked {
		return newError(CodeUnauthorized, "Session already ended")
	}

	s.log.Info("User logged out")
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*utils.Principal, error) {
	tokenUUID, err := uuid.Parse(token)
	if err != nil {
		return nil, nil
	}

	session, err := s.repo.Session.FindValidSession(ctx, tokenUUID)
	if err != nil {
		return nil, err
	}
	if session == nil || !session.Active(s.now()) {
		return nil, nil
	}

	user, err := s.repo.User.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, nil
	}

	permissions, err := s.repo.Permission.ListByRole(ctx, user.Role)
	if err != nil {
		return nil, err
	}

	return utils.NewPrincipal(user.ID, string(user.Role), permissions), nil
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
