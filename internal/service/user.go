package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/platform/logger"
	"github.com/SemenBogdanov/dpms-system/internal/service/auth"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UserService handles authentication and user administration. Users are
// never hard-deleted: deactivation flips the active flag and keeps the
// ledger and task history intact.
type UserService struct {
	users    store.UserStore
	tasks    store.TaskStore
	jwt      auth.JWTService
	verifier auth.PasswordVerifier
	hasher   auth.PasswordHasher
	logger   *slog.Logger
}

// NewUserService creates a new UserService.
// It returns an error if any of the required dependencies are nil.
func NewUserService(
	users store.UserStore,
	tasks store.TaskStore,
	jwt auth.JWTService,
	verifier auth.PasswordVerifier,
	hasher auth.PasswordHasher,
	log *slog.Logger,
) (*UserService, error) {
	if users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
	}
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if jwt == nil {
		return nil, domain.NewValidationError("jwt", "cannot be nil", domain.ErrValidation)
	}
	if verifier == nil {
		return nil, domain.NewValidationError("verifier", "cannot be nil", domain.ErrValidation)
	}
	if hasher == nil {
		return nil, domain.NewValidationError("hasher", "cannot be nil", domain.ErrValidation)
	}
	if log == nil {
		log = slog.Default()
	}
	return &UserService{
		users:    users,
		tasks:    tasks,
		jwt:      jwt,
		verifier: verifier,
		hasher:   hasher,
		logger:   log.With(slog.String("component", "user_service")),
	}, nil
}

// Login verifies credentials and issues a token pair. Inactive users
// cannot log in.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, *domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, nil, auth.ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, auth.ErrInvalidCredentials
	}
	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		log.Debug("login failed: password mismatch",
			slog.String("user_id", user.ID.String()))
		return nil, nil, auth.ErrInvalidCredentials
	}

	access, err := s.jwt.GenerateToken(ctx, user.ID, user.Role)
	if err != nil {
		return nil, nil, err
	}
	refresh, err := s.jwt.GenerateRefreshToken(ctx, user.ID, user.Role)
	if err != nil {
		return nil, nil, err
	}

	log.Info("user logged in", slog.String("user_id", user.ID.String()))
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, user, nil
}

// Refresh exchanges a valid refresh token for a fresh pair.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, auth.ErrInvalidCredentials
	}

	access, err := s.jwt.GenerateToken(ctx, user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.jwt.GenerateRefreshToken(ctx, user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// CreateUserInput carries the fields of a new user account.
type CreateUserInput struct {
	FullName      string        `json:"full_name" validate:"required"`
	Email         string        `json:"email" validate:"required,email"`
	Password      string        `json:"password" validate:"required,min=8"`
	Role          domain.Role   `json:"role" validate:"required"`
	League        domain.League `json:"league" validate:"required"`
	MonthlyTarget int           `json:"monthly_target" validate:"min=0"`
	WIPLimit      int           `json:"wip_limit" validate:"min=0"`
}

// CreateUser registers a new account. Admin only.
func (s *UserService) CreateUser(ctx context.Context, actor Actor, in CreateUserInput) (*domain.User, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, ErrNotAdmin
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(in.FullName, in.Email, in.Role, in.League, in.MonthlyTarget, in.WIPLimit)
	if err != nil {
		return nil, err
	}
	user.HashedPassword, err = s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Info("user created",
		slog.String("user_id", user.ID.String()),
		slog.String("role", string(user.Role)))
	return user, nil
}

// UpdateUserInput carries admin-editable account fields. Nil fields are
// left unchanged. Wallets are deliberately absent: balances move only
// through the ledger.
type UpdateUserInput struct {
	FullName      *string        `json:"full_name,omitempty"`
	Role          *domain.Role   `json:"role,omitempty"`
	League        *domain.League `json:"league,omitempty"`
	MonthlyTarget *int           `json:"monthly_target,omitempty"`
	WIPLimit      *int           `json:"wip_limit,omitempty"`
}

// UpdateUser edits an account. Admin only.
func (s *UserService) UpdateUser(ctx context.Context, actor Actor, userID uuid.UUID, in UpdateUserInput) (*domain.User, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, ErrNotAdmin
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		user.FullName = *in.FullName
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
	if in.League != nil {
		user.League = *in.League
	}
	if in.MonthlyTarget != nil {
		user.MonthlyTarget = *in.MonthlyTarget
	}
	if in.WIPLimit != nil {
		user.WIPLimit = *in.WIPLimit
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Deactivate soft-deletes an account. Admin only.
func (s *UserService) Deactivate(ctx context.Context, actor Actor, userID uuid.UUID) error {
	if actor.Role != domain.RoleAdmin {
		return ErrNotAdmin
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	user.IsActive = false
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	log.Info("user deactivated", slog.String("user_id", userID.String()))
	return nil
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// ListActive returns all active users.
func (s *UserService) ListActive(ctx context.Context) ([]*domain.User, error) {
	return s.users.ListActive(ctx)
}

// Dashboard is a user's live status summary.
type Dashboard struct {
	User           *domain.User `json:"user"`
	InProgress     int          `json:"in_progress"`
	FocusedTask    *domain.Task `json:"focused_task,omitempty"`
	CurrentPercent float64      `json:"current_percent"`
}

// GetDashboard assembles a user's live status with no locks taken.
func (s *UserService) GetDashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	wip, err := s.tasks.CountInProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	focused, err := s.tasks.GetFocused(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		User:           user,
		InProgress:     wip,
		FocusedTask:    focused,
		CurrentPercent: currentPercent(user),
	}, nil
}
