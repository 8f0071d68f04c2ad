package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
	"github.com/SemenBogdanov/dpms-system/internal/platform/logger"
	"github.com/SemenBogdanov/dpms-system/internal/store"
)

// UserStore implements the store.UserStore interface using PostgreSQL.
type UserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewUserStore creates a new PostgreSQL implementation of store.UserStore.
// If logger is nil, a default logger will be used.
func NewUserStore(db store.DBTX, log *slog.Logger) *UserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &UserStore{
		db:     db,
		logger: log.With(slog.String("component", "user_store")),
	}
}

// Ensure UserStore implements store.UserStore interface
var _ store.UserStore = (*UserStore)(nil)

const userColumns = `id, full_name, email, hashed_password, role, league,
	monthly_target, wip_limit, wallet_main, wallet_karma, quality_score,
	is_active, created_at, updated_at`

// Create implements store.UserStore.Create.
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.FullName, user.Email, user.HashedPassword,
		user.Role, user.League, user.MonthlyTarget, user.WIPLimit,
		user.WalletMain, user.WalletKarma, user.QualityScore,
		user.IsActive, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			log.Warn("duplicate email during user creation",
				slog.String("email", user.Email))
			return store.ErrEmailExists
		}
		log.Error("failed to create user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return err
	}

	log.Info("user created",
		slog.String("user_id", user.ID.String()),
		slog.String("role", string(user.Role)),
		slog.String("league", string(user.League)))
	return nil
}

func (s *UserStore) getByQuery(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.FullName, &u.Email, &u.HashedPassword, &u.Role, &u.League,
		&u.MonthlyTarget, &u.WIPLimit, &u.WalletMain, &u.WalletKarma,
		&u.QualityScore, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByID implements store.UserStore.GetByID.
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.getByQuery(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail implements store.UserStore.GetByEmail.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.getByQuery(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// GetForUpdate implements store.UserStore.GetForUpdate.
// It takes a row-level exclusive lock; must run inside a transaction.
func (s *UserStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.getByQuery(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
}

// Update implements store.UserStore.Update.
func (s *UserStore) Update(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE users
		SET full_name = $2, email = $3, hashed_password = $4, role = $5,
			league = $6, monthly_target = $7, wip_limit = $8,
			wallet_main = $9, wallet_karma = $10, quality_score = $11,
			is_active = $12, updated_at = now()
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		user.ID, user.FullName, user.Email, user.HashedPassword, user.Role,
		user.League, user.MonthlyTarget, user.WIPLimit,
		user.WalletMain, user.WalletKarma, user.QualityScore, user.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrEmailExists
		}
		log.Error("failed to update user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) list(ctx context.Context, query string) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []*domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID, &u.FullName, &u.Email, &u.HashedPassword, &u.Role, &u.League,
			&u.MonthlyTarget, &u.WIPLimit, &u.WalletMain, &u.WalletKarma,
			&u.QualityScore, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

// ListActive implements store.UserStore.ListActive.
func (s *UserStore) ListActive(ctx context.Context) ([]*domain.User, error) {
	return s.list(ctx, `SELECT `+userColumns+` FROM users WHERE is_active ORDER BY full_name`)
}

// ListManagers implements store.UserStore.ListManagers.
func (s *UserStore) ListManagers(ctx context.Context) ([]*domain.User, error) {
	return s.list(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE is_active AND role IN ('teamlead', 'admin')
		ORDER BY full_name`)
}

// WithTx implements store.UserStore.WithTx.
func (s *UserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &UserStore{db: tx, logger: s.logger}
}
