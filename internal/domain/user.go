package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User-specific validation errors
var (
	ErrEmptyUserID   = errors.New("user ID cannot be empty")
	ErrEmptyEmail    = errors.New("email cannot be empty")
	ErrInvalidEmail  = errors.New("invalid email format")
	ErrEmptyFullName = errors.New("full name cannot be empty")
	ErrNegativeWIP   = errors.New("WIP limit cannot be negative")
)

// Role is a closed set of actor roles.
type Role string

const (
	RoleExecutor Role = "executor"
	RoleTeamlead Role = "teamlead"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleExecutor, RoleTeamlead, RoleAdmin:
		return true
	}
	return false
}

// IsManager reports whether the role may validate tasks, force-assign work
// and approve purchases.
func (r Role) IsManager() bool {
	return r == RoleTeamlead || r == RoleAdmin
}

// League is the tiered capability gate, ordered C < B < A.
type League string

const (
	LeagueC League = "C"
	LeagueB League = "B"
	LeagueA League = "A"
)

// Valid reports whether l is one of the known leagues.
func (l League) Valid() bool {
	switch l {
	case LeagueC, LeagueB, LeagueA:
		return true
	}
	return false
}

// User represents an employee of the data-operations team.
// Wallet balances are a materialized view over the transaction ledger and
// must only be mutated through ledger operations.
type User struct {
	ID             uuid.UUID       `json:"id"`
	FullName       string          `json:"full_name"`
	Email          string          `json:"email"`
	HashedPassword string          `json:"-"`
	Role           Role            `json:"role"`
	League         League          `json:"league"`
	MonthlyTarget  int             `json:"monthly_target"` // plan for the month, in Q
	WIPLimit       int             `json:"wip_limit"`
	WalletMain     decimal.Decimal `json:"wallet_main"`
	WalletKarma    decimal.Decimal `json:"wallet_karma"`
	QualityScore   float64         `json:"quality_score"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewUser creates a new User with zeroed wallets and a full quality score.
// Returns an error if validation fails.
func NewUser(fullName, email string, role Role, league League, monthlyTarget, wipLimit int) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:            uuid.New(),
		FullName:      fullName,
		Email:         email,
		Role:          role,
		League:        league,
		MonthlyTarget: monthlyTarget,
		WIPLimit:      wipLimit,
		WalletMain:    decimal.Zero,
		WalletKarma:   decimal.Zero,
		QualityScore:  100,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}
	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(u.FullName) == "" {
		return ErrEmptyFullName
	}
	if u.Email == "" {
		return ErrEmptyEmail
	}
	if at := strings.Index(u.Email, "@"); at <= 0 || at == len(u.Email)-1 {
		return ErrInvalidEmail
	}
	if !u.Role.Valid() {
		return ErrInvalidRole
	}
	if !u.League.Valid() {
		return ErrInvalidLeague
	}
	if u.WIPLimit < 0 {
		return ErrNegativeWIP
	}
	return nil
}
