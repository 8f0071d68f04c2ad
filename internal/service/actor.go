package service

import (
	"github.com/google/uuid"

	"github.com/SemenBogdanov/dpms-system/internal/domain"
)

// Actor is the resolved identity every operation receives. The service
// layer never parses credentials; the API layer resolves a token into an
// Actor before calling in.
type Actor struct {
	ID     uuid.UUID
	Role   domain.Role
	League domain.League
}
