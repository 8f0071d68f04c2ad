package auth

import "time"

// NewTestJWTService creates a JWT service with an injectable time function.
// Exported for tests only; production code goes through NewJWTService.
func NewTestJWTService(secret string, tokenLifetime, refreshLifetime time.Duration, timeFunc func() time.Time) JWTService {
	return &hmacJWTService{
		signingKey:           []byte(secret),
		tokenLifetime:        tokenLifetime,
		refreshTokenLifetime: refreshLifetime,
		timeFunc:             timeFunc,
		clockSkew:            0,
	}
}
