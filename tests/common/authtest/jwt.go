//go:build unit || e2e

package authtest

import (
	"testing"
	"time"

	"storefront/internal/domain/user"
	"storefront/internal/pkg/config"
	"storefront/internal/pkg/jwt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TokenFor signs a token for an existing user row, bypassing any login
// flow. The secret must match the one the app under test was built with.
func TokenFor(t *testing.T, cfg config.Config, userID uuid.UUID, role user.Role) string {
	t.Helper()

	duration, err := time.ParseDuration(cfg.JWT.Duration)
	require.NoError(t, err, "invalid JWT duration in test config")

	token, err := jwt.NewService(cfg.JWT.Secret, duration).GenerateToken(userID, role)
	require.NoError(t, err, "failed to sign test token")
	return token
}
