package testhelpers

import (
	"time"

	"github.com/google/uuid"
	"github.com/rentwell/mono-repo/backend/shared/go-middleware"
	"github.com/stretchr/testify/require"
)

// CreateJWT signs a short-lived access token for userID acting as role.
func (h *TestHelper) CreateJWT(userID uuid.UUID, role string) string {
	tok, err := middleware.SignToken(h.PrivateKey, userID.String(), role, 15*time.Minute)
	require.NoError(h.T, err, "Failed to sign test JWT")
	return tok
}
