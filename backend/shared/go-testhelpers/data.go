package testhelpers

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
	"github.com/stretchr/testify/require"
)

// UniquePhone generates a unique phone number for testing.
func UniquePhone() string {
	return fmt.Sprintf("+1555%07d", rand.New(rand.NewSource(time.Now().UnixNano())).Int31n(1e7))
}

// UniqueEmail generates a unique email for testing.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), utils.TestEmailSuffix)
}

func (h *TestHelper) CreateTestProfile(ctx context.Context, role models.ProfileRole, emailPrefix string) *models.Profile {
	p := &models.Profile{
		ID:          uuid.New(),
		Role:        role,
		FullName:    "Test " + string(role),
		Email:       UniqueEmail(emailPrefix),
		PhoneNumber: utils.Ptr(UniquePhone()),
	}
	require.NoError(h.T, h.ProfileRepo.Create(ctx, p), "Failed to create test profile")
	return p
}

func (h *TestHelper) CreateTestProperty(ctx context.Context, title string, ownerID uuid.UUID, fee float64) *models.Property {
	p := &models.Property{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Title:      title,
		Address:    "1 Integration Way",
		City:       "Testville",
		ViewingFee: fee,
		Currency:   "USD",
		TimeZone:   "America/Chicago",
	}
	require.NoError(h.T, h.PropertyRepo.Create(ctx, p), "Failed to create test property")
	return p
}

// CreatePaidViewingRequest stores a request in the given status with a completed
// payment held in escrow.
func (h *TestHelper) CreatePaidViewingRequest(
	ctx context.Context,
	prop *models.Property,
	tenantID uuid.UUID,
	status models.ViewingStatusType,
	scheduled *time.Time,
) *models.ViewingRequest {
	vr := &models.ViewingRequest{
		ID:             uuid.New(),
		PropertyID:     prop.ID,
		TenantID:       tenantID,
		LandlordID:     prop.OwnerID,
		Status:         status,
		PreferredDates: []time.Time{time.Now().Add(72 * time.Hour).UTC().Truncate(time.Hour)},
		ScheduledDate:  scheduled,
	}
	require.NoError(h.T, h.ViewingRequestRepo.Create(ctx, vr), "Failed to create test viewing request")

	require.NoError(h.T, h.TransactionRepo.Create(ctx, &models.Transaction{
		ID:               uuid.New(),
		ViewingRequestID: vr.ID,
		Amount:           prop.ViewingFee,
		Currency:         prop.Currency,
		PaymentStatus:    models.PaymentStatusCompleted,
		EscrowStatus:     models.EscrowStatusHeld,
		GatewayReference: "it-" + vr.ID.String(),
	}), "Failed to create test transaction")
	return vr
}
