package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/config"
	"github.com/rentwell/mono-repo/backend/shared/go-middleware"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
	"github.com/rentwell/mono-repo/backend/shared/go-repositories"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
)

// Fixed IDs so every environment seeds the same fixtures and reruns are no-ops.
const (
	SeedTenantID            = "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaa1"
	SeedLandlordID          = "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaa2"
	SeedAdminID             = "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaa3"
	SeedPropertyID          = "bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbb1"
	SeedPendingRequestID    = "cccccccc-cccc-4ccc-8ccc-ccccccccccc1"
	SeedScheduledRequestID  = "cccccccc-cccc-4ccc-8ccc-ccccccccccc2"
	seedDevTokenTTL         = 24 * time.Hour
	seedScheduledDaysAhead  = 2
	seedPreferredDaysAhead  = 3
	seedViewingFee          = 25.00
	seedViewingFeeCurrency  = "USD"
)

// SeedAllTestData creates a tenant, a landlord, a property and two viewing
// requests with held payments. Returns early if the pending request exists.
func SeedAllTestData(
	ctx context.Context,
	cfg *config.Config,
	profileRepo repositories.ProfileRepository,
	propertyRepo repositories.PropertyRepository,
	vrRepo repositories.ViewingRequestRepository,
	txnRepo repositories.TransactionRepository,
) error {
	sentinel := uuid.MustParse(SeedPendingRequestID)
	if existing, err := vrRepo.GetByID(ctx, sentinel); err != nil {
		return fmt.Errorf("check seed sentinel: %w", err)
	} else if existing != nil {
		utils.Logger.Info("viewings-service: Seed data already present; skipping seeding.")
		logDevTokens(cfg)
		return nil
	}

	tenantID := uuid.MustParse(SeedTenantID)
	landlordID := uuid.MustParse(SeedLandlordID)
	adminID := uuid.MustParse(SeedAdminID)
	propertyID := uuid.MustParse(SeedPropertyID)

	tenantPhone := "+15555550101"
	landlordPhone := "+15555550102"
	profiles := []*models.Profile{
		{ID: tenantID, Role: models.ProfileRoleTenant, FullName: "Test Tenant", Email: "tenant@thisisatest.com", PhoneNumber: &tenantPhone},
		{ID: landlordID, Role: models.ProfileRoleLandlord, FullName: "Test Landlord", Email: "landlord@thisisatest.com", PhoneNumber: &landlordPhone},
		{ID: adminID, Role: models.ProfileRoleAdmin, FullName: "Test Admin", Email: "admin@thisisatest.com"},
	}
	for _, p := range profiles {
		if existing, err := profileRepo.GetByID(ctx, p.ID); err != nil {
			return fmt.Errorf("check profile %s: %w", p.ID, err)
		} else if existing != nil {
			continue
		}
		if err := profileRepo.Create(ctx, p); err != nil {
			return fmt.Errorf("create profile %s: %w", p.Email, err)
		}
	}

	if existing, err := propertyRepo.GetByID(ctx, propertyID); err != nil {
		return fmt.Errorf("check seed property: %w", err)
	} else if existing == nil {
		if err := propertyRepo.Create(ctx, &models.Property{
			ID:         propertyID,
			OwnerID:    landlordID,
			Title:      "Demo 2BR Apartment",
			Address:    "100 Test Street",
			City:       "Nashville",
			ViewingFee: seedViewingFee,
			Currency:   seedViewingFeeCurrency,
			Latitude:   36.1627,
			Longitude:  -86.7816,
		}); err != nil {
			return fmt.Errorf("create seed property: %w", err)
		}
	}

	now := time.Now().UTC()
	scheduledAt := now.AddDate(0, 0, seedScheduledDaysAhead).Truncate(time.Hour)

	requests := []*models.ViewingRequest{
		{
			ID:             uuid.MustParse(SeedScheduledRequestID),
			PropertyID:     propertyID,
			TenantID:       tenantID,
			LandlordID:     landlordID,
			Status:         models.ViewingStatusScheduled,
			PreferredDates: []time.Time{scheduledAt},
			ScheduledDate:  &scheduledAt,
		},
		{
			// Created last: it is the sentinel for the early return above.
			ID:             sentinel,
			PropertyID:     propertyID,
			TenantID:       tenantID,
			LandlordID:     landlordID,
			Status:         models.ViewingStatusPending,
			PreferredDates: []time.Time{now.AddDate(0, 0, seedPreferredDaysAhead).Truncate(time.Hour)},
		},
	}
	for _, vr := range requests {
		if existing, err := vrRepo.GetByID(ctx, vr.ID); err != nil {
			return fmt.Errorf("check seed request %s: %w", vr.ID, err)
		} else if existing == nil {
			if err := vrRepo.Create(ctx, vr); err != nil {
				return fmt.Errorf("create seed request %s: %w", vr.ID, err)
			}
		}
		if txn, err := txnRepo.GetByViewingRequestID(ctx, vr.ID); err != nil {
			return fmt.Errorf("check seed transaction: %w", err)
		} else if txn != nil {
			continue
		}
		if err := txnRepo.Create(ctx, &models.Transaction{
			ID:               uuid.New(),
			ViewingRequestID: vr.ID,
			Amount:           seedViewingFee,
			Currency:         seedViewingFeeCurrency,
			PaymentStatus:    models.PaymentStatusCompleted,
			EscrowStatus:     models.EscrowStatusHeld,
			GatewayReference: "seed-" + vr.ID.String(),
		}); err != nil {
			return fmt.Errorf("create seed transaction: %w", err)
		}
	}

	utils.Logger.Info("viewings-service: Seeding completed successfully.")
	logDevTokens(cfg)
	return nil
}

// logDevTokens prints bearer tokens for the seeded accounts. Never enabled in prod.
func logDevTokens(cfg *config.Config) {
	if cfg.RSAPrivateKey == nil || cfg.Env == utils.ProductionEnv {
		return
	}
	accounts := []struct{ id, role string }{
		{SeedTenantID, utils.TenantAccountType},
		{SeedLandlordID, utils.LandlordAccountType},
		{SeedAdminID, utils.AdminAccountType},
	}
	for _, a := range accounts {
		tok, err := middleware.SignToken(cfg.RSAPrivateKey, a.id, a.role, seedDevTokenTTL)
		if err != nil {
			utils.Logger.WithError(err).Warnf("Could not sign dev token for %s", a.role)
			continue
		}
		utils.Logger.WithField("role", a.role).Infof("Dev token: %s", tok)
	}
}
