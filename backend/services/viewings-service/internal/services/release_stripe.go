package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/config"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/constants"
	internal_utils "github.com/rentwell/mono-repo/backend/services/viewings-service/internal/utils"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
	"github.com/rentwell/mono-repo/backend/shared/go-repositories"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/transfer"
)

// StripeReleaser transfers the held viewing fee to the landlord's Connect
// account and marks the escrow released.
type StripeReleaser struct {
	vrRepo      repositories.ViewingRequestRepository
	txnRepo     repositories.TransactionRepository
	profileRepo repositories.ProfileRepository
	generatedBy string

	newTransfer func(*stripe.TransferParams) (*stripe.Transfer, error)
}

func NewStripeReleaser(
	cfg *config.Config,
	vrRepo repositories.ViewingRequestRepository,
	txnRepo repositories.TransactionRepository,
	profileRepo repositories.ProfileRepository,
) *StripeReleaser {
	stripe.Key = cfg.StripeSecretKey

	generatedBy := cfg.AppName
	if cfg.UniqueRunNumber != "" {
		generatedBy = fmt.Sprintf("%s-%s-%s", cfg.AppName, cfg.UniqueRunnerID, cfg.UniqueRunNumber)
	}
	return &StripeReleaser{
		vrRepo:      vrRepo,
		txnRepo:     txnRepo,
		profileRepo: profileRepo,
		generatedBy: generatedBy,
		newTransfer: transfer.New,
	}
}

func (s *StripeReleaser) Release(ctx context.Context, viewingRequestID uuid.UUID) error {
	vr, err := s.vrRepo.GetByID(ctx, viewingRequestID)
	if err != nil {
		return err
	}
	if vr == nil {
		return internal_utils.ErrNotFound
	}

	txn, err := s.txnRepo.GetByViewingRequestID(ctx, viewingRequestID)
	if err != nil {
		return err
	}
	if txn == nil || txn.PaymentStatus != models.PaymentStatusCompleted {
		return internal_utils.ErrNoHeldPayment
	}
	switch txn.EscrowStatus {
	case models.EscrowStatusReleased:
		utils.Logger.Infof("Escrow for viewing request %s already released (%v); nothing to do", viewingRequestID, txn.ReleaseReference)
		return nil
	case models.EscrowStatusHeld:
	default:
		return internal_utils.ErrNoHeldPayment
	}

	landlord, err := s.profileRepo.GetByID(ctx, vr.LandlordID)
	if err != nil {
		return err
	}
	if landlord == nil || landlord.StripeConnectAccountID == nil || *landlord.StripeConnectAccountID == "" {
		return internal_utils.ErrNoLandlordAccount
	}

	currency := strings.ToLower(txn.Currency)
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	params := &stripe.TransferParams{
		Amount:        stripe.Int64(txn.AmountCents()),
		Currency:      stripe.String(currency),
		Destination:   stripe.String(*landlord.StripeConnectAccountID),
		TransferGroup: stripe.String(viewingRequestID.String()),
		Metadata: map[string]string{
			constants.StripeMetadataViewingRequestIDKey: viewingRequestID.String(),
			constants.StripeMetadataGeneratedByKey:      s.generatedBy,
		},
	}
	params.SetIdempotencyKey(viewingRequestID.String() + "-release")

	t, err := s.newTransfer(params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok {
			return fmt.Errorf("%w: stripe transfer: %s", utils.ErrExternalServiceFailure, stripeErr.Code)
		}
		return fmt.Errorf("%w: stripe transfer: %v", utils.ErrExternalServiceFailure, err)
	}
	utils.Logger.Infof("Created Stripe Transfer %s releasing viewing request %s to %s",
		t.ID, viewingRequestID, *landlord.StripeConnectAccountID)

	if err := s.txnRepo.MarkReleased(ctx, txn.ID, t.ID); err != nil {
		// A retry reuses the idempotency key, so Stripe returns the same transfer.
		utils.Logger.WithError(err).Errorf("CRITICAL: Stripe Transfer %s succeeded but transaction %s was not marked released", t.ID, txn.ID)
		return err
	}
	return nil
}
