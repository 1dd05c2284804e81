package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	internal_utils "github.com/rentwell/mono-repo/backend/services/viewings-service/internal/utils"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

func TestFunctionReleaser(t *testing.T) {
	vrID := uuid.New()
	status := http.StatusOK

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, vrID.String(), body["viewing_request_id"])
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"escrow locked"}`))
	}))
	defer srv.Close()

	f := NewFunctionReleaser(srv.URL, "secret-key", srv.Client())
	require.NoError(t, f.Release(context.Background(), vrID))

	status = http.StatusBadGateway
	err := f.Release(context.Background(), vrID)
	require.ErrorIs(t, err, utils.ErrExternalServiceFailure)
	require.Contains(t, err.Error(), "502")
	require.Contains(t, err.Error(), "escrow locked")
}

type stripeFixture struct {
	releaser *StripeReleaser
	vr       *models.ViewingRequest
	txn      *models.Transaction
	txnRepo  *fakeTransactionRepo
	profiles *fakeProfileRepo
	params   []*stripe.TransferParams
}

func newStripeFixture() *stripeFixture {
	st := newMemStore()
	vr := st.put(newRequest(models.ViewingStatusCompleted))
	acct := "acct_landlord"
	f := &stripeFixture{
		vr: vr,
		txn: &models.Transaction{
			ID:               uuid.New(),
			ViewingRequestID: vr.ID,
			Amount:           1500.50,
			Currency:         "KES",
			PaymentStatus:    models.PaymentStatusCompleted,
			EscrowStatus:     models.EscrowStatusHeld,
		},
		txnRepo: &fakeTransactionRepo{txns: map[uuid.UUID]*models.Transaction{}, released: map[uuid.UUID]string{}},
		profiles: &fakeProfileRepo{profiles: map[uuid.UUID]*models.Profile{
			vr.LandlordID: {ID: vr.LandlordID, Role: models.ProfileRoleLandlord, StripeConnectAccountID: &acct},
		}},
	}
	_ = f.txnRepo.Create(context.Background(), f.txn)
	f.releaser = &StripeReleaser{
		vrRepo:      &fakeViewingRepo{st: st},
		txnRepo:     f.txnRepo,
		profileRepo: f.profiles,
		generatedBy: "viewings-service",
		newTransfer: func(p *stripe.TransferParams) (*stripe.Transfer, error) {
			f.params = append(f.params, p)
			return &stripe.Transfer{ID: "tr_123"}, nil
		},
	}
	return f
}

func TestStripeReleaserTransfersHeldFunds(t *testing.T) {
	f := newStripeFixture()
	ctx := context.Background()

	require.NoError(t, f.releaser.Release(ctx, f.vr.ID))
	require.Len(t, f.params, 1)
	p := f.params[0]
	require.Equal(t, int64(150050), *p.Amount)
	require.Equal(t, "kes", *p.Currency)
	require.Equal(t, "acct_landlord", *p.Destination)
	require.Equal(t, f.vr.ID.String()+"-release", *p.IdempotencyKey)
	require.Equal(t, "tr_123", f.txnRepo.released[f.txn.ID])

	// Second call sees the escrow already released.
	require.NoError(t, f.releaser.Release(ctx, f.vr.ID))
	require.Len(t, f.params, 1)
}

func TestStripeReleaserPreconditions(t *testing.T) {
	ctx := context.Background()

	f := newStripeFixture()
	require.ErrorIs(t, f.releaser.Release(ctx, uuid.New()), internal_utils.ErrNotFound)

	f = newStripeFixture()
	f.txnRepo.txns[f.vr.ID].PaymentStatus = models.PaymentStatusPending
	require.ErrorIs(t, f.releaser.Release(ctx, f.vr.ID), internal_utils.ErrNoHeldPayment)

	f = newStripeFixture()
	f.txnRepo.txns[f.vr.ID].EscrowStatus = models.EscrowStatusRefunded
	require.ErrorIs(t, f.releaser.Release(ctx, f.vr.ID), internal_utils.ErrNoHeldPayment)

	f = newStripeFixture()
	f.profiles.profiles[f.vr.LandlordID].StripeConnectAccountID = nil
	require.ErrorIs(t, f.releaser.Release(ctx, f.vr.ID), internal_utils.ErrNoLandlordAccount)

	f = newStripeFixture()
	f.releaser.newTransfer = func(*stripe.TransferParams) (*stripe.Transfer, error) {
		return nil, &stripe.Error{Code: stripe.ErrorCodeBalanceInsufficient}
	}
	err := f.releaser.Release(ctx, f.vr.ID)
	require.ErrorIs(t, err, utils.ErrExternalServiceFailure)
	require.True(t, errors.Is(err, utils.ErrExternalServiceFailure))
	require.Empty(t, f.txnRepo.released)
}
