package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/config"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/constants"
	"github.com/rentwell/mono-repo/backend/shared/go-repositories"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
)

// PaymentReleaser moves the escrowed viewing fee to the landlord.
// Implementations must be safe to call more than once for the same request.
type PaymentReleaser interface {
	Release(ctx context.Context, viewingRequestID uuid.UUID) error
}

// NewPaymentReleaser picks the implementation named by payment_release_mode.
func NewPaymentReleaser(
	cfg *config.Config,
	vrRepo repositories.ViewingRequestRepository,
	txnRepo repositories.TransactionRepository,
	profileRepo repositories.ProfileRepository,
) PaymentReleaser {
	if cfg.LDFlag_PaymentReleaseMode == constants.ReleaseModeStripe {
		return NewStripeReleaser(cfg, vrRepo, txnRepo, profileRepo)
	}
	return NewFunctionReleaser(cfg.ReleaseFunctionURL, cfg.ReleaseFunctionKey, nil)
}

// FunctionReleaser calls the hosted release-payment function.
type FunctionReleaser struct {
	url    string
	apiKey string
	client *http.Client
}

func NewFunctionReleaser(url, apiKey string, client *http.Client) *FunctionReleaser {
	if client == nil {
		client = &http.Client{Timeout: constants.ReleaseFunctionTimeout}
	}
	return &FunctionReleaser{url: url, apiKey: apiKey, client: client}
}

type releaseFunctionRequest struct {
	ViewingRequestID string `json:"viewing_request_id"`
}

func (f *FunctionReleaser) Release(ctx context.Context, viewingRequestID uuid.UUID) error {
	body, err := json.Marshal(releaseFunctionRequest{ViewingRequestID: viewingRequestID.String()})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.apiKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: release function: %v", utils.ErrExternalServiceFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: release function returned %d: %s",
			utils.ErrExternalServiceFailure, resp.StatusCode, bytes.TrimSpace(msg))
	}
	utils.Logger.Debugf("Release function accepted viewing request %s", viewingRequestID)
	return nil
}
