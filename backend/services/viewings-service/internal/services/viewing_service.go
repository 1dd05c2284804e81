package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/constants"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/metrics"
	internal_utils "github.com/rentwell/mono-repo/backend/services/viewings-service/internal/utils"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
	"github.com/rentwell/mono-repo/backend/shared/go-repositories"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
)

// TransitionResult is what every mutating lifecycle call reports back.
type TransitionResult struct {
	Request *models.ViewingRequest
	// ReleaseTriggered is true only for the confirmation that completed the request.
	ReleaseTriggered bool
	// ReleaseDeferred means the release call failed after the confirmation
	// committed; the retry sweeper owns it from here.
	ReleaseDeferred bool
	// Unchanged is set for idempotent repeats.
	Unchanged bool
}

type ViewingService struct {
	vrRepo       repositories.ViewingRequestRepository
	propertyRepo repositories.PropertyRepository
	releases     *ReleaseRetryService
	notifier     Notifier
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewViewingService(
	vrRepo repositories.ViewingRequestRepository,
	propertyRepo repositories.PropertyRepository,
	releases *ReleaseRetryService,
	notifier Notifier,
	m *metrics.Metrics,
) *ViewingService {
	return &ViewingService{
		vrRepo:       vrRepo,
		propertyRepo: propertyRepo,
		releases:     releases,
		notifier:     notifier,
		metrics:      m,
		now:          time.Now,
	}
}

// CreateRequest files a tenant's request with 1-3 future candidate dates.
// The landlord is copied from the property owner.
func (s *ViewingService) CreateRequest(
	ctx context.Context,
	tenantID uuid.UUID,
	propertyID uuid.UUID,
	preferredDates []time.Time,
) (*models.ViewingRequest, error) {
	if n := len(preferredDates); n < constants.MinPreferredDates || n > constants.MaxPreferredDates {
		return nil, internal_utils.NewValidationError("preferred_dates",
			fmt.Sprintf("must contain between %d and %d dates", constants.MinPreferredDates, constants.MaxPreferredDates))
	}
	now := s.now()
	dates := make([]time.Time, 0, len(preferredDates))
	for _, d := range preferredDates {
		if !d.After(now) {
			return nil, internal_utils.NewValidationError("preferred_dates", "must be in the future")
		}
		dates = append(dates, d.UTC())
	}

	prop, err := s.propertyRepo.GetByID(ctx, propertyID)
	if err != nil {
		return nil, internal_utils.NewPersistenceError("load_property", err)
	}
	if prop == nil {
		return nil, internal_utils.ErrPropertyNotFound
	}
	if prop.OwnerID == tenantID {
		return nil, internal_utils.NewValidationError("property_id", "cannot request a viewing of your own property")
	}

	vr := &models.ViewingRequest{
		ID:             uuid.New(),
		PropertyID:     prop.ID,
		TenantID:       tenantID,
		LandlordID:     prop.OwnerID,
		Status:         models.ViewingStatusPending,
		PreferredDates: dates,
	}
	if err := s.vrRepo.Create(ctx, vr); err != nil {
		s.metrics.ObserveTransition(actionCreate, metrics.OutcomeError)
		return nil, internal_utils.NewPersistenceError(actionCreate, err)
	}
	s.metrics.ObserveTransition(actionCreate, metrics.OutcomeOK)
	utils.Logger.WithFields(map[string]any{
		"viewing_request_id": vr.ID,
		"property_id":        vr.PropertyID,
		"tenant_id":          tenantID,
	}).Info("Viewing request created")
	return vr, nil
}

// Schedule moves a pending request to scheduled at the given instant.
func (s *ViewingService) Schedule(
	ctx context.Context,
	requestID uuid.UUID,
	landlordID uuid.UUID,
	scheduledDate time.Time,
) (*TransitionResult, error) {
	if scheduledDate.IsZero() {
		return nil, internal_utils.NewValidationError("scheduled_date", "is required")
	}

	res, err := s.apply(ctx, actionSchedule, requestID, scheduleTransition(landlordID, scheduledDate, s.now()))
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		vr := res.Request.Clone()
		detach("notify-scheduled", func(ctx context.Context) { s.notifier.NotifyScheduled(ctx, vr) })
	}
	return res, nil
}

// ScheduleLocal combines a calendar date and wall-clock time in the
// property's zone, then schedules.
func (s *ViewingService) ScheduleLocal(
	ctx context.Context,
	requestID uuid.UUID,
	landlordID uuid.UUID,
	date string,
	clock string,
) (*TransitionResult, error) {
	if date == "" {
		return nil, internal_utils.NewValidationError("date", "is required")
	}
	if clock == "" {
		return nil, internal_utils.NewValidationError("time", "is required")
	}

	vr, err := s.vrRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, internal_utils.NewPersistenceError("load_viewing_request", err)
	}
	if vr == nil {
		return nil, internal_utils.ErrNotFound
	}
	prop, err := s.propertyRepo.GetByID(ctx, vr.PropertyID)
	if err != nil {
		return nil, internal_utils.NewPersistenceError("load_property", err)
	}

	at, err := combineLocalDateTime(date, clock, propertyLocation(prop))
	if err != nil {
		return nil, internal_utils.NewValidationError("date", "expected YYYY-MM-DD and HH:MM")
	}
	return s.Schedule(ctx, requestID, landlordID, at)
}

// Cancel ends a pending or scheduled request on behalf of either party.
func (s *ViewingService) Cancel(
	ctx context.Context,
	requestID uuid.UUID,
	actorID uuid.UUID,
	actorRole models.ActorRole,
) (*TransitionResult, error) {
	if !actorRole.Valid() {
		return nil, internal_utils.NewValidationError("actor_role", "must be tenant or landlord")
	}
	res, err := s.apply(ctx, actionCancel, requestID, cancelTransition(actorID, actorRole))
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		vr := res.Request.Clone()
		detach("notify-cancelled", func(ctx context.Context) { s.notifier.NotifyCancelled(ctx, vr, actorRole) })
	}
	return res, nil
}

func (s *ViewingService) ConfirmByTenant(ctx context.Context, requestID, tenantID uuid.UUID) (*TransitionResult, error) {
	return s.confirm(ctx, requestID, tenantID, models.ActorRoleTenant)
}

func (s *ViewingService) ConfirmByLandlord(ctx context.Context, requestID, landlordID uuid.UUID) (*TransitionResult, error) {
	return s.confirm(ctx, requestID, landlordID, models.ActorRoleLandlord)
}

func (s *ViewingService) confirm(
	ctx context.Context,
	requestID uuid.UUID,
	actorID uuid.UUID,
	role models.ActorRole,
) (*TransitionResult, error) {
	res, err := s.apply(ctx, actionConfirm, requestID, confirmTransition(actorID, role, s.now()))
	if err != nil {
		return nil, err
	}

	if res.ReleaseTriggered {
		if relErr := s.releases.AttemptForRequest(ctx, requestID, TriggerConfirm); relErr != nil {
			res.ReleaseDeferred = true
			utils.Logger.WithError(relErr).WithFields(map[string]any{
				"viewing_request_id": requestID,
				"confirmed_by":       role,
			}).Error("Viewing completed but payment release deferred")
		}
	}

	if !res.Unchanged && s.notifier != nil {
		vr := res.Request.Clone()
		detach("notify-confirmed", func(ctx context.Context) { s.notifier.NotifyConfirmed(ctx, vr, role) })
	}
	return res, nil
}

// Get returns a request without an ownership check. Admin use only.
func (s *ViewingService) Get(ctx context.Context, requestID uuid.UUID) (*models.ViewingRequest, error) {
	vr, err := s.vrRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, internal_utils.NewPersistenceError("load_viewing_request", err)
	}
	if vr == nil {
		return nil, internal_utils.ErrNotFound
	}
	return vr, nil
}

// GetForActor returns the request only to the tenant or landlord on it.
func (s *ViewingService) GetForActor(ctx context.Context, requestID, actorID uuid.UUID) (*models.ViewingRequest, error) {
	vr, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if _, ok := vr.PartyOf(actorID); !ok {
		return nil, internal_utils.ErrUnauthorized
	}
	return vr, nil
}

func (s *ViewingService) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.ViewingRequest, error) {
	list, err := s.vrRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, internal_utils.NewPersistenceError("list_for_tenant", err)
	}
	return list, nil
}

// ListForLandlord only shows requests the tenant has paid for.
func (s *ViewingService) ListForLandlord(ctx context.Context, landlordID uuid.UUID) ([]*models.ViewingRequest, error) {
	list, err := s.vrRepo.ListByLandlord(ctx, landlordID, true)
	if err != nil {
		return nil, internal_utils.NewPersistenceError("list_for_landlord", err)
	}
	return list, nil
}

func (s *ViewingService) ListAll(ctx context.Context, f repositories.ViewingRequestFilter) ([]*models.ViewingRequest, error) {
	for _, st := range f.Statuses {
		if !st.Valid() {
			return nil, internal_utils.NewValidationError("status", fmt.Sprintf("unknown status %q", st))
		}
	}
	list, err := s.vrRepo.List(ctx, f)
	if err != nil {
		return nil, internal_utils.NewPersistenceError("list_all", err)
	}
	return list, nil
}

func (s *ViewingService) apply(
	ctx context.Context,
	action string,
	requestID uuid.UUID,
	fn repositories.TransitionFunc,
) (*TransitionResult, error) {
	var effect repositories.TransitionEffect
	vr, enqueued, err := s.vrRepo.ApplyTransition(ctx, requestID, func(cur *models.ViewingRequest) (repositories.TransitionEffect, error) {
		e, err := fn(cur)
		effect = e
		return e, err
	})
	if err != nil {
		err = classifyTransitionError(action, err)
		outcome := metrics.OutcomeRejected
		var pe *internal_utils.PersistenceError
		if errors.As(err, &pe) {
			outcome = metrics.OutcomeError
			utils.Logger.WithError(err).Errorf("%s failed for viewing request %s", action, requestID)
		} else {
			utils.Logger.WithError(err).Warnf("%s refused for viewing request %s", action, requestID)
		}
		s.metrics.ObserveTransition(action, outcome)
		return nil, err
	}

	outcome := metrics.OutcomeOK
	if effect.Unchanged {
		outcome = metrics.OutcomeUnchanged
	}
	s.metrics.ObserveTransition(action, outcome)
	utils.Logger.WithFields(map[string]any{
		"viewing_request_id": requestID,
		"status":             vr.Status,
		"tenant_confirmed":   vr.TenantConfirmed,
		"landlord_confirmed": vr.LandlordConfirmed,
	}).Infof("Viewing request %s: %s", action, outcome)

	return &TransitionResult{
		Request:          vr,
		ReleaseTriggered: enqueued,
		Unchanged:        effect.Unchanged,
	}, nil
}

func classifyTransitionError(action string, err error) error {
	var ve *internal_utils.ValidationError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return internal_utils.ErrNotFound
	case errors.Is(err, internal_utils.ErrUnauthorized),
		errors.Is(err, internal_utils.ErrInvalidTransition),
		errors.As(err, &ve):
		return err
	}
	return internal_utils.NewPersistenceError(action, err)
}
