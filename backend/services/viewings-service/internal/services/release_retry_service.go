package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/constants"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/metrics"
	internal_utils "github.com/rentwell/mono-repo/backend/services/viewings-service/internal/utils"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
	"github.com/rentwell/mono-repo/backend/shared/go-repositories"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
)

const (
	TriggerConfirm = "confirm"
	TriggerSweep   = "sweep"
	TriggerManual  = "manual"
)

// SweepReport summarises one RunSweep call.
type SweepReport struct {
	Skipped   bool `json:"skipped"`
	Claimed   int  `json:"claimed"`
	Succeeded int  `json:"succeeded"`
	Deferred  int  `json:"deferred"`
	Failed    int  `json:"failed"`
}

// ReleaseRetryService owns every attempt to release a viewing fee, whether it
// comes from the confirming request, the periodic sweep or an admin.
type ReleaseRetryService struct {
	releaseRepo repositories.PaymentReleaseRepository
	releaser    PaymentReleaser
	notifier    Notifier
	locker      SweepLocker
	metrics     *metrics.Metrics

	now           func() time.Time
	baseDelay     time.Duration
	maxDelay      time.Duration
	maxAttempts   int
	batchSize     int
	lease         time.Duration
	lockTTL       time.Duration
	notifyFailure func(pr *models.PaymentRelease)
}

func NewReleaseRetryService(
	releaseRepo repositories.PaymentReleaseRepository,
	releaser PaymentReleaser,
	notifier Notifier,
	locker SweepLocker,
	m *metrics.Metrics,
) *ReleaseRetryService {
	if locker == nil {
		locker = NewLocalSweepLocker()
	}
	s := &ReleaseRetryService{
		releaseRepo: releaseRepo,
		releaser:    releaser,
		notifier:    notifier,
		locker:      locker,
		metrics:     m,
		now:         time.Now,
		baseDelay:   constants.ReleaseBaseRetryDelay,
		maxDelay:    constants.ReleaseMaxRetryDelay,
		maxAttempts: constants.MaxReleaseAttempts,
		batchSize:   constants.ReleaseSweepBatchSize,
		lease:       constants.ReleaseSweepLease,
		lockTTL:     constants.ReleaseSweepLockTTL,
	}
	s.notifyFailure = func(pr *models.PaymentRelease) {
		if s.notifier == nil {
			return
		}
		detach("release-failed-email", func(ctx context.Context) {
			s.notifier.NotifyReleaseFailed(ctx, pr)
		})
	}
	return s
}

// backoff returns the wait before the next attempt once attempts have failed.
func (s *ReleaseRetryService) backoff(attempts int) time.Duration {
	if attempts < 1 {
		return s.baseDelay
	}
	if attempts > 20 {
		return s.maxDelay
	}
	d := s.baseDelay << (attempts - 1)
	if d > s.maxDelay || d <= 0 {
		return s.maxDelay
	}
	return d
}

// AttemptForRequest releases the fee of one viewing request if it is still owed.
func (s *ReleaseRetryService) AttemptForRequest(ctx context.Context, viewingRequestID uuid.UUID, trigger string) error {
	pr, err := s.releaseRepo.GetByViewingRequestID(ctx, viewingRequestID)
	if err != nil {
		return internal_utils.NewPersistenceError("load_release", err)
	}
	if pr == nil {
		return internal_utils.ErrReleaseNotFound
	}
	if pr.Status == models.ReleaseStatusSucceeded {
		return nil
	}
	return s.attempt(ctx, pr, trigger)
}

// ReleaseFor returns the release record of a viewing request, or nil if none exists yet.
func (s *ReleaseRetryService) ReleaseFor(ctx context.Context, viewingRequestID uuid.UUID) (*models.PaymentRelease, error) {
	pr, err := s.releaseRepo.GetByViewingRequestID(ctx, viewingRequestID)
	if err != nil {
		return nil, internal_utils.NewPersistenceError("load_release", err)
	}
	return pr, nil
}

// RetryNow forces one attempt, even for releases that already gave up.
func (s *ReleaseRetryService) RetryNow(ctx context.Context, viewingRequestID uuid.UUID) (*models.PaymentRelease, error) {
	attemptErr := s.AttemptForRequest(ctx, viewingRequestID, TriggerManual)
	if attemptErr == internal_utils.ErrReleaseNotFound {
		return nil, attemptErr
	}
	pr, err := s.releaseRepo.GetByViewingRequestID(ctx, viewingRequestID)
	if err != nil {
		return nil, internal_utils.NewPersistenceError("load_release", err)
	}
	return pr, attemptErr
}

// RunSweep retries due releases. Overlapping sweeps are skipped.
func (s *ReleaseRetryService) RunSweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	unlock, ok, err := s.locker.TryLock(ctx, constants.ReleaseSweepLockKey, s.lockTTL)
	if err != nil {
		// Claims are leased in the DB as well, so a missing lock only costs efficiency.
		utils.Logger.WithError(err).Warn("Release sweep lock unavailable; sweeping without it")
		unlock, ok = func() {}, true
	}
	if !ok {
		utils.Logger.Info("Another release sweep holds the lock. Skipping this run.")
		report.Skipped = true
		return report, nil
	}
	defer unlock()

	now := s.now()
	due, err := s.releaseRepo.ClaimDue(ctx, now, now.Add(s.lease), s.batchSize)
	if err != nil {
		return report, internal_utils.NewPersistenceError("claim_due_releases", err)
	}
	report.Claimed = len(due)
	s.metrics.SweepClaimed.Add(float64(len(due)))
	if len(due) == 0 {
		utils.Logger.Debug("No payment releases due")
		return report, nil
	}
	utils.Logger.Infof("Retrying %d payment releases", len(due))

	for _, pr := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := s.attempt(ctx, pr, TriggerSweep); err != nil {
			if s.isFailed(ctx, pr.ID) {
				report.Failed++
			} else {
				report.Deferred++
			}
			continue
		}
		report.Succeeded++
	}
	utils.Logger.Infof("Release sweep done: %d succeeded, %d deferred, %d failed",
		report.Succeeded, report.Deferred, report.Failed)
	return report, nil
}

func (s *ReleaseRetryService) attempt(ctx context.Context, pr *models.PaymentRelease, trigger string) error {
	callCtx, cancel := context.WithTimeout(ctx, constants.ReleaseFunctionTimeout)
	start := time.Now()
	releaseErr := s.releaser.Release(callCtx, pr.ViewingRequestID)
	cancel()
	s.metrics.ReleaseLatency.Observe(time.Since(start).Seconds())

	// Bookkeeping must outlive a caller that has already gone away.
	bookCtx := context.WithoutCancel(ctx)
	if releaseErr == nil {
		s.recordSuccess(bookCtx, pr, trigger)
		return nil
	}
	s.recordFailure(bookCtx, pr, trigger, releaseErr)
	return releaseErr
}

func (s *ReleaseRetryService) recordSuccess(ctx context.Context, pr *models.PaymentRelease, trigger string) {
	now := s.now().UTC()
	err := s.releaseRepo.UpdateWithRetry(ctx, pr.ID, func(cur *models.PaymentRelease) error {
		if cur.Status == models.ReleaseStatusSucceeded {
			return nil
		}
		cur.Status = models.ReleaseStatusSucceeded
		cur.Attempts++
		cur.LastError = nil
		cur.ReleasedAt = &now
		return nil
	})
	s.metrics.ObserveRelease(trigger, metrics.ReleaseSucceeded)
	if err != nil {
		// The release itself went through; a later sweep repeats it idempotently.
		utils.Logger.WithError(err).Errorf("Released viewing request %s but failed to record it", pr.ViewingRequestID)
		return
	}
	utils.Logger.WithField("viewing_request_id", pr.ViewingRequestID).
		Infof("Payment released (%s)", trigger)
}

func (s *ReleaseRetryService) recordFailure(ctx context.Context, pr *models.PaymentRelease, trigger string, releaseErr error) {
	var (
		becameFailed bool
		snapshot     *models.PaymentRelease
	)
	msg := releaseErr.Error()
	now := s.now().UTC()

	err := s.releaseRepo.UpdateWithRetry(ctx, pr.ID, func(cur *models.PaymentRelease) error {
		becameFailed = false
		if cur.Status == models.ReleaseStatusSucceeded {
			return nil
		}
		cur.Attempts++
		cur.LastError = &msg
		switch {
		case cur.Status == models.ReleaseStatusFailed:
		case cur.Attempts >= s.maxAttempts:
			cur.Status = models.ReleaseStatusFailed
			becameFailed = true
		default:
			cur.Status = models.ReleaseStatusDeferred
			cur.NextAttemptAt = now.Add(s.backoff(cur.Attempts))
		}
		cp := *cur
		snapshot = &cp
		return nil
	})
	if err != nil {
		utils.Logger.WithError(err).Errorf("Failed to record release failure for viewing request %s", pr.ViewingRequestID)
	}

	fields := map[string]any{
		"viewing_request_id": pr.ViewingRequestID,
		"trigger":            trigger,
	}
	if snapshot != nil {
		fields["attempts"] = snapshot.Attempts
		fields["next_attempt_at"] = snapshot.NextAttemptAt
	}
	entry := utils.Logger.WithFields(fields).WithError(releaseErr)

	if becameFailed {
		s.metrics.ObserveRelease(trigger, metrics.ReleaseFailed)
		entry.Error("CRITICAL: payment release gave up after max attempts; finance notified")
		s.notifyFailure(snapshot)
		return
	}
	s.metrics.ObserveRelease(trigger, metrics.ReleaseDeferred)
	entry.Error("Payment release deferred; it will be retried")
}

func (s *ReleaseRetryService) isFailed(ctx context.Context, id uuid.UUID) bool {
	pr, err := s.releaseRepo.GetByID(ctx, id)
	return err == nil && pr != nil && pr.Status == models.ReleaseStatusFailed
}
