package services

import (
	"time"

	"github.com/google/uuid"
	internal_utils "github.com/rentwell/mono-repo/backend/services/viewings-service/internal/utils"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
	"github.com/rentwell/mono-repo/backend/shared/go-repositories"
)

const (
	actionSchedule = "schedule"
	actionCancel   = "cancel"
	actionConfirm  = "confirm"
	actionCreate   = "create"
)

var noEffect = repositories.TransitionEffect{}

// scheduleTransition: pending -> scheduled, landlord only. The date must be
// after now; that check follows the party and state checks.
func scheduleTransition(landlordID uuid.UUID, at time.Time, now time.Time) repositories.TransitionFunc {
	return func(vr *models.ViewingRequest) (repositories.TransitionEffect, error) {
		if vr.LandlordID != landlordID {
			return noEffect, internal_utils.ErrUnauthorized
		}
		if vr.Status != models.ViewingStatusPending {
			return noEffect, internal_utils.NewTransitionError(actionSchedule, string(vr.Status), "")
		}
		if !at.After(now) {
			return noEffect, internal_utils.NewValidationError("scheduled_date", "must be in the future")
		}
		scheduled := at.UTC()
		vr.ScheduledDate = &scheduled
		vr.Status = models.ViewingStatusScheduled
		return noEffect, nil
	}
}

// cancelTransition: pending|scheduled -> cancelled, by either party that has
// not yet confirmed the viewing.
func cancelTransition(actorID uuid.UUID, role models.ActorRole) repositories.TransitionFunc {
	return func(vr *models.ViewingRequest) (repositories.TransitionEffect, error) {
		if vr.PartyID(role) != actorID {
			return noEffect, internal_utils.ErrUnauthorized
		}
		if vr.Status.IsTerminal() {
			return noEffect, internal_utils.NewTransitionError(actionCancel, string(vr.Status), "")
		}
		if vr.ConfirmedBy(role) {
			return noEffect, internal_utils.NewTransitionError(actionCancel, string(vr.Status), "already confirmed by "+string(role))
		}
		vr.Status = models.ViewingStatusCancelled
		cancelledBy := actorID
		vr.CancelledBy = &cancelledBy
		return noEffect, nil
	}
}

// confirmTransition sets the actor's confirmation flag on a scheduled
// request. The call that sets the second flag completes the request and asks
// for the payment release; that decision is made while the row is locked, so
// exactly one of two racing confirmations sees the other flag set.
func confirmTransition(actorID uuid.UUID, role models.ActorRole, now time.Time) repositories.TransitionFunc {
	return func(vr *models.ViewingRequest) (repositories.TransitionEffect, error) {
		if vr.PartyID(role) != actorID {
			return noEffect, internal_utils.ErrUnauthorized
		}
		switch vr.Status {
		case models.ViewingStatusScheduled:
			if vr.ConfirmedBy(role) {
				return repositories.TransitionEffect{Unchanged: true}, nil
			}
			if role == models.ActorRoleTenant {
				vr.TenantConfirmed = true
			} else {
				vr.LandlordConfirmed = true
			}
			if !vr.BothConfirmed() {
				return noEffect, nil
			}
			completedAt := now.UTC()
			vr.Status = models.ViewingStatusCompleted
			vr.CompletedAt = &completedAt
			return repositories.TransitionEffect{EnqueueRelease: true}, nil

		case models.ViewingStatusCompleted:
			// A party repeating its own confirmation gets an unchanged
			// success; nothing on the row is written.
			if vr.ConfirmedBy(role) {
				return repositories.TransitionEffect{Unchanged: true}, nil
			}
		}
		return noEffect, internal_utils.NewTransitionError(actionConfirm, string(vr.Status), "")
	}
}
