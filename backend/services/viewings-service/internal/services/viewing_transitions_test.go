package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	internal_utils "github.com/rentwell/mono-repo/backend/services/viewings-service/internal/utils"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
	"github.com/stretchr/testify/require"
)

func newRequest(status models.ViewingStatusType) *models.ViewingRequest {
	vr := &models.ViewingRequest{
		ID:         uuid.New(),
		PropertyID: uuid.New(),
		TenantID:   uuid.New(),
		LandlordID: uuid.New(),
		Status:     status,
	}
	if status != models.ViewingStatusPending {
		d := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
		vr.ScheduledDate = &d
	}
	return vr
}

func TestScheduleTransition(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	now := at.Add(-24 * time.Hour)

	t.Run("landlord schedules pending request", func(t *testing.T) {
		vr := newRequest(models.ViewingStatusPending)
		eff, err := scheduleTransition(vr.LandlordID, at, now)(vr)
		require.NoError(t, err)
		require.False(t, eff.EnqueueRelease)
		require.Equal(t, models.ViewingStatusScheduled, vr.Status)
		require.NotNil(t, vr.ScheduledDate)
		require.True(t, at.Equal(*vr.ScheduledDate))
	})

	t.Run("tenant and outsiders are unauthorized", func(t *testing.T) {
		vr := newRequest(models.ViewingStatusPending)
		for _, actor := range []uuid.UUID{vr.TenantID, uuid.New()} {
			_, err := scheduleTransition(actor, at, now)(vr)
			require.ErrorIs(t, err, internal_utils.ErrUnauthorized)
		}
		require.Equal(t, models.ViewingStatusPending, vr.Status)
		require.Nil(t, vr.ScheduledDate)
	})

	t.Run("only pending requests can be scheduled", func(t *testing.T) {
		for _, st := range []models.ViewingStatusType{
			models.ViewingStatusScheduled,
			models.ViewingStatusCancelled,
			models.ViewingStatusCompleted,
			models.ViewingStatusRejected,
		} {
			vr := newRequest(st)
			before := vr.Clone()
			_, err := scheduleTransition(vr.LandlordID, at.Add(time.Hour), now)(vr)
			require.ErrorIs(t, err, internal_utils.ErrInvalidTransition, st)
			require.Equal(t, before, vr, st)
		}
	})

	t.Run("past date is checked after party and state", func(t *testing.T) {
		past := now.Add(-time.Hour)

		vr := newRequest(models.ViewingStatusPending)
		_, err := scheduleTransition(vr.LandlordID, past, now)(vr)
		var ve *internal_utils.ValidationError
		require.True(t, errors.As(err, &ve))
		require.Equal(t, "scheduled_date", ve.Field)
		require.Equal(t, models.ViewingStatusPending, vr.Status)

		_, err = scheduleTransition(vr.LandlordID, now, now)(vr)
		require.True(t, errors.As(err, &ve))

		_, err = scheduleTransition(uuid.New(), past, now)(vr)
		require.ErrorIs(t, err, internal_utils.ErrUnauthorized)

		cancelled := newRequest(models.ViewingStatusCancelled)
		_, err = scheduleTransition(cancelled.LandlordID, past, now)(cancelled)
		require.ErrorIs(t, err, internal_utils.ErrInvalidTransition)
	})
}

func TestCancelTransition(t *testing.T) {
	for _, st := range []models.ViewingStatusType{models.ViewingStatusPending, models.ViewingStatusScheduled} {
		for _, role := range []models.ActorRole{models.ActorRoleTenant, models.ActorRoleLandlord} {
			vr := newRequest(st)
			actor := vr.PartyID(role)
			_, err := cancelTransition(actor, role)(vr)
			require.NoError(t, err)
			require.Equal(t, models.ViewingStatusCancelled, vr.Status)
			require.Equal(t, actor, *vr.CancelledBy)
			require.False(t, vr.TenantConfirmed)
			require.False(t, vr.LandlordConfirmed)
		}
	}

	t.Run("own confirmation blocks cancel", func(t *testing.T) {
		vr := newRequest(models.ViewingStatusScheduled)
		vr.LandlordConfirmed = true
		_, err := cancelTransition(vr.LandlordID, models.ActorRoleLandlord)(vr)
		require.ErrorIs(t, err, internal_utils.ErrInvalidTransition)

		var te *internal_utils.TransitionError
		require.True(t, errors.As(err, &te))
		require.Equal(t, actionCancel, te.Action)
		require.Equal(t, models.ViewingStatusScheduled, vr.Status)

		// The other side has not confirmed and may still cancel.
		_, err = cancelTransition(vr.TenantID, models.ActorRoleTenant)(vr)
		require.NoError(t, err)
	})

	t.Run("terminal states cannot be cancelled", func(t *testing.T) {
		for _, st := range []models.ViewingStatusType{
			models.ViewingStatusCancelled,
			models.ViewingStatusCompleted,
			models.ViewingStatusRejected,
		} {
			require.True(t, st.IsTerminal(), st)
			vr := newRequest(st)
			before := vr.Clone()
			_, err := cancelTransition(vr.TenantID, models.ActorRoleTenant)(vr)
			require.ErrorIs(t, err, internal_utils.ErrInvalidTransition, st)
			require.Equal(t, before, vr, st)
		}
	})

	t.Run("wrong id for role", func(t *testing.T) {
		vr := newRequest(models.ViewingStatusPending)
		_, err := cancelTransition(vr.TenantID, models.ActorRoleLandlord)(vr)
		require.ErrorIs(t, err, internal_utils.ErrUnauthorized)
	})
}

func TestConfirmTransitionCommutes(t *testing.T) {
	now := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	orders := [][]models.ActorRole{
		{models.ActorRoleTenant, models.ActorRoleLandlord},
		{models.ActorRoleLandlord, models.ActorRoleTenant},
	}
	for _, order := range orders {
		vr := newRequest(models.ViewingStatusScheduled)
		releases := 0
		for _, role := range order {
			eff, err := confirmTransition(vr.PartyID(role), role, now)(vr)
			require.NoError(t, err)
			if eff.EnqueueRelease {
				releases++
			}
		}
		require.Equal(t, 1, releases)
		require.True(t, vr.BothConfirmed())
		require.Equal(t, models.ViewingStatusCompleted, vr.Status)
		require.True(t, now.Equal(*vr.CompletedAt))
	}
}

func TestConfirmTransitionIdempotent(t *testing.T) {
	now := time.Now()
	vr := newRequest(models.ViewingStatusScheduled)

	eff, err := confirmTransition(vr.LandlordID, models.ActorRoleLandlord, now)(vr)
	require.NoError(t, err)
	require.False(t, eff.Unchanged)
	require.False(t, eff.EnqueueRelease)

	eff, err = confirmTransition(vr.LandlordID, models.ActorRoleLandlord, now)(vr)
	require.NoError(t, err)
	require.True(t, eff.Unchanged)
	require.False(t, eff.EnqueueRelease)
	require.Equal(t, models.ViewingStatusScheduled, vr.Status)

	eff, err = confirmTransition(vr.TenantID, models.ActorRoleTenant, now)(vr)
	require.NoError(t, err)
	require.True(t, eff.EnqueueRelease)

	// Completed: a party repeating its own confirmation gets Unchanged and
	// no second release.
	for _, role := range []models.ActorRole{models.ActorRoleTenant, models.ActorRoleLandlord} {
		eff, err = confirmTransition(vr.PartyID(role), role, now)(vr)
		require.NoError(t, err)
		require.True(t, eff.Unchanged)
		require.False(t, eff.EnqueueRelease)
	}
}

func TestConfirmTransitionRejectsOtherStates(t *testing.T) {
	for _, st := range []models.ViewingStatusType{
		models.ViewingStatusPending,
		models.ViewingStatusCancelled,
		models.ViewingStatusRejected,
	} {
		vr := newRequest(st)
		before := vr.Clone()
		_, err := confirmTransition(vr.TenantID, models.ActorRoleTenant, time.Now())(vr)
		require.ErrorIs(t, err, internal_utils.ErrInvalidTransition, st)
		require.Equal(t, before, vr, st)
	}

	vr := newRequest(models.ViewingStatusScheduled)
	_, err := confirmTransition(uuid.New(), models.ActorRoleTenant, time.Now())(vr)
	require.ErrorIs(t, err, internal_utils.ErrUnauthorized)
	require.False(t, vr.TenantConfirmed)
}
