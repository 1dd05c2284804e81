package controllers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	internal_utils "github.com/rentwell/mono-repo/backend/services/viewings-service/internal/utils"
	"github.com/rentwell/mono-repo/backend/shared/go-middleware"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
)

type actor struct {
	ID   uuid.UUID
	Role string
}

func getActor(r *http.Request) (actor, error) {
	userID, role, ok := middleware.UserFromContext(r.Context())
	if !ok {
		return actor{}, &utils.AppError{StatusCode: http.StatusUnauthorized, Code: utils.ErrCodeUnauthorized, Message: "Missing userID in context"}
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return actor{}, &utils.AppError{StatusCode: http.StatusBadRequest, Code: utils.ErrCodeInvalidPayload, Message: "Invalid userID format", Err: err}
	}
	return actor{ID: id, Role: role}, nil
}

// lifecycleRole maps the account role claim to the side of a request it acts on.
// Agents act for the landlord.
func (a actor) lifecycleRole() (models.ActorRole, bool) {
	switch a.Role {
	case utils.TenantAccountType:
		return models.ActorRoleTenant, true
	case utils.LandlordAccountType, utils.AgentAccountType:
		return models.ActorRoleLandlord, true
	}
	return "", false
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, &utils.AppError{StatusCode: http.StatusBadRequest, Code: utils.ErrCodeInvalidPayload, Message: "Invalid viewing request id", Err: err}
	}
	return id, nil
}

// respondServiceError maps the lifecycle error taxonomy onto HTTP.
func respondServiceError(w http.ResponseWriter, err error) {
	var (
		ve *internal_utils.ValidationError
		pe *internal_utils.PersistenceError
	)
	switch {
	case errors.Is(err, internal_utils.ErrUnauthorized):
		utils.RespondErrorWithCode(w, http.StatusForbidden, utils.ErrCodeUnauthorized,
			"You are not a party to this viewing request", nil, err)
	case errors.Is(err, internal_utils.ErrInvalidTransition):
		utils.RespondErrorWithCode(w, http.StatusConflict, utils.ErrCodeInvalidTransition,
			"This action is not allowed in the request's current state", nil, err)
	case errors.As(err, &ve):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation,
			ve.Field+" "+ve.Reason, ve, err)
	case errors.Is(err, internal_utils.ErrNotFound):
		utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "Viewing request not found", nil, err)
	case errors.Is(err, internal_utils.ErrPropertyNotFound):
		utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "Property not found", nil, err)
	case errors.Is(err, internal_utils.ErrReleaseNotFound):
		utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "No payment release recorded for this request", nil, err)
	case errors.As(err, &pe):
		utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal,
			"Could not save your change. Please try again.", nil, err)
	default:
		utils.HandleAppError(w, err)
	}
}
