package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/constants"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/dtos"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/services"
	shared_dtos "github.com/rentwell/mono-repo/backend/shared/go-dtos"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
)

// ViewingLifecycle is the part of services.ViewingService the HTTP layer uses.
type ViewingLifecycle interface {
	CreateRequest(ctx context.Context, tenantID, propertyID uuid.UUID, preferredDates []time.Time) (*models.ViewingRequest, error)
	Schedule(ctx context.Context, requestID, landlordID uuid.UUID, at time.Time) (*services.TransitionResult, error)
	ScheduleLocal(ctx context.Context, requestID, landlordID uuid.UUID, date, clock string) (*services.TransitionResult, error)
	Cancel(ctx context.Context, requestID, actorID uuid.UUID, role models.ActorRole) (*services.TransitionResult, error)
	ConfirmByTenant(ctx context.Context, requestID, tenantID uuid.UUID) (*services.TransitionResult, error)
	ConfirmByLandlord(ctx context.Context, requestID, landlordID uuid.UUID) (*services.TransitionResult, error)
	GetForActor(ctx context.Context, requestID, actorID uuid.UUID) (*models.ViewingRequest, error)
	ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.ViewingRequest, error)
	ListForLandlord(ctx context.Context, landlordID uuid.UUID) ([]*models.ViewingRequest, error)
}

type ViewingsController struct {
	viewingService ViewingLifecycle
	validate       *validator.Validate
}

func NewViewingsController(s ViewingLifecycle) *ViewingsController {
	return &ViewingsController{
		viewingService: s,
		validate:       validator.New(),
	}
}

// POST /api/v1/viewings
func (c *ViewingsController) CreateViewingHandler(w http.ResponseWriter, r *http.Request) {
	a, err := getActor(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	if a.Role != utils.TenantAccountType {
		utils.RespondErrorWithCode(w, http.StatusForbidden, utils.ErrCodeForbidden, "Only tenants can request viewings", nil)
		return
	}

	var req dtos.CreateViewingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid JSON payload", nil, err)
		return
	}
	if !c.validPayload(w, req) {
		return
	}

	vr, err := c.viewingService.CreateRequest(r.Context(), a.ID, req.PropertyID, req.PreferredDates)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dtos.TransitionResponse{
		ViewingRequest: vr,
		Message:        constants.MsgCreated,
	})
}

// GET /api/v1/viewings/tenant
func (c *ViewingsController) ListTenantViewingsHandler(w http.ResponseWriter, r *http.Request) {
	a, err := getActor(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	list, err := c.viewingService.ListForTenant(r.Context(), a.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ListViewingsResponse{Results: nonNil(list), Total: len(list)})
}

// GET /api/v1/viewings/landlord
func (c *ViewingsController) ListLandlordViewingsHandler(w http.ResponseWriter, r *http.Request) {
	a, err := getActor(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	list, err := c.viewingService.ListForLandlord(r.Context(), a.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ListViewingsResponse{Results: nonNil(list), Total: len(list)})
}

// GET /api/v1/viewings/{id}
func (c *ViewingsController) GetViewingHandler(w http.ResponseWriter, r *http.Request) {
	a, err := getActor(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	vr, err := c.viewingService.GetForActor(r.Context(), id, a.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, vr)
}

// POST /api/v1/viewings/{id}/schedule
func (c *ViewingsController) ScheduleViewingHandler(w http.ResponseWriter, r *http.Request) {
	a, id, ok := c.actorAndID(w, r)
	if !ok {
		return
	}

	var req dtos.ScheduleViewingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid JSON payload", nil, err)
		return
	}
	if !c.validPayload(w, req) {
		return
	}

	var (
		res *services.TransitionResult
		err error
	)
	switch {
	case req.ScheduledDate != nil:
		res, err = c.viewingService.Schedule(r.Context(), id, a.ID, *req.ScheduledDate)
	case req.Date != "" || req.Time != "":
		res, err = c.viewingService.ScheduleLocal(r.Context(), id, a.ID, req.Date, req.Time)
	default:
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation,
			"Please select both date and time", nil)
		return
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondTransition(w, res, constants.MsgScheduled)
}

// POST /api/v1/viewings/{id}/cancel
func (c *ViewingsController) CancelViewingHandler(w http.ResponseWriter, r *http.Request) {
	a, id, ok := c.actorAndID(w, r)
	if !ok {
		return
	}
	role, ok := a.lifecycleRole()
	if !ok {
		utils.RespondErrorWithCode(w, http.StatusForbidden, utils.ErrCodeForbidden, "Only tenants and landlords can cancel viewings", nil)
		return
	}
	res, err := c.viewingService.Cancel(r.Context(), id, a.ID, role)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondTransition(w, res, constants.MsgCancelled)
}

// POST /api/v1/viewings/{id}/confirm
func (c *ViewingsController) ConfirmViewingHandler(w http.ResponseWriter, r *http.Request) {
	a, id, ok := c.actorAndID(w, r)
	if !ok {
		return
	}
	role, ok := a.lifecycleRole()
	if !ok {
		utils.RespondErrorWithCode(w, http.StatusForbidden, utils.ErrCodeForbidden, "Only tenants and landlords can confirm viewings", nil)
		return
	}

	var (
		res *services.TransitionResult
		err error
	)
	if role == models.ActorRoleTenant {
		res, err = c.viewingService.ConfirmByTenant(r.Context(), id, a.ID)
	} else {
		res, err = c.viewingService.ConfirmByLandlord(r.Context(), id, a.ID)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondTransition(w, res, constants.MsgConfirmed)
}

func (c *ViewingsController) actorAndID(w http.ResponseWriter, r *http.Request) (actor, uuid.UUID, bool) {
	a, err := getActor(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return actor{}, uuid.Nil, false
	}
	id, err := pathID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return actor{}, uuid.Nil, false
	}
	return a, id, true
}

func (c *ViewingsController) validPayload(w http.ResponseWriter, payload any) bool {
	err := c.validate.Struct(payload)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation,
			"Validation error", shared_dtos.FormatValidationErrors(verrs), err)
	} else {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "Validation error", nil, err)
	}
	return false
}

func respondTransition(w http.ResponseWriter, res *services.TransitionResult, msg string) {
	if res.ReleaseDeferred {
		msg = constants.MsgReleaseDeferred
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.TransitionResponse{
		ViewingRequest:   res.Request,
		ReleaseTriggered: res.ReleaseTriggered,
		ReleaseDeferred:  res.ReleaseDeferred,
		Message:          msg,
	})
}

func nonNil(list []*models.ViewingRequest) []*models.ViewingRequest {
	if list == nil {
		return []*models.ViewingRequest{}
	}
	return list
}
