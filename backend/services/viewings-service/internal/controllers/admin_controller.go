package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/dtos"
	"github.com/rentwell/mono-repo/backend/services/viewings-service/internal/services"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
	"github.com/rentwell/mono-repo/backend/shared/go-repositories"
	"github.com/rentwell/mono-repo/backend/shared/go-utils"
)

const (
	defaultAdminListLimit = 50
	maxAdminListLimit     = 200
)

type ViewingDirectory interface {
	Get(ctx context.Context, requestID uuid.UUID) (*models.ViewingRequest, error)
	ListAll(ctx context.Context, f repositories.ViewingRequestFilter) ([]*models.ViewingRequest, error)
}

type ReleaseRetrier interface {
	ReleaseFor(ctx context.Context, viewingRequestID uuid.UUID) (*models.PaymentRelease, error)
	RetryNow(ctx context.Context, viewingRequestID uuid.UUID) (*models.PaymentRelease, error)
	RunSweep(ctx context.Context) (services.SweepReport, error)
}

type AdminController struct {
	viewings ViewingDirectory
	releases ReleaseRetrier
}

func NewAdminController(v ViewingDirectory, r ReleaseRetrier) *AdminController {
	return &AdminController{viewings: v, releases: r}
}

// GET /api/v1/admin/viewings?status=scheduled&status=completed&property_id=...&limit=&offset=
func (c *AdminController) ListViewingsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repositories.ViewingRequestFilter{Limit: defaultAdminListLimit}

	for _, raw := range q["status"] {
		for _, st := range strings.Split(raw, ",") {
			if st = strings.TrimSpace(st); st != "" {
				f.Statuses = append(f.Statuses, models.ViewingStatusType(st))
			}
		}
	}
	if pid := q.Get("property_id"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid property_id", nil, err)
			return
		}
		f.PropertyID = &id
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid limit", nil, err)
			return
		}
		f.Limit = min(n, maxAdminListLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid offset", nil, err)
			return
		}
		f.Offset = n
	}

	list, err := c.viewings.ListAll(r.Context(), f)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ListViewingsResponse{Results: nonNil(list), Total: len(list)})
}

// GET /api/v1/admin/viewings/{id}
func (c *AdminController) GetViewingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	vr, err := c.viewings.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	pr, err := c.releases.ReleaseFor(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.AdminViewingDetail{ViewingRequest: vr, Release: pr})
}

// POST /api/v1/admin/viewings/{id}/release/retry
func (c *AdminController) RetryReleaseHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	pr, err := c.releases.RetryNow(r.Context(), id)
	switch {
	case err == nil:
		utils.RespondWithJSON(w, http.StatusOK, dtos.ReleaseRetryResponse{Release: pr})
	case pr != nil:
		// The attempt ran and failed; the release record reflects it.
		utils.Logger.WithError(err).WithField("viewing_request_id", id).Warn("Manual release retry failed")
		utils.RespondWithJSON(w, http.StatusBadGateway, dtos.ReleaseRetryResponse{Release: pr, Error: err.Error()})
	default:
		respondServiceError(w, err)
	}
}

// POST /api/v1/admin/releases/sweep
func (c *AdminController) SweepReleasesHandler(w http.ResponseWriter, r *http.Request) {
	report, err := c.releases.RunSweep(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, report)
}
