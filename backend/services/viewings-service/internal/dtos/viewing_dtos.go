package dtos

import (
	"time"

	"github.com/google/uuid"
	"github.com/rentwell/mono-repo/backend/shared/go-models"
)

type HealthCheckResponse struct {
	Status string `json:"status"`
}

// CreateViewingRequest is submitted by a tenant after checkout.
type CreateViewingRequest struct {
	PropertyID     uuid.UUID   `json:"property_id" validate:"required"`
	PreferredDates []time.Time `json:"preferred_dates" validate:"required,min=1,max=3"`
}

// ScheduleViewingRequest accepts either a local date and time in the
// property's zone or an absolute timestamp.
type ScheduleViewingRequest struct {
	Date          string     `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Time          string     `json:"time,omitempty" validate:"omitempty,datetime=15:04"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
}

// TransitionResponse replaces the toast the web app used to show.
type TransitionResponse struct {
	ViewingRequest   *models.ViewingRequest `json:"viewing_request"`
	ReleaseTriggered bool                   `json:"release_triggered"`
	ReleaseDeferred  bool                   `json:"release_deferred"`
	Message          string                 `json:"message"`
}

type ListViewingsResponse struct {
	Results []*models.ViewingRequest `json:"results"`
	Total   int                      `json:"total"`
}

type ReleaseRetryResponse struct {
	Release *models.PaymentRelease `json:"release"`
	Error   string                 `json:"error,omitempty"`
}

// AdminViewingDetail pairs a request with its release record, if any.
type AdminViewingDetail struct {
	ViewingRequest *models.ViewingRequest `json:"viewing_request"`
	Release        *models.PaymentRelease `json:"release,omitempty"`
}
