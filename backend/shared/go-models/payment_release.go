package models

import (
	"time"

	"github.com/google/uuid"
)

type ReleaseStatusType string

const (
	ReleaseStatusPending   ReleaseStatusType = "pending"
	ReleaseStatusSucceeded ReleaseStatusType = "succeeded"
	ReleaseStatusDeferred  ReleaseStatusType = "deferred"
	ReleaseStatusFailed    ReleaseStatusType = "failed"
)

// PaymentRelease is the durable record of an escrow release owed to a
// landlord. It is written in the same DB transaction as the confirmation
// that completes a viewing, so at most one exists per viewing request.
type PaymentRelease struct {
	Versioned

	ID               uuid.UUID         `json:"id"`
	ViewingRequestID uuid.UUID         `json:"viewing_request_id"`
	Status           ReleaseStatusType `json:"status"`
	Attempts         int               `json:"attempts"`
	LastError        *string           `json:"last_error,omitempty"`
	NextAttemptAt    time.Time         `json:"next_attempt_at"`
	ReleasedAt       *time.Time        `json:"released_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (pr *PaymentRelease) GetID() string {
	return pr.ID.String()
}

// Settled reports whether no more attempts will be made.
func (pr *PaymentRelease) Settled() bool {
	return pr.Status == ReleaseStatusSucceeded || pr.Status == ReleaseStatusFailed
}
