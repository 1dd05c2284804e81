package models

import (
	"time"

	"github.com/google/uuid"
)

type ViewingStatusType string

const (
	ViewingStatusPending   ViewingStatusType = "pending"
	ViewingStatusScheduled ViewingStatusType = "scheduled"
	ViewingStatusCancelled ViewingStatusType = "cancelled"
	ViewingStatusCompleted ViewingStatusType = "completed"
	// Persisted vocabulary only; no transition leads here.
	ViewingStatusRejected ViewingStatusType = "rejected"
)

// IsTerminal reports whether no further transitions are defined from s.
func (s ViewingStatusType) IsTerminal() bool {
	switch s {
	case ViewingStatusCancelled, ViewingStatusCompleted, ViewingStatusRejected:
		return true
	}
	return false
}

func (s ViewingStatusType) Valid() bool {
	switch s {
	case ViewingStatusPending, ViewingStatusScheduled, ViewingStatusCancelled,
		ViewingStatusCompleted, ViewingStatusRejected:
		return true
	}
	return false
}

// ActorRole is the side of a viewing request an actor is acting on.
type ActorRole string

const (
	ActorRoleTenant   ActorRole = "tenant"
	ActorRoleLandlord ActorRole = "landlord"
)

func (r ActorRole) Valid() bool {
	return r == ActorRoleTenant || r == ActorRoleLandlord
}

// ViewingRequest is one tenant's request to view one property.
type ViewingRequest struct {
	Versioned

	ID         uuid.UUID `json:"id"`
	PropertyID uuid.UUID `json:"property_id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	// Copied from the property's owner when the request is created.
	LandlordID uuid.UUID `json:"landlord_id"`

	Status         ViewingStatusType `json:"status"`
	PreferredDates []time.Time       `json:"preferred_dates"`
	ScheduledDate  *time.Time        `json:"scheduled_date,omitempty"`

	TenantConfirmed   bool `json:"tenant_confirmed"`
	LandlordConfirmed bool `json:"landlord_confirmed"`

	CancelledBy *uuid.UUID `json:"cancelled_by,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (vr *ViewingRequest) GetID() string {
	return vr.ID.String()
}

// BothConfirmed is the dual-confirmation completion signal.
func (vr *ViewingRequest) BothConfirmed() bool {
	return vr.TenantConfirmed && vr.LandlordConfirmed
}

// ConfirmedBy returns the confirmation flag of the given side.
func (vr *ViewingRequest) ConfirmedBy(role ActorRole) bool {
	if role == ActorRoleTenant {
		return vr.TenantConfirmed
	}
	return vr.LandlordConfirmed
}

// PartyID returns the id referenced on the request for the given side.
func (vr *ViewingRequest) PartyID(role ActorRole) uuid.UUID {
	if role == ActorRoleTenant {
		return vr.TenantID
	}
	return vr.LandlordID
}

// PartyOf reports which side actorID is on. ok is false for outsiders.
func (vr *ViewingRequest) PartyOf(actorID uuid.UUID) (role ActorRole, ok bool) {
	switch actorID {
	case vr.TenantID:
		return ActorRoleTenant, true
	case vr.LandlordID:
		return ActorRoleLandlord, true
	}
	return "", false
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (vr *ViewingRequest) Clone() *ViewingRequest {
	if vr == nil {
		return nil
	}
	cp := *vr
	if vr.PreferredDates != nil {
		cp.PreferredDates = append([]time.Time(nil), vr.PreferredDates...)
	}
	if vr.ScheduledDate != nil {
		t := *vr.ScheduledDate
		cp.ScheduledDate = &t
	}
	if vr.CancelledBy != nil {
		id := *vr.CancelledBy
		cp.CancelledBy = &id
	}
	if vr.CompletedAt != nil {
		t := *vr.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
