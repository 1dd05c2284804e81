package models

import (
	"time"

	"github.com/google/uuid"
)

type ProfileRole string

const (
	ProfileRoleTenant   ProfileRole = "tenant"
	ProfileRoleLandlord ProfileRole = "landlord"
	ProfileRoleAgent    ProfileRole = "agent"
	ProfileRoleAdmin    ProfileRole = "admin"
)

// Profile is the marketplace account of a tenant, landlord, agent or admin.
type Profile struct {
	ID                     uuid.UUID   `json:"id"`
	Role                   ProfileRole `json:"role"`
	FullName               string      `json:"full_name"`
	Email                  string      `json:"email"`
	PhoneNumber            *string     `json:"phone_number,omitempty"`
	StripeConnectAccountID *string     `json:"stripe_connect_account_id,omitempty"`
	CreatedAt              time.Time   `json:"created_at"`
	UpdatedAt              time.Time   `json:"updated_at"`
}
