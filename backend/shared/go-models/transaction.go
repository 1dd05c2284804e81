package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatusType string

const (
	PaymentStatusPending   PaymentStatusType = "pending"
	PaymentStatusCompleted PaymentStatusType = "completed"
	PaymentStatusFailed    PaymentStatusType = "failed"
	PaymentStatusRefunded  PaymentStatusType = "refunded"
)

type EscrowStatusType string

const (
	EscrowStatusHeld     EscrowStatusType = "held"
	EscrowStatusReleased EscrowStatusType = "released"
	EscrowStatusRefunded EscrowStatusType = "refunded"
)

// Transaction is the viewing-fee payment taken at checkout. Funds stay in
// escrow until both parties confirm the viewing took place.
type Transaction struct {
	ID               uuid.UUID         `json:"id"`
	ViewingRequestID uuid.UUID         `json:"viewing_request_id"`
	Amount           float64           `json:"amount"`
	Currency         string            `json:"currency"`
	PaymentStatus    PaymentStatusType `json:"payment_status"`
	EscrowStatus     EscrowStatusType  `json:"escrow_status"`
	GatewayReference string            `json:"gateway_reference"`
	ReleaseReference *string           `json:"release_reference,omitempty"`
	ReleasedAt       *time.Time        `json:"released_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// AmountCents converts the decimal amount to the smallest currency unit.
func (t *Transaction) AmountCents() int64 {
	if t.Amount <= 0 {
		return 0
	}
	return int64(t.Amount*100 + 0.5)
}
