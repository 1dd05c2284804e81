package models

import (
	"time"

	"github.com/google/uuid"
)

// Property is owned by the listings side of the marketplace; the viewings
// backend only reads it.
type Property struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	Title      string    `json:"title"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	ViewingFee float64   `json:"viewing_fee"`
	Currency   string    `json:"currency"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	TimeZone   string    `json:"timezone"`
	CreatedAt  time.Time `json:"created_at"`
}
