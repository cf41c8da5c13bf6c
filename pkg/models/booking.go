package models

import (
	"time"

	"github.com/google/uuid"
)

// Booking is the pickup scheduling record created once at order placement.
// It is immutable afterwards in this flow.
type Booking struct {
	ID          uuid.UUID `json:"id"`
	UserID      int64     `json:"user_id"`
	AddressID   uuid.UUID `json:"address_id"`
	PickupTime  time.Time `json:"pickup_time"`
	SpecialNote *string   `json:"special_note"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
