package models

import (
	"time"

	"github.com/google/uuid"
)

// Service is a catalog entry (wash & fold, dry cleaning, ...) priced per kg.
type Service struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description"`
	BasePricePerKg float64   `json:"base_price_per_kg"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}
