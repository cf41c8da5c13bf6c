package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminLog records an admin-initiated action against some target row.
type AdminLog struct {
	ID         uuid.UUID         `json:"id"`
	AdminID    int64             `json:"admin_id"`
	Action     string            `json:"action"`
	TargetType string            `json:"target_type"`
	TargetID   string            `json:"target_id"`
	Details    map[string]string `json:"details"`
	CreatedAt  time.Time         `json:"created_at"`
}

// EmailLog records one attempt of the order-status email function.
type EmailLog struct {
	ID           uuid.UUID `json:"id"`
	OrderID      uuid.UUID `json:"order_id"`
	EmailStatus  string    `json:"email_status"`
	Response     *string   `json:"response"`
	ErrorMessage *string   `json:"error_message"`
	SentAt       time.Time `json:"sent_at"`
}
