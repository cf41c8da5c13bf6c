package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the current progress of an order.
type OrderStatus string

const (
	StatusPending          OrderStatus = "pending"
	StatusConfirmed        OrderStatus = "confirmed"
	StatusPickedUp         OrderStatus = "picked_up"
	StatusInProcess        OrderStatus = "in_process"
	StatusReadyForDelivery OrderStatus = "ready_for_delivery"
	StatusDelivered        OrderStatus = "delivered"
	StatusCancelledByUser  OrderStatus = "cancelled_by_user"
	StatusCancelledByAdmin OrderStatus = "cancelled_by_admin"
)

// CancelledBy values recorded on the order row.
const (
	CancelledByCustomer = "customer"
	CancelledByAdmin    = "admin"
)

// forwardOrder is the happy-path progression. StatusPending is kept in the
// enum for display compatibility but orders are created confirmed, so it is
// never reached from the creation flow.
var forwardOrder = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusPickedUp,
	StatusInProcess,
	StatusReadyForDelivery,
	StatusDelivered,
}

// Rank returns the position of s along the happy path, or -1 for
// cancellation states and unknown values.
func (s OrderStatus) Rank() int {
	for i, st := range forwardOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Terminal reports whether no further transition is permitted from s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelledByUser, StatusCancelledByAdmin:
		return true
	}
	return false
}

func (s OrderStatus) Cancelled() bool {
	return s == StatusCancelledByUser || s == StatusCancelledByAdmin
}

func (s OrderStatus) Valid() bool {
	return s.Rank() >= 0 || s.Cancelled()
}

type Order struct {
	ID          uuid.UUID   `json:"id"`
	UserID      int64       `json:"user_id"`
	BookingID   uuid.UUID   `json:"booking_id"`
	OrderNumber string      `json:"order_number"`
	Status      OrderStatus `json:"status"`

	EstimatedWeight *float64 `json:"estimated_weight"`
	FinalWeight     *float64 `json:"final_weight"`
	EstimatedPrice  *float64 `json:"estimated_price"`
	FinalPrice      *float64 `json:"final_price"`

	// Human-entered pickup slot shown on the timeline while the order is
	// still confirmed, e.g. "10:00 AM - 12:00 PM" / "Jul 3, 2025".
	PickupSlotText      *string `json:"pickup_slot_text"`
	PickupDateFormatted *string `json:"pickup_date_formatted"`

	ActualPickupTime    *time.Time `json:"actual_pickup_time"`
	ProcessingStartedAt *time.Time `json:"processing_started_at"`
	ReadyForDeliveryAt  *time.Time `json:"ready_for_delivery_at"`
	DeliveredAt         *time.Time `json:"delivered_at"`

	CancelledAt        *time.Time `json:"cancelled_at"`
	CancelledBy        *string    `json:"cancelled_by"`
	CancelledByUserID  *int64     `json:"cancelled_by_user_id"`
	CancellationReason *string    `json:"cancellation_reason"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items   []*OrderItem `json:"items,omitempty"`
	Booking *Booking     `json:"booking,omitempty"`
	Address *Address     `json:"address,omitempty"`
}

type OrderItem struct {
	ID              uuid.UUID `json:"id"`
	OrderID         uuid.UUID `json:"order_id"`
	ServiceID       uuid.UUID `json:"service_id"`
	ItemName        *string   `json:"item_name"`
	Quantity        int       `json:"quantity"`
	EstimatedWeight *float64  `json:"estimated_weight"`
	FinalWeight     *float64  `json:"final_weight"`
}
