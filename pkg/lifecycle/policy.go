// Package lifecycle holds the order lifecycle rules: who may move an order
// to which status, when a customer may still cancel, and how the display
// timeline is derived from stored timestamps. Everything here is pure;
// callers pass the current time in.
package lifecycle

import (
	"time"

	"washbot/pkg/models"
)

// CancelWindow is how long after placement a customer may self-cancel.
const CancelWindow = time.Hour

// CanCustomerCancel reports whether a customer (never an admin) may cancel
// an order created at createdAt with the given status. The window closes
// one hour after placement, and only pending/confirmed orders qualify.
func CanCustomerCancel(role models.Role, createdAt, now time.Time, status models.OrderStatus) bool {
	if role == models.RoleAdmin {
		return false
	}
	if now.Sub(createdAt) > CancelWindow {
		return false
	}
	return status == models.StatusPending || status == models.StatusConfirmed
}

// CanAdminCancel reports whether an admin may cancel an order in the given
// status. Admins may cancel at any operational stage short of a terminal one.
func CanAdminCancel(status models.OrderStatus) bool {
	return !status.Terminal()
}

// TimeRemaining returns how much of the customer cancellation window is
// left, clamped at zero. Zero means any cancellation UI must be dismissed.
func TimeRemaining(createdAt, now time.Time) time.Duration {
	deadline := createdAt.Add(CancelWindow)
	if !now.Before(deadline) {
		return 0
	}
	return deadline.Sub(now)
}

// CanTransition reports whether an admin may move an order from one status
// directly to another. Forward moves go one step at a time, never skipping
// or reversing; cancellation is handled by the cancel path, not here.
func CanTransition(from, to models.OrderStatus) bool {
	if from.Terminal() {
		return false
	}
	fr, tr := from.Rank(), to.Rank()
	if fr < 0 || tr < 0 {
		return false
	}
	return tr == fr+1
}

// NextStatus returns the next status along the happy path, or false when
// the order is terminal, cancelled or already delivered.
func NextStatus(from models.OrderStatus) (models.OrderStatus, bool) {
	if from.Terminal() {
		return "", false
	}
	next := models.OrderStatus("")
	switch from {
	case models.StatusPending:
		next = models.StatusConfirmed
	case models.StatusConfirmed:
		next = models.StatusPickedUp
	case models.StatusPickedUp:
		next = models.StatusInProcess
	case models.StatusInProcess:
		next = models.StatusReadyForDelivery
	case models.StatusReadyForDelivery:
		next = models.StatusDelivered
	default:
		return "", false
	}
	return next, true
}

// CanEditWeights reports whether weight/price fields may still be edited.
// Weights freeze once physical processing has progressed past pickup; the
// bot layer enforces this before offering the edit action.
func CanEditWeights(status models.OrderStatus) bool {
	return status == models.StatusConfirmed || status == models.StatusPickedUp
}

// StampField returns a pointer to the status-specific timestamp field of o
// for statuses that record one, or nil. Each field is set exactly when its
// status is first reached and retained permanently for the timeline.
func StampField(o *models.Order, status models.OrderStatus) **time.Time {
	switch status {
	case models.StatusPickedUp:
		return &o.ActualPickupTime
	case models.StatusInProcess:
		return &o.ProcessingStartedAt
	case models.StatusReadyForDelivery:
		return &o.ReadyForDeliveryAt
	case models.StatusDelivered:
		return &o.DeliveredAt
	}
	return nil
}
