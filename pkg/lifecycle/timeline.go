package lifecycle

import (
	"time"

	"washbot/pkg/models"
)

// timeLayout matches the en-US short format the customer app displays.
const timeLayout = "Jan 2, 2006 03:04 PM"

const (
	timePending   = "Pending"
	timeCompleted = "Completed"
)

// TimelineStep is one row of the customer-facing order timeline.
type TimelineStep struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Time      string `json:"time"`
	Completed bool   `json:"is_completed"`
	Scheduled bool   `json:"is_scheduled"`
}

// Timeline derives the display steps for an order from its stored fields.
// Pure: identical input always yields the identical sequence.
//
// A confirmed order with a human-entered slot/date pair renders a scheduled
// (not yet completed) pickup from that text, with everything after it
// pending. Otherwise each step completes by its own timestamp when stamped,
// or by rank inference ("Completed", no precise time) once the status has
// advanced past it.
func Timeline(o *models.Order) []TimelineStep {
	confirmed := TimelineStep{
		Key:       "confirmed",
		Label:     "Order Confirmed",
		Time:      o.CreatedAt.Format(timeLayout),
		Completed: true,
	}

	if o.Status == models.StatusConfirmed && o.PickupSlotText != nil && o.PickupDateFormatted != nil {
		return []TimelineStep{
			confirmed,
			{Key: "scheduled_pickup", Label: "Scheduled Pickup", Time: *o.PickupSlotText + " on " + *o.PickupDateFormatted, Scheduled: true},
			{Key: "in_process", Label: "In Process", Time: timePending},
			{Key: "ready_for_delivery", Label: "Ready for Delivery", Time: timePending},
			{Key: "delivered", Label: "Delivered", Time: timePending},
		}
	}

	rank := o.Status.Rank()

	steps := []TimelineStep{confirmed}
	steps = append(steps, pickupStep(o, rank))
	steps = append(steps, derivedStep("in_process", "In Process", "Processing Started", o.ProcessingStartedAt, rank, models.StatusInProcess))
	steps = append(steps, derivedStep("ready_for_delivery", "Ready for Delivery", "Ready for Delivery", o.ReadyForDeliveryAt, rank, models.StatusReadyForDelivery))
	steps = append(steps, derivedStep("delivered", "Delivered", "Delivered", o.DeliveredAt, rank, models.StatusDelivered))
	return steps
}

// pickupStep labels differ by how completion is known: "Actually Picked Up"
// with a timestamp, "Picked Up" when inferred, "Pickup" while pending.
func pickupStep(o *models.Order, rank int) TimelineStep {
	if o.ActualPickupTime != nil {
		return TimelineStep{Key: "picked_up", Label: "Actually Picked Up", Time: o.ActualPickupTime.Format(timeLayout), Completed: true}
	}
	if rank >= models.StatusPickedUp.Rank() {
		return TimelineStep{Key: "picked_up", Label: "Picked Up", Time: timeCompleted, Completed: true}
	}
	return TimelineStep{Key: "picked_up", Label: "Pickup", Time: timePending}
}

func derivedStep(key, label, stampedLabel string, stamped *time.Time, rank int, at models.OrderStatus) TimelineStep {
	if stamped != nil {
		return TimelineStep{Key: key, Label: stampedLabel, Time: stamped.Format(timeLayout), Completed: true}
	}
	if rank >= at.Rank() {
		return TimelineStep{Key: key, Label: label, Time: timeCompleted, Completed: true}
	}
	return TimelineStep{Key: key, Label: label, Time: timePending}
}
