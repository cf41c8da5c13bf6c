package lifecycle

import (
	"reflect"
	"testing"
	"time"

	"washbot/pkg/models"
)

func strptr(s string) *string { return &s }

func TestTimelineScheduledPickup(t *testing.T) {
	o := &models.Order{
		Status:              models.StatusConfirmed,
		PickupSlotText:      strptr("10:00 AM - 12:00 PM"),
		PickupDateFormatted: strptr("Jul 3, 2026"),
		CreatedAt:           time.Date(2026, 7, 3, 9, 15, 0, 0, time.UTC),
	}

	steps := Timeline(o)
	if len(steps) != 5 {
		t.Fatalf("expected 5 steps, got %d", len(steps))
	}
	if !steps[0].Completed || steps[0].Label != "Order Confirmed" {
		t.Fatalf("first step wrong: %+v", steps[0])
	}
	sched := steps[1]
	if !sched.Scheduled || sched.Completed {
		t.Fatalf("pickup should be scheduled, not completed: %+v", sched)
	}
	if sched.Time != "10:00 AM - 12:00 PM on Jul 3, 2026" {
		t.Fatalf("scheduled time text wrong: %q", sched.Time)
	}
	for _, s := range steps[2:] {
		if s.Completed || s.Time != "Pending" {
			t.Fatalf("later step should be pending: %+v", s)
		}
	}
}

func TestTimelineStampedPickup(t *testing.T) {
	picked := time.Date(2026, 7, 3, 14, 30, 0, 0, time.UTC)
	o := &models.Order{
		Status:           models.StatusPickedUp,
		ActualPickupTime: &picked,
		CreatedAt:        time.Date(2026, 7, 3, 9, 15, 0, 0, time.UTC),
	}

	steps := Timeline(o)
	pickup := steps[1]
	if pickup.Label != "Actually Picked Up" {
		t.Fatalf("stamped pickup label wrong: %q", pickup.Label)
	}
	if pickup.Time != "Jul 3, 2026 02:30 PM" {
		t.Fatalf("stamped pickup time wrong: %q", pickup.Time)
	}
	if !pickup.Completed {
		t.Fatal("stamped pickup must be completed")
	}
}

func TestTimelineRankInference(t *testing.T) {
	// Delivered order with no stamps at all: everything before and
	// including delivered is inferred complete without precise times.
	o := &models.Order{
		Status:    models.StatusDelivered,
		CreatedAt: time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC),
	}

	steps := Timeline(o)
	if steps[1].Label != "Picked Up" || steps[1].Time != "Completed" {
		t.Fatalf("inferred pickup wrong: %+v", steps[1])
	}
	for _, s := range steps {
		if !s.Completed {
			t.Fatalf("step %s should be inferred complete", s.Key)
		}
	}
}

func TestTimelineMixedStamps(t *testing.T) {
	started := time.Date(2026, 7, 4, 11, 0, 0, 0, time.UTC)
	o := &models.Order{
		Status:              models.StatusInProcess,
		ProcessingStartedAt: &started,
		CreatedAt:           time.Date(2026, 7, 3, 9, 0, 0, 0, time.UTC),
	}

	steps := Timeline(o)
	if steps[1].Label != "Picked Up" {
		t.Fatalf("unstamped pickup past its rank should be inferred: %+v", steps[1])
	}
	proc := steps[2]
	if proc.Label != "Processing Started" || proc.Time != "Jul 4, 2026 11:00 AM" || !proc.Completed {
		t.Fatalf("stamped processing step wrong: %+v", proc)
	}
	if steps[3].Completed || steps[4].Completed {
		t.Fatal("steps past the current status must stay pending")
	}
}

func TestTimelineIsPure(t *testing.T) {
	picked := time.Date(2026, 7, 3, 14, 30, 0, 0, time.UTC)
	o := &models.Order{
		Status:           models.StatusPickedUp,
		ActualPickupTime: &picked,
		CreatedAt:        time.Date(2026, 7, 3, 9, 15, 0, 0, time.UTC),
	}

	first := Timeline(o)
	second := Timeline(o)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical order must derive an identical timeline")
	}
}
