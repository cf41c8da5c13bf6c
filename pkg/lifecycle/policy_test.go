package lifecycle

import (
	"testing"
	"time"

	"washbot/pkg/models"
)

var placedAt = time.Date(2026, 7, 3, 10, 0, 0, 0, time.UTC)

func TestCanCustomerCancelWithinWindow(t *testing.T) {
	now := placedAt.Add(30 * time.Minute)
	if !CanCustomerCancel(models.RoleCustomer, placedAt, now, models.StatusConfirmed) {
		t.Fatal("confirmed order inside the window should be cancellable")
	}
	if !CanCustomerCancel(models.RoleCustomer, placedAt, now, models.StatusPending) {
		t.Fatal("pending order inside the window should be cancellable")
	}
}

func TestCanCustomerCancelWindowExpired(t *testing.T) {
	now := placedAt.Add(CancelWindow + time.Minute)
	for _, st := range []models.OrderStatus{
		models.StatusPending,
		models.StatusConfirmed,
		models.StatusPickedUp,
		models.StatusDelivered,
	} {
		if CanCustomerCancel(models.RoleCustomer, placedAt, now, st) {
			t.Fatalf("status %s: cancellation allowed after the window expired", st)
		}
	}
}

func TestCanCustomerCancelStatusGate(t *testing.T) {
	// Even with time left, progressed orders are not customer-cancellable.
	now := placedAt.Add(5 * time.Minute)
	for _, st := range []models.OrderStatus{
		models.StatusPickedUp,
		models.StatusInProcess,
		models.StatusReadyForDelivery,
		models.StatusDelivered,
		models.StatusCancelledByUser,
		models.StatusCancelledByAdmin,
	} {
		if CanCustomerCancel(models.RoleCustomer, placedAt, now, st) {
			t.Fatalf("status %s: customer cancellation should be blocked", st)
		}
	}
}

func TestCanCustomerCancelNeverForAdmins(t *testing.T) {
	now := placedAt.Add(time.Minute)
	if CanCustomerCancel(models.RoleAdmin, placedAt, now, models.StatusConfirmed) {
		t.Fatal("the customer path must not apply to admins")
	}
}

func TestCanAdminCancel(t *testing.T) {
	for _, st := range []models.OrderStatus{
		models.StatusPending,
		models.StatusConfirmed,
		models.StatusPickedUp,
		models.StatusInProcess,
		models.StatusReadyForDelivery,
	} {
		if !CanAdminCancel(st) {
			t.Fatalf("status %s: admin should be able to cancel", st)
		}
	}
	for _, st := range []models.OrderStatus{
		models.StatusDelivered,
		models.StatusCancelledByUser,
		models.StatusCancelledByAdmin,
	} {
		if CanAdminCancel(st) {
			t.Fatalf("status %s: terminal orders must not be cancellable", st)
		}
	}
}

func TestTimeRemaining(t *testing.T) {
	if got := TimeRemaining(placedAt, placedAt.Add(15*time.Minute)); got != 45*time.Minute {
		t.Fatalf("expected 45m remaining, got %v", got)
	}
	if got := TimeRemaining(placedAt, placedAt.Add(CancelWindow)); got != 0 {
		t.Fatalf("expected 0 at the deadline, got %v", got)
	}
	if got := TimeRemaining(placedAt, placedAt.Add(2*time.Hour)); got != 0 {
		t.Fatalf("expected 0 past the deadline, got %v", got)
	}
}

func TestTimeRemainingNonIncreasing(t *testing.T) {
	prev := TimeRemaining(placedAt, placedAt)
	for m := 1; m <= 90; m += 7 {
		cur := TimeRemaining(placedAt, placedAt.Add(time.Duration(m)*time.Minute))
		if cur > prev {
			t.Fatalf("remaining time grew from %v to %v", prev, cur)
		}
		prev = cur
	}
}

func TestCanTransitionForwardOnly(t *testing.T) {
	allowed := [][2]models.OrderStatus{
		{models.StatusConfirmed, models.StatusPickedUp},
		{models.StatusPickedUp, models.StatusInProcess},
		{models.StatusInProcess, models.StatusReadyForDelivery},
		{models.StatusReadyForDelivery, models.StatusDelivered},
	}
	for _, pair := range allowed {
		if !CanTransition(pair[0], pair[1]) {
			t.Fatalf("%s -> %s should be allowed", pair[0], pair[1])
		}
	}

	denied := [][2]models.OrderStatus{
		{models.StatusConfirmed, models.StatusInProcess},        // skip
		{models.StatusConfirmed, models.StatusDelivered},        // skip to end
		{models.StatusInProcess, models.StatusPickedUp},         // reverse
		{models.StatusDelivered, models.StatusConfirmed},        // from terminal
		{models.StatusCancelledByUser, models.StatusConfirmed},  // from cancelled
		{models.StatusConfirmed, models.StatusCancelledByAdmin}, // cancel is not a transition
		{models.StatusConfirmed, models.StatusConfirmed},        // self
	}
	for _, pair := range denied {
		if CanTransition(pair[0], pair[1]) {
			t.Fatalf("%s -> %s should be denied", pair[0], pair[1])
		}
	}
}

func TestNextStatus(t *testing.T) {
	next, ok := NextStatus(models.StatusConfirmed)
	if !ok || next != models.StatusPickedUp {
		t.Fatalf("expected picked_up after confirmed, got %s (%v)", next, ok)
	}
	if _, ok := NextStatus(models.StatusDelivered); ok {
		t.Fatal("delivered must have no successor")
	}
	if _, ok := NextStatus(models.StatusCancelledByAdmin); ok {
		t.Fatal("cancelled orders must have no successor")
	}
}

func TestCanEditWeights(t *testing.T) {
	if !CanEditWeights(models.StatusConfirmed) || !CanEditWeights(models.StatusPickedUp) {
		t.Fatal("weights should be editable before processing starts")
	}
	for _, st := range []models.OrderStatus{
		models.StatusInProcess,
		models.StatusReadyForDelivery,
		models.StatusDelivered,
		models.StatusCancelledByUser,
	} {
		if CanEditWeights(st) {
			t.Fatalf("status %s: weights must be frozen", st)
		}
	}
}

func TestStampFieldWriteOnce(t *testing.T) {
	o := &models.Order{}
	field := StampField(o, models.StatusPickedUp)
	if field == nil {
		t.Fatal("picked_up must map to a timestamp field")
	}
	first := placedAt.Add(time.Hour)
	*field = &first

	// Re-reaching the same status must find the stamp set and leave it alone.
	again := StampField(o, models.StatusPickedUp)
	if *again == nil || !(*again).Equal(first) {
		t.Fatal("stamp should persist across lookups")
	}
	if o.ActualPickupTime == nil || !o.ActualPickupTime.Equal(first) {
		t.Fatal("stamp did not land on actual_pickup_time")
	}

	if StampField(o, models.StatusConfirmed) != nil {
		t.Fatal("confirmed records no stamp")
	}
	if StampField(o, models.StatusCancelledByUser) != nil {
		t.Fatal("cancellation records no stamp here")
	}
}
