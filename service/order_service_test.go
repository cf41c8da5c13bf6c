package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"washbot/pkg/logger"
	"washbot/pkg/models"
	"washbot/storage"
)

var testTime = time.Date(2026, 7, 3, 10, 0, 0, 0, time.UTC)

// --- fakes -----------------------------------------------------------------

type fakeUsers struct{}

func (f *fakeUsers) GetOrCreate(context.Context, int64, string, string) (*models.User, error) {
	return nil, nil
}
func (f *fakeUsers) Get(context.Context, int64) (*models.User, error)       { return nil, nil }
func (f *fakeUsers) GetByID(context.Context, int64) (*models.User, error)   { return nil, nil }
func (f *fakeUsers) GetAll(context.Context) ([]*models.User, error)         { return nil, nil }
func (f *fakeUsers) UpdatePhone(context.Context, int64, string) error       { return nil }
func (f *fakeUsers) UpdateEmail(context.Context, int64, string) error       { return nil }
func (f *fakeUsers) UpdateStatus(context.Context, int64, string) error      { return nil }
func (f *fakeUsers) UpdateRole(context.Context, int64, models.Role) error   { return nil }
func (f *fakeUsers) EraseAccount(context.Context, int64) error              { return nil }
func (f *fakeUsers) GetTotalUsers(context.Context) (int, error)             { return 0, nil }

type fakeAddresses struct {
	owned map[uuid.UUID]int64
}

func (f *fakeAddresses) Create(_ context.Context, a *models.Address) (*models.Address, error) {
	return a, nil
}
func (f *fakeAddresses) GetByID(context.Context, uuid.UUID) (*models.Address, error) {
	return nil, nil
}
func (f *fakeAddresses) GetByUser(context.Context, int64) ([]*models.Address, error) {
	return nil, nil
}
func (f *fakeAddresses) GetOwned(_ context.Context, id uuid.UUID, userID int64) (*models.Address, error) {
	if owner, ok := f.owned[id]; ok && owner == userID {
		return &models.Address{ID: id, UserID: userID}, nil
	}
	return nil, nil
}
func (f *fakeAddresses) SetDefault(context.Context, uuid.UUID, int64) error { return nil }
func (f *fakeAddresses) Delete(context.Context, uuid.UUID, int64) error     { return nil }

type fakeServices struct {
	active *models.Service
}

func (f *fakeServices) GetActive(context.Context) ([]*models.Service, error) {
	return []*models.Service{f.active}, nil
}
func (f *fakeServices) GetByID(context.Context, uuid.UUID) (*models.Service, error) {
	return f.active, nil
}
func (f *fakeServices) FirstActive(context.Context) (*models.Service, error) { return f.active, nil }
func (f *fakeServices) Create(context.Context, string, float64) error        { return nil }
func (f *fakeServices) SetStatus(context.Context, uuid.UUID, string) error   { return nil }

type fakeBookings struct{}

func (f *fakeBookings) Create(_ context.Context, b *models.Booking) (*models.Booking, error) {
	b.ID = uuid.New()
	return b, nil
}
func (f *fakeBookings) GetByID(context.Context, uuid.UUID) (*models.Booking, error) {
	return nil, nil
}

type fakeOrders struct {
	seq         int
	dupFailures int
	numberErr   error
	attempted   []string

	orders map[uuid.UUID]*models.Order
	items  []*models.OrderItem
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: make(map[uuid.UUID]*models.Order)}
}

func (f *fakeOrders) NextOrderNumber(context.Context) (string, error) {
	if f.numberErr != nil {
		return "", f.numberErr
	}
	f.seq++
	return fmt.Sprintf("AW%06d", f.seq), nil
}

func (f *fakeOrders) Create(_ context.Context, o *models.Order) (*models.Order, error) {
	f.attempted = append(f.attempted, o.OrderNumber)
	if f.dupFailures > 0 {
		f.dupFailures--
		return nil, storage.ErrDuplicateOrderNumber
	}
	o.ID = uuid.New()
	o.CreatedAt = testTime
	o.UpdatedAt = testTime
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeOrders) CreateItems(_ context.Context, items []*models.OrderItem) error {
	for _, it := range items {
		it.ID = uuid.New()
		f.items = append(f.items, it)
	}
	return nil
}

func (f *fakeOrders) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrders) GetAll(context.Context) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range f.orders {
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeOrders) GetByUser(_ context.Context, userID int64) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) GetItems(_ context.Context, orderID uuid.UUID) ([]*models.OrderItem, error) {
	var out []*models.OrderItem
	for _, it := range f.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, o *models.Order) error {
	stored, ok := f.orders[o.ID]
	if !ok {
		return errors.New("no such order")
	}
	if stored.Status.Terminal() {
		return errors.New("order is already in a terminal state")
	}
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeOrders) UpdateItemWeight(_ context.Context, itemID uuid.UUID, weight float64) error {
	for _, it := range f.items {
		if it.ID == itemID {
			w := weight
			it.FinalWeight = &w
			return nil
		}
	}
	return errors.New("no such item")
}

func (f *fakeOrders) Cancel(_ context.Context, o *models.Order) error {
	stored, ok := f.orders[o.ID]
	if !ok {
		return errors.New("no such order")
	}
	if stored.Status.Terminal() {
		return errors.New("order can no longer be cancelled")
	}
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeOrders) GetActiveCount(context.Context) (int, error) { return len(f.orders), nil }
func (f *fakeOrders) GetTotalCount(context.Context) (int, error)  { return len(f.orders), nil }

type fakeAudit struct {
	entries []*models.AdminLog
	emails  []*models.EmailLog
}

func (f *fakeAudit) Append(_ context.Context, e *models.AdminLog) error {
	f.entries = append(f.entries, e)
	return nil
}
func (f *fakeAudit) Recent(context.Context, int) ([]*models.AdminLog, error) {
	return f.entries, nil
}
func (f *fakeAudit) LogEmail(_ context.Context, e *models.EmailLog) error {
	f.emails = append(f.emails, e)
	return nil
}

type fakeStorage struct {
	users     *fakeUsers
	addresses *fakeAddresses
	services  *fakeServices
	bookings  *fakeBookings
	orders    *fakeOrders
	audit     *fakeAudit
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		users:     &fakeUsers{},
		addresses: &fakeAddresses{owned: make(map[uuid.UUID]int64)},
		services:  &fakeServices{active: &models.Service{ID: uuid.New(), Name: "Wash & Fold", BasePricePerKg: 80, Status: "active"}},
		bookings:  &fakeBookings{},
		orders:    newFakeOrders(),
		audit:     &fakeAudit{},
	}
}

func (f *fakeStorage) User() storage.IUserStorage       { return f.users }
func (f *fakeStorage) Address() storage.IAddressStorage { return f.addresses }
func (f *fakeStorage) Service() storage.IServiceStorage { return f.services }
func (f *fakeStorage) Booking() storage.IBookingStorage { return f.bookings }
func (f *fakeStorage) Order() storage.IOrderStorage     { return f.orders }
func (f *fakeStorage) Audit() storage.IAuditStorage     { return f.audit }
func (f *fakeStorage) Close()                           {}
func (f *fakeStorage) GetPool() *pgxpool.Pool           { return nil }

type fakeBus struct {
	events []models.OrderEvent
}

func (f *fakeBus) PublishOrderEvent(_ context.Context, evt models.OrderEvent) error {
	f.events = append(f.events, evt)
	return nil
}
func (f *fakeBus) SubscribeOrderEvents(context.Context, func(models.OrderEvent)) error {
	return nil
}

type fakeMailer struct {
	err   error
	calls int
}

func (f *fakeMailer) SendOrderStatusEmail(context.Context, uuid.UUID) error {
	f.calls++
	return f.err
}

// --- harness ---------------------------------------------------------------

type fixture struct {
	stg    *fakeStorage
	bus    *fakeBus
	mailer *fakeMailer
	svc    *orderService
}

func newFixture() *fixture {
	stg := newFakeStorage()
	bus := &fakeBus{}
	mailer := &fakeMailer{}
	svc := &orderService{
		stg:        stg,
		events:     bus,
		mailer:     mailer,
		log:        logger.New("test", "error"),
		now:        func() time.Time { return testTime },
		retryDelay: 0,
	}
	return &fixture{stg: stg, bus: bus, mailer: mailer, svc: svc}
}

var (
	customer = &models.User{ID: 1, TelegramID: 100, Role: models.RoleCustomer}
	stranger = &models.User{ID: 2, TelegramID: 200, Role: models.RoleCustomer}
	admin    = &models.User{ID: 99, TelegramID: 999, Role: models.RoleAdmin}
)

func (f *fixture) createInput() CreateOrderInput {
	addrID := uuid.New()
	f.stg.addresses.owned[addrID] = customer.ID
	return CreateOrderInput{
		Actor:          customer,
		AddressID:      addrID,
		PickupDate:     testTime,
		PickupSlot:     "10:00 AM - 12:00 PM",
		EstimatedTotal: 360,
		Items: []OrderItemInput{{
			ItemName:        "Wash & Fold (12 items)",
			Quantity:        12,
			EstimatedWeight: 4.5,
		}},
	}
}

func (f *fixture) placedOrder(t *testing.T) *models.Order {
	t.Helper()
	result, err := f.svc.Create(context.Background(), f.createInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return result.Order
}

// --- tests -----------------------------------------------------------------

func TestCreateOrder(t *testing.T) {
	f := newFixture()
	result, err := f.svc.Create(context.Background(), f.createInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	o := result.Order

	if o.Status != models.StatusConfirmed {
		t.Fatalf("new orders must start confirmed, got %s", o.Status)
	}
	if !strings.HasPrefix(o.OrderNumber, "AW") {
		t.Fatalf("order number missing prefix: %q", o.OrderNumber)
	}
	if o.PickupSlotText == nil || *o.PickupSlotText != "10:00 AM - 12:00 PM" {
		t.Fatal("pickup slot text not stored")
	}
	if len(f.stg.orders.items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(f.stg.orders.items))
	}
	if f.stg.orders.items[0].ServiceID == uuid.Nil {
		t.Fatal("item without a service must fall back to the first active one")
	}
	if !result.Notified {
		t.Fatal("email succeeded, Notified should be true")
	}
	if len(f.bus.events) != 1 || f.bus.events[0].NewStatus != models.StatusConfirmed {
		t.Fatalf("expected one confirmed event, got %+v", f.bus.events)
	}
}

func TestCreateOrderRejectsForeignAddress(t *testing.T) {
	f := newFixture()
	in := f.createInput()
	in.AddressID = uuid.New() // not owned by anyone
	if _, err := f.svc.Create(context.Background(), in); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestCreateOrderRetriesDuplicateNumbers(t *testing.T) {
	f := newFixture()
	f.stg.orders.dupFailures = 2

	result, err := f.svc.Create(context.Background(), f.createInput())
	if err != nil {
		t.Fatalf("create should have recovered, got %v", err)
	}
	if got := len(f.stg.orders.attempted); got != 3 {
		t.Fatalf("expected 3 insert attempts, got %d", got)
	}
	if len(f.stg.orders.orders) != 1 {
		t.Fatalf("exactly one order must exist, got %d", len(f.stg.orders.orders))
	}
	if result.Order.OrderNumber != f.stg.orders.attempted[2] {
		t.Fatal("stored order must carry the last attempted number")
	}
}

func TestCreateOrderGivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture()
	f.stg.orders.dupFailures = maxOrderAttempts

	if _, err := f.svc.Create(context.Background(), f.createInput()); err == nil {
		t.Fatal("expected failure after exhausting retries")
	}
	if got := len(f.stg.orders.attempted); got != maxOrderAttempts {
		t.Fatalf("expected %d attempts, got %d", maxOrderAttempts, got)
	}
}

func TestCreateOrderFallbackNumber(t *testing.T) {
	f := newFixture()
	f.stg.orders.numberErr = errors.New("sequence down")

	result, err := f.svc.Create(context.Background(), f.createInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	n := result.Order.OrderNumber
	if !strings.HasPrefix(n, "AW") || len(n) != 11 {
		t.Fatalf("fallback number has wrong shape: %q", n)
	}
}

func TestCreateOrderDegradedWhenEmailFails(t *testing.T) {
	f := newFixture()
	f.mailer.err = errors.New("brevo down")

	result, err := f.svc.Create(context.Background(), f.createInput())
	if err != nil {
		t.Fatalf("email failure must not fail the order: %v", err)
	}
	if result.Notified {
		t.Fatal("Notified should be false when the email fails")
	}
	if len(f.stg.orders.orders) != 1 {
		t.Fatal("order must still be persisted")
	}
}

func TestCustomerCancelEmptyReason(t *testing.T) {
	f := newFixture()
	o := f.placedOrder(t)

	result, err := f.svc.Cancel(context.Background(), CancelOrderInput{
		OrderID: o.ID,
		Actor:   customer,
		Reason:  "   ",
	})
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	got := result.Order
	if got.Status != models.StatusCancelledByUser {
		t.Fatalf("expected cancelled_by_user, got %s", got.Status)
	}
	if got.CancellationReason != nil {
		t.Fatalf("blank reason must be stored as null, got %q", *got.CancellationReason)
	}
	if got.CancelledBy == nil || *got.CancelledBy != models.CancelledByCustomer {
		t.Fatal("cancelled_by must record the customer")
	}
	if got.CancelledAt == nil || !got.CancelledAt.Equal(testTime) {
		t.Fatal("cancelled_at not stamped")
	}
}

func TestCustomerCancelWindowExpired(t *testing.T) {
	f := newFixture()
	o := f.placedOrder(t)
	f.svc.now = func() time.Time { return testTime.Add(61 * time.Minute) }

	_, err := f.svc.Cancel(context.Background(), CancelOrderInput{OrderID: o.ID, Actor: customer})
	if !errors.Is(err, ErrCancellationNotAllowed) {
		t.Fatalf("expected ErrCancellationNotAllowed, got %v", err)
	}
}

func TestCustomerCancelForeignOrder(t *testing.T) {
	f := newFixture()
	o := f.placedOrder(t)

	_, err := f.svc.Cancel(context.Background(), CancelOrderInput{OrderID: o.ID, Actor: stranger})
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestAdminCancelWritesAudit(t *testing.T) {
	f := newFixture()
	o := f.placedOrder(t)
	f.svc.now = func() time.Time { return testTime.Add(3 * time.Hour) } // window irrelevant for admins

	result, err := f.svc.Cancel(context.Background(), CancelOrderInput{
		OrderID: o.ID,
		Actor:   admin,
		Reason:  "machine breakdown",
	})
	if err != nil {
		t.Fatalf("admin cancel failed: %v", err)
	}
	if result.Order.Status != models.StatusCancelledByAdmin {
		t.Fatalf("expected cancelled_by_admin, got %s", result.Order.Status)
	}

	if len(f.stg.audit.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(f.stg.audit.entries))
	}
	entry := f.stg.audit.entries[0]
	if entry.Action != "order_cancelled" || entry.AdminID != admin.ID {
		t.Fatalf("audit entry wrong: %+v", entry)
	}
	if entry.Details["reason"] != "machine breakdown" {
		t.Fatalf("audit reason missing: %+v", entry.Details)
	}
	if entry.Details["original_status"] != string(models.StatusConfirmed) {
		t.Fatalf("audit original status missing: %+v", entry.Details)
	}
}

func TestAdminCancelTerminalOrder(t *testing.T) {
	f := newFixture()
	o := f.placedOrder(t)
	f.stg.orders.orders[o.ID].Status = models.StatusDelivered

	_, err := f.svc.Cancel(context.Background(), CancelOrderInput{OrderID: o.ID, Actor: admin, Reason: "x"})
	if !errors.Is(err, ErrCancellationNotAllowed) {
		t.Fatalf("expected ErrCancellationNotAllowed, got %v", err)
	}
}

func TestUpdateStampsPickupTime(t *testing.T) {
	f := newFixture()
	o := f.placedOrder(t)

	result, err := f.svc.Update(context.Background(), UpdateOrderInput{
		OrderID: o.ID,
		Actor:   admin,
		Status:  models.StatusPickedUp,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	got := result.Order
	if got.ActualPickupTime == nil || !got.ActualPickupTime.Equal(testTime) {
		t.Fatal("actual_pickup_time not stamped on transition")
	}

	// The next transition stamps its own field and leaves pickup alone.
	later := testTime.Add(2 * time.Hour)
	f.svc.now = func() time.Time { return later }
	result, err = f.svc.Update(context.Background(), UpdateOrderInput{
		OrderID: o.ID,
		Actor:   admin,
		Status:  models.StatusInProcess,
	})
	if err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	got = result.Order
	if got.ProcessingStartedAt == nil || !got.ProcessingStartedAt.Equal(later) {
		t.Fatal("processing_started_at not stamped")
	}
	if !got.ActualPickupTime.Equal(testTime) {
		t.Fatal("actual_pickup_time must never be overwritten")
	}
}

func TestUpdateRejectsSkippedTransition(t *testing.T) {
	f := newFixture()
	o := f.placedOrder(t)

	_, err := f.svc.Update(context.Background(), UpdateOrderInput{
		OrderID: o.ID,
		Actor:   admin,
		Status:  models.StatusInProcess, // skips picked_up
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestUpdateRequiresAdmin(t *testing.T) {
	f := newFixture()
	o := f.placedOrder(t)

	_, err := f.svc.Update(context.Background(), UpdateOrderInput{
		OrderID: o.ID,
		Actor:   customer,
		Status:  models.StatusPickedUp,
	})
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestUpdateWeightsWithoutStatusChange(t *testing.T) {
	f := newFixture()
	o := f.placedOrder(t)
	itemID := f.stg.orders.items[0].ID

	weight := 5.2
	price := 416.0
	mailsBefore := f.mailer.calls
	result, err := f.svc.Update(context.Background(), UpdateOrderInput{
		OrderID:     o.ID,
		Actor:       admin,
		FinalWeight: &weight,
		FinalPrice:  &price,
		ItemWeights: map[uuid.UUID]float64{itemID: 5.2},
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if result.Order.FinalWeight == nil || *result.Order.FinalWeight != 5.2 {
		t.Fatal("final weight not saved")
	}
	if f.stg.orders.items[0].FinalWeight == nil || *f.stg.orders.items[0].FinalWeight != 5.2 {
		t.Fatal("item weight not saved")
	}
	if f.mailer.calls != mailsBefore {
		t.Fatal("metadata-only updates must not send email")
	}
	if len(f.bus.events) != 1 { // only the creation event
		t.Fatal("metadata-only updates must not publish events")
	}
}

func TestListScoping(t *testing.T) {
	f := newFixture()
	f.placedOrder(t)

	mine, err := f.svc.List(context.Background(), customer)
	if err != nil || len(mine) != 1 {
		t.Fatalf("owner should see their order: %v, %d", err, len(mine))
	}
	theirs, err := f.svc.List(context.Background(), stranger)
	if err != nil || len(theirs) != 0 {
		t.Fatalf("stranger must see nothing: %v, %d", err, len(theirs))
	}
	all, err := f.svc.List(context.Background(), admin)
	if err != nil || len(all) != 1 {
		t.Fatalf("admin should see everything: %v, %d", err, len(all))
	}
}

func TestGetAttachesItems(t *testing.T) {
	f := newFixture()
	o := f.placedOrder(t)

	got, err := f.svc.Get(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got.Items) != 1 {
		t.Fatalf("expected 1 attached item, got %d", len(got.Items))
	}

	if _, err := f.svc.Get(context.Background(), uuid.New()); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestPickupTimestamp(t *testing.T) {
	date := time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC)
	got := pickupTimestamp(date, "2:00 PM - 4:00 PM")
	if got.Hour() != 14 || got.Day() != 3 {
		t.Fatalf("slot start not applied: %v", got)
	}
	fallback := pickupTimestamp(date, "whenever")
	if fallback.Hour() != 9 {
		t.Fatalf("unparseable slot should fall back to 9 AM, got %v", fallback)
	}
}
