package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"washbot/pkg/lifecycle"
	"washbot/pkg/logger"
	"washbot/pkg/models"
	"washbot/pkg/notifier"
	"washbot/storage"
)

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidAddress         = errors.New("selected address is not valid")
	ErrCancellationNotAllowed = errors.New("cancellation not allowed")
	ErrInvalidTransition      = errors.New("illegal status transition")
	ErrNotAuthorized          = errors.New("not authorized")
)

const (
	// Order number allocation races are tolerated with a bounded retry:
	// each attempt requests a fresh number and re-tries the insert.
	maxOrderAttempts = 5
	orderRetryDelay  = 100 * time.Millisecond
)

type OrderItemInput struct {
	ServiceID       uuid.UUID
	ItemName        string
	Quantity        int
	EstimatedWeight float64
}

type CreateOrderInput struct {
	Actor          *models.User
	AddressID      uuid.UUID
	PickupDate     time.Time
	PickupSlot     string
	SpecialNote    string
	EstimatedTotal float64
	Items          []OrderItemInput
}

type CancelOrderInput struct {
	OrderID uuid.UUID
	Actor   *models.User
	Reason  string
}

type UpdateOrderInput struct {
	OrderID     uuid.UUID
	Actor       *models.User
	Status      models.OrderStatus // empty for a metadata-only update
	FinalWeight *float64
	FinalPrice  *float64
	ItemWeights map[uuid.UUID]float64
}

// OrderResult is the success/degraded-success shape every order mutation
// resolves to. Notified=false means the action stands but the email failed.
type OrderResult struct {
	Order    *models.Order
	Notified bool
}

type OrderService interface {
	Create(ctx context.Context, in CreateOrderInput) (*OrderResult, error)
	Cancel(ctx context.Context, in CancelOrderInput) (*OrderResult, error)
	Update(ctx context.Context, in UpdateOrderInput) (*OrderResult, error)
	List(ctx context.Context, actor *models.User) ([]*models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type orderService struct {
	stg    storage.IStorage
	events storage.IEventBus
	mailer notifier.Notifier
	log    logger.ILogger

	now        func() time.Time
	retryDelay time.Duration
}

func NewOrderService(stg storage.IStorage, events storage.IEventBus, mailer notifier.Notifier, log logger.ILogger) OrderService {
	return &orderService{
		stg:        stg,
		events:     events,
		mailer:     mailer,
		log:        log,
		now:        time.Now,
		retryDelay: orderRetryDelay,
	}
}

func (s *orderService) Create(ctx context.Context, in CreateOrderInput) (*OrderResult, error) {
	addr, err := s.stg.Address().GetOwned(ctx, in.AddressID, in.Actor.ID)
	if err != nil {
		return nil, err
	}
	if addr == nil {
		return nil, ErrInvalidAddress
	}

	booking := &models.Booking{
		UserID:     in.Actor.ID,
		AddressID:  in.AddressID,
		PickupTime: pickupTimestamp(in.PickupDate, in.PickupSlot),
		Status:     "scheduled",
	}
	if in.SpecialNote != "" {
		booking.SpecialNote = &in.SpecialNote
	}
	if _, err := s.stg.Booking().Create(ctx, booking); err != nil {
		return nil, err
	}

	estimatedWeight := 0.0
	for _, item := range in.Items {
		estimatedWeight += item.EstimatedWeight
	}
	dateText := in.PickupDate.Format("Jan 2, 2006")

	// Orders enter the lifecycle directly in confirmed; pending stays a
	// display-only state.
	order := &models.Order{
		UserID:              in.Actor.ID,
		BookingID:           booking.ID,
		Status:              models.StatusConfirmed,
		EstimatedWeight:     &estimatedWeight,
		EstimatedPrice:      &in.EstimatedTotal,
		PickupSlotText:      &in.PickupSlot,
		PickupDateFormatted: &dateText,
	}

	if err := s.insertWithRetry(ctx, order); err != nil {
		return nil, err
	}

	if err := s.createItems(ctx, order.ID, in.Items); err != nil {
		return nil, err
	}

	s.publish(ctx, order, "", models.StatusConfirmed)
	notified := s.notify(ctx, order.ID)

	s.log.Info("order created",
		logger.String("order_number", order.OrderNumber),
		logger.Int64("user_id", in.Actor.ID),
	)
	return &OrderResult{Order: order, Notified: notified}, nil
}

// insertWithRetry allocates a number and inserts, retrying duplicate
// numbers up to maxOrderAttempts with a short fixed delay. When the
// sequence itself fails a timestamp+random fallback number is used.
func (s *orderService) insertWithRetry(ctx context.Context, order *models.Order) error {
	for attempt := 1; attempt <= maxOrderAttempts; attempt++ {
		number, err := s.stg.Order().NextOrderNumber(ctx)
		if err != nil {
			number = s.fallbackOrderNumber()
			s.log.Warning("order number sequence failed, using fallback", logger.String("number", number))
		}
		order.OrderNumber = number

		_, err = s.stg.Order().Create(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrDuplicateOrderNumber) || attempt == maxOrderAttempts {
			return err
		}

		s.log.Warning("duplicate order number, retrying",
			logger.String("number", number),
			logger.Int("attempt", attempt),
		)
		time.Sleep(s.retryDelay)
	}
	return fmt.Errorf("failed to create order after %d attempts", maxOrderAttempts)
}

func (s *orderService) fallbackOrderNumber() string {
	millis := fmt.Sprintf("%d", s.now().UnixMilli())
	return fmt.Sprintf("AW%s%03d", millis[len(millis)-6:], rand.Intn(1000))
}

func (s *orderService) createItems(ctx context.Context, orderID uuid.UUID, inputs []OrderItemInput) error {
	var fallbackID uuid.UUID
	items := make([]*models.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		serviceID := in.ServiceID
		if serviceID == uuid.Nil {
			if fallbackID == uuid.Nil {
				svc, err := s.stg.Service().FirstActive(ctx)
				if err != nil || svc == nil {
					return fmt.Errorf("no active service available for order item")
				}
				fallbackID = svc.ID
			}
			serviceID = fallbackID
		}

		item := &models.OrderItem{
			OrderID:   orderID,
			ServiceID: serviceID,
			Quantity:  in.Quantity,
		}
		if in.ItemName != "" {
			name := in.ItemName
			item.ItemName = &name
		}
		if in.EstimatedWeight > 0 {
			w := in.EstimatedWeight
			item.EstimatedWeight = &w
		}
		items = append(items, item)
	}
	return s.stg.Order().CreateItems(ctx, items)
}

// Cancel re-validates eligibility against freshly fetched state before
// mutating; the UI's own check is not trusted.
func (s *orderService) Cancel(ctx context.Context, in CancelOrderInput) (*OrderResult, error) {
	order, err := s.stg.Order().GetByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	now := s.now()
	prevStatus := order.Status

	if in.Actor.IsAdmin() {
		if !lifecycle.CanAdminCancel(order.Status) {
			return nil, ErrCancellationNotAllowed
		}
		order.Status = models.StatusCancelledByAdmin
		by := models.CancelledByAdmin
		order.CancelledBy = &by
	} else {
		if in.Actor.ID != order.UserID {
			return nil, ErrNotAuthorized
		}
		if !lifecycle.CanCustomerCancel(in.Actor.Role, order.CreatedAt, now, order.Status) {
			return nil, ErrCancellationNotAllowed
		}
		order.Status = models.StatusCancelledByUser
		by := models.CancelledByCustomer
		order.CancelledBy = &by
	}

	order.CancelledAt = &now
	order.CancelledByUserID = &in.Actor.ID
	if reason := strings.TrimSpace(in.Reason); reason != "" {
		order.CancellationReason = &reason
	} else {
		order.CancellationReason = nil
	}

	if err := s.stg.Order().Cancel(ctx, order); err != nil {
		return nil, err
	}

	if in.Actor.IsAdmin() {
		entry := &models.AdminLog{
			AdminID:    in.Actor.ID,
			Action:     "order_cancelled",
			TargetType: "order",
			TargetID:   order.ID.String(),
			Details: map[string]string{
				"order_number":    order.OrderNumber,
				"reason":          in.Reason,
				"original_status": string(prevStatus),
			},
		}
		if err := s.stg.Audit().Append(ctx, entry); err != nil {
			s.log.Error("failed to append cancellation audit entry", logger.Error(err))
		}
	}

	s.publish(ctx, order, prevStatus, order.Status)
	notified := s.notify(ctx, order.ID)

	s.log.Info("order cancelled",
		logger.String("order_number", order.OrderNumber),
		logger.String("by", *order.CancelledBy),
	)
	return &OrderResult{Order: order, Notified: notified}, nil
}

// Update applies an admin status change and/or final weight figures. On a
// transition into a stamped status the current time is written into the
// status-specific timestamp field that drives the timeline.
func (s *orderService) Update(ctx context.Context, in UpdateOrderInput) (*OrderResult, error) {
	if !in.Actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}

	order, err := s.stg.Order().GetByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	prevStatus := order.Status
	statusChanged := in.Status != "" && in.Status != order.Status

	if statusChanged {
		if !lifecycle.CanTransition(order.Status, in.Status) {
			return nil, ErrInvalidTransition
		}
		order.Status = in.Status
		if field := lifecycle.StampField(order, in.Status); field != nil && *field == nil {
			now := s.now()
			*field = &now
		}
	}
	if in.FinalWeight != nil {
		order.FinalWeight = in.FinalWeight
	}
	if in.FinalPrice != nil {
		order.FinalPrice = in.FinalPrice
	}

	if err := s.stg.Order().UpdateStatus(ctx, order); err != nil {
		return nil, err
	}

	for itemID, weight := range in.ItemWeights {
		if err := s.stg.Order().UpdateItemWeight(ctx, itemID, weight); err != nil {
			s.log.Warning("order item weight not saved",
				logger.String("item_id", itemID.String()),
				logger.Error(err),
			)
		}
	}

	notified := true
	if statusChanged {
		s.publish(ctx, order, prevStatus, order.Status)
		notified = s.notify(ctx, order.ID)
	}

	return &OrderResult{Order: order, Notified: notified}, nil
}

// List returns every order for admins and only the actor's own otherwise.
func (s *orderService) List(ctx context.Context, actor *models.User) ([]*models.Order, error) {
	if actor.IsAdmin() {
		return s.stg.Order().GetAll(ctx)
	}
	return s.stg.Order().GetByUser(ctx, actor.ID)
}

func (s *orderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.stg.Order().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	items, err := s.stg.Order().GetItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (s *orderService) publish(ctx context.Context, order *models.Order, from, to models.OrderStatus) {
	evt := models.OrderEvent{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		OldStatus:   from,
		NewStatus:   to,
		At:          s.now(),
	}
	if err := s.events.PublishOrderEvent(ctx, evt); err != nil {
		s.log.Warning("failed to publish order event", logger.Error(err))
	}
}

// notify fires the status email; failure never rolls the action back.
func (s *orderService) notify(ctx context.Context, orderID uuid.UUID) bool {
	return s.mailer.SendOrderStatusEmail(ctx, orderID) == nil
}

// pickupTimestamp combines the pickup date with the start of a slot like
// "10:00 AM - 12:00 PM". An unparseable slot falls back to 9 AM.
func pickupTimestamp(date time.Time, slot string) time.Time {
	start := strings.TrimSpace(strings.SplitN(slot, "-", 2)[0])
	t, err := time.Parse("3:04 PM", start)
	if err != nil {
		t, _ = time.Parse("3:04 PM", "9:00 AM")
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location())
}
