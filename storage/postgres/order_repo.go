package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"washbot/pkg/logger"
	"washbot/pkg/models"
	"washbot/storage"
)

type orderRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewOrderRepo(db *pgxpool.Pool, log logger.ILogger) storage.IOrderStorage {
	return &orderRepo{db: db, log: log}
}

// NextOrderNumber pulls the next human-readable number from the shared
// sequence, e.g. AW000042.
func (r *orderRepo) NextOrderNumber(ctx context.Context) (string, error) {
	var number string
	err := r.db.QueryRow(ctx, `SELECT 'AW' || lpad(nextval('order_number_seq')::text, 6, '0')`).Scan(&number)
	if err != nil {
		r.log.Error("failed to generate order number", logger.Error(err))
		return "", err
	}
	return number, nil
}

func (r *orderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	query := `
		INSERT INTO orders (user_id, booking_id, order_number, status, estimated_weight, estimated_price, pickup_slot_text, pickup_date_formatted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		order.UserID,
		order.BookingID,
		order.OrderNumber,
		order.Status,
		order.EstimatedWeight,
		order.EstimatedPrice,
		order.PickupSlotText,
		order.PickupDateFormatted,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, storage.ErrDuplicateOrderNumber
		}
		r.log.Error("failed to create order", logger.Error(err))
		return nil, err
	}

	return order, nil
}

func (r *orderRepo) CreateItems(ctx context.Context, items []*models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, service_id, item_name, quantity, estimated_weight)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	for _, item := range items {
		err := r.db.QueryRow(ctx, query,
			item.OrderID, item.ServiceID, item.ItemName, item.Quantity, item.EstimatedWeight,
		).Scan(&item.ID)
		if err != nil {
			r.log.Error("failed to create order item", logger.Error(err))
			return err
		}
	}
	return nil
}

const orderSelect = `
	SELECT o.id, o.user_id, o.booking_id, o.order_number, o.status,
	       o.estimated_weight, o.final_weight, o.estimated_price, o.final_price,
	       o.pickup_slot_text, o.pickup_date_formatted,
	       o.actual_pickup_time, o.processing_started_at, o.ready_for_delivery_at, o.delivered_at,
	       o.cancelled_at, o.cancelled_by, o.cancelled_by_user_id, o.cancellation_reason,
	       o.created_at, o.updated_at,
	       b.pickup_time, b.special_note,
	       a.door_no, a.street, a.city, a.state, a.pincode
	FROM orders o
	JOIN bookings b ON o.booking_id = b.id
	JOIN addresses a ON b.address_id = a.id
`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		o       models.Order
		booking models.Booking
		addr    models.Address
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.BookingID, &o.OrderNumber, &o.Status,
		&o.EstimatedWeight, &o.FinalWeight, &o.EstimatedPrice, &o.FinalPrice,
		&o.PickupSlotText, &o.PickupDateFormatted,
		&o.ActualPickupTime, &o.ProcessingStartedAt, &o.ReadyForDeliveryAt, &o.DeliveredAt,
		&o.CancelledAt, &o.CancelledBy, &o.CancelledByUserID, &o.CancellationReason,
		&o.CreatedAt, &o.UpdatedAt,
		&booking.PickupTime, &booking.SpecialNote,
		&addr.DoorNo, &addr.Street, &addr.City, &addr.State, &addr.Pincode,
	)
	if err != nil {
		return nil, err
	}
	booking.ID = o.BookingID
	booking.UserID = o.UserID
	o.Booking = &booking
	o.Address = &addr
	return &o, nil
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := scanOrder(r.db.QueryRow(ctx, orderSelect+` WHERE o.id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.log.Error("failed to get order by id", logger.String("id", id.String()), logger.Error(err))
		return nil, err
	}
	return order, nil
}

// GetAll is the admin console view: every order, most recently touched first.
func (r *orderRepo) GetAll(ctx context.Context) ([]*models.Order, error) {
	return r.scanOrders(ctx, orderSelect+` ORDER BY o.updated_at DESC`)
}

// GetByUser is the customer view of the same collection, filtered to the owner.
func (r *orderRepo) GetByUser(ctx context.Context, userID int64) ([]*models.Order, error) {
	return r.scanOrders(ctx, orderSelect+` WHERE o.user_id = $1 ORDER BY o.updated_at DESC`, userID)
}

func (r *orderRepo) scanOrders(ctx context.Context, query string, args ...interface{}) ([]*models.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *orderRepo) GetItems(ctx context.Context, orderID uuid.UUID) ([]*models.OrderItem, error) {
	query := `
		SELECT id, order_id, service_id, item_name, quantity, estimated_weight, final_weight
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		err := rows.Scan(&it.ID, &it.OrderID, &it.ServiceID, &it.ItemName, &it.Quantity, &it.EstimatedWeight, &it.FinalWeight)
		if err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

// UpdateStatus writes the order's status, weight/price fields and any
// status timestamps set on the struct. COALESCE keeps previously stamped
// timestamps when the struct carries nil.
func (r *orderRepo) UpdateStatus(ctx context.Context, order *models.Order) error {
	query := `
		UPDATE orders
		SET status = $1,
		    final_weight = $2,
		    final_price = $3,
		    actual_pickup_time = COALESCE($4, actual_pickup_time),
		    processing_started_at = COALESCE($5, processing_started_at),
		    ready_for_delivery_at = COALESCE($6, ready_for_delivery_at),
		    delivered_at = COALESCE($7, delivered_at),
		    updated_at = NOW()
		WHERE id = $8 AND status NOT IN ('delivered', 'cancelled_by_user', 'cancelled_by_admin')
	`
	res, err := r.db.Exec(ctx, query,
		order.Status,
		order.FinalWeight,
		order.FinalPrice,
		order.ActualPickupTime,
		order.ProcessingStartedAt,
		order.ReadyForDeliveryAt,
		order.DeliveredAt,
		order.ID,
	)
	if err != nil {
		r.log.Error("failed to update order", logger.String("id", order.ID.String()), logger.Error(err))
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("order is already in a terminal state")
	}
	return nil
}

func (r *orderRepo) UpdateItemWeight(ctx context.Context, itemID uuid.UUID, weight float64) error {
	_, err := r.db.Exec(ctx, `UPDATE order_items SET final_weight = $1 WHERE id = $2`, weight, itemID)
	return err
}

// Cancel records the cancellation metadata. The status guard re-applies
// terminal immutability at the row level, narrowing the race between the
// eligibility check and this write.
func (r *orderRepo) Cancel(ctx context.Context, order *models.Order) error {
	query := `
		UPDATE orders
		SET status = $1,
		    cancelled_at = $2,
		    cancelled_by = $3,
		    cancelled_by_user_id = $4,
		    cancellation_reason = $5,
		    updated_at = NOW()
		WHERE id = $6 AND status NOT IN ('delivered', 'cancelled_by_user', 'cancelled_by_admin')
	`
	res, err := r.db.Exec(ctx, query,
		order.Status,
		order.CancelledAt,
		order.CancelledBy,
		order.CancelledByUserID,
		order.CancellationReason,
		order.ID,
	)
	if err != nil {
		r.log.Error("failed to cancel order", logger.String("id", order.ID.String()), logger.Error(err))
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("order can no longer be cancelled")
	}
	return nil
}

func (r *orderRepo) GetActiveCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE status NOT IN ('delivered', 'cancelled_by_user', 'cancelled_by_admin')`).Scan(&n)
	return n, err
}

func (r *orderRepo) GetTotalCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n)
	return n, err
}
