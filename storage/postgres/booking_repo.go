package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"washbot/pkg/logger"
	"washbot/pkg/models"
	"washbot/storage"
)

type bookingRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewBookingRepo(db *pgxpool.Pool, log logger.ILogger) storage.IBookingStorage {
	return &bookingRepo{db: db, log: log}
}

func (r *bookingRepo) Create(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	query := `
		INSERT INTO bookings (user_id, address_id, pickup_time, special_note, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		booking.UserID,
		booking.AddressID,
		booking.PickupTime,
		booking.SpecialNote,
		booking.Status,
	).Scan(&booking.ID, &booking.CreatedAt)
	if err != nil {
		r.log.Error("failed to create booking", logger.Error(err))
		return nil, err
	}
	return booking, nil
}

func (r *bookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	query := `SELECT id, user_id, address_id, pickup_time, special_note, status, created_at FROM bookings WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.UserID, &b.AddressID, &b.PickupTime, &b.SpecialNote, &b.Status, &b.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.log.Error("failed to get booking", logger.String("id", id.String()), logger.Error(err))
		return nil, err
	}
	return &b, nil
}
