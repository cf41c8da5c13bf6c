package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"washbot/pkg/logger"
	"washbot/pkg/models"
	"washbot/storage"
)

type addressRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewAddressRepo(db *pgxpool.Pool, log logger.ILogger) storage.IAddressStorage {
	return &addressRepo{db: db, log: log}
}

const addressColumns = `id, user_id, label, door_no, street, city, state, pincode, is_default, created_at`

func scanAddress(row pgx.Row) (*models.Address, error) {
	var a models.Address
	err := row.Scan(&a.ID, &a.UserID, &a.Label, &a.DoorNo, &a.Street, &a.City, &a.State, &a.Pincode, &a.IsDefault, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts an address. When the new address is flagged default, the
// user's previous default is cleared in the same transaction so at most one
// default stays active.
func (r *addressRepo) Create(ctx context.Context, addr *models.Address) (*models.Address, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if addr.IsDefault {
		if _, err := tx.Exec(ctx, `UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`, addr.UserID); err != nil {
			return nil, err
		}
	}

	query := `
		INSERT INTO addresses (user_id, label, door_no, street, city, state, pincode, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err = tx.QueryRow(ctx, query,
		addr.UserID, addr.Label, addr.DoorNo, addr.Street, addr.City, addr.State, addr.Pincode, addr.IsDefault,
	).Scan(&addr.ID, &addr.CreatedAt)
	if err != nil {
		r.log.Error("failed to create address", logger.Error(err))
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return addr, nil
}

func (r *addressRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	addr, err := scanAddress(r.db.QueryRow(ctx, `SELECT `+addressColumns+` FROM addresses WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.log.Error("failed to get address", logger.String("id", id.String()), logger.Error(err))
		return nil, err
	}
	return addr, nil
}

// GetOwned fetches the address only when it belongs to the given user.
func (r *addressRepo) GetOwned(ctx context.Context, id uuid.UUID, userID int64) (*models.Address, error) {
	addr, err := scanAddress(r.db.QueryRow(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return addr, nil
}

func (r *addressRepo) GetByUser(ctx context.Context, userID int64) ([]*models.Address, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE user_id = $1 ORDER BY is_default DESC, created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addrs []*models.Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, a)
	}
	return addrs, rows.Err()
}

func (r *addressRepo) SetDefault(ctx context.Context, id uuid.UUID, userID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`, userID); err != nil {
		return err
	}
	res, err := tx.Exec(ctx, `UPDATE addresses SET is_default = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("address not found")
	}

	return tx.Commit(ctx)
}

func (r *addressRepo) Delete(ctx context.Context, id uuid.UUID, userID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM addresses WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}
