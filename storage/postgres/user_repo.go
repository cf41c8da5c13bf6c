package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"washbot/pkg/logger"
	"washbot/pkg/models"
	"washbot/storage"
)

type userRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewUserRepo(db *pgxpool.Pool, log logger.ILogger) storage.IUserStorage {
	return &userRepo{db: db, log: log}
}

const userColumns = `id, telegram_id, username, full_name, phone, email, role, status, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.TelegramID, &u.Username, &u.FullName, &u.Phone, &u.Email, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetOrCreate(ctx context.Context, teleID int64, username, fullname string) (*models.User, error) {
	query := `
		INSERT INTO users (telegram_id, username, full_name, role, status)
		VALUES ($1, $2, $3, 'customer', 'pending')
		ON CONFLICT (telegram_id) DO UPDATE
		SET updated_at = NOW()
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRow(ctx, query, teleID, username, fullname))
	if err != nil {
		r.log.Error("failed to get or create user", logger.Error(err))
		return nil, err
	}
	return user, nil
}

func (r *userRepo) Get(ctx context.Context, teleID int64) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, teleID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.log.Error("failed to get user", logger.Error(err))
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.log.Error("failed to get user by id", logger.Int64("id", id), logger.Error(err))
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetAll(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *userRepo) UpdatePhone(ctx context.Context, teleID int64, phone string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET phone = $1, updated_at = NOW() WHERE telegram_id = $2`, phone, teleID)
	return err
}

func (r *userRepo) UpdateEmail(ctx context.Context, teleID int64, email string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET email = $1, updated_at = NOW() WHERE telegram_id = $2`, email, teleID)
	return err
}

func (r *userRepo) UpdateStatus(ctx context.Context, teleID int64, status string) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET status = $1, updated_at = NOW() WHERE telegram_id = $2`, status, teleID)
	return err
}

func (r *userRepo) UpdateRole(ctx context.Context, teleID int64, role models.Role) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET role = $1, updated_at = NOW() WHERE telegram_id = $2`, string(role), teleID)
	return err
}

// EraseAccount removes everything owned by the user in dependency order:
// order items, orders, bookings, addresses, audit rows, then the user row.
func (r *userRepo) EraseAccount(ctx context.Context, userID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	steps := []string{
		`DELETE FROM email_logs WHERE order_id IN (SELECT id FROM orders WHERE user_id = $1)`,
		`DELETE FROM order_items WHERE order_id IN (SELECT id FROM orders WHERE user_id = $1)`,
		`DELETE FROM orders WHERE user_id = $1`,
		`DELETE FROM bookings WHERE user_id = $1`,
		`DELETE FROM addresses WHERE user_id = $1`,
		`DELETE FROM admin_logs WHERE admin_id = $1`,
		`DELETE FROM users WHERE id = $1`,
	}
	for _, q := range steps {
		if _, err := tx.Exec(ctx, q, userID); err != nil {
			r.log.Error("account erasure step failed", logger.Int64("user_id", userID), logger.Error(err))
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *userRepo) GetTotalUsers(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
