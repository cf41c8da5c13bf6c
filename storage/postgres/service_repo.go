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

type serviceRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewServiceRepo(db *pgxpool.Pool, log logger.ILogger) storage.IServiceStorage {
	return &serviceRepo{db: db, log: log}
}

const serviceColumns = `id, name, description, base_price_per_kg, status, created_at`

func scanService(row pgx.Row) (*models.Service, error) {
	var s models.Service
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.BasePricePerKg, &s.Status, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *serviceRepo) GetActive(ctx context.Context) ([]*models.Service, error) {
	rows, err := r.db.Query(ctx, `SELECT `+serviceColumns+` FROM services WHERE status = 'active' ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []*models.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

func (r *serviceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	s, err := scanService(r.db.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		r.log.Error("failed to get service", logger.String("id", id.String()), logger.Error(err))
		return nil, err
	}
	return s, nil
}

// FirstActive is the fallback service for order items that arrive without a
// usable service id.
func (r *serviceRepo) FirstActive(ctx context.Context) (*models.Service, error) {
	s, err := scanService(r.db.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE status = 'active' ORDER BY created_at ASC LIMIT 1`))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *serviceRepo) Create(ctx context.Context, name string, pricePerKg float64) error {
	_, err := r.db.Exec(ctx, `INSERT INTO services (name, base_price_per_kg, status) VALUES ($1, $2, 'active')`, name, pricePerKg)
	return err
}

func (r *serviceRepo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.db.Exec(ctx, `UPDATE services SET status = $1 WHERE id = $2`, status, id)
	return err
}
