package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"washbot/pkg/logger"
	"washbot/pkg/models"
	"washbot/storage"
)

type auditRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewAuditRepo(db *pgxpool.Pool, log logger.ILogger) storage.IAuditStorage {
	return &auditRepo{db: db, log: log}
}

func (r *auditRepo) Append(ctx context.Context, entry *models.AdminLog) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO admin_logs (admin_id, action, target_type, target_id, details)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err = r.db.QueryRow(ctx, query,
		entry.AdminID, entry.Action, entry.TargetType, entry.TargetID, details,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		r.log.Error("failed to append admin log", logger.Error(err))
		return err
	}
	return nil
}

func (r *auditRepo) Recent(ctx context.Context, limit int) ([]*models.AdminLog, error) {
	query := `
		SELECT id, admin_id, action, target_type, target_id, details, created_at
		FROM admin_logs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AdminLog
	for rows.Next() {
		var (
			e       models.AdminLog
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.AdminID, &e.Action, &e.TargetType, &e.TargetID, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, err
			}
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *auditRepo) LogEmail(ctx context.Context, entry *models.EmailLog) error {
	query := `
		INSERT INTO email_logs (order_id, email_status, response, error_message, sent_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		entry.OrderID, entry.EmailStatus, entry.Response, entry.ErrorMessage, entry.SentAt,
	).Scan(&entry.ID)
	if err != nil {
		r.log.Error("failed to log email attempt", logger.Error(err))
		return err
	}
	return nil
}
