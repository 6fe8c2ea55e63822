package storage

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"vendordesk/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Get(ctx context.Context, sessionID, key string) (*Entry, error) {
	const q = `
SELECT session_id, key, value, updated_at
FROM client_storage
WHERE session_id = $1 AND key = $2
LIMIT 1
`
	var out Entry
	if err := r.pool.QueryRow(ctx, q, sessionID, key).Scan(
		&out.SessionID,
		&out.Key,
		&out.Value,
		&out.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Printf("storage repo: get session_id=%s key=%s error=%v", sessionID, key, err)
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) Set(ctx context.Context, sessionID, key, value string) error {
	const q = `
INSERT INTO client_storage (session_id, key, value)
VALUES ($1, $2, $3)
ON CONFLICT (session_id, key) DO UPDATE
SET value = EXCLUDED.value,
    updated_at = now()
`
	if _, err := r.pool.Exec(ctx, q, sessionID, key, value); err != nil {
		r.logger.Printf("storage repo: set session_id=%s key=%s error=%v", sessionID, key, err)
		return err
	}
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, sessionID, key string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM client_storage WHERE session_id = $1 AND key = $2`, sessionID, key)
	if err != nil {
		r.logger.Printf("storage repo: delete session_id=%s key=%s error=%v", sessionID, key, err)
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) DeleteSession(ctx context.Context, sessionID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM client_storage WHERE session_id = $1`, sessionID)
	if err != nil {
		r.logger.Printf("storage repo: delete session session_id=%s error=%v", sessionID, err)
		return err
	}
	r.logger.Printf("storage repo: delete session session_id=%s removed=%d", sessionID, cmd.RowsAffected())
	return nil
}

func (r *postgresRepo) Touch(ctx context.Context, sessionID string) error {
	if _, err := r.pool.Exec(ctx, `UPDATE client_storage SET updated_at = now() WHERE session_id = $1`, sessionID); err != nil {
		r.logger.Printf("storage repo: touch session_id=%s error=%v", sessionID, err)
		return err
	}
	return nil
}

func (r *postgresRepo) DeleteIdle(ctx context.Context, before time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM client_storage WHERE updated_at < $1`, before)
	if err != nil {
		r.logger.Printf("storage repo: delete idle before=%s error=%v", before.Format(time.RFC3339), err)
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
