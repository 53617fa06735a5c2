package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	sharedDomain "github.com/davicafu/jobberlab/internal/shared/domain"
)

const outboxSchema = `
CREATE TABLE IF NOT EXISTS outbox (
    id          UUID PRIMARY KEY,
    exchange    TEXT NOT NULL,
    kind        TEXT NOT NULL,
    routing_key TEXT NOT NULL DEFAULT '',
    payload     JSONB NOT NULL,
    hint        TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL,
    attempts    INT NOT NULL DEFAULT 0,
    last_error  TEXT NOT NULL DEFAULT '',
    sent_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS outbox_pending ON outbox (created_at) WHERE sent_at IS NULL;`

// OutboxRepoPostgres guarda el outbox en la misma base que las reviews.
type OutboxRepoPostgres struct {
	db *sql.DB
}

func NewOutboxRepoPostgres(db *sql.DB) *OutboxRepoPostgres {
	return &OutboxRepoPostgres{db: db}
}

func MigrateOutbox(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, outboxSchema); err != nil {
		return fmt.Errorf("postgres outbox schema: %w", err)
	}
	return nil
}

func (r *OutboxRepoPostgres) Enqueue(ctx context.Context, evt sharedDomain.OutboxEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outbox (id, exchange, kind, routing_key, payload, hint, created_at, attempts, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		evt.ID, evt.Exchange, evt.Kind, evt.RoutingKey, string(evt.Payload), evt.Hint,
		evt.CreatedAt, evt.Attempts, evt.LastError,
	)
	if err != nil {
		return fmt.Errorf("enqueue outbox %s: %w", evt.ID, err)
	}
	return nil
}

func (r *OutboxRepoPostgres) Pending(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, exchange, kind, routing_key, payload, hint, created_at, attempts, last_error
		FROM outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sharedDomain.OutboxEvent
	for rows.Next() {
		var evt sharedDomain.OutboxEvent
		if err := rows.Scan(&evt.ID, &evt.Exchange, &evt.Kind, &evt.RoutingKey, &evt.Payload, &evt.Hint,
			&evt.CreatedAt, &evt.Attempts, &evt.LastError); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (r *OutboxRepoPostgres) MarkSent(ctx context.Context, id uuid.UUID) error {
	return r.touch(ctx, id, `UPDATE outbox SET sent_at = now() WHERE id = $1`, id)
}

func (r *OutboxRepoPostgres) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	return r.touch(ctx, id,
		`UPDATE outbox SET attempts = attempts + 1, last_error = $2 WHERE id = $1`,
		id, sharedDomain.FailureText(cause))
}

func (r *OutboxRepoPostgres) touch(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update outbox %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: %s", sharedDomain.ErrOutboxEventNotFound, id)
	}
	return nil
}

var _ sharedDomain.OutboxRepository = (*OutboxRepoPostgres)(nil)
