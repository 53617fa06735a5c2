package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/davicafu/jobberlab/internal/shared/domain"
)

// SQLite guarda las fechas como TEXT; el ancho fijo mantiene el orden lexicográfico igual al cronológico.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const outboxSchema = `
CREATE TABLE IF NOT EXISTS outbox (
    id          TEXT PRIMARY KEY,
    exchange    TEXT NOT NULL,
    kind        TEXT NOT NULL,
    routing_key TEXT NOT NULL DEFAULT '',
    payload     BLOB NOT NULL,
    hint        TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL,
    attempts    INTEGER NOT NULL DEFAULT 0,
    last_error  TEXT NOT NULL DEFAULT '',
    sent_at     TEXT
);
CREATE INDEX IF NOT EXISTS outbox_pending ON outbox (sent_at, created_at);`

// OutboxRepoSQLite es el outbox del despliegue local; comparte fichero con las reviews.
type OutboxRepoSQLite struct {
	db *sql.DB
}

func NewOutboxRepoSQLite(db *sql.DB) *OutboxRepoSQLite {
	return &OutboxRepoSQLite{db: db}
}

func MigrateOutbox(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, outboxSchema); err != nil {
		return fmt.Errorf("sqlite outbox schema: %w", err)
	}
	return nil
}

func (r *OutboxRepoSQLite) Enqueue(ctx context.Context, evt domain.OutboxEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outbox (id, exchange, kind, routing_key, payload, hint, created_at, attempts, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		evt.ID.String(), evt.Exchange, evt.Kind, evt.RoutingKey, evt.Payload, evt.Hint,
		evt.CreatedAt.UTC().Format(timeLayout), evt.Attempts, evt.LastError,
	)
	if err != nil {
		return fmt.Errorf("enqueue outbox %s: %w", evt.ID, err)
	}
	return nil
}

func (r *OutboxRepoSQLite) Pending(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, exchange, kind, routing_key, payload, hint, created_at, attempts, last_error
		FROM outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.OutboxEvent
	for rows.Next() {
		evt, err := scanOutbox(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (r *OutboxRepoSQLite) MarkSent(ctx context.Context, id uuid.UUID) error {
	return r.touch(ctx, id,
		`UPDATE outbox SET sent_at = ? WHERE id = ?`,
		time.Now().UTC().Format(timeLayout), id.String())
}

func (r *OutboxRepoSQLite) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	return r.touch(ctx, id,
		`UPDATE outbox SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
		domain.FailureText(cause), id.String())
}

func (r *OutboxRepoSQLite) touch(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update outbox %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrOutboxEventNotFound, id)
	}
	return nil
}

func scanOutbox(rows *sql.Rows) (domain.OutboxEvent, error) {
	var (
		evt         domain.OutboxEvent
		id, created string
	)
	if err := rows.Scan(&id, &evt.Exchange, &evt.Kind, &evt.RoutingKey, &evt.Payload, &evt.Hint,
		&created, &evt.Attempts, &evt.LastError); err != nil {
		return evt, err
	}

	var err error
	if evt.ID, err = uuid.Parse(id); err != nil {
		return evt, fmt.Errorf("outbox row id %q: %w", id, err)
	}
	if evt.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return evt, fmt.Errorf("outbox row %s created_at: %w", id, err)
	}
	return evt, nil
}

var _ domain.OutboxRepository = (*OutboxRepoSQLite)(nil)
