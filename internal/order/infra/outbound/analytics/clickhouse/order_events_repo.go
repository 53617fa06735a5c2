package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	orderDomain "github.com/davicafu/jobberlab/internal/order/domain"
)

const transitionsTable = "order_events_log"

// OrderAnalyticsRepo escribe una fila por transición aplicada a un pedido.
// Usa la API nativa del driver (protocolo TCP con compresión LZ4).
type OrderAnalyticsRepo struct {
	conn driver.Conn
}

func NewOrderAnalyticsRepo(ctx context.Context, addr, database string) (*OrderAnalyticsRepo, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr:        []string{addr},
		Auth:        clickhouse.Auth{Database: database},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
		Settings:    clickhouse.Settings{"max_execution_time": 60},
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse %s: %w", addr, err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse %s: %w", addr, err)
	}
	return &OrderAnalyticsRepo{conn: conn}, nil
}

// Migrate crea la tabla particionada por mes y ordenada por vendedor.
func (r *OrderAnalyticsRepo) Migrate(ctx context.Context) error {
	return r.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+transitionsTable+` (
			order_id   String,
			transition LowCardinality(String),
			status     LowCardinality(String),
			seller_id  String,
			buyer_id   String,
			price      Float64,
			event_time DateTime64(3)
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(event_time)
		ORDER BY (seller_id, event_time)`)
}

func (r *OrderAnalyticsRepo) LogTransition(ctx context.Context, e orderDomain.TransitionLog) error {
	return r.LogTransitions(ctx, []orderDomain.TransitionLog{e})
}

// LogTransitions envía varias filas en un único bloque.
func (r *OrderAnalyticsRepo) LogTransitions(ctx context.Context, entries []orderDomain.TransitionLog) error {
	if len(entries) == 0 {
		return nil
	}
	batch, err := r.conn.PrepareBatch(ctx, "INSERT INTO "+transitionsTable)
	if err != nil {
		return fmt.Errorf("prepare %s batch: %w", transitionsTable, err)
	}
	for _, e := range entries {
		if err := batch.Append(e.OrderID, e.Transition, string(e.Status), e.SellerID, e.BuyerID, e.Price, e.EventTime); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append %s/%s: %w", e.OrderID, e.Transition, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send %s batch (%d rows): %w", transitionsTable, len(entries), err)
	}
	return nil
}

// CountByTransition agrupa las transiciones registradas en [from, to].
func (r *OrderAnalyticsRepo) CountByTransition(ctx context.Context, from, to time.Time) (map[string]uint64, error) {
	var rows []struct {
		Transition string `ch:"transition"`
		N          uint64 `ch:"n"`
	}
	err := r.conn.Select(ctx, &rows, `
		SELECT transition, count() AS n
		FROM `+transitionsTable+`
		WHERE event_time BETWEEN ? AND ?
		GROUP BY transition`, from, to)
	if err != nil {
		return nil, err
	}

	out := make(map[string]uint64, len(rows))
	for _, row := range rows {
		out[row.Transition] = row.N
	}
	return out, nil
}

func (r *OrderAnalyticsRepo) Close() error {
	return r.conn.Close()
}

var _ orderDomain.OrderAnalyticsRepository = (*OrderAnalyticsRepo)(nil)
