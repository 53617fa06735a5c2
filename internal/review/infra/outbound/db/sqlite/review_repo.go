package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/davicafu/jobberlab/internal/review/domain"
	reviewDB "github.com/davicafu/jobberlab/internal/review/infra/outbound/db"
)

// timeLayout tiene ancho fijo para que el orden por texto sea cronológico.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ReviewRepoSQLite implementa domain.ReviewRepository sobre SQLite (despliegue local).
type ReviewRepoSQLite struct {
	db *sql.DB
}

func NewReviewRepoSQLite(db *sql.DB) *ReviewRepoSQLite {
	return &ReviewRepoSQLite{db: db}
}

// InitReviewsSQLite crea la tabla reviews si no existe.
func InitReviewsSQLite(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS reviews (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            gigid TEXT NOT NULL,
            reviewerid TEXT NOT NULL,
            orderid TEXT NOT NULL,
            sellerid TEXT NOT NULL,
            review TEXT NOT NULL,
            reviewerimage TEXT NOT NULL DEFAULT '',
            reviewerusername TEXT NOT NULL DEFAULT '',
            country TEXT NOT NULL DEFAULT '',
            reviewtype TEXT NOT NULL,
            rating INTEGER NOT NULL DEFAULT 0,
            createdat TEXT NOT NULL,
            UNIQUE (gigid, reviewerid, orderid, reviewtype)
        );
        CREATE INDEX IF NOT EXISTS reviews_gigid_idx ON reviews (gigid);
        CREATE INDEX IF NOT EXISTS reviews_sellerid_idx ON reviews (sellerid);
    `)
	return err
}

func (r *ReviewRepoSQLite) Create(ctx context.Context, rv *domain.Review) (*domain.Review, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (gigid, reviewerid, reviewerimage, sellerid, review, rating, orderid, reviewtype, reviewerusername, country, createdat)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rv.GigID, rv.ReviewerID, rv.ReviewerImage, rv.SellerID, rv.Review, rv.Rating, rv.OrderID, rv.ReviewType,
		rv.ReviewerUsername, rv.Country, rv.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrReviewAlreadyExists
		}
		return nil, fmt.Errorf("failed to insert review: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT * FROM reviews WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	created, err := reviewDB.ScanReviews(rows)
	if err != nil {
		return nil, err
	}
	if len(created) != 1 {
		return nil, fmt.Errorf("review %d not found after insert", id)
	}
	return created[0], nil
}

func (r *ReviewRepoSQLite) ListByGigID(ctx context.Context, gigID string) ([]*domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT * FROM reviews WHERE gigid = ? ORDER BY id`, gigID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return reviewDB.ScanReviews(rows)
}

func (r *ReviewRepoSQLite) ListBySellerID(ctx context.Context, sellerID, reviewType string) ([]*domain.Review, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT * FROM reviews WHERE sellerid = ? AND reviewtype = ? ORDER BY id`, sellerID, reviewType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return reviewDB.ScanReviews(rows)
}

// isUniqueViolation acepta el código extendido y el primario, según cómo esté abierta la conexión.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE")
	}
	return false
}

var _ domain.ReviewRepository = (*ReviewRepoSQLite)(nil)
