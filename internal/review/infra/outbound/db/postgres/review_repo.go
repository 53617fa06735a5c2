package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/davicafu/jobberlab/internal/review/domain"
	reviewDB "github.com/davicafu/jobberlab/internal/review/infra/outbound/db"
)

const uniqueViolation = "23505"

// ReviewRepoPostgres implementa domain.ReviewRepository sobre la tabla reviews.
type ReviewRepoPostgres struct {
	db *sql.DB
}

func NewReviewRepoPostgres(db *sql.DB) *ReviewRepoPostgres {
	return &ReviewRepoPostgres{db: db}
}

// InitReviewsPostgres crea la tabla reviews y sus índices si no existen.
func InitReviewsPostgres(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
    CREATE TABLE IF NOT EXISTS reviews (
        id SERIAL PRIMARY KEY,
        gigId TEXT NOT NULL,
        reviewerId TEXT NOT NULL,
        orderId TEXT NOT NULL,
        sellerId TEXT NOT NULL,
        review TEXT NOT NULL,
        reviewerImage TEXT NOT NULL DEFAULT '',
        reviewerUsername TEXT NOT NULL DEFAULT '',
        country TEXT NOT NULL DEFAULT '',
        reviewType TEXT NOT NULL,
        rating INTEGER NOT NULL DEFAULT 0,
        createdAt TIMESTAMPTZ NOT NULL DEFAULT now(),
        UNIQUE (gigId, reviewerId, orderId, reviewType)
    );
    CREATE INDEX IF NOT EXISTS reviews_gigid_idx ON reviews (gigId);
    CREATE INDEX IF NOT EXISTS reviews_sellerid_idx ON reviews (sellerId);
    `)
	return err
}

func (r *ReviewRepoPostgres) Create(ctx context.Context, rv *domain.Review) (*domain.Review, error) {
	rows, err := r.db.QueryContext(ctx,
		`INSERT INTO reviews (gigId, reviewerId, reviewerImage, sellerId, review, rating, orderId, reviewType, reviewerUsername, country, createdAt)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING *`,
		rv.GigID, rv.ReviewerID, rv.ReviewerImage, rv.SellerID, rv.Review, rv.Rating, rv.OrderID, rv.ReviewType,
		rv.ReviewerUsername, rv.Country, rv.CreatedAt,
	)
	if err != nil {
		return nil, insertError(err)
	}
	defer rows.Close()

	// pgx puede diferir el error del servidor hasta leer las filas.
	created, err := reviewDB.ScanReviews(rows)
	if err != nil {
		return nil, insertError(err)
	}
	if len(created) != 1 {
		return nil, fmt.Errorf("insert review returned %d rows", len(created))
	}
	return created[0], nil
}

func (r *ReviewRepoPostgres) ListByGigID(ctx context.Context, gigID string) ([]*domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT * FROM reviews WHERE gigId = $1 ORDER BY id`, gigID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return reviewDB.ScanReviews(rows)
}

func (r *ReviewRepoPostgres) ListBySellerID(ctx context.Context, sellerID, reviewType string) ([]*domain.Review, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT * FROM reviews WHERE sellerId = $1 AND reviewType = $2 ORDER BY id`, sellerID, reviewType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return reviewDB.ScanReviews(rows)
}

func insertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrReviewAlreadyExists
	}
	return fmt.Errorf("failed to insert review: %w", err)
}

var _ domain.ReviewRepository = (*ReviewRepoPostgres)(nil)
