package integration

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reviewDomain "github.com/davicafu/jobberlab/internal/review/domain"
	reviewPostgres "github.com/davicafu/jobberlab/internal/review/infra/outbound/db/postgres"
	sharedDomain "github.com/davicafu/jobberlab/internal/shared/domain"
	sharedPostgres "github.com/davicafu/jobberlab/internal/shared/infra/platform/db/postgres"

	// Driver de PostgreSQL
	_ "github.com/jackc/pgx/v5/stdlib"
)

// setupPostgresTestDB se conecta a Postgres, crea el esquema y limpia las tablas.
func setupPostgresTestDB(t *testing.T) *sql.DB {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		t.Skip("DATABASE_URL no está configurada, saltando test de integración con Postgres")
	}

	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	require.NoError(t, db.Ping())

	ctx := context.Background()
	require.NoError(t, reviewPostgres.InitReviewsPostgres(ctx, db))
	require.NoError(t, sharedPostgres.MigrateOutbox(ctx, db))

	_, err = db.Exec(`TRUNCATE reviews, outbox`)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

func TestReviewPostgres_CreateListAndUniqueness(t *testing.T) {
	db := setupPostgresTestDB(t)
	repo := reviewPostgres.NewReviewRepoPostgres(db)
	ctx := context.Background()

	rv := &reviewDomain.Review{
		GigID: "g1", ReviewerID: "b1", SellerID: "s1", OrderID: "o1",
		Review: "great", Rating: 5, ReviewType: "buyer-review", CreatedAt: time.Now().UTC(),
	}
	created, err := repo.Create(ctx, rv)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "g1", created.GigID)
	assert.Equal(t, 5, created.Rating)

	_, err = repo.Create(ctx, rv)
	assert.ErrorIs(t, err, reviewDomain.ErrReviewAlreadyExists)

	seller := *rv
	seller.ReviewerID, seller.ReviewType = "s1", "seller-review"
	_, err = repo.Create(ctx, &seller)
	require.NoError(t, err)

	byGig, err := repo.ListByGigID(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, byGig, 2)

	bySeller, err := repo.ListBySellerID(ctx, "s1", "seller-review")
	require.NoError(t, err)
	require.Len(t, bySeller, 1)
	assert.Equal(t, "seller-review", bySeller[0].ReviewType)
}

func TestOutboxPostgres_RetryBookkeeping(t *testing.T) {
	db := setupPostgresTestDB(t)
	repo := sharedPostgres.NewOutboxRepoPostgres(db)
	ctx := context.Background()

	evt := sharedDomain.OutboxEvent{
		ID: uuid.New(), Exchange: "jobber-review", Kind: "fanout",
		Payload: []byte(`{"gigId":"g1"}`), CreatedAt: time.Now().UTC(), Attempts: 1,
	}
	require.NoError(t, repo.Enqueue(ctx, evt))
	require.NoError(t, repo.MarkFailed(ctx, evt.ID, errors.New("channel closed")))

	pending, err := repo.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.JSONEq(t, `{"gigId":"g1"}`, string(pending[0].Payload))
	assert.Equal(t, 2, pending[0].Attempts)
	assert.Equal(t, "channel closed", pending[0].LastError)

	require.NoError(t, repo.MarkSent(ctx, evt.ID))
	pending, err = repo.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.ErrorIs(t, repo.MarkSent(ctx, uuid.New()), sharedDomain.ErrOutboxEventNotFound)
}
