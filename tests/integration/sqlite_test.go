package integration

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	reviewApp "github.com/davicafu/jobberlab/internal/review/application"
	reviewDomain "github.com/davicafu/jobberlab/internal/review/domain"
	reviewSQLite "github.com/davicafu/jobberlab/internal/review/infra/outbound/db/sqlite"
	sharedEvents "github.com/davicafu/jobberlab/internal/shared/events"
	sharedBus "github.com/davicafu/jobberlab/internal/shared/infra/platform/bus"
	sharedSQLite "github.com/davicafu/jobberlab/internal/shared/infra/platform/db/sqlite"
	"github.com/davicafu/jobberlab/internal/shared/infra/relayer"
	"github.com/davicafu/jobberlab/tests/mocks"

	_ "modernc.org/sqlite"
)

func setupSQLiteTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1) // cada conexión a :memory: es una base distinta
	require.NoError(t, reviewSQLite.InitReviewsSQLite(db))
	require.NoError(t, sharedSQLite.MigrateOutbox(context.Background(), db))
	t.Cleanup(func() { db.Close() })
	return db
}

// Con el broker caído la review se guarda igual, el evento queda en el outbox
// y el relayer lo entrega cuando el broker vuelve.
func TestReviewEvent_SurvivesBrokerOutageThroughOutbox(t *testing.T) {
	db := setupSQLiteTestDB(t)
	ctx := context.Background()

	publisher := &mocks.RecordingPublisher{Err: mocks.ErrBrokerDown}
	outbox := sharedSQLite.NewOutboxRepoSQLite(db)
	producer := sharedBus.NewProducer(publisher, outbox, zap.NewNop())
	service := reviewApp.NewReviewService(reviewSQLite.NewReviewRepoSQLite(db), producer, zap.NewNop())

	created, err := service.AddReview(ctx, &reviewDomain.Review{
		GigID: "g1", ReviewerID: "b1", SellerID: "s1", OrderID: "o1", Rating: 4, ReviewType: sharedEvents.BuyerReview,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Empty(t, publisher.Events())

	pending, err := outbox.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, sharedEvents.ReviewExchange.Name, pending[0].Exchange)

	publisher.Err = nil
	relayer.NewOutboxWorker(outbox, publisher, time.Second, 10, zap.NewNop()).ProcessBatch(ctx)

	events := publisher.ByExchange(sharedEvents.ReviewExchange.Name, "")
	require.Len(t, events, 1)
	assert.Contains(t, string(events[0].Payload), `"orderId":"o1"`)

	pending, err = outbox.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
