package integration

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	gigDomain "github.com/davicafu/jobberlab/internal/gig/domain"
	gigRepo "github.com/davicafu/jobberlab/internal/gig/infra/outbound/db/mongodb"
	"github.com/davicafu/jobberlab/internal/gig/infra/outbound/sequence"
	orderDomain "github.com/davicafu/jobberlab/internal/order/domain"
	orderRepo "github.com/davicafu/jobberlab/internal/order/infra/outbound/db/mongodb"
	ratingDomain "github.com/davicafu/jobberlab/internal/rating/domain"
	sharedDomain "github.com/davicafu/jobberlab/internal/shared/domain"
	sharedMongo "github.com/davicafu/jobberlab/internal/shared/infra/platform/db/mongodb"
	userDomain "github.com/davicafu/jobberlab/internal/user/domain"
	userRepo "github.com/davicafu/jobberlab/internal/user/infra/outbound/db/mongodb"
)

// setupMongoTestDB usa una base nueva por test y la borra al terminar.
func setupMongoTestDB(t *testing.T) *mongo.Database {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI no está configurada, saltando test de integración con MongoDB")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("jobberlab_it_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestGigRepoMongo_ApplyReviewOncePerKey(t *testing.T) {
	db := setupMongoTestDB(t)
	repo := gigRepo.NewGigRepoMongoDB(db)
	ctx := context.Background()
	require.NoError(t, repo.EnsureIndexes(ctx))

	require.NoError(t, repo.Create(ctx, &gigDomain.Gig{ID: "g1", SellerID: "s1", Title: "Logo", Categories: "Design", SortID: 1}))

	key := ratingDomain.ReviewKey("g1", "b1", "o1", "buyer-review")
	g, err := repo.ApplyReview(ctx, "g1", key, ratingDomain.Rating(4))
	require.NoError(t, err)
	assert.Equal(t, 1, g.RatingsCount)
	assert.Equal(t, 4, g.Aggregate.Categories[3].Value)

	_, err = repo.ApplyReview(ctx, "g1", key, ratingDomain.Rating(4))
	assert.ErrorIs(t, err, ratingDomain.ErrReviewAlreadyApplied)
	_, err = repo.ApplyReview(ctx, "missing", key, ratingDomain.Rating(4))
	assert.ErrorIs(t, err, gigDomain.ErrGigNotFound)

	got, err := repo.GetByID(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.RatingSum)
	assert.True(t, got.Consistent())
}

func TestSellerRepoMongo_StatsAndReviews(t *testing.T) {
	db := setupMongoTestDB(t)
	repo := userRepo.NewSellerRepoMongoDB(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &userDomain.Seller{ID: "s1", Username: "alice"}))
	assert.ErrorIs(t, repo.Create(ctx, &userDomain.Seller{ID: "s1", Username: "alice"}), userDomain.ErrUserAlreadyExists)

	key := userDomain.UpdateKey("s1", "create-order", "o1")
	s, err := repo.ApplyStats(ctx, "s1", key, userDomain.SellerStats{OngoingJobs: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, s.OngoingJobs)

	_, err = repo.ApplyStats(ctx, "s1", key, userDomain.SellerStats{OngoingJobs: 1})
	assert.ErrorIs(t, err, userDomain.ErrUpdateAlreadyApplied)
	_, err = repo.ApplyStats(ctx, "ghost", key, userDomain.SellerStats{OngoingJobs: 1})
	assert.ErrorIs(t, err, userDomain.ErrSellerNotFound)

	delivered := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	s, err = repo.ApplyStats(ctx, "s1", userDomain.UpdateKey("s1", "approve-order", "o1"), userDomain.SellerStats{
		OngoingJobs: -1, CompletedJobs: 1, TotalEarnings: 20, RecentDelivery: &delivered,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, s.OngoingJobs)
	assert.Equal(t, 1, s.CompletedJobs)
	require.NotNil(t, s.RecentDelivery)
	assert.True(t, delivered.Equal(*s.RecentDelivery))

	s, err = repo.ApplyReview(ctx, "s1", "g1|b1|o1|buyer-review", ratingDomain.Rating(5))
	require.NoError(t, err)
	assert.Equal(t, 5, s.RatingSum)
}

func TestBuyerRepoMongo_PurchasedGigs(t *testing.T) {
	db := setupMongoTestDB(t)
	repo := userRepo.NewBuyerRepoMongoDB(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &userDomain.Buyer{ID: "b1", Username: "bob"}))

	add := userDomain.UpdateKey("b1", "purchased-gigs", "o1")
	b, err := repo.AddPurchasedGig(ctx, "b1", add, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, b.PurchasedGigs)

	_, err = repo.AddPurchasedGig(ctx, "b1", add, "g1")
	assert.ErrorIs(t, err, userDomain.ErrUpdateAlreadyApplied)

	b, err = repo.RemovePurchasedGig(ctx, "b1", userDomain.UpdateKey("b1", "cancel-order", "o1"), "g1")
	require.NoError(t, err)
	assert.Empty(t, b.PurchasedGigs)
}

func TestMongoSequence_Increments(t *testing.T) {
	db := setupMongoTestDB(t)
	seq := sequence.NewMongoSequence(db)
	ctx := context.Background()

	first, err := seq.Next(ctx, gigDomain.SortIDSequence)
	require.NoError(t, err)
	second, err := seq.Next(ctx, gigDomain.SortIDSequence)
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
}

func TestOrderRepoMongo_TerminalOrdersRejectTransitions(t *testing.T) {
	db := setupMongoTestDB(t)
	repo := orderRepo.NewOrderRepoMongoDB(db)
	ctx := context.Background()
	require.NoError(t, repo.EnsureIndexes(ctx))

	require.NoError(t, repo.Create(ctx, &orderDomain.Order{OrderID: "o1", SellerID: "s1", BuyerID: "b1", Status: orderDomain.StatusPlaced}))

	cancel := orderDomain.Transition{Name: "cancel", Status: orderDomain.StatusCancelled, Cancelled: true}
	o, err := repo.ApplyTransition(ctx, "o1", cancel)
	require.NoError(t, err)
	assert.Equal(t, orderDomain.StatusCancelled, o.Status)

	_, err = repo.ApplyTransition(ctx, "o1", cancel)
	assert.ErrorIs(t, err, orderDomain.ErrInvalidTransition)

	o, err = repo.SetReview(ctx, "o1", orderDomain.ReviewTypeBuyer, orderDomain.OrderReview{Rating: 3, Created: time.Now().UTC()})
	require.NoError(t, err)
	require.NotNil(t, o.BuyerReview)
	assert.Equal(t, 3, o.BuyerReview.Rating)
}

func TestOutboxMongo_RetryBookkeeping(t *testing.T) {
	db := setupMongoTestDB(t)
	repo := sharedMongo.NewOutboxRepoMongoDB(db)
	ctx := context.Background()
	require.NoError(t, repo.EnsureIndexes(ctx))

	older := sharedDomain.OutboxEvent{ID: uuid.New(), Exchange: "jobber-review", Kind: "fanout",
		Payload: []byte(`{"gigId":"g1"}`), CreatedAt: time.Now().Add(-time.Minute).UTC(), Attempts: 1}
	newer := sharedDomain.OutboxEvent{ID: uuid.New(), Exchange: "jobber-seller-update", Kind: "direct",
		RoutingKey: "user-seller", Payload: []byte(`{}`), CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.Enqueue(ctx, newer))
	require.NoError(t, repo.Enqueue(ctx, older))
	require.NoError(t, repo.MarkFailed(ctx, older.ID, errors.New("channel closed")))

	pending, err := repo.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, older.ID, pending[0].ID)
	assert.Equal(t, 2, pending[0].Attempts)
	assert.Equal(t, "channel closed", pending[0].LastError)

	require.NoError(t, repo.MarkSent(ctx, older.ID))
	pending, err = repo.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "user-seller", pending[0].RoutingKey)

	assert.ErrorIs(t, repo.MarkSent(ctx, uuid.New()), sharedDomain.ErrOutboxEventNotFound)
}
