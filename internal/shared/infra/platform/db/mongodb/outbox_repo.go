package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	sharedDomain "github.com/davicafu/jobberlab/internal/shared/domain"
)

// OutboxRepoMongoDB es la alternativa al outbox SQL (OUTBOX_STORE=mongo).
type OutboxRepoMongoDB struct {
	coll *mongo.Collection
}

func NewOutboxRepoMongoDB(db *mongo.Database) *OutboxRepoMongoDB {
	return &OutboxRepoMongoDB{coll: db.Collection("outbox")}
}

type outboxDoc struct {
	ID         string     `bson:"_id"`
	Exchange   string     `bson:"exchange"`
	Kind       string     `bson:"kind"`
	RoutingKey string     `bson:"routingKey,omitempty"`
	Payload    []byte     `bson:"payload"`
	Hint       string     `bson:"hint,omitempty"`
	CreatedAt  time.Time  `bson:"createdAt"`
	Attempts   int        `bson:"attempts"`
	LastError  string     `bson:"lastError,omitempty"`
	SentAt     *time.Time `bson:"sentAt"`
}

var pendingFilter = bson.M{"sentAt": nil}

func (r *OutboxRepoMongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sentAt", Value: 1}, {Key: "createdAt", Value: 1}},
		Options: options.Index().SetName("outbox_pending"),
	})
	return err
}

func (r *OutboxRepoMongoDB) Enqueue(ctx context.Context, evt sharedDomain.OutboxEvent) error {
	_, err := r.coll.InsertOne(ctx, outboxDoc{
		ID:         evt.ID.String(),
		Exchange:   evt.Exchange,
		Kind:       evt.Kind,
		RoutingKey: evt.RoutingKey,
		Payload:    evt.Payload,
		Hint:       evt.Hint,
		CreatedAt:  evt.CreatedAt,
		Attempts:   evt.Attempts,
		LastError:  evt.LastError,
	})
	if err != nil {
		return fmt.Errorf("enqueue outbox %s: %w", evt.ID, err)
	}
	return nil
}

func (r *OutboxRepoMongoDB) Pending(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	cur, err := r.coll.Find(ctx, pendingFilter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}

	var docs []outboxDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]sharedDomain.OutboxEvent, 0, len(docs))
	for _, d := range docs {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			return nil, fmt.Errorf("outbox document id %q: %w", d.ID, err)
		}
		out = append(out, sharedDomain.OutboxEvent{
			ID:         id,
			Exchange:   d.Exchange,
			Kind:       d.Kind,
			RoutingKey: d.RoutingKey,
			Payload:    d.Payload,
			Hint:       d.Hint,
			CreatedAt:  d.CreatedAt,
			Attempts:   d.Attempts,
			LastError:  d.LastError,
		})
	}
	return out, nil
}

func (r *OutboxRepoMongoDB) MarkSent(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, bson.M{"$set": bson.M{"sentAt": time.Now().UTC()}})
}

func (r *OutboxRepoMongoDB) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	return r.update(ctx, id, bson.M{
		"$inc": bson.M{"attempts": 1},
		"$set": bson.M{"lastError": sharedDomain.FailureText(cause)},
	})
}

func (r *OutboxRepoMongoDB) update(ctx context.Context, id uuid.UUID, change bson.M) error {
	res, err := r.coll.UpdateByID(ctx, id.String(), change)
	if err != nil {
		return fmt.Errorf("update outbox %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", sharedDomain.ErrOutboxEventNotFound, id)
	}
	return nil
}

var _ sharedDomain.OutboxRepository = (*OutboxRepoMongoDB)(nil)
