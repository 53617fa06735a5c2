package sequence

import (
	"context"
	"sync"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	gigDomain "github.com/davicafu/jobberlab/internal/gig/domain"
)

// RedisSequence usa INCR: el valor lo asigna Redis de forma atómica.
type RedisSequence struct {
	client *redis.Client
	prefix string
}

func NewRedisSequence(client *redis.Client) *RedisSequence {
	return &RedisSequence{client: client, prefix: "jobber:seq:"}
}

func (s *RedisSequence) Next(ctx context.Context, name string) (int64, error) {
	return s.client.Incr(ctx, s.prefix+name).Result()
}

// MongoSequence usa un documento por secuencia en "counters" con $inc + upsert.
type MongoSequence struct {
	coll *mongo.Collection
}

func NewMongoSequence(db *mongo.Database) *MongoSequence {
	return &MongoSequence{coll: db.Collection("counters")}
}

func (s *MongoSequence) Next(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

// MemorySequence es la variante en proceso para local y tests.
type MemorySequence struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewMemorySequence() *MemorySequence {
	return &MemorySequence{values: make(map[string]int64)}
}

func (s *MemorySequence) Next(ctx context.Context, name string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name]++
	return s.values[name], nil
}

var (
	_ gigDomain.SequenceGenerator = (*RedisSequence)(nil)
	_ gigDomain.SequenceGenerator = (*MongoSequence)(nil)
	_ gigDomain.SequenceGenerator = (*MemorySequence)(nil)
)
