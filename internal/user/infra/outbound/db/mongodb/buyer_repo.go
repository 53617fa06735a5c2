package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	sharedMongo "github.com/davicafu/jobberlab/internal/shared/infra/platform/db/mongodb"
	userDomain "github.com/davicafu/jobberlab/internal/user/domain"
)

type BuyerRepoMongoDB struct {
	buyersColl *mongo.Collection
}

func NewBuyerRepoMongoDB(db *mongo.Database) *BuyerRepoMongoDB {
	return &BuyerRepoMongoDB{buyersColl: db.Collection("buyers")}
}

type mongoBuyer struct {
	ID             string    `bson:"_id"`
	Username       string    `bson:"username"`
	Email          string    `bson:"email"`
	Country        string    `bson:"country"`
	IsSeller       bool      `bson:"isSeller"`
	PurchasedGigs  []string  `bson:"purchasedGigs"`
	AppliedUpdates []string  `bson:"appliedUpdates"`
	CreatedAt      time.Time `bson:"createdAt"`
}

func toMongoBuyer(b *userDomain.Buyer) mongoBuyer {
	gigs := b.PurchasedGigs
	if gigs == nil {
		gigs = []string{}
	}
	return mongoBuyer{
		ID:             b.ID,
		Username:       b.Username,
		Email:          b.Email,
		Country:        b.Country,
		IsSeller:       b.IsSeller,
		PurchasedGigs:  gigs,
		AppliedUpdates: []string{},
		CreatedAt:      b.CreatedAt,
	}
}

func fromMongoBuyer(m mongoBuyer) *userDomain.Buyer {
	gigs := m.PurchasedGigs
	if gigs == nil {
		gigs = []string{}
	}
	return &userDomain.Buyer{
		ID:            m.ID,
		Username:      m.Username,
		Email:         m.Email,
		Country:       m.Country,
		IsSeller:      m.IsSeller,
		PurchasedGigs: gigs,
		CreatedAt:     m.CreatedAt,
	}
}

func (r *BuyerRepoMongoDB) Create(ctx context.Context, b *userDomain.Buyer) error {
	_, err := r.buyersColl.InsertOne(ctx, toMongoBuyer(b))
	if mongo.IsDuplicateKeyError(err) {
		return userDomain.ErrUserAlreadyExists
	}
	return err
}

func (r *BuyerRepoMongoDB) GetByID(ctx context.Context, id string) (*userDomain.Buyer, error) {
	var m mongoBuyer
	err := r.buyersColl.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, userDomain.ErrBuyerNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromMongoBuyer(m), nil
}

func (r *BuyerRepoMongoDB) AddPurchasedGig(ctx context.Context, id, key, gigID string) (*userDomain.Buyer, error) {
	return r.guarded(ctx, id, key, bson.M{"$push": bson.M{"purchasedGigs": gigID}})
}

func (r *BuyerRepoMongoDB) RemovePurchasedGig(ctx context.Context, id, key, gigID string) (*userDomain.Buyer, error) {
	return r.guarded(ctx, id, key, bson.M{"$pull": bson.M{"purchasedGigs": gigID}})
}

// guarded ejecuta update una sola vez por clave. $push y $pull de campos distintos
// conviven en el mismo documento de update.
func (r *BuyerRepoMongoDB) guarded(ctx context.Context, id, key string, update bson.M) (*userDomain.Buyer, error) {
	filter := bson.M{"_id": id}
	if key != "" {
		filter = sharedMongo.NotApplied(id, appliedUpdatesField, key)
		push, _ := update["$push"].(bson.M)
		if push == nil {
			push = bson.M{}
		}
		push[appliedUpdatesField] = key
		update["$push"] = push
	}

	var m mongoBuyer
	err := r.buyersColl.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if key == "" {
			return nil, userDomain.ErrBuyerNotFound
		}
		return nil, sharedMongo.ResolveMiss(ctx, r.buyersColl, id, userDomain.ErrBuyerNotFound, userDomain.ErrUpdateAlreadyApplied)
	}
	if err != nil {
		return nil, err
	}
	return fromMongoBuyer(m), nil
}

var _ userDomain.BuyerRepository = (*BuyerRepoMongoDB)(nil)
