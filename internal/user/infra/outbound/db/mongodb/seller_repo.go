package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	ratingDomain "github.com/davicafu/jobberlab/internal/rating/domain"
	sharedMongo "github.com/davicafu/jobberlab/internal/shared/infra/platform/db/mongodb"
	userDomain "github.com/davicafu/jobberlab/internal/user/domain"
)

// appliedUpdatesField guarda las claves de mensajes de estadísticas ya aplicados.
const appliedUpdatesField = "appliedUpdates"

type SellerRepoMongoDB struct {
	sellersColl *mongo.Collection
}

func NewSellerRepoMongoDB(db *mongo.Database) *SellerRepoMongoDB {
	return &SellerRepoMongoDB{sellersColl: db.Collection("sellers")}
}

type mongoSeller struct {
	ID               string                      `bson:"_id"`
	Username         string                      `bson:"username"`
	Email            string                      `bson:"email"`
	ProfilePicture   string                      `bson:"profilePicture"`
	Country          string                      `bson:"country"`
	OngoingJobs      int                         `bson:"ongoingJobs"`
	CompletedJobs    int                         `bson:"completedJobs"`
	CancelledJobs    int                         `bson:"cancelledJobs"`
	TotalEarnings    float64                     `bson:"totalEarnings"`
	TotalGigs        int                         `bson:"totalGigs"`
	RecentDelivery   *time.Time                  `bson:"recentDelivery,omitempty"`
	RatingsCount     int                         `bson:"ratingsCount"`
	RatingSum        int                         `bson:"ratingSum"`
	RatingCategories sharedMongo.MongoCategories `bson:"ratingCategories"`
	AppliedReviews   []string                    `bson:"appliedReviews"`
	AppliedUpdates   []string                    `bson:"appliedUpdates"`
	CreatedAt        time.Time                   `bson:"createdAt"`
}

func toMongoSeller(s *userDomain.Seller) mongoSeller {
	return mongoSeller{
		ID:               s.ID,
		Username:         s.Username,
		Email:            s.Email,
		ProfilePicture:   s.ProfilePicture,
		Country:          s.Country,
		OngoingJobs:      s.OngoingJobs,
		CompletedJobs:    s.CompletedJobs,
		CancelledJobs:    s.CancelledJobs,
		TotalEarnings:    s.TotalEarnings,
		TotalGigs:        s.TotalGigs,
		RecentDelivery:   s.RecentDelivery,
		RatingsCount:     s.RatingsCount,
		RatingSum:        s.RatingSum,
		RatingCategories: sharedMongo.ToMongoCategories(s.Categories),
		AppliedReviews:   []string{},
		AppliedUpdates:   []string{},
		CreatedAt:        s.CreatedAt,
	}
}

func fromMongoSeller(m mongoSeller) *userDomain.Seller {
	return &userDomain.Seller{
		ID:             m.ID,
		Username:       m.Username,
		Email:          m.Email,
		ProfilePicture: m.ProfilePicture,
		Country:        m.Country,
		OngoingJobs:    m.OngoingJobs,
		CompletedJobs:  m.CompletedJobs,
		CancelledJobs:  m.CancelledJobs,
		TotalEarnings:  m.TotalEarnings,
		TotalGigs:      m.TotalGigs,
		RecentDelivery: m.RecentDelivery,
		CreatedAt:      m.CreatedAt,
		Aggregate: ratingDomain.Aggregate{
			RatingsCount: m.RatingsCount,
			RatingSum:    m.RatingSum,
			Categories:   m.RatingCategories.Categories(),
		},
	}
}

func (r *SellerRepoMongoDB) Create(ctx context.Context, s *userDomain.Seller) error {
	_, err := r.sellersColl.InsertOne(ctx, toMongoSeller(s))
	if mongo.IsDuplicateKeyError(err) {
		return userDomain.ErrUserAlreadyExists
	}
	return err
}

func (r *SellerRepoMongoDB) GetByID(ctx context.Context, id string) (*userDomain.Seller, error) {
	var m mongoSeller
	err := r.sellersColl.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, userDomain.ErrSellerNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromMongoSeller(m), nil
}

// ApplyStats aplica los incrementos una sola vez por clave. Sin clave no hay protección
// frente a redistribuciones.
func (r *SellerRepoMongoDB) ApplyStats(ctx context.Context, id, key string, u userDomain.SellerStats) (*userDomain.Seller, error) {
	if u.IsZero() {
		return r.GetByID(ctx, id)
	}

	filter := bson.M{"_id": id}
	update := statsUpdate(u)
	if key != "" {
		filter = sharedMongo.NotApplied(id, appliedUpdatesField, key)
		update["$push"] = bson.M{appliedUpdatesField: key}
	}

	s, err := r.findAndUpdate(ctx, filter, update)
	if !errors.Is(err, userDomain.ErrSellerNotFound) || key == "" {
		return s, err
	}
	return nil, sharedMongo.ResolveMiss(ctx, r.sellersColl, id, userDomain.ErrSellerNotFound, userDomain.ErrUpdateAlreadyApplied)
}

func statsUpdate(u userDomain.SellerStats) bson.M {
	inc := bson.M{}
	if u.OngoingJobs != 0 {
		inc["ongoingJobs"] = u.OngoingJobs
	}
	if u.CompletedJobs != 0 {
		inc["completedJobs"] = u.CompletedJobs
	}
	if u.CancelledJobs != 0 {
		inc["cancelledJobs"] = u.CancelledJobs
	}
	if u.TotalEarnings != 0 {
		inc["totalEarnings"] = u.TotalEarnings
	}
	if u.TotalGigs != 0 {
		inc["totalGigs"] = u.TotalGigs
	}

	update := bson.M{}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	if u.RecentDelivery != nil {
		update["$set"] = bson.M{"recentDelivery": *u.RecentDelivery}
	}
	return update
}

func (r *SellerRepoMongoDB) ApplyReview(ctx context.Context, id, reviewKey string, rating ratingDomain.Rating) (*userDomain.Seller, error) {
	filter := sharedMongo.NotApplied(id, sharedMongo.AppliedReviewsField, reviewKey)
	s, err := r.findAndUpdate(ctx, filter, sharedMongo.ReviewIncrement(reviewKey, rating))
	if !errors.Is(err, userDomain.ErrSellerNotFound) {
		return s, err
	}
	return nil, sharedMongo.ResolveMiss(ctx, r.sellersColl, id, userDomain.ErrSellerNotFound, ratingDomain.ErrReviewAlreadyApplied)
}

func (r *SellerRepoMongoDB) findAndUpdate(ctx context.Context, filter, update bson.M) (*userDomain.Seller, error) {
	var m mongoSeller
	err := r.sellersColl.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, userDomain.ErrSellerNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromMongoSeller(m), nil
}

var _ userDomain.SellerRepository = (*SellerRepoMongoDB)(nil)
