package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	gigDomain "github.com/davicafu/jobberlab/internal/gig/domain"
	ratingDomain "github.com/davicafu/jobberlab/internal/rating/domain"
	sharedMongo "github.com/davicafu/jobberlab/internal/shared/infra/platform/db/mongodb"
)

// GigRepoMongoDB implementa gigDomain.GigRepository sobre la colección "gigs".
type GigRepoMongoDB struct {
	gigsColl *mongo.Collection
}

func NewGigRepoMongoDB(db *mongo.Database) *GigRepoMongoDB {
	return &GigRepoMongoDB{gigsColl: db.Collection("gigs")}
}

type mongoGig struct {
	ID               string                      `bson:"_id"`
	SellerID         string                      `bson:"sellerId"`
	Username         string                      `bson:"username"`
	ProfilePicture   string                      `bson:"profilePicture"`
	Email            string                      `bson:"email"`
	Title            string                      `bson:"title"`
	Description      string                      `bson:"description"`
	Active           bool                        `bson:"active"`
	Categories       string                      `bson:"categories"`
	SubCategories    []string                    `bson:"subCategories"`
	Tags             []string                    `bson:"tags"`
	Price            float64                     `bson:"price"`
	CoverImage       string                      `bson:"coverImage"`
	ExpectedDelivery string                      `bson:"expectedDelivery"`
	BasicTitle       string                      `bson:"basicTitle"`
	BasicDescription string                      `bson:"basicDescription"`
	SortID           int64                       `bson:"sortId"`
	RatingsCount     int                         `bson:"ratingsCount"`
	RatingSum        int                         `bson:"ratingSum"`
	RatingCategories sharedMongo.MongoCategories `bson:"ratingCategories"`
	AppliedReviews   []string                    `bson:"appliedReviews"`
	CreatedAt        time.Time                   `bson:"createdAt"`
}

func toMongoGig(g *gigDomain.Gig) mongoGig {
	return mongoGig{
		ID:               g.ID,
		SellerID:         g.SellerID,
		Username:         g.Username,
		ProfilePicture:   g.ProfilePicture,
		Email:            g.Email,
		Title:            g.Title,
		Description:      g.Description,
		Active:           g.Active,
		Categories:       g.Categories,
		SubCategories:    g.SubCategories,
		Tags:             g.Tags,
		Price:            g.Price,
		CoverImage:       g.CoverImage,
		ExpectedDelivery: g.ExpectedDelivery,
		BasicTitle:       g.BasicTitle,
		BasicDescription: g.BasicDescription,
		SortID:           g.SortID,
		RatingsCount:     g.RatingsCount,
		RatingSum:        g.RatingSum,
		RatingCategories: sharedMongo.ToMongoCategories(g.Aggregate.Categories),
		AppliedReviews:   []string{},
		CreatedAt:        g.CreatedAt,
	}
}

func fromMongoGig(m mongoGig) *gigDomain.Gig {
	return &gigDomain.Gig{
		ID:               m.ID,
		SellerID:         m.SellerID,
		Username:         m.Username,
		ProfilePicture:   m.ProfilePicture,
		Email:            m.Email,
		Title:            m.Title,
		Description:      m.Description,
		Active:           m.Active,
		Categories:       m.Categories,
		SubCategories:    m.SubCategories,
		Tags:             m.Tags,
		Price:            m.Price,
		CoverImage:       m.CoverImage,
		ExpectedDelivery: m.ExpectedDelivery,
		BasicTitle:       m.BasicTitle,
		BasicDescription: m.BasicDescription,
		SortID:           m.SortID,
		CreatedAt:        m.CreatedAt,
		Aggregate: ratingDomain.Aggregate{
			RatingsCount: m.RatingsCount,
			RatingSum:    m.RatingSum,
			Categories:   m.RatingCategories.Categories(),
		},
	}
}

func (r *GigRepoMongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := r.gigsColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sellerId", Value: 1}}},
		{Keys: bson.D{{Key: "sortId", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return err
}

func (r *GigRepoMongoDB) Create(ctx context.Context, g *gigDomain.Gig) error {
	_, err := r.gigsColl.InsertOne(ctx, toMongoGig(g))
	return err
}

func (r *GigRepoMongoDB) GetByID(ctx context.Context, id string) (*gigDomain.Gig, error) {
	var m mongoGig
	err := r.gigsColl.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, gigDomain.ErrGigNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromMongoGig(m), nil
}

func (r *GigRepoMongoDB) Update(ctx context.Context, id string, u gigDomain.GigUpdate) (*gigDomain.Gig, error) {
	return r.findAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"title":            u.Title,
		"description":      u.Description,
		"categories":       u.Categories,
		"subCategories":    u.SubCategories,
		"tags":             u.Tags,
		"price":            u.Price,
		"coverImage":       u.CoverImage,
		"expectedDelivery": u.ExpectedDelivery,
		"basicTitle":       u.BasicTitle,
		"basicDescription": u.BasicDescription,
	}})
}

func (r *GigRepoMongoDB) SetActive(ctx context.Context, id string, active bool) (*gigDomain.Gig, error) {
	return r.findAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"active": active}})
}

func (r *GigRepoMongoDB) Delete(ctx context.Context, id string) error {
	res, err := r.gigsColl.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return gigDomain.ErrGigNotFound
	}
	return nil
}

// ApplyReview incrementa el agregado y registra la clave en la misma actualización.
// El filtro appliedReviews != key hace que una redistribución no vuelva a sumar.
func (r *GigRepoMongoDB) ApplyReview(ctx context.Context, id, reviewKey string, rating ratingDomain.Rating) (*gigDomain.Gig, error) {
	filter := sharedMongo.NotApplied(id, sharedMongo.AppliedReviewsField, reviewKey)
	g, err := r.findAndUpdate(ctx, filter, sharedMongo.ReviewIncrement(reviewKey, rating))
	if !errors.Is(err, gigDomain.ErrGigNotFound) {
		return g, err
	}
	return nil, sharedMongo.ResolveMiss(ctx, r.gigsColl, id, gigDomain.ErrGigNotFound, ratingDomain.ErrReviewAlreadyApplied)
}

func (r *GigRepoMongoDB) findAndUpdate(ctx context.Context, filter, update bson.M) (*gigDomain.Gig, error) {
	var m mongoGig
	err := r.gigsColl.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, gigDomain.ErrGigNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromMongoGig(m), nil
}

var _ gigDomain.GigRepository = (*GigRepoMongoDB)(nil)
