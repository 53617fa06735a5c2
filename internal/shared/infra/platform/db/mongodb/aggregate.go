package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	ratingDomain "github.com/davicafu/jobberlab/internal/rating/domain"
)

// AppliedReviewsField guarda las claves de review ya sumadas a un agregado.
const AppliedReviewsField = "appliedReviews"

// MongoBucket y MongoCategories guardan el histograma con las claves one..five.
type MongoBucket struct {
	Value int `bson:"value"`
	Count int `bson:"count"`
}

type MongoCategories struct {
	One   MongoBucket `bson:"one"`
	Two   MongoBucket `bson:"two"`
	Three MongoBucket `bson:"three"`
	Four  MongoBucket `bson:"four"`
	Five  MongoBucket `bson:"five"`
}

func ToMongoCategories(c ratingDomain.Categories) MongoCategories {
	return MongoCategories{
		One:   MongoBucket(c[0]),
		Two:   MongoBucket(c[1]),
		Three: MongoBucket(c[2]),
		Four:  MongoBucket(c[3]),
		Five:  MongoBucket(c[4]),
	}
}

func (m MongoCategories) Categories() ratingDomain.Categories {
	return ratingDomain.Categories{
		ratingDomain.Bucket(m.One),
		ratingDomain.Bucket(m.Two),
		ratingDomain.Bucket(m.Three),
		ratingDomain.Bucket(m.Four),
		ratingDomain.Bucket(m.Five),
	}
}

// NotApplied filtra el documento id solo si key no está aún en field.
func NotApplied(id, field, key string) bson.M {
	return bson.M{"_id": id, field: bson.M{"$ne": key}}
}

// ReviewIncrement es el update atómico de un agregado de valoraciones: incrementa contador,
// suma y bucket, y registra la clave de la review en la misma operación.
func ReviewIncrement(reviewKey string, rating ratingDomain.Rating) bson.M {
	bucket := "ratingCategories." + rating.BucketKey()
	return bson.M{
		"$inc": bson.M{
			"ratingsCount":    1,
			"ratingSum":       int(rating),
			bucket + ".value": int(rating),
			bucket + ".count": 1,
		},
		"$push": bson.M{AppliedReviewsField: reviewKey},
	}
}

// ResolveMiss decide por qué un update guardado por NotApplied no encontró documento:
// si el documento existe la clave ya estaba aplicada.
func ResolveMiss(ctx context.Context, coll *mongo.Collection, id string, notFound, alreadyApplied error) error {
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n > 0 {
		return alreadyApplied
	}
	return notFound
}
