package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	orderDomain "github.com/davicafu/jobberlab/internal/order/domain"
)

// NotificationRepoMongoDB guarda las notificaciones de pedidos en "order_notifications".
type NotificationRepoMongoDB struct {
	coll *mongo.Collection
}

func NewNotificationRepoMongoDB(db *mongo.Database) *NotificationRepoMongoDB {
	return &NotificationRepoMongoDB{coll: db.Collection("order_notifications")}
}

type mongoNotification struct {
	ID               string    `bson:"_id"`
	UserTo           string    `bson:"userTo"`
	SenderUsername   string    `bson:"senderUsername"`
	SenderPicture    string    `bson:"senderPicture"`
	ReceiverUsername string    `bson:"receiverUsername"`
	ReceiverPicture  string    `bson:"receiverPicture"`
	Message          string    `bson:"message"`
	OrderID          string    `bson:"orderId"`
	IsRead           bool      `bson:"isRead"`
	CreatedAt        time.Time `bson:"createdAt"`
}

func (r *NotificationRepoMongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userTo", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}

func (r *NotificationRepoMongoDB) Create(ctx context.Context, n *orderDomain.Notification) error {
	_, err := r.coll.InsertOne(ctx, mongoNotification(*n))
	return err
}

func (r *NotificationRepoMongoDB) ListByUserTo(ctx context.Context, userTo string) ([]*orderDomain.Notification, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"userTo": userTo}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []mongoNotification
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*orderDomain.Notification, 0, len(docs))
	for _, d := range docs {
		n := orderDomain.Notification(d)
		out = append(out, &n)
	}
	return out, nil
}

// MarkAsRead solo cambia isRead; el resto de la notificación es inmutable.
func (r *NotificationRepoMongoDB) MarkAsRead(ctx context.Context, id string) (*orderDomain.Notification, error) {
	var d mongoNotification
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"isRead": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, orderDomain.ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}
	n := orderDomain.Notification(d)
	return &n, nil
}
