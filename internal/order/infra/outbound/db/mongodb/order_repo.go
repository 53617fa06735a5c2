package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	orderDomain "github.com/davicafu/jobberlab/internal/order/domain"
)

// OrderRepoMongoDB implementa orderDomain.OrderRepository sobre la colección "orders".
type OrderRepoMongoDB struct {
	ordersColl *mongo.Collection
}

func NewOrderRepoMongoDB(db *mongo.Database) *OrderRepoMongoDB {
	return &OrderRepoMongoDB{ordersColl: db.Collection("orders")}
}

// EnsureIndexes crea el índice único de orderId y los de consulta por vendedor/comprador.
func (r *OrderRepoMongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := r.ordersColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "sellerId", Value: 1}}},
		{Keys: bson.D{{Key: "buyerId", Value: 1}}},
	})
	return err
}

func (r *OrderRepoMongoDB) Create(ctx context.Context, o *orderDomain.Order) error {
	_, err := r.ordersColl.InsertOne(ctx, toMongoOrder(o))
	if mongo.IsDuplicateKeyError(err) {
		return orderDomain.ErrOrderAlreadyExists
	}
	return err
}

func (r *OrderRepoMongoDB) GetByOrderID(ctx context.Context, orderID string) (*orderDomain.Order, error) {
	var m mongoOrder
	err := r.ordersColl.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, orderDomain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromMongoOrder(m), nil
}

func (r *OrderRepoMongoDB) ListBySellerID(ctx context.Context, sellerID string) ([]*orderDomain.Order, error) {
	return r.find(ctx, bson.M{"sellerId": sellerID})
}

func (r *OrderRepoMongoDB) ListByBuyerID(ctx context.Context, buyerID string) ([]*orderDomain.Order, error) {
	return r.find(ctx, bson.M{"buyerId": buyerID})
}

func (r *OrderRepoMongoDB) find(ctx context.Context, filter bson.M) ([]*orderDomain.Order, error) {
	cursor, err := r.ordersColl.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "dateOrdered", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []mongoOrder
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	orders := make([]*orderDomain.Order, 0, len(docs))
	for _, d := range docs {
		orders = append(orders, fromMongoOrder(d))
	}
	return orders, nil
}

// ApplyTransition ejecuta la transición en un único findOneAndUpdate con filtro de estado,
// de modo que dos escritores concurrentes no pueden saltarse el estado terminal.
func (r *OrderRepoMongoDB) ApplyTransition(ctx context.Context, orderID string, t orderDomain.Transition) (*orderDomain.Order, error) {
	filter := bson.M{
		"orderId": orderID,
		"status": bson.M{"$nin": bson.A{
			string(orderDomain.StatusCompleted),
			string(orderDomain.StatusCancelled),
		}},
	}

	var m mongoOrder
	err := r.ordersColl.FindOneAndUpdate(ctx, filter, transitionPipeline(t),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, r.missReason(ctx, orderID)
	}
	if err != nil {
		return nil, err
	}
	return fromMongoOrder(m), nil
}

// missReason distingue un pedido inexistente de uno ya terminado.
func (r *OrderRepoMongoDB) missReason(ctx context.Context, orderID string) error {
	n, err := r.ordersColl.CountDocuments(ctx, bson.M{"orderId": orderID})
	if err != nil {
		return err
	}
	if n == 0 {
		return orderDomain.ErrOrderNotFound
	}
	return orderDomain.ErrInvalidTransition
}

// transitionPipeline traduce la transición a un update con pipeline. Los valores van en
// $literal para que un string que empiece por "$" no se interprete como ruta.
func transitionPipeline(t orderDomain.Transition) mongo.Pipeline {
	set := bson.D{}
	add := func(field string, v interface{}) {
		set = append(set, bson.E{Key: field, Value: bson.M{"$literal": v}})
	}

	if t.Status != "" {
		add("status", string(t.Status))
	}
	if t.Cancelled {
		add("cancelled", true)
	}
	if t.Delivered {
		add("delivered", true)
	}
	if t.Approved {
		add("approved", true)
	}
	if t.ApprovedAt != nil {
		add("approvedAt", *t.ApprovedAt)
	}
	if t.Extension != nil {
		add("requestExtension", toMongoExtension(*t.Extension))
	}
	if t.OfferUpdate != nil {
		add("offer.deliveryInDays", t.OfferUpdate.DeliveryInDays)
		add("offer.newDeliveryDate", t.OfferUpdate.NewDeliveryDate)
		add("offer.reason", t.OfferUpdate.Reason)
	}
	if t.DeliveredWork != nil {
		set = append(set, bson.E{Key: "deliveredWork", Value: bson.M{"$concatArrays": bson.A{
			bson.M{"$ifNull": bson.A{"$deliveredWork", bson.A{}}},
			bson.A{bson.M{"$literal": toMongoWork(*t.DeliveredWork)}},
		}}})
	}
	if t.EventKey != "" {
		// write-once: se conserva el sello previo si existe
		set = append(set, bson.E{Key: "events." + t.EventKey, Value: bson.M{"$ifNull": bson.A{
			"$events." + t.EventKey,
			bson.M{"$literal": t.EventAt},
		}}})
	}
	if len(set) == 0 {
		// transición vacía: no cambia nada pero sigue comprobando el estado
		set = bson.D{{Key: "orderId", Value: "$orderId"}}
	}
	return mongo.Pipeline{{{Key: "$set", Value: set}}}
}

// SetReview sobrescribe la review completa sin filtro de estado: las reviews llegan tras completar.
func (r *OrderRepoMongoDB) SetReview(ctx context.Context, orderID, reviewType string, rv orderDomain.OrderReview) (*orderDomain.Order, error) {
	field, eventKey := "buyerReview", orderDomain.EventBuyerReview
	if reviewType == orderDomain.ReviewTypeSeller {
		field, eventKey = "sellerReview", orderDomain.EventSellerReview
	}
	update := bson.M{"$set": bson.M{
		field:               toMongoReview(&rv),
		"events." + eventKey: rv.Created,
	}}

	var m mongoOrder
	err := r.ordersColl.FindOneAndUpdate(ctx, bson.M{"orderId": orderID}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, orderDomain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromMongoOrder(m), nil
}
