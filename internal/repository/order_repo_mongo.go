package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sakashimaa/lesson-booking/internal/domain"
	"github.com/sakashimaa/lesson-booking/pkg/db"
	"github.com/sakashimaa/lesson-booking/pkg/mylogger"
	outboxDomain "github.com/sakashimaa/lesson-booking/pkg/outbox/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const ordersCollection = "orders"

type orderDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	domain.Order `bson:",inline"`
}

func (d *orderDocument) toDomain() domain.Order {
	o := d.Order
	o.ID = d.ID.Hex()
	return o
}

type mongoOrderRepo struct {
	conn   *db.Mongo
	tracer trace.Tracer
	logger *zap.Logger
}

func NewMongoOrderRepository(conn *db.Mongo, logger *zap.Logger) OrderRepository {
	return &mongoOrderRepo{
		conn:   conn,
		logger: logger,
		tracer: otel.Tracer("repository/order_mongo"),
	}
}

func (r *mongoOrderRepo) collection() (*mongo.Collection, error) {
	database, err := r.conn.Database()
	if err != nil {
		return nil, unavailable(err)
	}
	return database.Collection(ordersCollection), nil
}

func (r *mongoOrderRepo) Create(ctx context.Context, order *domain.Order) (string, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Create")
	defer span.End()

	coll, err := r.collection()
	if err != nil {
		return "", err
	}

	res, err := coll.InsertOne(ctx, orderDocument{Order: *order})
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to insert order", zap.Error(err))
		return "", unavailable(err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", unavailable(fmt.Errorf("unexpected inserted id type %T", res.InsertedID))
	}

	order.ID = oid.Hex()
	span.SetAttributes(attribute.String("order_id", order.ID))

	return order.ID, nil
}

func (r *mongoOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.String("id", id))

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrOrderNotFound
	}

	coll, err := r.collection()
	if err != nil {
		return nil, err
	}

	var doc orderDocument
	err = coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, unavailable(err)
	}

	o := doc.toDomain()
	return &o, nil
}

func (r *mongoOrderRepo) ListUnpublished(ctx context.Context, limit int) ([]domain.Order, error) {
	coll, err := r.collection()
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"publishedAt": nil,
		"attempts":    bson.M{"$lt": outboxDomain.MaxAttempts},
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable(err)
	}
	defer cursor.Close(ctx)

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, unavailable(err)
	}

	orders := make([]domain.Order, 0, len(docs))
	for i := range docs {
		orders = append(orders, docs[i].toDomain())
	}

	return orders, nil
}

func (r *mongoOrderRepo) updateByHex(ctx context.Context, id string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrOrderNotFound
	}

	coll, err := r.collection()
	if err != nil {
		return err
	}

	res, err := coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return unavailable(err)
	}
	if res.MatchedCount == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *mongoOrderRepo) MarkPublished(ctx context.Context, id string) error {
	return r.updateByHex(ctx, id, bson.M{
		"$set": bson.M{"publishedAt": time.Now().UTC()},
	})
}

func (r *mongoOrderRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.updateByHex(ctx, id, bson.M{
		"$set": bson.M{"lastError": reason},
		"$inc": bson.M{"attempts": 1},
	})
}
