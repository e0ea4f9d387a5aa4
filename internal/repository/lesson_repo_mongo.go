package repository

import (
	"context"
	"errors"
	"regexp"

	"github.com/sakashimaa/lesson-booking/internal/domain"
	"github.com/sakashimaa/lesson-booking/pkg/db"
	"github.com/sakashimaa/lesson-booking/pkg/mylogger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const lessonsCollection = "lessons"

type mongoLessonRepo struct {
	conn   *db.Mongo
	tracer trace.Tracer
	logger *zap.Logger
}

func NewMongoLessonRepository(conn *db.Mongo, logger *zap.Logger) LessonRepository {
	return &mongoLessonRepo{
		conn:   conn,
		logger: logger,
		tracer: otel.Tracer("repository/lesson_mongo"),
	}
}

var lessonProjection = bson.M{"_id": 0}

func (r *mongoLessonRepo) collection() (*mongo.Collection, error) {
	database, err := r.conn.Database()
	if err != nil {
		return nil, unavailable(err)
	}
	return database.Collection(lessonsCollection), nil
}

func (r *mongoLessonRepo) find(ctx context.Context, filter any) ([]domain.Lesson, error) {
	coll, err := r.collection()
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(lessonProjection)

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable(err)
	}
	defer cursor.Close(ctx)

	lessons := make([]domain.Lesson, 0)
	if err := cursor.All(ctx, &lessons); err != nil {
		return nil, unavailable(err)
	}

	return lessons, nil
}

func (r *mongoLessonRepo) List(ctx context.Context) ([]domain.Lesson, error) {
	ctx, span := r.tracer.Start(ctx, "LessonRepository.List")
	defer span.End()

	lessons, err := r.find(ctx, bson.D{})
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to list lessons", zap.Error(err))
		return nil, err
	}

	return lessons, nil
}

func (r *mongoLessonRepo) Search(ctx context.Context, query string) ([]domain.Lesson, error) {
	ctx, span := r.tracer.Start(ctx, "LessonRepository.Search")
	defer span.End()

	span.SetAttributes(attribute.String("query", query))

	if query == "" {
		return r.find(ctx, bson.D{})
	}

	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	or := bson.A{
		bson.M{"topic": pattern},
		bson.M{"location": pattern},
	}
	if n, ok := searchNumber(query); ok {
		or = append(or, bson.M{"price": n}, bson.M{"space": n})
	}

	lessons, err := r.find(ctx, bson.M{"$or": or})
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to search lessons", zap.String("query", query), zap.Error(err))
		return nil, err
	}

	return lessons, nil
}

func (r *mongoLessonRepo) GetByID(ctx context.Context, id string) (*domain.Lesson, error) {
	ctx, span := r.tracer.Start(ctx, "LessonRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.String("id", id))

	coll, err := r.collection()
	if err != nil {
		return nil, err
	}

	var lesson domain.Lesson
	err = coll.FindOne(ctx, bson.M{"id": id}, options.FindOne().SetProjection(lessonProjection)).Decode(&lesson)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrLessonNotFound
	}
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to get lesson", zap.String("id", id), zap.Error(err))
		return nil, unavailable(err)
	}

	return &lesson, nil
}

func (r *mongoLessonRepo) Update(ctx context.Context, id string, patch *domain.LessonPatch) (*domain.Lesson, error) {
	ctx, span := r.tracer.Start(ctx, "LessonRepository.Update")
	defer span.End()

	span.SetAttributes(attribute.String("id", id))

	if patch.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	set := bson.M{}
	if patch.Topic != nil {
		set["topic"] = *patch.Topic
	}
	if patch.Location != nil {
		set["location"] = *patch.Location
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Space != nil {
		set["space"] = *patch.Space
	}

	coll, err := r.collection()
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(lessonProjection)

	var lesson domain.Lesson
	err = coll.FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": set}, opts).Decode(&lesson)
	if errors.Is(err, mongo.ErrNoDocuments) {
		mylogger.Warn(ctx, r.logger, "Lesson not found", zap.String("lesson_id", id))
		return nil, ErrLessonNotFound
	}
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to update lesson", zap.String("id", id), zap.Error(err))
		return nil, unavailable(err)
	}

	return &lesson, nil
}

func (r *mongoLessonRepo) ReserveSpace(ctx context.Context, id string, qty int) error {
	ctx, span := r.tracer.Start(ctx, "LessonRepository.ReserveSpace")
	defer span.End()

	span.SetAttributes(
		attribute.String("id", id),
		attribute.Int("quantity", qty),
	)

	coll, err := r.collection()
	if err != nil {
		return err
	}

	filter := bson.M{"id": id, "space": bson.M{"$gte": qty}}
	update := bson.M{"$inc": bson.M{"space": -qty}}

	res, err := coll.UpdateOne(ctx, filter, update)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(
			ctx,
			r.logger,
			"Error reserving space",
			zap.String("id", id),
			zap.Int("quantity", qty),
			zap.Error(err),
		)
		return unavailable(err)
	}

	if res.MatchedCount > 0 {
		return nil
	}

	n, err := coll.CountDocuments(ctx, bson.M{"id": id}, options.Count().SetLimit(1))
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return ErrLessonNotFound
	}

	return ErrInsufficientSpace
}

func (r *mongoLessonRepo) ReleaseSpace(ctx context.Context, id string, qty int) error {
	ctx, span := r.tracer.Start(ctx, "LessonRepository.ReleaseSpace")
	defer span.End()

	span.SetAttributes(
		attribute.String("id", id),
		attribute.Int("quantity", qty),
	)

	coll, err := r.collection()
	if err != nil {
		return err
	}

	res, err := coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$inc": bson.M{"space": qty}})
	if err != nil {
		span.RecordError(err)
		mylogger.Warn(ctx, r.logger, "Failed to release space", zap.String("id", id), zap.Error(err))
		return unavailable(err)
	}

	if res.MatchedCount == 0 {
		mylogger.Warn(ctx, r.logger, "Lesson not found", zap.String("lesson_id", id))
		return ErrLessonNotFound
	}

	return nil
}

// Seed creates the unique index on id and inserts lessons only when the
// collection is empty.
func (r *mongoLessonRepo) Seed(ctx context.Context, lessons []domain.Lesson) (int, error) {
	ctx, span := r.tracer.Start(ctx, "LessonRepository.Seed")
	defer span.End()

	coll, err := r.collection()
	if err != nil {
		return 0, err
	}

	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return 0, unavailable(err)
	}

	count, err := coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, unavailable(err)
	}
	if count > 0 || len(lessons) == 0 {
		mylogger.Info(ctx, r.logger, "Lessons already seeded", zap.Int64("count", count))
		return 0, nil
	}

	docs := make([]any, 0, len(lessons))
	for _, l := range lessons {
		docs = append(docs, l)
	}

	res, err := coll.InsertMany(ctx, docs)
	if err != nil {
		span.RecordError(err)
		return 0, unavailable(err)
	}

	return len(res.InsertedIDs), nil
}

func (r *mongoLessonRepo) Ping(ctx context.Context) error {
	if err := r.conn.Ping(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}
