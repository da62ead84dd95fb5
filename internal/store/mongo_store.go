// internal/store/mongo_store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"catalog-service/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerID = "catalog-service/store"

const (
	MoviesCollection  = "movies"
	SeriesCollection  = "series"
	ReviewsCollection = "reviews"
)

// imdbCollation делает сравнение imdbId регистронезависимым.
// Та же коллация задана у уникального индекса, иначе индекс не используется.
var imdbCollation = &options.Collation{Locale: "en", Strength: 2}

func startSpan(ctx context.Context, name, collection string) (context.Context, trace.Span) {
	return otel.Tracer(tracerID).Start(ctx, name, trace.WithAttributes(attribute.String("db.collection", collection)))
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// MongoOwnerStore реализует OwnerStore для MongoDB.
type MongoOwnerStore[T domain.Owner] struct {
	col       *mongo.Collection
	newRecord func() T
	logger    *slog.Logger
}

// NewMongoOwnerStore создает хранилище поверх коллекции collection.
func NewMongoOwnerStore[T domain.Owner](db *mongo.Database, collection string, newRecord func() T, logger *slog.Logger) (*MongoOwnerStore[T], error) {
	if db == nil {
		return nil, errors.New("mongo database cannot be nil")
	}
	return &MongoOwnerStore[T]{col: db.Collection(collection), newRecord: newRecord, logger: logger}, nil
}

func NewMongoMovieStore(db *mongo.Database, logger *slog.Logger) (*MongoOwnerStore[*domain.Movie], error) {
	return NewMongoOwnerStore(db, MoviesCollection, func() *domain.Movie { return &domain.Movie{} }, logger)
}

func NewMongoSeriesStore(db *mongo.Database, logger *slog.Logger) (*MongoOwnerStore[*domain.Series], error) {
	return NewMongoOwnerStore(db, SeriesCollection, func() *domain.Series { return &domain.Series{} }, logger)
}

// EnsureIndexes создает уникальный регистронезависимый индекс по imdbId.
func (s *MongoOwnerStore[T]) EnsureIndexes(ctx context.Context) error {
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "imdbId", Value: 1}},
		Options: options.Index().SetUnique(true).SetCollation(imdbCollation).SetName("imdbId_ci_unique"),
	}
	if _, err := s.col.Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("failed to create imdbId index on %s: %w", s.col.Name(), err)
	}
	s.logger.InfoContext(ctx, "MongoDB imdbId index ensured", slog.String("collection", s.col.Name()))
	return nil
}

func (s *MongoOwnerStore[T]) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (T, error) {
	rec := s.newRecord()
	err := s.col.FindOne(ctx, filter, opts...).Decode(rec)
	if err != nil {
		var zero T
		if errors.Is(err, mongo.ErrNoDocuments) {
			return zero, ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to find document in MongoDB", slog.String("collection", s.col.Name()), slog.String("error", err.Error()))
		return zero, fmt.Errorf("failed to find %s document: %w", s.col.Name(), err)
	}
	return rec, nil
}

func (s *MongoOwnerStore[T]) FindByID(ctx context.Context, id primitive.ObjectID) (rec T, err error) {
	ctx, span := startSpan(ctx, "MongoOwnerStore/FindByID", s.col.Name())
	defer func() { endSpan(span, err) }()
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoOwnerStore[T]) FindByImdbID(ctx context.Context, imdbID string) (rec T, err error) {
	ctx, span := startSpan(ctx, "MongoOwnerStore/FindByImdbID", s.col.Name())
	defer func() { endSpan(span, err) }()
	return s.findOne(ctx, bson.M{"imdbId": imdbID}, options.FindOne().SetCollation(imdbCollation))
}

func (s *MongoOwnerStore[T]) ExistsByImdbID(ctx context.Context, imdbID string) (exists bool, err error) {
	ctx, span := startSpan(ctx, "MongoOwnerStore/ExistsByImdbID", s.col.Name())
	defer func() { endSpan(span, err) }()

	n, err := s.col.CountDocuments(ctx, bson.M{"imdbId": imdbID}, options.Count().SetCollation(imdbCollation).SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to count %s by imdbId: %w", s.col.Name(), err)
	}
	return n > 0, nil
}

func (s *MongoOwnerStore[T]) FindPage(ctx context.Context, params ListParams) (out []T, total int64, err error) {
	ctx, span := startSpan(ctx, "MongoOwnerStore/FindPage", s.col.Name())
	defer func() { endSpan(span, err) }()

	filter := bson.M{}
	if params.Title != "" {
		filter["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(params.Title), Options: "i"}
	}

	total, err = s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", s.col.Name(), err)
	}
	if total == 0 {
		return []T{}, 0, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(params.Page * params.Size)).
		SetLimit(int64(params.Size))
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list %s: %w", s.col.Name(), err)
	}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s page: %w", s.col.Name(), err)
	}
	if out == nil {
		out = []T{}
	}
	return out, total, nil
}

func (s *MongoOwnerStore[T]) Insert(ctx context.Context, record T) (err error) {
	ctx, span := startSpan(ctx, "MongoOwnerStore/Insert", s.col.Name())
	defer func() { endSpan(span, err) }()

	if record.GetID().IsZero() {
		record.SetID(primitive.NewObjectID())
	}
	if record.GetReviewIDs() == nil {
		record.SetReviewIDs([]primitive.ObjectID{})
	}
	if _, err := s.col.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			s.logger.WarnContext(ctx, "Duplicate imdbId rejected by MongoDB index", slog.String("collection", s.col.Name()), slog.String("imdbId", record.GetImdbID()))
			return ErrDuplicateImdbID
		}
		return fmt.Errorf("failed to insert into %s: %w", s.col.Name(), err)
	}
	return nil
}

func (s *MongoOwnerStore[T]) Save(ctx context.Context, record T) (err error) {
	ctx, span := startSpan(ctx, "MongoOwnerStore/Save", s.col.Name())
	defer func() { endSpan(span, err) }()

	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": record.GetID()}, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateImdbID
		}
		return fmt.Errorf("failed to replace %s document: %w", s.col.Name(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoOwnerStore[T]) Delete(ctx context.Context, id primitive.ObjectID) (err error) {
	ctx, span := startSpan(ctx, "MongoOwnerStore/Delete", s.col.Name())
	defer func() { endSpan(span, err) }()

	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete %s document: %w", s.col.Name(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoOwnerStore[T]) PushReview(ctx context.Context, imdbID string, reviewID primitive.ObjectID) (err error) {
	ctx, span := startSpan(ctx, "MongoOwnerStore/PushReview", s.col.Name())
	defer func() { endSpan(span, err) }()

	res, err := s.col.UpdateOne(ctx,
		bson.M{"imdbId": imdbID},
		bson.M{"$push": bson.M{"reviewIds": reviewID}},
		options.Update().SetCollation(imdbCollation),
	)
	if err != nil {
		return fmt.Errorf("failed to push review into %s: %w", s.col.Name(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoOwnerStore[T]) PullReview(ctx context.Context, reviewID primitive.ObjectID) (modified int64, err error) {
	ctx, span := startSpan(ctx, "MongoOwnerStore/PullReview", s.col.Name())
	defer func() { endSpan(span, err) }()

	res, err := s.col.UpdateMany(ctx,
		bson.M{"reviewIds": reviewID},
		bson.M{"$pull": bson.M{"reviewIds": reviewID}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to pull review from %s: %w", s.col.Name(), err)
	}
	return res.ModifiedCount, nil
}

// MongoReviewStore реализует ReviewStore для MongoDB.
type MongoReviewStore struct {
	col    *mongo.Collection
	logger *slog.Logger
}

func NewMongoReviewStore(db *mongo.Database, logger *slog.Logger) (*MongoReviewStore, error) {
	if db == nil {
		return nil, errors.New("mongo database cannot be nil")
	}
	return &MongoReviewStore{col: db.Collection(ReviewsCollection), logger: logger}, nil
}

func (s *MongoReviewStore) FindByID(ctx context.Context, id primitive.ObjectID) (review *domain.Review, err error) {
	ctx, span := startSpan(ctx, "MongoReviewStore/FindByID", ReviewsCollection)
	defer func() { endSpan(span, err) }()

	review = &domain.Review{}
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(review); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	return review, nil
}

func (s *MongoReviewStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (out []*domain.Review, err error) {
	ctx, span := startSpan(ctx, "MongoReviewStore/FindByIDs", ReviewsCollection)
	defer func() { endSpan(span, err) }()

	if len(ids) == 0 {
		return []*domain.Review{}, nil
	}
	cursor, err := s.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find reviews by ids: %w", err)
	}
	var reviews []*domain.Review
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}
	found := make(map[primitive.ObjectID]*domain.Review, len(reviews))
	for _, r := range reviews {
		found[r.ID] = r
	}
	return orderByIDs(ids, found), nil
}

func (s *MongoReviewStore) FindAll(ctx context.Context) (out []*domain.Review, err error) {
	ctx, span := startSpan(ctx, "MongoReviewStore/FindAll", ReviewsCollection)
	defer func() { endSpan(span, err) }()

	cursor, err := s.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}
	if out == nil {
		out = []*domain.Review{}
	}
	return out, nil
}

func (s *MongoReviewStore) Insert(ctx context.Context, review *domain.Review) (err error) {
	ctx, span := startSpan(ctx, "MongoReviewStore/Insert", ReviewsCollection)
	defer func() { endSpan(span, err) }()

	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	if _, err := s.col.InsertOne(ctx, review); err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

func (s *MongoReviewStore) Save(ctx context.Context, review *domain.Review) (err error) {
	ctx, span := startSpan(ctx, "MongoReviewStore/Save", ReviewsCollection)
	defer func() { endSpan(span, err) }()

	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": review.ID}, review)
	if err != nil {
		return fmt.Errorf("failed to replace review: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoReviewStore) Delete(ctx context.Context, id primitive.ObjectID) (err error) {
	ctx, span := startSpan(ctx, "MongoReviewStore/Delete", ReviewsCollection)
	defer func() { endSpan(span, err) }()

	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoTransactor выполняет fn в транзакции MongoDB.
// Транзакции требуют replica set, поэтому включаются через store.transactions.
type MongoTransactor struct {
	client *mongo.Client
}

func NewMongoTransactor(client *mongo.Client) *MongoTransactor {
	return &MongoTransactor{client: client}
}

func (t *MongoTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start mongo session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
