// internal/store/postgres_store.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"catalog-service/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq" // Для обработки ошибок PostgreSQL и работы с массивами TEXT[]
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Документы хранятся целиком в JSONB, imdb_id и title вынесены в колонки
// для уникального индекса и поиска.
const ownerSchema = `
CREATE TABLE IF NOT EXISTS %[1]s (
    id      TEXT PRIMARY KEY,
    imdb_id TEXT NOT NULL,
    title   TEXT NOT NULL,
    doc     JSONB NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS %[1]s_imdb_id_lower_key ON %[1]s (lower(imdb_id));`

const reviewSchema = `
CREATE TABLE IF NOT EXISTS reviews (
    id         TEXT PRIMARY KEY,
    doc        JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);`

type txKey struct{}

// pgExecutor - общее подмножество *sqlx.DB и *sqlx.Tx.
type pgExecutor interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// executor возвращает транзакцию из контекста, если она открыта PostgresTransactor.
func executor(ctx context.Context, db *sqlx.DB) pgExecutor {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// PostgresOwnerStore реализует OwnerStore для PostgreSQL.
type PostgresOwnerStore[T domain.Owner] struct {
	db        *sqlx.DB
	table     string
	newRecord func() T
	logger    *slog.Logger
}

// NewPostgresOwnerStore создает новый экземпляр PostgresOwnerStore.
func NewPostgresOwnerStore[T domain.Owner](db *sqlx.DB, table string, newRecord func() T, logger *slog.Logger) (*PostgresOwnerStore[T], error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil")
	}
	return &PostgresOwnerStore[T]{db: db, table: table, newRecord: newRecord, logger: logger}, nil
}

func NewPostgresMovieStore(db *sqlx.DB, logger *slog.Logger) (*PostgresOwnerStore[*domain.Movie], error) {
	return NewPostgresOwnerStore(db, MoviesCollection, func() *domain.Movie { return &domain.Movie{} }, logger)
}

func NewPostgresSeriesStore(db *sqlx.DB, logger *slog.Logger) (*PostgresOwnerStore[*domain.Series], error) {
	return NewPostgresOwnerStore(db, SeriesCollection, func() *domain.Series { return &domain.Series{} }, logger)
}

// EnsureSchema создает таблицу и уникальный индекс по lower(imdb_id).
func (s *PostgresOwnerStore[T]) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(ownerSchema, s.table)); err != nil {
		return fmt.Errorf("failed to ensure %s schema: %w", s.table, err)
	}
	return nil
}

func (s *PostgresOwnerStore[T]) decode(doc []byte) (T, error) {
	rec := s.newRecord()
	if err := json.Unmarshal(doc, rec); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to decode %s document: %w", s.table, err)
	}
	return rec, nil
}

func (s *PostgresOwnerStore[T]) getOne(ctx context.Context, query string, arg any) (T, error) {
	var doc []byte
	if err := executor(ctx, s.db).GetContext(ctx, &doc, query, arg); err != nil {
		var zero T
		if errors.Is(err, sql.ErrNoRows) {
			return zero, ErrNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get document from DB", slog.String("table", s.table), slog.String("error", err.Error()))
		return zero, fmt.Errorf("failed to get %s document: %w", s.table, err)
	}
	return s.decode(doc)
}

func (s *PostgresOwnerStore[T]) FindByID(ctx context.Context, id primitive.ObjectID) (rec T, err error) {
	ctx, span := startSpan(ctx, "PostgresOwnerStore/FindByID", s.table)
	defer func() { endSpan(span, err) }()
	return s.getOne(ctx, fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, s.table), id.Hex())
}

func (s *PostgresOwnerStore[T]) FindByImdbID(ctx context.Context, imdbID string) (rec T, err error) {
	ctx, span := startSpan(ctx, "PostgresOwnerStore/FindByImdbID", s.table)
	defer func() { endSpan(span, err) }()
	return s.getOne(ctx, fmt.Sprintf(`SELECT doc FROM %s WHERE lower(imdb_id) = lower($1)`, s.table), imdbID)
}

func (s *PostgresOwnerStore[T]) ExistsByImdbID(ctx context.Context, imdbID string) (exists bool, err error) {
	ctx, span := startSpan(ctx, "PostgresOwnerStore/ExistsByImdbID", s.table)
	defer func() { endSpan(span, err) }()

	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE lower(imdb_id) = lower($1))`, s.table)
	if err := executor(ctx, s.db).GetContext(ctx, &exists, query, imdbID); err != nil {
		return false, fmt.Errorf("failed to check %s imdbId: %w", s.table, err)
	}
	return exists, nil
}

func (s *PostgresOwnerStore[T]) FindPage(ctx context.Context, params ListParams) (out []T, total int64, err error) {
	ctx, span := startSpan(ctx, "PostgresOwnerStore/FindPage", s.table)
	defer func() { endSpan(span, err) }()

	// Регистронезависимый поиск подстроки в названии, пустой title - без фильтра
	where := `($1 = '' OR strpos(lower(title), lower($1)) > 0)`
	exec := executor(ctx, s.db)

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, s.table, where)
	s.logger.DebugContext(ctx, "Executing owner count query", slog.String("table", s.table), slog.String("title", params.Title))
	if err := exec.GetContext(ctx, &total, countQuery, params.Title); err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", s.table, err)
	}
	if total == 0 {
		return []T{}, 0, nil
	}

	selectQuery := fmt.Sprintf(`SELECT doc FROM %s WHERE %s ORDER BY id LIMIT $2 OFFSET $3`, s.table, where)
	var docs [][]byte
	if err := exec.SelectContext(ctx, &docs, selectQuery, params.Title, params.Size, params.Page*params.Size); err != nil {
		return nil, 0, fmt.Errorf("failed to list %s: %w", s.table, err)
	}

	out = make([]T, 0, len(docs))
	for _, doc := range docs {
		rec, err := s.decode(doc)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, nil
}

func (s *PostgresOwnerStore[T]) Insert(ctx context.Context, record T) (err error) {
	ctx, span := startSpan(ctx, "PostgresOwnerStore/Insert", s.table)
	defer func() { endSpan(span, err) }()

	if record.GetID().IsZero() {
		record.SetID(primitive.NewObjectID())
	}
	if record.GetReviewIDs() == nil {
		record.SetReviewIDs([]primitive.ObjectID{})
	}
	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode %s document: %w", s.table, err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, imdb_id, title, doc) VALUES ($1, $2, $3, $4)`, s.table)
	_, err = executor(ctx, s.db).ExecContext(ctx, query, record.GetID().Hex(), record.GetImdbID(), record.GetTitle(), string(doc))
	if err != nil {
		if isUniqueViolation(err) {
			s.logger.WarnContext(ctx, "Owner already exists (unique constraint violation in DB)", slog.String("table", s.table), slog.String("imdbId", record.GetImdbID()))
			return ErrDuplicateImdbID
		}
		s.logger.ErrorContext(ctx, "Failed to insert owner in DB", slog.String("table", s.table), slog.String("error", err.Error()))
		return fmt.Errorf("failed to insert into %s: %w", s.table, err)
	}
	return nil
}

func (s *PostgresOwnerStore[T]) Save(ctx context.Context, record T) (err error) {
	ctx, span := startSpan(ctx, "PostgresOwnerStore/Save", s.table)
	defer func() { endSpan(span, err) }()

	if record.GetReviewIDs() == nil {
		record.SetReviewIDs([]primitive.ObjectID{})
	}
	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode %s document: %w", s.table, err)
	}

	query := fmt.Sprintf(`UPDATE %s SET imdb_id = $2, title = $3, doc = $4 WHERE id = $1`, s.table)
	result, err := executor(ctx, s.db).ExecContext(ctx, query, record.GetID().Hex(), record.GetImdbID(), record.GetTitle(), string(doc))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateImdbID
		}
		return fmt.Errorf("failed to update %s: %w", s.table, err)
	}
	return requireAffected(result)
}

func (s *PostgresOwnerStore[T]) Delete(ctx context.Context, id primitive.ObjectID) (err error) {
	ctx, span := startSpan(ctx, "PostgresOwnerStore/Delete", s.table)
	defer func() { endSpan(span, err) }()

	result, err := executor(ctx, s.db).ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table), id.Hex())
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", s.table, err)
	}
	return requireAffected(result)
}

func (s *PostgresOwnerStore[T]) PushReview(ctx context.Context, imdbID string, reviewID primitive.ObjectID) (err error) {
	ctx, span := startSpan(ctx, "PostgresOwnerStore/PushReview", s.table)
	defer func() { endSpan(span, err) }()

	query := fmt.Sprintf(`UPDATE %s SET doc = jsonb_set(doc, '{reviewIds}', COALESCE(doc->'reviewIds', '[]'::jsonb) || to_jsonb($2::text)) WHERE lower(imdb_id) = lower($1)`, s.table)
	result, err := executor(ctx, s.db).ExecContext(ctx, query, imdbID, reviewID.Hex())
	if err != nil {
		return fmt.Errorf("failed to push review into %s: %w", s.table, err)
	}
	return requireAffected(result)
}

func (s *PostgresOwnerStore[T]) PullReview(ctx context.Context, reviewID primitive.ObjectID) (modified int64, err error) {
	ctx, span := startSpan(ctx, "PostgresOwnerStore/PullReview", s.table)
	defer func() { endSpan(span, err) }()

	query := fmt.Sprintf(`UPDATE %s SET doc = jsonb_set(doc, '{reviewIds}', (doc->'reviewIds') - $1::text) WHERE doc->'reviewIds' @> jsonb_build_array($1::text)`, s.table)
	result, err := executor(ctx, s.db).ExecContext(ctx, query, reviewID.Hex())
	if err != nil {
		return 0, fmt.Errorf("failed to pull review from %s: %w", s.table, err)
	}
	modified, _ = result.RowsAffected()
	return modified, nil
}

func requireAffected(result sql.Result) error {
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresReviewStore реализует ReviewStore для PostgreSQL.
type PostgresReviewStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresReviewStore создает новый экземпляр PostgresReviewStore.
func NewPostgresReviewStore(db *sqlx.DB, logger *slog.Logger) (*PostgresReviewStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil")
	}
	return &PostgresReviewStore{db: db, logger: logger}, nil
}

func (s *PostgresReviewStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, reviewSchema); err != nil {
		return fmt.Errorf("failed to ensure reviews schema: %w", err)
	}
	return nil
}

func decodeReviews(docs [][]byte) ([]*domain.Review, error) {
	out := make([]*domain.Review, 0, len(docs))
	for _, doc := range docs {
		var r domain.Review
		if err := json.Unmarshal(doc, &r); err != nil {
			return nil, fmt.Errorf("failed to decode review document: %w", err)
		}
		out = append(out, &r)
	}
	return out, nil
}

func (s *PostgresReviewStore) FindByID(ctx context.Context, id primitive.ObjectID) (review *domain.Review, err error) {
	ctx, span := startSpan(ctx, "PostgresReviewStore/FindByID", ReviewsCollection)
	defer func() { endSpan(span, err) }()

	var doc []byte
	if err := executor(ctx, s.db).GetContext(ctx, &doc, `SELECT doc FROM reviews WHERE id = $1`, id.Hex()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	review = &domain.Review{}
	if err := json.Unmarshal(doc, review); err != nil {
		return nil, fmt.Errorf("failed to decode review document: %w", err)
	}
	return review, nil
}

func (s *PostgresReviewStore) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (out []*domain.Review, err error) {
	ctx, span := startSpan(ctx, "PostgresReviewStore/FindByIDs", ReviewsCollection)
	defer func() { endSpan(span, err) }()

	if len(ids) == 0 {
		return []*domain.Review{}, nil
	}
	hexIDs := make([]string, len(ids))
	for i, id := range ids {
		hexIDs[i] = id.Hex()
	}

	var docs [][]byte
	if err := executor(ctx, s.db).SelectContext(ctx, &docs, `SELECT doc FROM reviews WHERE id = ANY($1)`, pq.Array(hexIDs)); err != nil {
		return nil, fmt.Errorf("failed to get reviews by ids: %w", err)
	}
	reviews, err := decodeReviews(docs)
	if err != nil {
		return nil, err
	}
	found := make(map[primitive.ObjectID]*domain.Review, len(reviews))
	for _, r := range reviews {
		found[r.ID] = r
	}
	return orderByIDs(ids, found), nil
}

func (s *PostgresReviewStore) FindAll(ctx context.Context) (out []*domain.Review, err error) {
	ctx, span := startSpan(ctx, "PostgresReviewStore/FindAll", ReviewsCollection)
	defer func() { endSpan(span, err) }()

	var docs [][]byte
	if err := executor(ctx, s.db).SelectContext(ctx, &docs, `SELECT doc FROM reviews ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return decodeReviews(docs)
}

func (s *PostgresReviewStore) Insert(ctx context.Context, review *domain.Review) (err error) {
	ctx, span := startSpan(ctx, "PostgresReviewStore/Insert", ReviewsCollection)
	defer func() { endSpan(span, err) }()

	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	doc, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("failed to encode review: %w", err)
	}
	_, err = executor(ctx, s.db).ExecContext(ctx, `INSERT INTO reviews (id, doc, created_at) VALUES ($1, $2, $3)`, review.ID.Hex(), string(doc), review.CreatedAt)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to insert review in DB", slog.String("error", err.Error()))
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

func (s *PostgresReviewStore) Save(ctx context.Context, review *domain.Review) (err error) {
	ctx, span := startSpan(ctx, "PostgresReviewStore/Save", ReviewsCollection)
	defer func() { endSpan(span, err) }()

	doc, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("failed to encode review: %w", err)
	}
	result, err := executor(ctx, s.db).ExecContext(ctx, `UPDATE reviews SET doc = $2 WHERE id = $1`, review.ID.Hex(), string(doc))
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	return requireAffected(result)
}

func (s *PostgresReviewStore) Delete(ctx context.Context, id primitive.ObjectID) (err error) {
	ctx, span := startSpan(ctx, "PostgresReviewStore/Delete", ReviewsCollection)
	defer func() { endSpan(span, err) }()

	result, err := executor(ctx, s.db).ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id.Hex())
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return requireAffected(result)
}

// PostgresTransactor открывает транзакцию и передает ее хранилищам через контекст.
type PostgresTransactor struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewPostgresTransactor(db *sqlx.DB, logger *slog.Logger) *PostgresTransactor {
	return &PostgresTransactor{db: db, logger: logger}
}

func (t *PostgresTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			t.logger.ErrorContext(ctx, "Failed to rollback transaction", slog.String("error", rbErr.Error()))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
