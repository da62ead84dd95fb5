package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"catalog-service/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestPostgresOwnerStoreFindByID(t *testing.T) {
	db, mock := newMockDB(t)
	s, err := NewPostgresMovieStore(db, testLogger())
	require.NoError(t, err)

	movie := &domain.Movie{ID: primitive.NewObjectID(), ImdbID: "tt0113277", Title: "Heat", ReviewIDs: []primitive.ObjectID{}}
	doc, err := json.Marshal(movie)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT doc FROM movies WHERE id = $1`)).
		WithArgs(movie.ID.Hex()).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow(doc))

	got, err := s.FindByID(context.Background(), movie.ID)
	require.NoError(t, err)
	assert.Equal(t, movie, got)

	missing := primitive.NewObjectID()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT doc FROM movies WHERE id = $1`)).
		WithArgs(missing.Hex()).
		WillReturnError(sql.ErrNoRows)
	_, err = s.FindByID(context.Background(), missing)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresOwnerStoreInsertMapsUniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	s, err := NewPostgresSeriesStore(db, testLogger())
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO series (id, imdb_id, title, doc) VALUES ($1, $2, $3, $4)`)).
		WithArgs(sqlmock.AnyArg(), "tt5753856", "Dark", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "series_imdb_id_lower_key"})

	series := &domain.Series{ImdbID: "tt5753856", Title: "Dark"}
	err = s.Insert(context.Background(), series)
	assert.ErrorIs(t, err, ErrDuplicateImdbID)
	assert.False(t, series.ID.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresOwnerStoreFindPage(t *testing.T) {
	db, mock := newMockDB(t)
	s, err := NewPostgresMovieStore(db, testLogger())
	require.NoError(t, err)

	doc, _ := json.Marshal(&domain.Movie{ID: primitive.NewObjectID(), ImdbID: "tt1", Title: "Alien"})
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM movies WHERE ($1 = '' OR strpos(lower(title), lower($1)) > 0)`)).
		WithArgs("ali").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT doc FROM movies WHERE ($1 = '' OR strpos(lower(title), lower($1)) > 0) ORDER BY id LIMIT $2 OFFSET $3`)).
		WithArgs("ali", 2, 2).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow(doc))

	page, total, err := s.FindPage(context.Background(), ListParams{Title: "ali", Page: 1, Size: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "Alien", page[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresOwnerStorePushReviewWithoutOwner(t *testing.T) {
	db, mock := newMockDB(t)
	s, err := NewPostgresMovieStore(db, testLogger())
	require.NoError(t, err)

	reviewID := primitive.NewObjectID()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE movies SET doc = jsonb_set(doc, '{reviewIds}'`)).
		WithArgs("tt-missing", reviewID.Hex()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = s.PushReview(context.Background(), "tt-missing", reviewID)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresOwnerStorePullReview(t *testing.T) {
	db, mock := newMockDB(t)
	s, err := NewPostgresSeriesStore(db, testLogger())
	require.NoError(t, err)

	reviewID := primitive.NewObjectID()
	mock.ExpectExec(regexp.QuoteMeta(`WHERE doc->'reviewIds' @> jsonb_build_array($1::text)`)).
		WithArgs(reviewID.Hex()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := s.PullReview(context.Background(), reviewID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReviewStoreFindByIDsKeepsOrder(t *testing.T) {
	db, mock := newMockDB(t)
	s, err := NewPostgresReviewStore(db, testLogger())
	require.NoError(t, err)

	a := &domain.Review{ID: primitive.NewObjectID(), Title: "a", Body: "a"}
	b := &domain.Review{ID: primitive.NewObjectID(), Title: "b", Body: "b"}
	docA, _ := json.Marshal(a)
	docB, _ := json.Marshal(b)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT doc FROM reviews WHERE id = ANY($1)`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow(docA).AddRow(docB))

	got, err := s.FindByIDs(context.Background(), []primitive.ObjectID{b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Title)
	assert.Equal(t, "a", got[1].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTransactorCommitsAndRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	tx := NewPostgresTransactor(db, testLogger())
	reviews, err := NewPostgresReviewStore(db, testLogger())
	require.NoError(t, err)

	id := primitive.NewObjectID()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM reviews WHERE id = $1`)).
		WithArgs(id.Hex()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		return reviews.Delete(ctx, id)
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	err = tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, mock.ExpectationsWereMet())
}
