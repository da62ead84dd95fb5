package store

import (
	"context"
	"testing"

	"catalog-service/internal/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMemoryOwnerStoreInsertAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMovieStore()

	movie := &domain.Movie{ImdbID: "tt0133093", Title: "The Matrix", Director: "Wachowski", Genres: []string{"Sci-Fi"}}
	require.NoError(t, s.Insert(ctx, movie))
	require.False(t, movie.ID.IsZero())
	assert.NotNil(t, movie.ReviewIDs)

	got, err := s.FindByID(ctx, movie.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(movie, got); diff != "" {
		t.Fatalf("FindByID mismatch (-want +got):\n%s", diff)
	}

	byImdb, err := s.FindByImdbID(ctx, "TT0133093")
	require.NoError(t, err)
	assert.Equal(t, movie.ID, byImdb.ID)

	exists, err := s.ExistsByImdbID(ctx, "tt0133093")
	require.NoError(t, err)
	assert.True(t, exists)

	got.Genres[0] = "mutated"
	again, _ := s.FindByID(ctx, movie.ID)
	assert.Equal(t, "Sci-Fi", again.Genres[0])
}

func TestMemoryOwnerStoreRejectsDuplicateImdbIDIgnoringCase(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySeriesStore()
	require.NoError(t, s.Insert(ctx, &domain.Series{ImdbID: "tt0903747", Title: "Breaking Bad"}))

	err := s.Insert(ctx, &domain.Series{ImdbID: "TT0903747", Title: "Other"})
	assert.ErrorIs(t, err, ErrDuplicateImdbID)

	other := &domain.Series{ImdbID: "tt1", Title: "Other"}
	require.NoError(t, s.Insert(ctx, other))
	other.ImdbID = "tt0903747"
	assert.ErrorIs(t, s.Save(ctx, other), ErrDuplicateImdbID)
}

func TestMemoryOwnerStoreFindPage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMovieStore()
	for _, title := range []string{"Alien", "Aliens", "Heat", "Alien 3"} {
		require.NoError(t, s.Insert(ctx, &domain.Movie{ImdbID: "tt-" + title, Title: title}))
	}

	page, total, err := s.FindPage(ctx, ListParams{Title: "ALIEN", Page: 0, Size: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "Alien", page[0].Title)
	assert.Equal(t, "Aliens", page[1].Title)

	page, _, err = s.FindPage(ctx, ListParams{Title: "alien", Page: 1, Size: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Alien 3", page[0].Title)

	page, total, err = s.FindPage(ctx, ListParams{Page: 5, Size: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Empty(t, page)
}

func TestMemoryOwnerStorePushAndPullReview(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMovieStore()
	movie := &domain.Movie{ImdbID: "tt1", Title: "Heat"}
	require.NoError(t, s.Insert(ctx, movie))

	r1, r2 := primitive.NewObjectID(), primitive.NewObjectID()
	require.NoError(t, s.PushReview(ctx, "TT1", r1))
	require.NoError(t, s.PushReview(ctx, "tt1", r2))
	assert.ErrorIs(t, s.PushReview(ctx, "tt-missing", r1), ErrNotFound)

	got, _ := s.FindByID(ctx, movie.ID)
	assert.Equal(t, []primitive.ObjectID{r1, r2}, got.ReviewIDs)

	n, err := s.PullReview(ctx, r1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	got, _ = s.FindByID(ctx, movie.ID)
	assert.Equal(t, []primitive.ObjectID{r2}, got.ReviewIDs)
}

func TestMemoryOwnerStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryMovieStore()
	movie := &domain.Movie{ImdbID: "tt1", Title: "Heat"}
	require.NoError(t, s.Insert(ctx, movie))

	require.NoError(t, s.Delete(ctx, movie.ID))
	assert.ErrorIs(t, s.Delete(ctx, movie.ID), ErrNotFound)
	_, err := s.FindByID(ctx, movie.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Save(ctx, movie), ErrNotFound)
}

func TestMemoryReviewStoreFindByIDsKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryReviewStore()
	a := &domain.Review{Title: "a", Body: "a"}
	b := &domain.Review{Title: "b", Body: "b"}
	require.NoError(t, s.Insert(ctx, a))
	require.NoError(t, s.Insert(ctx, b))

	got, err := s.FindByIDs(ctx, []primitive.ObjectID{b.ID, primitive.NewObjectID(), a.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Title)
	assert.Equal(t, "a", got[1].Title)

	all, err := s.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.Delete(ctx, a.ID))
	_, err = s.FindByID(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
