package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"catalog-service/internal/domain"
	"catalog-service/internal/lock"
	"catalog-service/internal/store"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	movies    *store.MemoryOwnerStore[*domain.Movie]
	series    *store.MemoryOwnerStore[*domain.Series]
	reviews   *store.MemoryReviewStore
	xref      *CrossRef
	movieSvc  *MovieService
	seriesSvc *SeriesService
	reviewSvc *ReviewService
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		movies:  store.NewMemoryMovieStore(),
		series:  store.NewMemorySeriesStore(),
		reviews: store.NewMemoryReviewStore(),
	}
	f.xref = NewCrossRef(f.movies, f.series)
	deps := Deps{
		Reviews:  f.reviews,
		CrossRef: f.xref,
		Locker:   lock.NewMemoryLocker(),
		Validate: domain.NewValidator(),
		Options:  opts,
		Logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	f.movieSvc = NewMovieService(f.movies, deps)
	f.seriesSvc = NewSeriesService(f.series, deps)
	f.reviewSvc = NewReviewService(deps)
	return f
}

func movieRequest(imdbID, title string) domain.MovieRequest {
	return domain.MovieRequest{ImdbID: imdbID, Title: title, Director: "Christopher Nolan", Duration: "2h 28m", Genres: []string{"Sci-Fi"}}
}

func seriesRequest(imdbID, title string) domain.SeriesRequest {
	return domain.SeriesRequest{
		ImdbID:          imdbID,
		Title:           title,
		NumberOfSeasons: 1,
		Creator:         "Baran bo Odar",
		SeasonList: []domain.Season{{
			Overview:    "Season 1",
			EpisodeList: []domain.Episode{{Title: "Secrets", Duration: "51m"}},
		}},
	}
}

func (f *fixture) saveMovie(t *testing.T, imdbID, title string) *domain.Movie {
	t.Helper()
	m, err := f.movieSvc.Save(context.Background(), movieRequest(imdbID, title))
	require.NoError(t, err)
	return m
}

func (f *fixture) saveSeries(t *testing.T, imdbID, title string) *domain.Series {
	t.Helper()
	s, err := f.seriesSvc.Save(context.Background(), seriesRequest(imdbID, title))
	require.NoError(t, err)
	return s
}

func (f *fixture) saveReview(t *testing.T, imdbID, title string) *domain.Review {
	t.Helper()
	r, err := f.reviewSvc.Save(context.Background(), domain.ReviewSaveRequest{Title: title, Body: "body of " + title, Rating: 4, ImdbID: imdbID})
	require.NoError(t, err)
	return r
}
