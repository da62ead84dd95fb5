package service

import (
	"context"
	"errors"
	"fmt"

	"catalog-service/internal/domain"
	"catalog-service/internal/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CrossRef проверяет imdbId сразу по обеим коллекциям владельцев.
type CrossRef struct {
	movies store.OwnerStore[*domain.Movie]
	series store.OwnerStore[*domain.Series]
}

func NewCrossRef(movies store.OwnerStore[*domain.Movie], series store.OwnerStore[*domain.Series]) *CrossRef {
	return &CrossRef{movies: movies, series: series}
}

// IsImdbIDAvailable возвращает true, если ни фильм, ни сериал не используют candidate,
// либо единственное совпадение - сама запись exclude. Для новой записи exclude нулевой.
func (x *CrossRef) IsImdbIDAvailable(ctx context.Context, candidate string, exclude primitive.ObjectID) (bool, error) {
	movie, err := x.movies.FindByImdbID(ctx, candidate)
	switch {
	case err == nil:
		if exclude.IsZero() || movie.ID != exclude {
			return false, nil
		}
	case !errors.Is(err, store.ErrNotFound):
		return false, fmt.Errorf("lookup movie by imdbId: %w", err)
	}

	series, err := x.series.FindByImdbID(ctx, candidate)
	switch {
	case err == nil:
		if exclude.IsZero() || series.ID != exclude {
			return false, nil
		}
	case !errors.Is(err, store.ErrNotFound):
		return false, fmt.Errorf("lookup series by imdbId: %w", err)
	}
	return true, nil
}

// ResolvedOwner - владелец отзывов, найденный по imdbId.
type ResolvedOwner struct {
	Kind  domain.OwnerKind
	Owner domain.Owner
}

// ResolveOwner ищет владельца по imdbId: сначала среди фильмов, затем среди сериалов.
func (x *CrossRef) ResolveOwner(ctx context.Context, imdbID string) (ResolvedOwner, error) {
	movie, err := x.movies.FindByImdbID(ctx, imdbID)
	if err == nil {
		return ResolvedOwner{Kind: domain.KindMovie, Owner: movie}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return ResolvedOwner{}, fmt.Errorf("lookup movie by imdbId: %w", err)
	}

	series, err := x.series.FindByImdbID(ctx, imdbID)
	if err == nil {
		return ResolvedOwner{Kind: domain.KindSeries, Owner: series}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return ResolvedOwner{}, fmt.Errorf("lookup series by imdbId: %w", err)
	}
	return ResolvedOwner{}, domain.ErrNotExists
}

// pushReview привязывает отзыв к найденному владельцу.
func (x *CrossRef) pushReview(ctx context.Context, owner ResolvedOwner, reviewID primitive.ObjectID) error {
	if owner.Kind == domain.KindMovie {
		return x.movies.PushReview(ctx, owner.Owner.GetImdbID(), reviewID)
	}
	return x.series.PushReview(ctx, owner.Owner.GetImdbID(), reviewID)
}

// pullReview отвязывает отзыв от всех владельцев.
func (x *CrossRef) pullReview(ctx context.Context, reviewID primitive.ObjectID) (int64, error) {
	fromMovies, err := x.movies.PullReview(ctx, reviewID)
	if err != nil {
		return 0, err
	}
	fromSeries, err := x.series.PullReview(ctx, reviewID)
	if err != nil {
		return fromMovies, err
	}
	return fromMovies + fromSeries, nil
}
