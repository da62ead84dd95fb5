// internal/store/store.go
package store

import (
	"context"
	"errors"

	"catalog-service/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicateImdbID = errors.New("record with this imdbId already exists")
)

// ListParams - параметры постраничной выборки владельцев.
// Page считается с нуля.
type ListParams struct {
	Title string
	Page  int
	Size  int
}

// OwnerStore - коллекция фильмов или сериалов.
// imdbId везде сравнивается без учета регистра.
type OwnerStore[T domain.Owner] interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (T, error)
	FindByImdbID(ctx context.Context, imdbID string) (T, error)
	ExistsByImdbID(ctx context.Context, imdbID string) (bool, error)
	FindPage(ctx context.Context, params ListParams) ([]T, int64, error)
	// Insert присваивает записи новый id, если он не задан.
	Insert(ctx context.Context, record T) error
	// Save полностью заменяет запись с тем же id.
	Save(ctx context.Context, record T) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// PushReview атомарно добавляет reviewID в reviewIds владельца с данным imdbId.
	// Возвращает ErrNotFound, если такого владельца нет.
	PushReview(ctx context.Context, imdbID string, reviewID primitive.ObjectID) error
	// PullReview атомарно убирает reviewID из reviewIds всех владельцев коллекции.
	PullReview(ctx context.Context, reviewID primitive.ObjectID) (int64, error)
}

// ReviewStore - коллекция отзывов.
type ReviewStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Review, error)
	// FindByIDs возвращает найденные отзывы в порядке ids, пропуская отсутствующие.
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*domain.Review, error)
	FindAll(ctx context.Context) ([]*domain.Review, error)
	Insert(ctx context.Context, review *domain.Review) error
	Save(ctx context.Context, review *domain.Review) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Transactor выполняет fn в транзакции, если хранилище их поддерживает.
// Иначе fn выполняется как есть.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoopTransactor выполняет fn без транзакции.
type NoopTransactor struct{}

func (NoopTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// orderByIDs раскладывает найденные записи в порядке ids.
func orderByIDs[T any](ids []primitive.ObjectID, found map[primitive.ObjectID]T) []T {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if rec, ok := found[id]; ok {
			out = append(out, rec)
		}
	}
	return out
}
