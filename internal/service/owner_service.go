// internal/service/owner_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"catalog-service/internal/domain"
	"catalog-service/internal/lock"
	"catalog-service/internal/patch"
	"catalog-service/internal/store"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Options - переключатели поведения, приходят из конфигурации.
type Options struct {
	// InspectAllPatchOperations: проверять защищенные пути во всех операциях патча,
	// а не только в первой.
	InspectAllPatchOperations bool
	// UnlinkReviewOnDelete: при удалении отзыва убирать его id из reviewIds владельцев.
	UnlinkReviewOnDelete bool
}

func DefaultOptions() Options {
	return Options{InspectAllPatchOperations: true, UnlinkReviewOnDelete: true}
}

// Deps - общие зависимости сервисов.
type Deps struct {
	Reviews  store.ReviewStore
	CrossRef *CrossRef
	Locker   lock.Locker
	Tx       store.Transactor
	Validate *validator.Validate
	Options  Options
	Logger   *slog.Logger
}

// Page - страница результатов FindAll.
type Page[T any] struct {
	Items       []T
	CurrentPage int
	TotalItems  int64
	TotalPages  int
}

// OwnerService реализует операции над фильмами или сериалами.
type OwnerService[T domain.Owner, R domain.OwnerRequest[T]] struct {
	kind      domain.OwnerKind
	owners    store.OwnerStore[T]
	newRecord func() T
	deps      Deps
	logger    *slog.Logger
}

type (
	MovieService  = OwnerService[*domain.Movie, domain.MovieRequest]
	SeriesService = OwnerService[*domain.Series, domain.SeriesRequest]
)

func newOwnerService[T domain.Owner, R domain.OwnerRequest[T]](kind domain.OwnerKind, owners store.OwnerStore[T], newRecord func() T, deps Deps) *OwnerService[T, R] {
	if deps.Tx == nil {
		deps.Tx = store.NoopTransactor{}
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewMemoryLocker()
	}
	if deps.Validate == nil {
		deps.Validate = domain.NewValidator()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &OwnerService[T, R]{
		kind:      kind,
		owners:    owners,
		newRecord: newRecord,
		deps:      deps,
		logger:    deps.Logger.With(slog.String("kind", string(kind))),
	}
}

func NewMovieService(movies store.OwnerStore[*domain.Movie], deps Deps) *MovieService {
	return newOwnerService[*domain.Movie, domain.MovieRequest](domain.KindMovie, movies, func() *domain.Movie { return &domain.Movie{} }, deps)
}

func NewSeriesService(series store.OwnerStore[*domain.Series], deps Deps) *SeriesService {
	return newOwnerService[*domain.Series, domain.SeriesRequest](domain.KindSeries, series, func() *domain.Series { return &domain.Series{} }, deps)
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, domain.ErrCannotParseID
	}
	return oid, nil
}

// releaseLock освобождает блокировку даже после отмены контекста запроса.
func releaseLock(ctx context.Context, unlock lock.Unlock, logger *slog.Logger) {
	if err := unlock(context.WithoutCancel(ctx)); err != nil {
		logger.WarnContext(ctx, "Failed to release imdbId lock", slog.String("error", err.Error()))
	}
}

// NormalizePage приводит параметры пагинации к допустимым: page >= 0, size >= 1.
func NormalizePage(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 1
	}
	return page, size
}

// FindAll возвращает страницу записей, опционально отфильтрованных по подстроке названия.
func (s *OwnerService[T, R]) FindAll(ctx context.Context, title string, page, size int) (Page[T], error) {
	page, size = NormalizePage(page, size)
	items, total, err := s.owners.FindPage(ctx, store.ListParams{Title: title, Page: page, Size: size})
	if err != nil {
		return Page[T]{}, fmt.Errorf("list %s: %w", s.kind, err)
	}
	if len(items) == 0 {
		return Page[T]{}, domain.ErrEmpty
	}
	return Page[T]{
		Items:       items,
		CurrentPage: page,
		TotalItems:  total,
		TotalPages:  int((total + int64(size) - 1) / int64(size)),
	}, nil
}

func (s *OwnerService[T, R]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T
	oid, err := parseID(id)
	if err != nil {
		return zero, err
	}
	rec, err := s.owners.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return zero, domain.ErrNotExists
		}
		return zero, fmt.Errorf("find %s by id: %w", s.kind, err)
	}
	return rec, nil
}

func (s *OwnerService[T, R]) FindByImdbID(ctx context.Context, imdbID string) (T, error) {
	var zero T
	rec, err := s.owners.FindByImdbID(ctx, imdbID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return zero, domain.ErrNotExists
		}
		return zero, fmt.Errorf("find %s by imdbId: %w", s.kind, err)
	}
	return rec, nil
}

// Save создает новую запись. imdbId не должен использоваться ни фильмом, ни сериалом.
func (s *OwnerService[T, R]) Save(ctx context.Context, req R) (T, error) {
	var zero T
	imdbID := req.GetImdbID()

	unlock, err := s.deps.Locker.Lock(ctx, lock.ImdbKey(imdbID))
	if err != nil {
		return zero, fmt.Errorf("reserve imdbId: %w", err)
	}
	defer releaseLock(ctx, unlock, s.logger)

	available, err := s.deps.CrossRef.IsImdbIDAvailable(ctx, imdbID, primitive.NilObjectID)
	if err != nil {
		return zero, err
	}
	if !available {
		s.logger.WarnContext(ctx, "Save rejected, imdbId already used", slog.String("imdbId", imdbID))
		return zero, domain.ErrAlreadyExists
	}

	record := req.Build()
	if err := s.owners.Insert(ctx, record); err != nil {
		if errors.Is(err, store.ErrDuplicateImdbID) {
			return zero, domain.ErrAlreadyExists
		}
		return zero, fmt.Errorf("insert %s: %w", s.kind, err)
	}
	s.logger.InfoContext(ctx, "Record saved", slog.String("id", record.GetID().Hex()), slog.String("imdbId", imdbID))
	return record, nil
}

// Update полностью заменяет запись, сохраняя id и reviewIds.
func (s *OwnerService[T, R]) Update(ctx context.Context, id string, req R) (T, error) {
	var zero T
	current, err := s.FindByID(ctx, id)
	if err != nil {
		return zero, err
	}

	if imdbID := req.GetImdbID(); !strings.EqualFold(imdbID, current.GetImdbID()) {
		unlock, err := s.claimImdbID(ctx, imdbID, current.GetID())
		if err != nil {
			return zero, err
		}
		defer releaseLock(ctx, unlock, s.logger)
	}

	next := req.Build()
	next.SetID(current.GetID())
	next.SetReviewIDs(current.GetReviewIDs())
	if err := s.save(ctx, next); err != nil {
		return zero, err
	}
	s.logger.InfoContext(ctx, "Record updated", slog.String("id", id))
	return next, nil
}

// Patch применяет JSON Patch к записи. id и reviewIds изменить нельзя,
// новый imdbId проверяется на уникальность.
func (s *OwnerService[T, R]) Patch(ctx context.Context, id string, rawPatch []byte) (T, error) {
	var zero T
	p, err := patch.Decode(rawPatch)
	if err != nil {
		s.logger.WarnContext(ctx, "Malformed patch body", slog.String("id", id), slog.String("error", err.Error()))
		return zero, domain.ErrCannotParseJSON
	}

	current, err := s.FindByID(ctx, id)
	if err != nil {
		return zero, err
	}

	requested, err := s.guardOperations(p.Operations())
	if err != nil {
		return zero, err
	}
	for _, imdbID := range requested {
		if strings.EqualFold(imdbID, current.GetImdbID()) {
			continue
		}
		available, err := s.deps.CrossRef.IsImdbIDAvailable(ctx, imdbID, current.GetID())
		if err != nil {
			return zero, err
		}
		if !available {
			return zero, domain.ErrImdbIDAlreadyInUse
		}
	}

	next := s.newRecord()
	if err := p.ApplyTo(current, next); err != nil {
		if errors.Is(err, patch.ErrInvalid) {
			s.logger.WarnContext(ctx, "Patch could not be applied", slog.String("id", id), slog.String("error", err.Error()))
			return zero, domain.ErrCannotParseJSON
		}
		return zero, fmt.Errorf("apply patch to %s: %w", s.kind, err)
	}
	next.SetID(current.GetID())
	next.SetReviewIDs(current.GetReviewIDs())

	if err := s.deps.Validate.StructCtx(ctx, next); err != nil {
		return zero, domain.NewValidationError(err)
	}

	// Итоговый imdbId мог прийти и через move/copy, поэтому окончательная проверка - под блокировкой.
	if !strings.EqualFold(next.GetImdbID(), current.GetImdbID()) {
		unlock, err := s.claimImdbID(ctx, next.GetImdbID(), current.GetID())
		if err != nil {
			return zero, err
		}
		defer releaseLock(ctx, unlock, s.logger)
	}

	if err := s.save(ctx, next); err != nil {
		return zero, err
	}
	s.logger.InfoContext(ctx, "Record patched", slog.String("id", id), slog.Int("operations", len(p.Operations())))
	return next, nil
}

// guardOperations отклоняет изменения id и reviewIds и собирает imdbId,
// явно заданные через replace/add.
func (s *OwnerService[T, R]) guardOperations(ops []patch.Operation) ([]string, error) {
	if !s.deps.Options.InspectAllPatchOperations && len(ops) > 1 {
		ops = ops[:1]
	}
	var requested []string
	for _, op := range ops {
		if op.Targets("id") || op.Targets("reviewIds") {
			return nil, domain.ErrIDCannotChange
		}
		if op.Removes("imdbId") {
			return nil, domain.ErrCannotParseJSON
		}
		if op.ReplacesExactly("imdbId") {
			imdbID, err := op.StringValue()
			if err != nil || strings.TrimSpace(imdbID) == "" {
				return nil, domain.ErrCannotParseJSON
			}
			requested = append(requested, imdbID)
		}
	}
	return requested, nil
}

// claimImdbID резервирует новый imdbId для записи owner и проверяет, что он свободен.
func (s *OwnerService[T, R]) claimImdbID(ctx context.Context, imdbID string, owner primitive.ObjectID) (lock.Unlock, error) {
	unlock, err := s.deps.Locker.Lock(ctx, lock.ImdbKey(imdbID))
	if err != nil {
		return nil, fmt.Errorf("reserve imdbId: %w", err)
	}
	available, err := s.deps.CrossRef.IsImdbIDAvailable(ctx, imdbID, owner)
	if err != nil {
		releaseLock(ctx, unlock, s.logger)
		return nil, err
	}
	if !available {
		releaseLock(ctx, unlock, s.logger)
		s.logger.WarnContext(ctx, "imdbId already in use", slog.String("imdbId", imdbID), slog.String("id", owner.Hex()))
		return nil, domain.ErrImdbIDAlreadyInUse
	}
	return unlock, nil
}

func (s *OwnerService[T, R]) save(ctx context.Context, record T) error {
	if err := s.owners.Save(ctx, record); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateImdbID):
			return domain.ErrImdbIDAlreadyInUse
		case errors.Is(err, store.ErrNotFound):
			return domain.ErrNotExists
		}
		return fmt.Errorf("save %s: %w", s.kind, err)
	}
	return nil
}

// Delete удаляет запись вместе со всеми ее отзывами.
func (s *OwnerService[T, R]) Delete(ctx context.Context, id string) (string, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil {
		return "", err
	}

	err = s.deps.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, reviewID := range current.GetReviewIDs() {
			if err := s.deps.Reviews.Delete(ctx, reviewID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("delete review %s: %w", reviewID.Hex(), err)
			}
		}
		if err := s.owners.Delete(ctx, current.GetID()); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrNotExists
			}
			return fmt.Errorf("delete %s: %w", s.kind, err)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Cascade delete failed", slog.String("id", id), slog.String("error", err.Error()))
		return "", err
	}

	s.logger.InfoContext(ctx, "Record deleted with its reviews", slog.String("id", id), slog.Int("reviews", len(current.GetReviewIDs())))
	return fmt.Sprintf("%s with id: '%s' was successfully deleted", s.kind, id), nil
}

// ImdbIDExists сообщает, занят ли imdbId записью этой коллекции.
func (s *OwnerService[T, R]) ImdbIDExists(ctx context.Context, imdbID string) (bool, error) {
	exists, err := s.owners.ExistsByImdbID(ctx, imdbID)
	if err != nil {
		return false, fmt.Errorf("check %s imdbId: %w", s.kind, err)
	}
	return exists, nil
}
