// internal/service/review_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"catalog-service/internal/domain"
	"catalog-service/internal/patch"
	"catalog-service/internal/store"
)

// ReviewService реализует операции над отзывами и их привязку к владельцам.
type ReviewService struct {
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
}

func NewReviewService(deps Deps) *ReviewService {
	if deps.Tx == nil {
		deps.Tx = store.NoopTransactor{}
	}
	if deps.Validate == nil {
		deps.Validate = domain.NewValidator()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &ReviewService{
		deps:   deps,
		logger: deps.Logger.With(slog.String("kind", "Review")),
		now: func() time.Time {
			// MongoDB хранит время с точностью до миллисекунд
			return time.Now().UTC().Truncate(time.Millisecond)
		},
	}
}

func (s *ReviewService) FindAll(ctx context.Context) ([]*domain.Review, error) {
	reviews, err := s.deps.Reviews.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	if len(reviews) == 0 {
		return nil, domain.ErrEmpty
	}
	return reviews, nil
}

func (s *ReviewService) FindByID(ctx context.Context, id string) (*domain.Review, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	review, err := s.deps.Reviews.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrNotExists
		}
		return nil, fmt.Errorf("find review by id: %w", err)
	}
	return review, nil
}

// FindAllByImdbID возвращает отзывы владельца в порядке его reviewIds.
func (s *ReviewService) FindAllByImdbID(ctx context.Context, imdbID string) ([]*domain.Review, error) {
	owner, err := s.deps.CrossRef.ResolveOwner(ctx, imdbID)
	if err != nil {
		return nil, err
	}
	ids := owner.Owner.GetReviewIDs()
	if len(ids) == 0 {
		return nil, domain.ErrEmpty
	}
	reviews, err := s.deps.Reviews.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load reviews of %s: %w", imdbID, err)
	}
	if len(reviews) < len(ids) {
		s.logger.WarnContext(ctx, "Owner references missing reviews", slog.String("imdbId", imdbID), slog.Int("referenced", len(ids)), slog.Int("found", len(reviews)))
	}
	if len(reviews) == 0 {
		return nil, domain.ErrEmpty
	}
	return reviews, nil
}

// Save создает отзыв и атомарно добавляет его id в reviewIds владельца с данным imdbId.
func (s *ReviewService) Save(ctx context.Context, req domain.ReviewSaveRequest) (*domain.Review, error) {
	owner, err := s.deps.CrossRef.ResolveOwner(ctx, req.ImdbID)
	if err != nil {
		if errors.Is(err, domain.ErrNotExists) {
			s.logger.WarnContext(ctx, "Review owner not found", slog.String("imdbId", req.ImdbID))
		}
		return nil, err
	}

	now := s.now()
	review := &domain.Review{
		Title:     req.Title,
		Body:      req.Body,
		Rating:    req.Rating,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.deps.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.deps.Reviews.Insert(ctx, review); err != nil {
			return fmt.Errorf("insert review: %w", err)
		}
		if err := s.deps.CrossRef.pushReview(ctx, owner, review.ID); err != nil {
			// Без транзакции отзыв уже записан, убираем его сами.
			if delErr := s.deps.Reviews.Delete(ctx, review.ID); delErr != nil {
				s.logger.ErrorContext(ctx, "Failed to remove unlinked review", slog.String("reviewID", review.ID.Hex()), slog.String("error", delErr.Error()))
			}
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrNotExists
			}
			return fmt.Errorf("link review to %s: %w", owner.Kind, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Review saved", slog.String("reviewID", review.ID.Hex()), slog.String("imdbId", req.ImdbID), slog.String("owner", string(owner.Kind)))
	return review, nil
}

// Update заменяет title, body и rating, сохраняя id и createdAt.
func (s *ReviewService) Update(ctx context.Context, id string, req domain.ReviewRequest) (*domain.Review, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	current.Title = req.Title
	current.Body = req.Body
	current.Rating = req.Rating
	current.UpdatedAt = s.touch(current.UpdatedAt)

	if err := s.save(ctx, current); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Review updated", slog.String("reviewID", id))
	return current, nil
}

// Patch применяет JSON Patch к отзыву. id изменить нельзя, updatedAt проставляется всегда.
func (s *ReviewService) Patch(ctx context.Context, id string, rawPatch []byte) (*domain.Review, error) {
	p, err := patch.Decode(rawPatch)
	if err != nil {
		return nil, domain.ErrCannotParseJSON
	}
	current, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ops := p.Operations()
	if !s.deps.Options.InspectAllPatchOperations && len(ops) > 1 {
		ops = ops[:1]
	}
	for _, op := range ops {
		if op.Targets("id") {
			return nil, domain.ErrIDCannotChange
		}
	}

	next := &domain.Review{}
	if err := p.ApplyTo(current, next); err != nil {
		if errors.Is(err, patch.ErrInvalid) {
			return nil, domain.ErrCannotParseJSON
		}
		return nil, fmt.Errorf("apply patch to review: %w", err)
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = s.touch(current.UpdatedAt)

	if err := s.deps.Validate.StructCtx(ctx, next); err != nil {
		return nil, domain.NewValidationError(err)
	}
	if err := s.save(ctx, next); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Review patched", slog.String("reviewID", id))
	return next, nil
}

// Delete удаляет отзыв. При UnlinkReviewOnDelete его id убирается и из reviewIds владельцев.
func (s *ReviewService) Delete(ctx context.Context, id string) (string, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil {
		return "", err
	}

	err = s.deps.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// Отзыв удаляется до отвязки от владельцев.
		if err := s.deps.Reviews.Delete(ctx, current.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrNotExists
			}
			return fmt.Errorf("delete review: %w", err)
		}
		if s.deps.Options.UnlinkReviewOnDelete {
			unlinked, err := s.deps.CrossRef.pullReview(ctx, current.ID)
			if err != nil {
				return fmt.Errorf("unlink review: %w", err)
			}
			s.logger.DebugContext(ctx, "Review unlinked from owners", slog.String("reviewID", id), slog.Int64("owners", unlinked))
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "Review deleted", slog.String("reviewID", id))
	return fmt.Sprintf("Review with id: '%s' was successfully deleted", id), nil
}

// touch возвращает новый updatedAt, строго больший prev даже в пределах одной миллисекунды.
func (s *ReviewService) touch(prev time.Time) time.Time {
	t := s.now()
	if !t.After(prev) {
		t = prev.Add(time.Millisecond)
	}
	return t
}

func (s *ReviewService) save(ctx context.Context, review *domain.Review) error {
	if err := s.deps.Reviews.Save(ctx, review); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrNotExists
		}
		return fmt.Errorf("save review: %w", err)
	}
	return nil
}
