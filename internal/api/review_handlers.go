// internal/api/review_handlers.go
package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"catalog-service/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// ReviewService - операции над отзывами, которые нужны обработчикам.
type ReviewService interface {
	FindAll(ctx context.Context) ([]*domain.Review, error)
	FindAllByImdbID(ctx context.Context, imdbID string) ([]*domain.Review, error)
	FindByID(ctx context.Context, id string) (*domain.Review, error)
	Save(ctx context.Context, req domain.ReviewSaveRequest) (*domain.Review, error)
	Update(ctx context.Context, id string, req domain.ReviewRequest) (*domain.Review, error)
	Patch(ctx context.Context, id string, rawPatch []byte) (*domain.Review, error)
	Delete(ctx context.Context, id string) (string, error)
}

// ReviewHandler содержит HTTP обработчики /api/v1/reviews.
type ReviewHandler struct {
	responder
	svc       ReviewService
	validator *validator.Validate
}

func NewReviewHandler(svc ReviewService, l *slog.Logger, v *validator.Validate) *ReviewHandler {
	return &ReviewHandler{
		responder: responder{logger: l},
		svc:       svc,
		validator: v,
	}
}

func (h *ReviewHandler) FindAll(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.svc.FindAll(r.Context())
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, reviews)
}

// FindAllByImdbID возвращает отзывы фильма или сериала с данным imdbId.
func (h *ReviewHandler) FindAllByImdbID(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.svc.FindAllByImdbID(r.Context(), mux.Vars(r)["imdbId"])
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, reviews)
}

func (h *ReviewHandler) FindByID(w http.ResponseWriter, r *http.Request) {
	review, err := h.svc.FindByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, review)
}

func (h *ReviewHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req domain.ReviewSaveRequest
	if !decodeRequest(h.responder, h.validator, w, r, &req) {
		return
	}
	review, err := h.svc.Save(r.Context(), req)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, review)
}

func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.ReviewRequest
	if !decodeRequest(h.responder, h.validator, w, r, &req) {
		return
	}
	review, err := h.svc.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, review)
}

func (h *ReviewHandler) Patch(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		h.respondFailure(w, r, domain.ErrCannotParseJSON)
		return
	}
	review, err := h.svc.Patch(r.Context(), mux.Vars(r)["id"], raw)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, review)
}

func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	msg, err := h.svc.Delete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]string{"message": msg})
}
