// internal/api/owner_handlers.go
package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"catalog-service/internal/domain"
	"catalog-service/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

const (
	defaultPage = 0
	defaultSize = 10
	maxBodySize = 1 << 20
)

// OwnerService - операции над фильмами или сериалами, которые нужны обработчикам.
type OwnerService[T domain.Owner, R domain.OwnerRequest[T]] interface {
	FindAll(ctx context.Context, title string, page, size int) (service.Page[T], error)
	FindByID(ctx context.Context, id string) (T, error)
	FindByImdbID(ctx context.Context, imdbID string) (T, error)
	Save(ctx context.Context, req R) (T, error)
	Update(ctx context.Context, id string, req R) (T, error)
	Patch(ctx context.Context, id string, rawPatch []byte) (T, error)
	Delete(ctx context.Context, id string) (string, error)
}

// OwnerHandler содержит HTTP обработчики для фильмов или сериалов.
type OwnerHandler[T domain.Owner, R domain.OwnerRequest[T]] struct {
	responder
	svc       OwnerService[T, R]
	validator *validator.Validate
	listKey   string
	summarize func(T) any
}

type (
	MovieHandler  = OwnerHandler[*domain.Movie, domain.MovieRequest]
	SeriesHandler = OwnerHandler[*domain.Series, domain.SeriesRequest]
)

// NewMovieHandler создает обработчики /api/v1/movies.
func NewMovieHandler(svc OwnerService[*domain.Movie, domain.MovieRequest], l *slog.Logger, v *validator.Validate) *MovieHandler {
	return &MovieHandler{
		responder: responder{logger: l},
		svc:       svc,
		validator: v,
		listKey:   "movies",
		summarize: func(m *domain.Movie) any { return m.Summary() },
	}
}

// NewSeriesHandler создает обработчики /api/v1/series.
func NewSeriesHandler(svc OwnerService[*domain.Series, domain.SeriesRequest], l *slog.Logger, v *validator.Validate) *SeriesHandler {
	return &SeriesHandler{
		responder: responder{logger: l},
		svc:       svc,
		validator: v,
		listKey:   "series",
		summarize: func(s *domain.Series) any { return s.Summary() },
	}
}

// FindAll возвращает страницу кратких представлений, опционально с фильтром по title.
func (h *OwnerHandler[T, R]) FindAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	page, err := intParam(query.Get("page"), defaultPage)
	if err != nil {
		h.respondFailure(w, r, &domain.Error{ID: domain.ErrValidationFailed.ID, Message: "page must be an integer"})
		return
	}
	size, err := intParam(query.Get("size"), defaultSize)
	if err != nil {
		h.respondFailure(w, r, &domain.Error{ID: domain.ErrValidationFailed.ID, Message: "size must be an integer"})
		return
	}

	result, err := h.svc.FindAll(ctx, query.Get("title"), page, size)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	items := make([]any, 0, len(result.Items))
	for _, rec := range result.Items {
		items = append(items, h.summarize(rec))
	}
	h.respondJSON(w, r, http.StatusOK, map[string]any{
		h.listKey:     items,
		"currentPage": result.CurrentPage,
		"totalItems":  result.TotalItems,
		"totalPages":  result.TotalPages,
	})
}

func (h *OwnerHandler[T, R]) FindByID(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.FindByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, rec)
}

func (h *OwnerHandler[T, R]) FindByImdbID(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.FindByImdbID(r.Context(), mux.Vars(r)["imdbId"])
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, rec)
}

func (h *OwnerHandler[T, R]) Save(w http.ResponseWriter, r *http.Request) {
	var req R
	if !decodeRequest(h.responder, h.validator, w, r, &req) {
		return
	}
	rec, err := h.svc.Save(r.Context(), req)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, rec)
}

func (h *OwnerHandler[T, R]) Update(w http.ResponseWriter, r *http.Request) {
	var req R
	if !decodeRequest(h.responder, h.validator, w, r, &req) {
		return
	}
	rec, err := h.svc.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, rec)
}

// Patch принимает тело как массив операций JSON Patch (RFC 6902).
func (h *OwnerHandler[T, R]) Patch(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		h.respondFailure(w, r, domain.ErrCannotParseJSON)
		return
	}
	rec, err := h.svc.Patch(r.Context(), mux.Vars(r)["id"], raw)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, rec)
}

func (h *OwnerHandler[T, R]) Delete(w http.ResponseWriter, r *http.Request) {
	msg, err := h.svc.Delete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]string{"message": msg})
}

// decodeRequest читает и валидирует тело запроса. При ошибке ответ уже записан.
func decodeRequest(rs responder, v *validator.Validate, w http.ResponseWriter, r *http.Request, dst any) bool {
	ctx := r.Context()
	defer r.Body.Close()

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(dst); err != nil {
		rs.logger.WarnContext(ctx, "Failed to decode request body", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		rs.respondFailure(w, r, domain.ErrValidationFailed)
		return false
	}
	if err := v.StructCtx(ctx, dst); err != nil {
		rs.respondFailure(w, r, domain.NewValidationError(err))
		return false
	}
	return true
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
