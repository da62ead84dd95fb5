// internal/api/errors.go
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"catalog-service/internal/domain"
	"catalog-service/internal/lock"
)

// responder содержит общие для обработчиков функции ответа.
type responder struct {
	logger *slog.Logger
}

func (rs responder) respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			rs.logger.ErrorContext(r.Context(), "Failed to encode JSON response", slog.String("error", err.Error()), slog.String("path", r.URL.Path))
		}
	}
}

func (rs responder) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	rs.respondJSON(w, r, status, map[string]string{"error": message})
}

// respondFailure переводит ошибку сервиса в HTTP ответ.
// Ошибки каталога отдаются как {"id", "message"}, остальные - как 500.
func (rs responder) respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var derr *domain.Error
	if errors.As(err, &derr) {
		status := statusFor(derr)
		if status == http.StatusNoContent {
			w.WriteHeader(status)
			return
		}
		rs.logger.WarnContext(ctx, "Request rejected", slog.Int("errorID", derr.ID), slog.String("message", derr.Message), slog.String("path", r.URL.Path))
		rs.respondJSON(w, r, status, derr)
		return
	}

	if errors.Is(err, lock.ErrTimeout) {
		rs.logger.WarnContext(ctx, "imdbId reservation timed out", slog.String("path", r.URL.Path))
		rs.respondError(w, r, http.StatusServiceUnavailable, "imdbId is being modified by another request, retry later")
		return
	}

	rs.logger.ErrorContext(ctx, "Request failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	rs.respondError(w, r, http.StatusInternalServerError, "Internal server error")
}

func statusFor(err *domain.Error) int {
	switch {
	case errors.Is(err, domain.ErrEmpty):
		return http.StatusNoContent
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNotExists):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
