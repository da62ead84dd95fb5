// internal/grpc/server.go
package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"catalog-service/internal/domain"

	"github.com/grpc-ecosystem/go-grpc-middleware/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ImdbRegistry проверяет занятость imdbId во всех коллекциях владельцев.
type ImdbRegistry interface {
	IsImdbIDAvailable(ctx context.Context, candidate string, exclude primitive.ObjectID) (bool, error)
}

// ReviewFinder отдает отзывы владельца по imdbId.
type ReviewFinder interface {
	FindAllByImdbID(ctx context.Context, imdbID string) ([]*domain.Review, error)
}

// Server реализует OwnerLookupServer
type Server struct {
	registry ImdbRegistry
	reviews  ReviewFinder
	logger   *slog.Logger
}

func NewServer(registry ImdbRegistry, reviews ReviewFinder, logger *slog.Logger) *Server {
	return &Server{
		registry: registry,
		reviews:  reviews,
		logger:   logger,
	}
}

func (s *Server) CheckImdbIdExists(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	imdbID := strings.TrimSpace(req.GetValue())
	s.logger.InfoContext(ctx, "gRPC CheckImdbIdExists called", slog.String("imdbId", imdbID))
	if imdbID == "" {
		return nil, status.Errorf(codes.InvalidArgument, "imdbId cannot be empty")
	}

	available, err := s.registry.IsImdbIDAvailable(ctx, imdbID, primitive.NilObjectID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to check imdbId", slog.String("imdbId", imdbID), slog.String("error", err.Error()))
		return nil, status.Errorf(codes.Internal, "failed to check imdbId: %v", err)
	}
	return wrapperspb.Bool(!available), nil
}

// GetOwnerReviews отдает отзывы владельца. Владелец без отзывов дает пустой список.
func (s *Server) GetOwnerReviews(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	imdbID := strings.TrimSpace(req.GetValue())
	s.logger.InfoContext(ctx, "gRPC GetOwnerReviews called", slog.String("imdbId", imdbID))
	if imdbID == "" {
		return nil, status.Errorf(codes.InvalidArgument, "imdbId cannot be empty")
	}

	reviews, err := s.reviews.FindAllByImdbID(ctx, imdbID)
	switch {
	case errors.Is(err, domain.ErrEmpty):
		return &structpb.ListValue{}, nil
	case errors.Is(err, domain.ErrNotExists):
		return nil, status.Errorf(codes.NotFound, "no movie or series with imdbId %s", imdbID)
	case err != nil:
		s.logger.ErrorContext(ctx, "Failed to load owner reviews", slog.String("imdbId", imdbID), slog.String("error", err.Error()))
		return nil, status.Errorf(codes.Internal, "failed to load reviews: %v", err)
	}

	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(reviews))}
	for _, review := range reviews {
		v, err := reviewToValue(review)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "failed to encode review %s: %v", review.ID.Hex(), err)
		}
		out.Values = append(out.Values, v)
	}
	return out, nil
}

func reviewToValue(review *domain.Review) (*structpb.Value, error) {
	raw, err := json.Marshal(review)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build struct: %w", err)
	}
	return structpb.NewStructValue(st), nil
}

type limiter struct {
	l *rate.Limiter
}

// Limit возвращает true, если лимит превышен.
func (l *limiter) Limit() bool {
	return !l.l.Allow()
}

// NewGRPCServer собирает gRPC сервер с трассировкой и ограничением частоты.
// Сервис рефлексии не регистрируется: дескриптор catalog.OwnerLookup не кодогенерирован.
func NewGRPCServer(lookup OwnerLookupServer, limit rate.Limit, burst int) *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(ratelimit.UnaryServerInterceptor(&limiter{rate.NewLimiter(limit, burst)})),
	)
	RegisterOwnerLookupServer(srv, lookup)
	return srv
}
