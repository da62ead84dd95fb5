// internal/grpc/client.go
package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"catalog-service/internal/domain"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const callTimeout = 3 * time.Second

// Client - клиент catalog.OwnerLookup для соседних сервисов.
type Client struct {
	stub   ownerLookupStub
	conn   *grpc.ClientConn
	logger *slog.Logger
}

// NewClient создает клиент для адреса target (например, "localhost:9093").
// Соединение устанавливается лениво при первом вызове.
func NewClient(target string, logger *slog.Logger, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("create owner lookup client for %s: %w", target, err)
	}
	return &Client{stub: ownerLookupStub{cc: conn}, conn: conn, logger: logger}, nil
}

// ImdbIDExists сообщает, есть ли фильм или сериал с данным imdbId.
func (c *Client) ImdbIDExists(ctx context.Context, imdbID string) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	res, err := c.stub.CheckImdbIdExists(callCtx, wrapperspb.String(imdbID))
	if err != nil {
		c.logFailure(ctx, "CheckImdbIdExists", imdbID, err)
		return false, fmt.Errorf("grpc CheckImdbIdExists failed for imdbId %s: %w", imdbID, err)
	}
	return res.GetValue(), nil
}

// OwnerReviews возвращает отзывы фильма или сериала с данным imdbId.
func (c *Client) OwnerReviews(ctx context.Context, imdbID string) ([]*domain.Review, error) {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	res, err := c.stub.GetOwnerReviews(callCtx, wrapperspb.String(imdbID))
	if err != nil {
		c.logFailure(ctx, "GetOwnerReviews", imdbID, err)
		return nil, fmt.Errorf("grpc GetOwnerReviews failed for imdbId %s: %w", imdbID, err)
	}

	reviews := make([]*domain.Review, 0, len(res.GetValues()))
	for _, v := range res.GetValues() {
		raw, err := json.Marshal(v.GetStructValue().AsMap())
		if err != nil {
			return nil, fmt.Errorf("encode review: %w", err)
		}
		review := &domain.Review{}
		if err := json.Unmarshal(raw, review); err != nil {
			return nil, fmt.Errorf("decode review: %w", err)
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

func (c *Client) logFailure(ctx context.Context, method, imdbID string, err error) {
	st, _ := status.FromError(err)
	c.logger.ErrorContext(ctx, "OwnerLookup gRPC call failed",
		slog.String("method", method),
		slog.String("imdbId", imdbID),
		slog.String("code", st.Code().String()),
		slog.String("message", st.Message()))
}

// Close закрывает gRPC соединение.
func (c *Client) Close() error {
	return c.conn.Close()
}
