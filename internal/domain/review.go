// internal/domain/review.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review представляет модель отзыва. Владельца (imdbId) отзыв не хранит,
// связь держится только в reviewIds фильма или сериала.
type Review struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title     string             `json:"title" bson:"title" validate:"required,notblank"`
	Body      string             `json:"body" bson:"body" validate:"required,notblank"`
	Rating    int                `json:"rating" bson:"rating" validate:"min=0,max=5"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

func (r *Review) Clone() *Review {
	c := *r
	return &c
}

// ReviewRequest определяет тело запроса для обновления отзыва.
type ReviewRequest struct {
	Title  string `json:"title" validate:"required,notblank"`
	Body   string `json:"body" validate:"required,notblank"`
	Rating int    `json:"rating" validate:"min=0,max=5"`
}

// ReviewSaveRequest определяет тело запроса для создания отзыва.
type ReviewSaveRequest struct {
	Title  string `json:"title" validate:"required,notblank"`
	Body   string `json:"body" validate:"required,notblank"`
	Rating int    `json:"rating" validate:"min=0,max=5"`
	ImdbID string `json:"imdbId" validate:"required,notblank"`
}
