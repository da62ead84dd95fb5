package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// Owner - запись, к которой привязываются отзывы (фильм или сериал).
type Owner interface {
	GetID() primitive.ObjectID
	SetID(id primitive.ObjectID)
	GetImdbID() string
	GetTitle() string
	GetReviewIDs() []primitive.ObjectID
	SetReviewIDs(ids []primitive.ObjectID)
}

// OwnerRequest - тело запроса на создание или полную замену владельца.
type OwnerRequest[T Owner] interface {
	GetImdbID() string
	Build() T
}

// OwnerKind различает коллекции владельцев.
type OwnerKind string

const (
	KindMovie  OwnerKind = "Movie"
	KindSeries OwnerKind = "Series"
)

func cloneIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	out := make([]primitive.ObjectID, len(ids))
	copy(out, ids)
	return out
}
