// internal/domain/movie.go
package domain

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Movie представляет основную доменную модель фильма
type Movie struct {
	ID          primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	ImdbID      string               `json:"imdbId" bson:"imdbId" validate:"required,notblank"`
	Title       string               `json:"title" bson:"title" validate:"required,notblank"`
	Overview    string               `json:"overview" bson:"overview"`
	Duration    string               `json:"duration" bson:"duration"`
	Director    string               `json:"director" bson:"director" validate:"required,notblank"`
	ReleaseDate string               `json:"releaseDate" bson:"releaseDate"`
	TrailerLink string               `json:"trailerLink" bson:"trailerLink"`
	Genres      []string             `json:"genres" bson:"genres"`
	Poster      string               `json:"poster" bson:"poster"`
	Backdrop    string               `json:"backdrop" bson:"backdrop"`
	ReviewIDs   []primitive.ObjectID `json:"reviewIds" bson:"reviewIds"`
}

func (m *Movie) GetID() primitive.ObjectID             { return m.ID }
func (m *Movie) SetID(id primitive.ObjectID)           { m.ID = id }
func (m *Movie) GetImdbID() string                     { return m.ImdbID }
func (m *Movie) GetTitle() string                      { return m.Title }
func (m *Movie) GetReviewIDs() []primitive.ObjectID    { return m.ReviewIDs }
func (m *Movie) SetReviewIDs(ids []primitive.ObjectID) { m.ReviewIDs = ids }

// Clone возвращает глубокую копию фильма.
func (m *Movie) Clone() *Movie {
	c := *m
	if m.Genres != nil {
		c.Genres = append([]string(nil), m.Genres...)
	}
	c.ReviewIDs = cloneIDs(m.ReviewIDs)
	return &c
}

// MovieRequest определяет тело запроса для создания или замены фильма
type MovieRequest struct {
	ImdbID      string   `json:"imdbId" validate:"required,notblank"`
	Title       string   `json:"title" validate:"required,notblank"`
	Overview    string   `json:"overview"`
	Duration    string   `json:"duration"`
	Director    string   `json:"director" validate:"required,notblank"`
	ReleaseDate string   `json:"releaseDate"`
	TrailerLink string   `json:"trailerLink"`
	Genres      []string `json:"genres"`
	Poster      string   `json:"poster"`
	Backdrop    string   `json:"backdrop"`
}

func (r MovieRequest) GetImdbID() string { return r.ImdbID }

// Build собирает новую запись без id и с пустым списком отзывов.
func (r MovieRequest) Build() *Movie {
	return &Movie{
		ImdbID:      r.ImdbID,
		Title:       r.Title,
		Overview:    r.Overview,
		Duration:    r.Duration,
		Director:    r.Director,
		ReleaseDate: r.ReleaseDate,
		TrailerLink: r.TrailerLink,
		Genres:      r.Genres,
		Poster:      r.Poster,
		Backdrop:    r.Backdrop,
		ReviewIDs:   []primitive.ObjectID{},
	}
}

// MovieSummary - краткое представление фильма для списков.
type MovieSummary struct {
	ImdbID      string `json:"imdbId"`
	Title       string `json:"title"`
	Duration    string `json:"duration"`
	ReleaseDate string `json:"releaseDate"`
	Poster      string `json:"poster"`
}

func (m *Movie) Summary() MovieSummary {
	return MovieSummary{
		ImdbID:      m.ImdbID,
		Title:       m.Title,
		Duration:    m.Duration,
		ReleaseDate: m.ReleaseDate,
		Poster:      m.Poster,
	}
}
