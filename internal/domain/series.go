package domain

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Episode - эпизод сезона.
type Episode struct {
	Title       string `json:"title" bson:"title"`
	ReleaseDate string `json:"releaseDate" bson:"releaseDate"`
	Duration    string `json:"duration" bson:"duration"`
	Description string `json:"description" bson:"description"`
}

// Season - сезон сериала.
type Season struct {
	Overview    string    `json:"overview" bson:"overview"`
	EpisodeList []Episode `json:"episodeList" bson:"episodeList"`
	Poster      string    `json:"poster" bson:"poster"`
}

// Series представляет доменную модель сериала
type Series struct {
	ID              primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	ImdbID          string               `json:"imdbId" bson:"imdbId" validate:"required,notblank"`
	Title           string               `json:"title" bson:"title" validate:"required,notblank"`
	Overview        string               `json:"overview" bson:"overview"`
	NumberOfSeasons int                  `json:"numberOfSeasons" bson:"numberOfSeasons" validate:"min=1"`
	Creator         string               `json:"creator" bson:"creator"`
	ReleaseDate     string               `json:"releaseDate" bson:"releaseDate"`
	TrailerLink     string               `json:"trailerLink" bson:"trailerLink"`
	Genres          []string             `json:"genres" bson:"genres"`
	Poster          string               `json:"poster" bson:"poster"`
	Backdrop        string               `json:"backdrop" bson:"backdrop"`
	SeasonList      []Season             `json:"seasonList" bson:"seasonList" validate:"required,min=1"`
	ReviewIDs       []primitive.ObjectID `json:"reviewIds" bson:"reviewIds"`
}

func (s *Series) GetID() primitive.ObjectID             { return s.ID }
func (s *Series) SetID(id primitive.ObjectID)           { s.ID = id }
func (s *Series) GetImdbID() string                     { return s.ImdbID }
func (s *Series) GetTitle() string                      { return s.Title }
func (s *Series) GetReviewIDs() []primitive.ObjectID    { return s.ReviewIDs }
func (s *Series) SetReviewIDs(ids []primitive.ObjectID) { s.ReviewIDs = ids }

// Clone возвращает глубокую копию сериала, включая сезоны и эпизоды.
func (s *Series) Clone() *Series {
	c := *s
	if s.Genres != nil {
		c.Genres = append([]string(nil), s.Genres...)
	}
	if s.SeasonList != nil {
		c.SeasonList = make([]Season, len(s.SeasonList))
		for i, season := range s.SeasonList {
			c.SeasonList[i] = season
			if season.EpisodeList != nil {
				c.SeasonList[i].EpisodeList = append([]Episode(nil), season.EpisodeList...)
			}
		}
	}
	c.ReviewIDs = cloneIDs(s.ReviewIDs)
	return &c
}

// SeriesRequest определяет тело запроса для создания или замены сериала
type SeriesRequest struct {
	ImdbID          string   `json:"imdbId" validate:"required,notblank"`
	Title           string   `json:"title" validate:"required,notblank"`
	Overview        string   `json:"overview"`
	NumberOfSeasons int      `json:"numberOfSeasons" validate:"min=1"`
	Creator         string   `json:"creator"`
	ReleaseDate     string   `json:"releaseDate"`
	TrailerLink     string   `json:"trailerLink"`
	Genres          []string `json:"genres"`
	Poster          string   `json:"poster"`
	Backdrop        string   `json:"backdrop"`
	SeasonList      []Season `json:"seasonList" validate:"required,min=1"`
}

func (r SeriesRequest) GetImdbID() string { return r.ImdbID }

func (r SeriesRequest) Build() *Series {
	return &Series{
		ImdbID:          r.ImdbID,
		Title:           r.Title,
		Overview:        r.Overview,
		NumberOfSeasons: r.NumberOfSeasons,
		Creator:         r.Creator,
		ReleaseDate:     r.ReleaseDate,
		TrailerLink:     r.TrailerLink,
		Genres:          r.Genres,
		Poster:          r.Poster,
		Backdrop:        r.Backdrop,
		SeasonList:      r.SeasonList,
		ReviewIDs:       []primitive.ObjectID{},
	}
}

// SeriesSummary - краткое представление сериала для списков.
type SeriesSummary struct {
	ImdbID          string `json:"imdbId"`
	Title           string `json:"title"`
	NumberOfSeasons int    `json:"numberOfSeasons"`
	ReleaseDate     string `json:"releaseDate"`
	Poster          string `json:"poster"`
}

func (s *Series) Summary() SeriesSummary {
	return SeriesSummary{
		ImdbID:          s.ImdbID,
		Title:           s.Title,
		NumberOfSeasons: s.NumberOfSeasons,
		ReleaseDate:     s.ReleaseDate,
		Poster:          s.Poster,
	}
}
