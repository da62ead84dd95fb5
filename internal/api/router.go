// internal/api/router.go
package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Handlers собирает обработчики всех коллекций для роутера.
type Handlers struct {
	Movies  *MovieHandler
	Series  *SeriesHandler
	Reviews *ReviewHandler
}

type ownerRoutes interface {
	FindAll(http.ResponseWriter, *http.Request)
	FindByID(http.ResponseWriter, *http.Request)
	FindByImdbID(http.ResponseWriter, *http.Request)
	Save(http.ResponseWriter, *http.Request)
	Update(http.ResponseWriter, *http.Request)
	Patch(http.ResponseWriter, *http.Request)
	Delete(http.ResponseWriter, *http.Request)
}

func NewRouter(h Handlers, middleware ...mux.MiddlewareFunc) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware...)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	registerOwnerRoutes(apiRouter.PathPrefix("/movies").Subrouter(), h.Movies)
	registerOwnerRoutes(apiRouter.PathPrefix("/series").Subrouter(), h.Series)

	reviews := apiRouter.PathPrefix("/reviews").Subrouter()
	reviews.HandleFunc("/findAll", h.Reviews.FindAll).Methods(http.MethodGet)
	reviews.HandleFunc("/findAllByImdbId/{imdbId}", h.Reviews.FindAllByImdbID).Methods(http.MethodGet)
	reviews.HandleFunc("/findById/{id}", h.Reviews.FindByID).Methods(http.MethodGet)
	reviews.HandleFunc("/save", h.Reviews.Save).Methods(http.MethodPost)
	reviews.HandleFunc("/update/{id}", h.Reviews.Update).Methods(http.MethodPut)
	reviews.HandleFunc("/patch/{id}", h.Reviews.Patch).Methods(http.MethodPatch)
	reviews.HandleFunc("/delete/{id}", h.Reviews.Delete).Methods(http.MethodDelete)

	return router
}

func registerOwnerRoutes(r *mux.Router, h ownerRoutes) {
	r.HandleFunc("/findAll", h.FindAll).Methods(http.MethodGet)
	r.HandleFunc("/findById/{id}", h.FindByID).Methods(http.MethodGet)
	r.HandleFunc("/findByImdbId/{imdbId}", h.FindByImdbID).Methods(http.MethodGet)
	r.HandleFunc("/save", h.Save).Methods(http.MethodPost)
	r.HandleFunc("/update/{id}", h.Update).Methods(http.MethodPut)
	r.HandleFunc("/patch/{id}", h.Patch).Methods(http.MethodPatch)
	r.HandleFunc("/delete/{id}", h.Delete).Methods(http.MethodDelete)
}
