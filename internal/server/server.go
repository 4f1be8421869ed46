package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"larder/internal/engine"
	"larder/internal/store"
	"larder/internal/units"
)

// Server is the larder HTTP API server.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server with the given database, engine, and version.
func New(db *store.DB, eng *engine.Engine, version string) *Server {
	s := &Server{
		db:      db,
		engine:  eng,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/convert", s.handleConvert)

		r.Route("/foods", func(r chi.Router) {
			r.Get("/", s.handleListFoods)
			r.Post("/", s.handleCreateFood)
			r.Post("/recalculate", s.handleRecalculateFoods)
			r.Get("/{foodID}", s.handleGetFood)
			r.Put("/{foodID}", s.handleUpdateFood)
			r.Delete("/{foodID}", s.handleDeleteFood)
		})

		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", s.handleListRecipes)
			r.Post("/", s.handleCreateRecipe)
			r.Get("/{recipeID}", s.handleGetRecipe)
			r.Delete("/{recipeID}", s.handleDeleteRecipe)
			r.Post("/{recipeID}/recalculate", s.handleRecalculateRecipe)
			r.Post("/{recipeID}/ingredients", s.handleAddIngredient)
			r.Post("/{recipeID}/components", s.handleAddComponent)
			r.Get("/{recipeID}/components", s.handleTransitiveComponents)
		})
		r.Put("/ingredients/{ingredientID}", s.handleUpdateIngredient)
		r.Delete("/ingredients/{ingredientID}", s.handleDeleteIngredient)
		r.Delete("/components/{edgeID}", s.handleDeleteComponent)

		r.Route("/days/{date}", func(r chi.Router) {
			r.Get("/", s.handleGetDay)
			r.Post("/recalculate", s.handleRecalculateDay)
			r.Post("/meals", s.handleAddMealEntry)
			r.Post("/exercises", s.handleAddExercise)
		})
		r.Put("/meals/{mealID}", s.handleUpdateMealEntry)
		r.Delete("/meals/{mealID}", s.handleDeleteMealEntry)

		r.Post("/exercises/{exerciseID}/segments", s.handleAddSegment)
		r.Delete("/exercises/{exerciseID}", s.handleDeleteExercise)
		r.Put("/segments/{segmentID}", s.handleUpdateSegment)
		r.Delete("/segments/{segmentID}", s.handleDeleteSegment)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine error kinds onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var convErr *units.ConversionError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrCycle), errors.Is(err, engine.ErrInUse):
		status = http.StatusConflict
	case errors.As(err, &convErr):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
