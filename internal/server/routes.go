package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"larder/internal/nutrition"
	"larder/internal/store"
	"larder/internal/units"
)

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func dateParam(r *http.Request) (string, bool) {
	date := chi.URLParam(r, "date")
	_, err := time.Parse("2006-01-02", date)
	return date, err == nil
}

type foodRequest struct {
	Name        string           `json:"name"`
	ServingSize float64          `json:"serving_size"`
	ServingUnit string           `json:"serving_unit"`
	Nutrition   nutrition.Vector `json:"nutrition"`
}

func (s *Server) handleCreateFood(w http.ResponseWriter, r *http.Request) {
	var req foodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	f := &store.FoodItem{
		Name:        req.Name,
		ServingSize: req.ServingSize,
		ServingUnit: req.ServingUnit,
		Nutrition:   req.Nutrition,
	}
	if err := s.engine.CreateFoodItem(f); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleListFoods(w http.ResponseWriter, r *http.Request) {
	foods, err := s.db.Store().ListFoods()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"foods": foods})
}

func (s *Server) handleGetFood(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "foodID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid food id"})
		return
	}
	f, err := s.db.Store().GetFood(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if f == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "food item not found"})
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// handleUpdateFood rewrites a food item and runs the cascade; the response
// reports what was recalculated.
func (s *Server) handleUpdateFood(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "foodID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid food id"})
		return
	}
	var req foodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	f := &store.FoodItem{
		ID:          id,
		Name:        req.Name,
		ServingSize: req.ServingSize,
		ServingUnit: req.ServingUnit,
		Nutrition:   req.Nutrition,
	}
	res, err := s.engine.UpdateFoodItem(f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"food": f, "cascade": res})
}

func (s *Server) handleDeleteFood(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "foodID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid food id"})
		return
	}
	if err := s.engine.DeleteFoodItem(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleRecalculateFoods(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	res, err := s.engine.CascadeFromFoodItems(req.IDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateRecipe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name             string  `json:"name"`
		ServingsProduced float64 `json:"servings_produced"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	rec := &store.Recipe{Name: req.Name, ServingsProduced: req.ServingsProduced}
	if err := s.engine.CreateRecipe(rec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := s.db.Store().ListRecipes()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recipes": recipes})
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "recipeID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid recipe id"})
		return
	}

	st := s.db.Store()
	rec, err := st.GetRecipe(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "recipe not found"})
		return
	}
	ingredients, err := st.IngredientsFor(id)
	if err != nil {
		writeError(w, err)
		return
	}
	components, err := st.ComponentsFor(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recipe":      rec,
		"ingredients": ingredients,
		"components":  components,
	})
}

func (s *Server) handleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "recipeID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid recipe id"})
		return
	}
	if err := s.engine.DeleteRecipe(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleRecalculateRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "recipeID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid recipe id"})
		return
	}
	v, err := s.engine.RecalculateRecipe(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nutrition": v})
}

func (s *Server) handleAddIngredient(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := idParam(r, "recipeID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid recipe id"})
		return
	}
	var req struct {
		FoodID   int64   `json:"food_id"`
		Quantity float64 `json:"quantity"`
		Unit     string  `json:"unit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ing := &store.RecipeIngredient{
		RecipeID: recipeID,
		FoodID:   req.FoodID,
		Quantity: req.Quantity,
		Unit:     req.Unit,
	}
	res, err := s.engine.AddIngredient(ing)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ingredient": ing, "cascade": res})
}

func (s *Server) handleUpdateIngredient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "ingredientID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient id"})
		return
	}
	var req struct {
		FoodID   int64   `json:"food_id"`
		Quantity float64 `json:"quantity"`
		Unit     string  `json:"unit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ing := &store.RecipeIngredient{ID: id, FoodID: req.FoodID, Quantity: req.Quantity, Unit: req.Unit}
	res, err := s.engine.UpdateIngredient(ing)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ingredient": ing, "cascade": res})
}

func (s *Server) handleDeleteIngredient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "ingredientID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient id"})
		return
	}
	res, err := s.engine.RemoveIngredient(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "cascade": res})
}

func (s *Server) handleAddComponent(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := idParam(r, "recipeID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid recipe id"})
		return
	}
	var req struct {
		ComponentID int64   `json:"component_id"`
		Servings    float64 `json:"servings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	edge, res, err := s.engine.AddComponent(recipeID, req.ComponentID, req.Servings)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"component": edge, "cascade": res})
}

func (s *Server) handleDeleteComponent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "edgeID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid component id"})
		return
	}
	res, err := s.engine.RemoveComponent(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "cascade": res})
}

func (s *Server) handleTransitiveComponents(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "recipeID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid recipe id"})
		return
	}
	ids, err := s.engine.TransitiveComponents(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"component_ids": ids})
}

func (s *Server) handleGetDay(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, want YYYY-MM-DD"})
		return
	}

	st := s.db.Store()
	day, err := st.DayByDate(date)
	if err != nil {
		writeError(w, err)
		return
	}
	if day == nil {
		// A day with nothing logged is an empty day, not an error.
		writeJSON(w, http.StatusOK, map[string]any{"day": store.Day{Date: date}, "meals": []store.MealEntry{}})
		return
	}
	meals, err := st.MealEntriesFor(day.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	exercises, err := st.ExercisesFor(day.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"day": day, "meals": meals, "exercises": exercises})
}

func (s *Server) handleRecalculateDay(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, want YYYY-MM-DD"})
		return
	}

	day, err := s.db.Store().DayByDate(date)
	if err != nil {
		writeError(w, err)
		return
	}
	if day == nil {
		writeJSON(w, http.StatusOK, map[string]any{"day": store.Day{Date: date}})
		return
	}
	if _, err := s.engine.RecalculateDay(day.ID); err != nil {
		writeError(w, err)
		return
	}
	fresh, err := s.db.Store().GetDay(day.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"day": fresh})
}

func (s *Server) handleAddMealEntry(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, want YYYY-MM-DD"})
		return
	}
	var req struct {
		RecipeID     int64    `json:"recipe_id"`
		FoodID       int64    `json:"food_id"`
		Servings     float64  `json:"servings"`
		PercentEaten *float64 `json:"percent_eaten"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	percent := 100.0
	if req.PercentEaten != nil {
		percent = *req.PercentEaten
	}
	entry := &store.MealEntry{
		RecipeID:     req.RecipeID,
		FoodID:       req.FoodID,
		Servings:     req.Servings,
		PercentEaten: percent,
	}
	if _, err := s.engine.AddMealEntry(date, entry); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleUpdateMealEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "mealID")
	var req struct {
		Servings     float64 `json:"servings"`
		PercentEaten float64 `json:"percent_eaten"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	entry, err := s.engine.UpdateMealEntry(id, req.Servings, req.PercentEaten)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteMealEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "mealID")
	if err := s.engine.DeleteMealEntry(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, want YYYY-MM-DD"})
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ex, err := s.engine.AddExercise(date, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ex)
}

func (s *Server) handleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "exerciseID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid exercise id"})
		return
	}
	if err := s.engine.DeleteExercise(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type segmentRequest struct {
	DurationMin    float64 `json:"duration_min"`
	SpeedMPH       float64 `json:"speed_mph"`
	DistanceMi     float64 `json:"distance_mi"`
	InclinePercent float64 `json:"incline_percent"`
}

func (s *Server) handleAddSegment(w http.ResponseWriter, r *http.Request) {
	exerciseID, ok := idParam(r, "exerciseID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid exercise id"})
		return
	}
	var req segmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	seg := &store.ExerciseSegment{
		DurationMin:    req.DurationMin,
		SpeedMPH:       req.SpeedMPH,
		DistanceMi:     req.DistanceMi,
		InclinePercent: req.InclinePercent,
	}
	if _, err := s.engine.AddSegment(exerciseID, seg); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, seg)
}

func (s *Server) handleUpdateSegment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "segmentID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid segment id"})
		return
	}
	var req segmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	seg := &store.ExerciseSegment{
		ID:             id,
		DurationMin:    req.DurationMin,
		SpeedMPH:       req.SpeedMPH,
		DistanceMi:     req.DistanceMi,
		InclinePercent: req.InclinePercent,
	}
	if _, err := s.engine.UpdateSegment(seg); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seg)
}

func (s *Server) handleDeleteSegment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "segmentID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid segment id"})
		return
	}
	if err := s.engine.DeleteSegment(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleConvert exposes the unit converter for ad-hoc checks.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity float64 `json:"quantity"`
		Unit     string  `json:"unit"`
		FoodID   int64   `json:"food_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	mult, err := s.engine.ConvertMultiplier(req.Quantity, req.Unit, req.FoodID)
	if err != nil {
		var convErr *units.ConversionError
		if errors.As(err, &convErr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":    convErr.Error(),
				"fallback": convErr.Fallback,
			})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"multiplier": mult})
}
