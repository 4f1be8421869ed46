package server

import (
	"fmt"
	"net/http"
	"testing"
)

func createFood(t *testing.T, srv *Server, body string) int64 {
	t.Helper()
	w, resp := doJSON(t, srv, "POST", "/api/foods", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create food: status = %d, body: %s", w.Code, w.Body.String())
	}
	return int64(resp["id"].(float64))
}

func createRecipe(t *testing.T, srv *Server, body string) int64 {
	t.Helper()
	w, resp := doJSON(t, srv, "POST", "/api/recipes", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create recipe: status = %d, body: %s", w.Code, w.Body.String())
	}
	return int64(resp["id"].(float64))
}

func TestFoodLifecycle(t *testing.T) {
	srv := testServer(t)

	id := createFood(t, srv, `{
		"name": "Peanut Butter",
		"serving_size": 2,
		"serving_unit": "tbsp (16g)",
		"nutrition": {"calories": 190, "protein": 7, "fat": 16}
	}`)

	w, resp := doJSON(t, srv, "GET", fmt.Sprintf("/api/foods/%d", id), "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: status = %d", w.Code)
	}
	if resp["grams_per_serving"].(float64) != 16 {
		t.Errorf("grams_per_serving = %v, want 16", resp["grams_per_serving"])
	}

	w, _ = doJSON(t, srv, "GET", "/api/foods/999", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing food: status = %d, want 404", w.Code)
	}

	w, _ = doJSON(t, srv, "POST", "/api/foods", `{"name": "", "serving_size": 1, "serving_unit": "g"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid food: status = %d, want 400", w.Code)
	}

	w, _ = doJSON(t, srv, "DELETE", fmt.Sprintf("/api/foods/%d", id), "")
	if w.Code != http.StatusOK {
		t.Errorf("delete: status = %d", w.Code)
	}
}

func TestFoodUpdateCascades(t *testing.T) {
	srv := testServer(t)

	foodID := createFood(t, srv, `{
		"name": "Oats", "serving_size": 40, "serving_unit": "g",
		"nutrition": {"calories": 150}
	}`)
	recipeID := createRecipe(t, srv, `{"name": "Granola", "servings_produced": 8}`)

	w, _ := doJSON(t, srv, "POST", fmt.Sprintf("/api/recipes/%d/ingredients", recipeID),
		fmt.Sprintf(`{"food_id": %d, "quantity": 320, "unit": "g"}`, foodID))
	if w.Code != http.StatusCreated {
		t.Fatalf("add ingredient: status = %d, body: %s", w.Code, w.Body.String())
	}

	w, resp := doJSON(t, srv, "PUT", fmt.Sprintf("/api/foods/%d", foodID), `{
		"name": "Oats", "serving_size": 40, "serving_unit": "g",
		"nutrition": {"calories": 200}
	}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update: status = %d, body: %s", w.Code, w.Body.String())
	}
	cascade := resp["cascade"].(map[string]any)
	if cascade["recipes_recalculated"].(float64) != 1 {
		t.Errorf("recipes_recalculated = %v, want 1", cascade["recipes_recalculated"])
	}

	w, resp = doJSON(t, srv, "GET", fmt.Sprintf("/api/recipes/%d", recipeID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("get recipe: status = %d", w.Code)
	}
	recipe := resp["recipe"].(map[string]any)
	calories := recipe["nutrition"].(map[string]any)["calories"].(float64)
	if calories != 200 {
		t.Errorf("recipe calories = %g, want 200", calories)
	}
}

func TestDeleteFoodInUse(t *testing.T) {
	srv := testServer(t)

	foodID := createFood(t, srv, `{"name": "Oats", "serving_size": 40, "serving_unit": "g"}`)
	recipeID := createRecipe(t, srv, `{"name": "Granola", "servings_produced": 8}`)
	w, _ := doJSON(t, srv, "POST", fmt.Sprintf("/api/recipes/%d/ingredients", recipeID),
		fmt.Sprintf(`{"food_id": %d, "quantity": 320, "unit": "g"}`, foodID))
	if w.Code != http.StatusCreated {
		t.Fatalf("add ingredient: status = %d", w.Code)
	}

	w, _ = doJSON(t, srv, "DELETE", fmt.Sprintf("/api/foods/%d", foodID), "")
	if w.Code != http.StatusConflict {
		t.Errorf("delete in-use food: status = %d, want 409", w.Code)
	}
}

func TestComponentCycleRejected(t *testing.T) {
	srv := testServer(t)

	a := createRecipe(t, srv, `{"name": "A", "servings_produced": 1}`)
	b := createRecipe(t, srv, `{"name": "B", "servings_produced": 1}`)

	w, _ := doJSON(t, srv, "POST", fmt.Sprintf("/api/recipes/%d/components", a),
		fmt.Sprintf(`{"component_id": %d, "servings": 1}`, b))
	if w.Code != http.StatusCreated {
		t.Fatalf("add component: status = %d, body: %s", w.Code, w.Body.String())
	}

	w, _ = doJSON(t, srv, "POST", fmt.Sprintf("/api/recipes/%d/components", b),
		fmt.Sprintf(`{"component_id": %d, "servings": 1}`, a))
	if w.Code != http.StatusConflict {
		t.Errorf("cycle edge: status = %d, want 409", w.Code)
	}

	// The transitive closure of A is still just B.
	w, resp := doJSON(t, srv, "GET", fmt.Sprintf("/api/recipes/%d/components", a), "")
	if w.Code != http.StatusOK {
		t.Fatalf("closure: status = %d", w.Code)
	}
	ids := resp["component_ids"].([]any)
	if len(ids) != 1 || int64(ids[0].(float64)) != b {
		t.Errorf("component_ids = %v, want [%d]", ids, b)
	}
}

func TestMealEntryDayTotals(t *testing.T) {
	srv := testServer(t)

	foodID := createFood(t, srv, `{
		"name": "Banana", "serving_size": 1, "serving_unit": "each",
		"nutrition": {"calories": 105}
	}`)

	w, resp := doJSON(t, srv, "POST", "/api/days/2026-08-30/meals",
		fmt.Sprintf(`{"food_id": %d, "servings": 2}`, foodID))
	if w.Code != http.StatusCreated {
		t.Fatalf("add meal: status = %d, body: %s", w.Code, w.Body.String())
	}
	mealID := resp["id"].(string)

	w, resp = doJSON(t, srv, "GET", "/api/days/2026-08-30", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get day: status = %d", w.Code)
	}
	day := resp["day"].(map[string]any)
	if day["nutrition"].(map[string]any)["calories"].(float64) != 210 {
		t.Errorf("day calories = %v, want 210", day["nutrition"])
	}

	w, _ = doJSON(t, srv, "PUT", "/api/meals/"+mealID, `{"servings": 1, "percent_eaten": 50}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update meal: status = %d, body: %s", w.Code, w.Body.String())
	}

	_, resp = doJSON(t, srv, "GET", "/api/days/2026-08-30", "")
	day = resp["day"].(map[string]any)
	if day["nutrition"].(map[string]any)["calories"].(float64) != 52.5 {
		t.Errorf("day calories = %v, want 52.5", day["nutrition"])
	}

	w, _ = doJSON(t, srv, "DELETE", "/api/meals/"+mealID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete meal: status = %d", w.Code)
	}
}

func TestRecalculateDayRoute(t *testing.T) {
	srv := testServer(t)

	foodID := createFood(t, srv, `{
		"name": "Banana", "serving_size": 1, "serving_unit": "each",
		"nutrition": {"calories": 105}
	}`)
	w, _ := doJSON(t, srv, "POST", "/api/days/2026-08-30/meals",
		fmt.Sprintf(`{"food_id": %d, "servings": 2}`, foodID))
	if w.Code != http.StatusCreated {
		t.Fatalf("add meal: status = %d, body: %s", w.Code, w.Body.String())
	}

	w, resp := doJSON(t, srv, "POST", "/api/days/2026-08-30/recalculate", "")
	if w.Code != http.StatusOK {
		t.Fatalf("recalculate: status = %d, body: %s", w.Code, w.Body.String())
	}
	day := resp["day"].(map[string]any)
	if day["nutrition"].(map[string]any)["calories"].(float64) != 210 {
		t.Errorf("day calories = %v, want 210", day["nutrition"])
	}

	// Recalculating a day with nothing logged is a no-op, not an error.
	w, _ = doJSON(t, srv, "POST", "/api/days/2026-01-01/recalculate", "")
	if w.Code != http.StatusOK {
		t.Errorf("empty day: status = %d, want 200", w.Code)
	}
}

func TestGetDayEmpty(t *testing.T) {
	srv := testServer(t)

	w, resp := doJSON(t, srv, "GET", "/api/days/2026-01-01", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	day := resp["day"].(map[string]any)
	if day["date"] != "2026-01-01" {
		t.Errorf("date = %v", day["date"])
	}

	w, _ = doJSON(t, srv, "GET", "/api/days/not-a-date", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d, want 400", w.Code)
	}
}

func TestExerciseRoutes(t *testing.T) {
	srv := testServer(t)

	w, resp := doJSON(t, srv, "POST", "/api/days/2026-08-30/exercises", `{"name": "Treadmill"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("add exercise: status = %d, body: %s", w.Code, w.Body.String())
	}
	exID := int64(resp["id"].(float64))

	w, resp = doJSON(t, srv, "POST", fmt.Sprintf("/api/exercises/%d/segments", exID),
		`{"duration_min": 30, "speed_mph": 3, "incline_percent": 2}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("add segment: status = %d, body: %s", w.Code, w.Body.String())
	}
	if resp["calories"].(float64) != 125.9 {
		t.Errorf("segment calories = %v, want 125.9", resp["calories"])
	}

	_, resp = doJSON(t, srv, "GET", "/api/days/2026-08-30", "")
	day := resp["day"].(map[string]any)
	if day["calories_burned"].(float64) != 125.9 {
		t.Errorf("day calories_burned = %v, want 125.9", day["calories_burned"])
	}
}

func TestConvertEndpoint(t *testing.T) {
	srv := testServer(t)

	foodID := createFood(t, srv, `{
		"name": "Peanut Butter", "serving_size": 2, "serving_unit": "tbsp (16g)",
		"nutrition": {"calories": 190}
	}`)

	w, resp := doJSON(t, srv, "POST", "/api/convert",
		fmt.Sprintf(`{"quantity": 8, "unit": "tbsp", "food_id": %d}`, foodID))
	if w.Code != http.StatusOK {
		t.Fatalf("convert: status = %d, body: %s", w.Code, w.Body.String())
	}
	if resp["multiplier"].(float64) != 4 {
		t.Errorf("multiplier = %v, want 4", resp["multiplier"])
	}

	w, resp = doJSON(t, srv, "POST", "/api/convert",
		fmt.Sprintf(`{"quantity": 1, "unit": "handful", "food_id": %d}`, foodID))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unconvertible: status = %d, want 422", w.Code)
	}
	if resp["fallback"].(float64) != 1 {
		t.Errorf("fallback = %v, want 1", resp["fallback"])
	}
}
