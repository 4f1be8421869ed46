package engine

import (
	"errors"
	"testing"

	"larder/internal/nutrition"
	"larder/internal/store"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func mustFood(t *testing.T, e *Engine, name string, size float64, unit string, v nutrition.Vector) *store.FoodItem {
	t.Helper()
	f := &store.FoodItem{Name: name, ServingSize: size, ServingUnit: unit, Nutrition: v}
	if err := e.CreateFoodItem(f); err != nil {
		t.Fatalf("CreateFoodItem(%s): %v", name, err)
	}
	return f
}

func mustRecipe(t *testing.T, e *Engine, name string, servings float64) *store.Recipe {
	t.Helper()
	r := &store.Recipe{Name: name, ServingsProduced: servings}
	if err := e.CreateRecipe(r); err != nil {
		t.Fatalf("CreateRecipe(%s): %v", name, err)
	}
	return r
}

func mustIngredient(t *testing.T, e *Engine, recipeID, foodID int64, qty float64, unit string) *store.RecipeIngredient {
	t.Helper()
	ing := &store.RecipeIngredient{RecipeID: recipeID, FoodID: foodID, Quantity: qty, Unit: unit}
	if _, err := e.AddIngredient(ing); err != nil {
		t.Fatalf("AddIngredient: %v", err)
	}
	return ing
}

func recipeCalories(t *testing.T, e *Engine, id int64) float64 {
	t.Helper()
	r, err := e.DB.Store().GetRecipe(id)
	if err != nil {
		t.Fatalf("GetRecipe: %v", err)
	}
	if r == nil {
		t.Fatalf("recipe %d missing", id)
	}
	return r.Nutrition.Calories
}

func TestCreateFoodItemResolvesUnits(t *testing.T) {
	e := testEngine(t)

	f := mustFood(t, e, "Peanut Butter", 2, "tbsp (16g)", nutrition.Vector{Calories: 190})
	if f.GramsPerServing != 16 {
		t.Errorf("GramsPerServing = %g, want 16", f.GramsPerServing)
	}
	if f.BaseUnitKind != "volume" {
		t.Errorf("BaseUnitKind = %q, want volume", f.BaseUnitKind)
	}
}

func TestCreateFoodItemValidation(t *testing.T) {
	e := testEngine(t)

	err := e.CreateFoodItem(&store.FoodItem{Name: "", ServingSize: 1, ServingUnit: "g"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("missing name: err = %v, want ErrValidation", err)
	}

	err = e.CreateFoodItem(&store.FoodItem{Name: "Oats", ServingSize: 0, ServingUnit: "g"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("zero serving size: err = %v, want ErrValidation", err)
	}
}

func TestDeleteFoodItemGuard(t *testing.T) {
	e := testEngine(t)

	oats := mustFood(t, e, "Oats", 40, "g", nutrition.Vector{Calories: 150})
	granola := mustRecipe(t, e, "Granola", 8)
	ing := mustIngredient(t, e, granola.ID, oats.ID, 320, "g")

	err := e.DeleteFoodItem(oats.ID)
	if !errors.Is(err, ErrInUse) {
		t.Errorf("err = %v, want ErrInUse", err)
	}

	// Still there.
	f, err := e.DB.Store().GetFood(oats.ID)
	if err != nil {
		t.Fatalf("GetFood: %v", err)
	}
	if f == nil {
		t.Error("food deleted despite the guard")
	}

	if _, err := e.RemoveIngredient(ing.ID); err != nil {
		t.Fatalf("RemoveIngredient: %v", err)
	}
	if err := e.DeleteFoodItem(oats.ID); err != nil {
		t.Errorf("DeleteFoodItem after unreferencing: %v", err)
	}
}

func TestDeleteRecipeGuard(t *testing.T) {
	e := testEngine(t)

	dough := mustRecipe(t, e, "Dough", 4)
	pizza := mustRecipe(t, e, "Pizza", 2)
	if _, _, err := e.AddComponent(pizza.ID, dough.ID, 2); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	err := e.DeleteRecipe(dough.ID)
	if !errors.Is(err, ErrInUse) {
		t.Errorf("err = %v, want ErrInUse", err)
	}
}

func TestDeleteFoodItemNotFound(t *testing.T) {
	e := testEngine(t)
	if err := e.DeleteFoodItem(42); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestConvertMultiplier(t *testing.T) {
	e := testEngine(t)

	pb := mustFood(t, e, "Peanut Butter", 2, "tbsp (16g)", nutrition.Vector{Calories: 190})
	m, err := e.ConvertMultiplier(8, "tbsp", pb.ID)
	if err != nil {
		t.Fatalf("ConvertMultiplier: %v", err)
	}
	if m != 4 {
		t.Errorf("multiplier = %g, want 4", m)
	}

	if _, err := e.ConvertMultiplier(1, "g", 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAddIngredientValidation(t *testing.T) {
	e := testEngine(t)

	r := mustRecipe(t, e, "Granola", 8)
	f := mustFood(t, e, "Oats", 40, "g", nutrition.Vector{Calories: 150})

	_, err := e.AddIngredient(&store.RecipeIngredient{RecipeID: r.ID, FoodID: f.ID, Quantity: 0, Unit: "g"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("zero quantity: err = %v, want ErrValidation", err)
	}

	_, err = e.AddIngredient(&store.RecipeIngredient{RecipeID: r.ID, FoodID: 999, Quantity: 10, Unit: "g"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing food: err = %v, want ErrNotFound", err)
	}

	_, err = e.AddIngredient(&store.RecipeIngredient{RecipeID: 999, FoodID: f.ID, Quantity: 10, Unit: "g"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing recipe: err = %v, want ErrNotFound", err)
	}
}
