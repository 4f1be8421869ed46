package store

import (
	"testing"

	"larder/internal/nutrition"
)

func TestEnsureDay(t *testing.T) {
	st := testDB(t).Store()

	day, err := st.EnsureDay("2026-08-30")
	if err != nil {
		t.Fatalf("EnsureDay: %v", err)
	}
	if day.Date != "2026-08-30" {
		t.Errorf("Date = %q", day.Date)
	}

	// Idempotent.
	again, err := st.EnsureDay("2026-08-30")
	if err != nil {
		t.Fatalf("EnsureDay again: %v", err)
	}
	if again.ID != day.ID {
		t.Errorf("second EnsureDay got ID %d, want %d", again.ID, day.ID)
	}
}

func TestMealEntryCRUD(t *testing.T) {
	st := testDB(t).Store()

	day, err := st.EnsureDay("2026-08-30")
	if err != nil {
		t.Fatalf("EnsureDay: %v", err)
	}
	f := &FoodItem{Name: "Banana", ServingSize: 1, ServingUnit: "each",
		Nutrition: nutrition.Vector{Calories: 105}}
	if err := st.CreateFood(f); err != nil {
		t.Fatalf("CreateFood: %v", err)
	}

	m := &MealEntry{
		DayID:        day.ID,
		FoodID:       f.ID,
		Servings:     2,
		PercentEaten: 100,
		Nutrition:    nutrition.Vector{Calories: 210},
	}
	if err := st.CreateMealEntry(m); err != nil {
		t.Fatalf("CreateMealEntry: %v", err)
	}
	if m.ID == "" {
		t.Fatal("CreateMealEntry did not set ID")
	}

	got, err := st.GetMealEntry(m.ID)
	if err != nil {
		t.Fatalf("GetMealEntry: %v", err)
	}
	if got.FoodID != f.ID || got.RecipeID != 0 {
		t.Errorf("sources = food %d, recipe %d", got.FoodID, got.RecipeID)
	}
	if got.Nutrition.Calories != 210 {
		t.Errorf("Calories = %g, want 210", got.Nutrition.Calories)
	}

	got.Servings = 1
	got.PercentEaten = 50
	if err := st.UpdateMealEntry(got); err != nil {
		t.Fatalf("UpdateMealEntry: %v", err)
	}
	if err := st.UpdateMealNutrition(got.ID, nutrition.Vector{Calories: 52.5}); err != nil {
		t.Fatalf("UpdateMealNutrition: %v", err)
	}

	list, err := st.MealEntriesFor(day.ID)
	if err != nil {
		t.Fatalf("MealEntriesFor: %v", err)
	}
	if len(list) != 1 || list[0].PercentEaten != 50 || list[0].Nutrition.Calories != 52.5 {
		t.Errorf("MealEntriesFor = %+v", list)
	}

	if err := st.DeleteMealEntry(m.ID); err != nil {
		t.Fatalf("DeleteMealEntry: %v", err)
	}
	gone, err := st.GetMealEntry(m.ID)
	if err != nil {
		t.Fatalf("GetMealEntry after delete: %v", err)
	}
	if gone != nil {
		t.Error("entry still present after delete")
	}
}

func TestDayIDsReferencing(t *testing.T) {
	st := testDB(t).Store()

	f := &FoodItem{Name: "Rice", ServingSize: 100, ServingUnit: "g"}
	if err := st.CreateFood(f); err != nil {
		t.Fatalf("CreateFood: %v", err)
	}
	r := &Recipe{Name: "Fried Rice", ServingsProduced: 2}
	if err := st.CreateRecipe(r); err != nil {
		t.Fatalf("CreateRecipe: %v", err)
	}

	d1, err := st.EnsureDay("2026-08-29")
	if err != nil {
		t.Fatalf("EnsureDay: %v", err)
	}
	d2, err := st.EnsureDay("2026-08-30")
	if err != nil {
		t.Fatalf("EnsureDay: %v", err)
	}
	// d1 logs the food directly, d2 logs the recipe, d3 logs nothing.
	if _, err := st.EnsureDay("2026-08-31"); err != nil {
		t.Fatalf("EnsureDay: %v", err)
	}
	if err := st.CreateMealEntry(&MealEntry{DayID: d1.ID, FoodID: f.ID, Servings: 1, PercentEaten: 100}); err != nil {
		t.Fatalf("CreateMealEntry: %v", err)
	}
	if err := st.CreateMealEntry(&MealEntry{DayID: d2.ID, RecipeID: r.ID, Servings: 1, PercentEaten: 100}); err != nil {
		t.Fatalf("CreateMealEntry: %v", err)
	}

	ids, err := st.DayIDsReferencing([]int64{r.ID}, []int64{f.ID})
	if err != nil {
		t.Fatalf("DayIDsReferencing: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ids = %v, want 2 days", ids)
	}

	ids, err = st.DayIDsReferencing(nil, []int64{f.ID})
	if err != nil {
		t.Fatalf("DayIDsReferencing: %v", err)
	}
	if len(ids) != 1 || ids[0] != d1.ID {
		t.Errorf("ids = %v, want [%d]", ids, d1.ID)
	}

	ids, err = st.DayIDsReferencing(nil, nil)
	if err != nil {
		t.Fatalf("DayIDsReferencing(nil, nil): %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ids = %v, want empty", ids)
	}
}
