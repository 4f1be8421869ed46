package engine

import (
	"errors"
	"fmt"
	"log"

	"larder/internal/nutrition"
	"larder/internal/store"
	"larder/internal/units"
)

// CascadeResult reports what a cascade touched.
type CascadeResult struct {
	RecipesRecalculated int      `json:"recipes_recalculated"`
	DaysRecalculated    int      `json:"days_recalculated"`
	Warnings            []string `json:"warnings,omitempty"`
}

// cascade recalculates every cached aggregate transitively affected by the
// seed food items and recipes. One traversal serves both trigger shapes;
// callers run it inside a single transaction.
//
//  1. discover recipes with an ingredient edge to a seed food
//  2. expand to the ancestor closure over component edges
//  3. topologically order the discovered set
//  4. recalculate each recipe in order, persisting before moving on so
//     parents read fresh children
//  5. recalculate every day with a meal entry referencing a discovered
//     recipe or a seed food
func (e *Engine) cascade(s *store.Store, foodIDs, recipeSeeds []int64) (CascadeResult, error) {
	var res CascadeResult

	discovered := make(map[int64]bool)
	var frontier []int64

	direct, err := s.RecipeIDsUsingFoods(foodIDs)
	if err != nil {
		return res, err
	}
	for _, id := range append(direct, recipeSeeds...) {
		if !discovered[id] {
			discovered[id] = true
			frontier = append(frontier, id)
		}
	}

	// Ancestor closure to fixpoint.
	for len(frontier) > 0 {
		parents, err := s.RecipeIDsUsingRecipes(frontier)
		if err != nil {
			return res, err
		}
		frontier = frontier[:0]
		for _, id := range parents {
			if !discovered[id] {
				discovered[id] = true
				frontier = append(frontier, id)
			}
		}
	}

	recipeIDs := make([]int64, 0, len(discovered))
	for id := range discovered {
		recipeIDs = append(recipeIDs, id)
	}

	edges, err := s.ComponentEdges()
	if err != nil {
		return res, err
	}
	ordered, err := orderRecipes(recipeIDs, edges)
	if err != nil {
		return res, err
	}

	for _, id := range ordered {
		if _, err := e.recalcRecipe(s, id, &res.Warnings); err != nil {
			return res, err
		}
		res.RecipesRecalculated++
	}

	dayIDs, err := s.DayIDsReferencing(recipeIDs, foodIDs)
	if err != nil {
		return res, err
	}

	foodSet := make(map[int64]bool, len(foodIDs))
	for _, id := range foodIDs {
		foodSet[id] = true
	}
	for _, dayID := range dayIDs {
		if err := e.recalcDay(s, dayID, discovered, foodSet); err != nil {
			return res, err
		}
		res.DaysRecalculated++
	}

	return res, nil
}

// recalcRecipe recomputes one recipe's cached per-serving vector:
// ingredient contributions scaled by the unit multiplier, plus component
// contributions scaled by their servings, divided by servings produced.
func (e *Engine) recalcRecipe(s *store.Store, recipeID int64, warnings *[]string) (nutrition.Vector, error) {
	r, err := s.GetRecipe(recipeID)
	if err != nil {
		return nutrition.Vector{}, err
	}
	if r == nil {
		return nutrition.Vector{}, fmt.Errorf("recipe %d: %w", recipeID, ErrNotFound)
	}

	var total nutrition.Vector

	ingredients, err := s.IngredientsFor(recipeID)
	if err != nil {
		return nutrition.Vector{}, err
	}
	for _, ing := range ingredients {
		f, err := s.GetFood(ing.FoodID)
		if err != nil {
			return nutrition.Vector{}, err
		}
		if f == nil {
			return nutrition.Vector{}, fmt.Errorf("food item %d (ingredient of recipe %d): %w",
				ing.FoodID, recipeID, ErrNotFound)
		}

		mult, err := units.Multiplier(ing.Quantity, ing.Unit, foodRef(f))
		if err != nil {
			var convErr *units.ConversionError
			if !errors.As(err, &convErr) || !e.BestEffortUnits {
				return nutrition.Vector{}, fmt.Errorf("recipe %q ingredient %q: %w", r.Name, f.Name, err)
			}
			mult = convErr.Fallback
			warning := fmt.Sprintf("recipe %q ingredient %q: %v; treating quantity as servings", r.Name, f.Name, convErr)
			*warnings = append(*warnings, warning)
			log.Printf("units: %s", warning)
		}

		total = total.Add(f.Nutrition.Scale(mult))
	}

	components, err := s.ComponentsFor(recipeID)
	if err != nil {
		return nutrition.Vector{}, err
	}
	for _, c := range components {
		child, err := s.GetRecipe(c.ComponentID)
		if err != nil {
			return nutrition.Vector{}, err
		}
		if child == nil {
			return nutrition.Vector{}, fmt.Errorf("recipe %d (component of recipe %d): %w",
				c.ComponentID, recipeID, ErrNotFound)
		}
		total = total.Add(child.Nutrition.Scale(c.Servings))
	}

	perServing := total.Scale(1 / r.ServingsProduced)
	if err := s.UpdateRecipeNutrition(recipeID, perServing); err != nil {
		return nutrition.Vector{}, err
	}
	return perServing, nil
}

// recalcDay recomputes the cached vectors of a day's affected meal entries
// from their current sources, then re-sums the day total from all entries.
// Nil filter sets mean every entry is affected.
func (e *Engine) recalcDay(s *store.Store, dayID int64, recipeSet, foodSet map[int64]bool) error {
	entries, err := s.MealEntriesFor(dayID)
	if err != nil {
		return err
	}

	var total nutrition.Vector
	for i := range entries {
		m := &entries[i]

		affected := recipeSet == nil && foodSet == nil
		if m.RecipeID != 0 && recipeSet[m.RecipeID] {
			affected = true
		}
		if m.FoodID != 0 && foodSet[m.FoodID] {
			affected = true
		}

		if affected {
			v, err := e.mealNutrition(s, m)
			if err != nil {
				return err
			}
			if err := s.UpdateMealNutrition(m.ID, v); err != nil {
				return err
			}
			m.Nutrition = v
		}
		total = total.Add(m.Nutrition)
	}

	return s.UpdateDayNutrition(dayID, total)
}

// mealNutrition computes an entry's cached vector from its current source:
// per-serving vector × servings × percent eaten.
func (e *Engine) mealNutrition(s *store.Store, m *store.MealEntry) (nutrition.Vector, error) {
	var source nutrition.Vector
	switch {
	case m.RecipeID != 0 && m.FoodID != 0, m.RecipeID == 0 && m.FoodID == 0:
		return nutrition.Vector{}, fmt.Errorf("%w: meal entry must reference exactly one of recipe or food", ErrValidation)
	case m.RecipeID != 0:
		r, err := s.GetRecipe(m.RecipeID)
		if err != nil {
			return nutrition.Vector{}, err
		}
		if r == nil {
			return nutrition.Vector{}, fmt.Errorf("recipe %d: %w", m.RecipeID, ErrNotFound)
		}
		source = r.Nutrition
	default:
		f, err := s.GetFood(m.FoodID)
		if err != nil {
			return nutrition.Vector{}, err
		}
		if f == nil {
			return nutrition.Vector{}, fmt.Errorf("food item %d: %w", m.FoodID, ErrNotFound)
		}
		source = f.Nutrition
	}
	return source.Scale(m.Servings * m.PercentEaten / 100), nil
}

// AddMealEntry logs a meal on a date, creating the day as needed, computing
// the entry's cached vector once at write time, then re-summing the day.
func (e *Engine) AddMealEntry(date string, m *store.MealEntry) (*store.MealEntry, error) {
	if m.Servings <= 0 {
		return nil, fmt.Errorf("%w: servings must be positive, got %g", ErrValidation, m.Servings)
	}
	if m.PercentEaten < 0 || m.PercentEaten > 100 {
		return nil, fmt.Errorf("%w: percent eaten must be within [0,100], got %g", ErrValidation, m.PercentEaten)
	}

	err := e.DB.Transact(func(s *store.Store) error {
		v, err := e.mealNutrition(s, m)
		if err != nil {
			return err
		}
		m.Nutrition = v

		day, err := s.EnsureDay(date)
		if err != nil {
			return err
		}
		m.DayID = day.ID

		if err := s.CreateMealEntry(m); err != nil {
			return err
		}
		return e.recalcDay(s, day.ID, map[int64]bool{}, map[int64]bool{})
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateMealEntry rewrites an entry's servings and portion, recomputes its
// cached vector, and re-sums its day.
func (e *Engine) UpdateMealEntry(id string, servings, percentEaten float64) (*store.MealEntry, error) {
	if servings <= 0 {
		return nil, fmt.Errorf("%w: servings must be positive, got %g", ErrValidation, servings)
	}
	if percentEaten < 0 || percentEaten > 100 {
		return nil, fmt.Errorf("%w: percent eaten must be within [0,100], got %g", ErrValidation, percentEaten)
	}

	var updated *store.MealEntry
	err := e.DB.Transact(func(s *store.Store) error {
		m, err := s.GetMealEntry(id)
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("meal entry %s: %w", id, ErrNotFound)
		}

		m.Servings = servings
		m.PercentEaten = percentEaten
		v, err := e.mealNutrition(s, m)
		if err != nil {
			return err
		}
		m.Nutrition = v

		if err := s.UpdateMealEntry(m); err != nil {
			return err
		}
		updated = m
		return e.recalcDay(s, m.DayID, map[int64]bool{}, map[int64]bool{})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteMealEntry removes an entry and re-sums its day.
func (e *Engine) DeleteMealEntry(id string) error {
	return e.DB.Transact(func(s *store.Store) error {
		m, err := s.GetMealEntry(id)
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("meal entry %s: %w", id, ErrNotFound)
		}
		if err := s.DeleteMealEntry(id); err != nil {
			return err
		}
		return e.recalcDay(s, m.DayID, map[int64]bool{}, map[int64]bool{})
	})
}

// RecalculateDay recomputes every meal entry on a day from its current
// source and re-sums the day total, returning it.
func (e *Engine) RecalculateDay(dayID int64) (nutrition.Vector, error) {
	var total nutrition.Vector
	err := e.DB.Transact(func(s *store.Store) error {
		day, err := s.GetDay(dayID)
		if err != nil {
			return err
		}
		if day == nil {
			return fmt.Errorf("day %d: %w", dayID, ErrNotFound)
		}
		if err := e.recalcDay(s, dayID, nil, nil); err != nil {
			return err
		}
		fresh, err := s.GetDay(dayID)
		if err != nil {
			return err
		}
		total = fresh.Nutrition
		return nil
	})
	return total, err
}
