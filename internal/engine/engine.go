// Package engine maintains the cached nutrition aggregates: it orders
// recalculation over the recipe composition graph and propagates leaf edits
// through every recipe and day that depends on them.
package engine

import (
	"errors"
	"fmt"

	"larder/internal/nutrition"
	"larder/internal/store"
	"larder/internal/units"
)

var (
	// ErrNotFound wraps lookups of absent records.
	ErrNotFound = errors.New("not found")

	// ErrValidation wraps rejected inputs; nothing is mutated.
	ErrValidation = errors.New("validation failed")

	// ErrInUse wraps deletions refused because other records still
	// reference the target.
	ErrInUse = errors.New("still referenced")

	// ErrCycle is returned when a component edge would make a recipe an
	// ingredient of itself, directly or transitively.
	ErrCycle = errors.New("component edge would create a cycle")

	// ErrGraphIntegrity means the stored composition graph contains a cycle.
	// Edge insertion prevents this, so hitting it indicates corruption; it is
	// never papered over with an arbitrary recalculation order.
	ErrGraphIntegrity = errors.New("composition graph contains a cycle")
)

// Engine runs every recalculation against a single database. All entry
// points are synchronous: when a call returns, every cached aggregate
// reachable from the change is consistent with current leaf values.
type Engine struct {
	DB *store.DB

	// BestEffortUnits accepts the quantity-as-servings fallback when no
	// conversion rule matches, surfacing it as a warning instead of an
	// error. Off by default: unconvertible ingredients fail the write.
	BestEffortUnits bool

	// WeightLbs is the body weight used by the exercise calorie model.
	WeightLbs float64
}

// New creates an Engine over db with default options.
func New(db *store.DB) *Engine {
	return &Engine{DB: db, WeightLbs: defaultWeightLbs}
}

// ConvertMultiplier computes the nutrition multiplier for one ingredient
// usage of a food item. Pure apart from the food lookup.
func (e *Engine) ConvertMultiplier(quantity float64, unit string, foodID int64) (float64, error) {
	f, err := e.DB.Store().GetFood(foodID)
	if err != nil {
		return 0, err
	}
	if f == nil {
		return 0, fmt.Errorf("food item %d: %w", foodID, ErrNotFound)
	}
	return units.Multiplier(quantity, unit, foodRef(f))
}

func foodRef(f *store.FoodItem) units.FoodRef {
	return units.FoodRef{
		ServingSize:     f.ServingSize,
		ServingUnit:     f.ServingUnit,
		GramsPerServing: f.GramsPerServing,
		MLPerServing:    f.MLPerServing,
	}
}

// CreateFoodItem resolves the serving unit's conversion factors and stores
// the item. Nothing depends on a new food, so no cascade runs.
func (e *Engine) CreateFoodItem(f *store.FoodItem) error {
	if err := validateFood(f); err != nil {
		return err
	}
	resolveFood(f)
	return e.DB.Store().CreateFood(f)
}

// UpdateFoodItem rewrites a food item and cascades the change through every
// recipe and day that uses it.
func (e *Engine) UpdateFoodItem(f *store.FoodItem) (CascadeResult, error) {
	if err := validateFood(f); err != nil {
		return CascadeResult{}, err
	}
	resolveFood(f)

	var res CascadeResult
	err := e.DB.Transact(func(s *store.Store) error {
		existing, err := s.GetFood(f.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("food item %d: %w", f.ID, ErrNotFound)
		}
		if err := s.UpdateFood(f); err != nil {
			return err
		}
		res, err = e.cascade(s, []int64{f.ID}, nil)
		return err
	})
	return res, err
}

// DeleteFoodItem removes a food item. Refused while any recipe ingredient
// or meal entry still references it.
func (e *Engine) DeleteFoodItem(id int64) error {
	return e.DB.Transact(func(s *store.Store) error {
		f, err := s.GetFood(id)
		if err != nil {
			return err
		}
		if f == nil {
			return fmt.Errorf("food item %d: %w", id, ErrNotFound)
		}
		ingredients, meals, err := s.FoodRefCount(id)
		if err != nil {
			return err
		}
		if ingredients > 0 || meals > 0 {
			return fmt.Errorf("food item %d used by %d ingredients and %d meal entries: %w",
				id, ingredients, meals, ErrInUse)
		}
		return s.DeleteFood(id)
	})
}

func validateFood(f *store.FoodItem) error {
	if f.Name == "" {
		return fmt.Errorf("%w: food name required", ErrValidation)
	}
	if f.ServingSize <= 0 {
		return fmt.Errorf("%w: serving size must be positive, got %g", ErrValidation, f.ServingSize)
	}
	return nil
}

// resolveFood fixes the unit conversion factors at write time so the
// recalculation path never re-parses the serving unit.
func resolveFood(f *store.FoodItem) {
	r := units.Resolve(f.ServingSize, f.ServingUnit)
	f.GramsPerServing = r.GramsPerServing
	f.MLPerServing = r.MLPerServing
	f.BaseUnitKind = string(r.Kind)
}

// CreateRecipe stores a new, empty recipe.
func (e *Engine) CreateRecipe(r *store.Recipe) error {
	if r.Name == "" {
		return fmt.Errorf("%w: recipe name required", ErrValidation)
	}
	if r.ServingsProduced <= 0 {
		return fmt.Errorf("%w: servings produced must be positive, got %g", ErrValidation, r.ServingsProduced)
	}
	return e.DB.Store().CreateRecipe(r)
}

// DeleteRecipe removes a recipe. Refused while it is a component of another
// recipe or referenced by a meal entry.
func (e *Engine) DeleteRecipe(id int64) error {
	return e.DB.Transact(func(s *store.Store) error {
		r, err := s.GetRecipe(id)
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("recipe %d: %w", id, ErrNotFound)
		}
		components, meals, err := s.RecipeRefCount(id)
		if err != nil {
			return err
		}
		if components > 0 || meals > 0 {
			return fmt.Errorf("recipe %d used by %d recipes and %d meal entries: %w",
				id, components, meals, ErrInUse)
		}
		return s.DeleteRecipe(id)
	})
}

// AddIngredient attaches a food item to a recipe and recalculates everything
// downstream of the recipe.
func (e *Engine) AddIngredient(ing *store.RecipeIngredient) (CascadeResult, error) {
	if ing.Quantity <= 0 {
		return CascadeResult{}, fmt.Errorf("%w: quantity must be positive, got %g", ErrValidation, ing.Quantity)
	}

	var res CascadeResult
	err := e.DB.Transact(func(s *store.Store) error {
		if err := e.requireRecipe(s, ing.RecipeID); err != nil {
			return err
		}
		f, err := s.GetFood(ing.FoodID)
		if err != nil {
			return err
		}
		if f == nil {
			return fmt.Errorf("food item %d: %w", ing.FoodID, ErrNotFound)
		}
		if err := s.AddIngredient(ing); err != nil {
			return err
		}
		res, err = e.cascade(s, nil, []int64{ing.RecipeID})
		return err
	})
	return res, err
}

// UpdateIngredient rewrites an ingredient edge and recalculates downstream.
func (e *Engine) UpdateIngredient(ing *store.RecipeIngredient) (CascadeResult, error) {
	if ing.Quantity <= 0 {
		return CascadeResult{}, fmt.Errorf("%w: quantity must be positive, got %g", ErrValidation, ing.Quantity)
	}

	var res CascadeResult
	err := e.DB.Transact(func(s *store.Store) error {
		existing, err := s.GetIngredient(ing.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("ingredient %d: %w", ing.ID, ErrNotFound)
		}
		ing.RecipeID = existing.RecipeID
		if ing.FoodID == 0 {
			ing.FoodID = existing.FoodID
		}
		if err := s.UpdateIngredient(ing); err != nil {
			return err
		}
		res, err = e.cascade(s, nil, []int64{ing.RecipeID})
		return err
	})
	return res, err
}

// RemoveIngredient deletes an ingredient edge and recalculates downstream.
func (e *Engine) RemoveIngredient(id int64) (CascadeResult, error) {
	var res CascadeResult
	err := e.DB.Transact(func(s *store.Store) error {
		ing, err := s.GetIngredient(id)
		if err != nil {
			return err
		}
		if ing == nil {
			return fmt.Errorf("ingredient %d: %w", id, ErrNotFound)
		}
		if err := s.DeleteIngredient(id); err != nil {
			return err
		}
		res, err = e.cascade(s, nil, []int64{ing.RecipeID})
		return err
	})
	return res, err
}

// RecalculateRecipe recomputes one recipe's cached per-serving vector from
// its current children and returns it. Components are assumed fresh; use the
// cascade entry points after leaf edits.
func (e *Engine) RecalculateRecipe(recipeID int64) (nutrition.Vector, error) {
	var v nutrition.Vector
	err := e.DB.Transact(func(s *store.Store) error {
		var warnings []string
		var err error
		v, err = e.recalcRecipe(s, recipeID, &warnings)
		return err
	})
	return v, err
}

// CascadeFromFoodItems recalculates every recipe and day transitively
// affected by changes to the given food items. A single changed item is just
// the one-element case; a batch runs the identical traversal once over the
// union of seeds.
func (e *Engine) CascadeFromFoodItems(foodIDs []int64) (CascadeResult, error) {
	if len(foodIDs) == 0 {
		return CascadeResult{}, fmt.Errorf("%w: at least one food item required", ErrValidation)
	}

	var res CascadeResult
	err := e.DB.Transact(func(s *store.Store) error {
		for _, id := range foodIDs {
			f, err := s.GetFood(id)
			if err != nil {
				return err
			}
			if f == nil {
				return fmt.Errorf("food item %d: %w", id, ErrNotFound)
			}
		}
		var err error
		res, err = e.cascade(s, foodIDs, nil)
		return err
	})
	return res, err
}

// CascadeFromRecipe recalculates a recipe and everything downstream of it,
// used after its ingredient or component list changes.
func (e *Engine) CascadeFromRecipe(recipeID int64) (CascadeResult, error) {
	var res CascadeResult
	err := e.DB.Transact(func(s *store.Store) error {
		if err := e.requireRecipe(s, recipeID); err != nil {
			return err
		}
		var err error
		res, err = e.cascade(s, nil, []int64{recipeID})
		return err
	})
	return res, err
}

func (e *Engine) requireRecipe(s *store.Store, id int64) error {
	r, err := s.GetRecipe(id)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("recipe %d: %w", id, ErrNotFound)
	}
	return nil
}
