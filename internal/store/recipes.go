package store

import (
	"database/sql"
	"fmt"
	"time"

	"larder/internal/nutrition"
)

// Recipe produces some number of servings; its nutrition vector is the
// cached per-serving total maintained by the recalculation engine. No other
// writer touches it.
type Recipe struct {
	ID               int64            `json:"id"`
	Name             string           `json:"name"`
	ServingsProduced float64          `json:"servings_produced"`
	Nutrition        nutrition.Vector `json:"nutrition"`
	CreatedAt        int64            `json:"created_at"`
	UpdatedAt        int64            `json:"updated_at"`
}

// RecipeIngredient is an edge from a recipe to a food item. Quantity and
// unit are interpreted against the food's serving definition.
type RecipeIngredient struct {
	ID       int64   `json:"id"`
	RecipeID int64   `json:"recipe_id"`
	FoodID   int64   `json:"food_id"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// RecipeComponent is a directed edge in the composition graph: the recipe
// consumes the given number of servings of the component recipe. The edge
// set must stay acyclic.
type RecipeComponent struct {
	ID          int64   `json:"id"`
	RecipeID    int64   `json:"recipe_id"`
	ComponentID int64   `json:"component_id"`
	Servings    float64 `json:"servings"`
}

const recipeCols = "id, name, servings_produced, " + nutritionCols + ", created_at, updated_at"

func scanRecipe(row interface{ Scan(...any) error }) (*Recipe, error) {
	var r Recipe
	dests := []any{&r.ID, &r.Name, &r.ServingsProduced}
	dests = append(dests, nutritionDests(&r.Nutrition)...)
	dests = append(dests, &r.CreatedAt, &r.UpdatedAt)
	if err := row.Scan(dests...); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRecipe inserts a new recipe with a zero cached vector.
func (s *Store) CreateRecipe(r *Recipe) error {
	now := time.Now().UnixMilli()
	result, err := s.q.Exec(`
		INSERT INTO recipes (name, servings_produced, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, r.Name, r.ServingsProduced, now, now)
	if err != nil {
		return fmt.Errorf("create recipe: %w", err)
	}

	r.ID, _ = result.LastInsertId()
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// GetRecipe returns a recipe by id, or nil if not found.
func (s *Store) GetRecipe(id int64) (*Recipe, error) {
	r, err := scanRecipe(s.q.QueryRow("SELECT "+recipeCols+" FROM recipes WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe %d: %w", id, err)
	}
	return r, nil
}

// ListRecipes returns every recipe ordered by name.
func (s *Store) ListRecipes() ([]Recipe, error) {
	rows, err := s.q.Query("SELECT " + recipeCols + " FROM recipes ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		recipes = append(recipes, *r)
	}
	return recipes, rows.Err()
}

// UpdateRecipe rewrites a recipe's name and servings produced.
func (s *Store) UpdateRecipe(r *Recipe) error {
	now := time.Now().UnixMilli()
	_, err := s.q.Exec(`
		UPDATE recipes SET name = ?, servings_produced = ?, updated_at = ? WHERE id = ?
	`, r.Name, r.ServingsProduced, now, r.ID)
	if err != nil {
		return fmt.Errorf("update recipe %d: %w", r.ID, err)
	}
	r.UpdatedAt = now
	return nil
}

// UpdateRecipeNutrition writes a freshly computed per-serving vector.
// Only the recalculation engine calls this.
func (s *Store) UpdateRecipeNutrition(id int64, v nutrition.Vector) error {
	args := nutritionArgs(v)
	args = append(args, time.Now().UnixMilli(), id)
	_, err := s.q.Exec("UPDATE recipes SET "+nutritionSet+", updated_at = ? WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update recipe %d nutrition: %w", id, err)
	}
	return nil
}

// DeleteRecipe removes a recipe; ingredient and component edges go with it.
func (s *Store) DeleteRecipe(id int64) error {
	if _, err := s.q.Exec("DELETE FROM recipes WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete recipe %d: %w", id, err)
	}
	return nil
}

// RecipeRefCount returns how many component edges and meal entries reference
// a recipe as a source.
func (s *Store) RecipeRefCount(id int64) (components, meals int, err error) {
	err = s.q.QueryRow("SELECT COUNT(*) FROM recipe_components WHERE component_id = ?", id).Scan(&components)
	if err != nil {
		return 0, 0, fmt.Errorf("count component refs: %w", err)
	}
	err = s.q.QueryRow("SELECT COUNT(*) FROM meal_entries WHERE recipe_id = ?", id).Scan(&meals)
	if err != nil {
		return 0, 0, fmt.Errorf("count meal refs: %w", err)
	}
	return components, meals, nil
}

// AddIngredient inserts an ingredient edge.
func (s *Store) AddIngredient(ing *RecipeIngredient) error {
	result, err := s.q.Exec(`
		INSERT INTO recipe_ingredients (recipe_id, food_id, quantity, unit)
		VALUES (?, ?, ?, ?)
	`, ing.RecipeID, ing.FoodID, ing.Quantity, ing.Unit)
	if err != nil {
		return fmt.Errorf("add ingredient: %w", err)
	}
	ing.ID, _ = result.LastInsertId()
	return nil
}

// GetIngredient returns an ingredient edge by id, or nil if not found.
func (s *Store) GetIngredient(id int64) (*RecipeIngredient, error) {
	var ing RecipeIngredient
	err := s.q.QueryRow(`
		SELECT id, recipe_id, food_id, quantity, unit FROM recipe_ingredients WHERE id = ?
	`, id).Scan(&ing.ID, &ing.RecipeID, &ing.FoodID, &ing.Quantity, &ing.Unit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ingredient %d: %w", id, err)
	}
	return &ing, nil
}

// UpdateIngredient rewrites an ingredient edge's quantity and unit.
func (s *Store) UpdateIngredient(ing *RecipeIngredient) error {
	_, err := s.q.Exec(`
		UPDATE recipe_ingredients SET food_id = ?, quantity = ?, unit = ? WHERE id = ?
	`, ing.FoodID, ing.Quantity, ing.Unit, ing.ID)
	if err != nil {
		return fmt.Errorf("update ingredient %d: %w", ing.ID, err)
	}
	return nil
}

// DeleteIngredient removes an ingredient edge.
func (s *Store) DeleteIngredient(id int64) error {
	if _, err := s.q.Exec("DELETE FROM recipe_ingredients WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete ingredient %d: %w", id, err)
	}
	return nil
}

// IngredientsFor returns a recipe's ingredient edges.
func (s *Store) IngredientsFor(recipeID int64) ([]RecipeIngredient, error) {
	rows, err := s.q.Query(`
		SELECT id, recipe_id, food_id, quantity, unit
		FROM recipe_ingredients WHERE recipe_id = ? ORDER BY id
	`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("ingredients for recipe %d: %w", recipeID, err)
	}
	defer rows.Close()

	var ings []RecipeIngredient
	for rows.Next() {
		var ing RecipeIngredient
		if err := rows.Scan(&ing.ID, &ing.RecipeID, &ing.FoodID, &ing.Quantity, &ing.Unit); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		ings = append(ings, ing)
	}
	return ings, rows.Err()
}

// AddComponent inserts a component edge. Cycle checking is the engine's job;
// the store only enforces the uniqueness constraint.
func (s *Store) AddComponent(c *RecipeComponent) error {
	result, err := s.q.Exec(`
		INSERT INTO recipe_components (recipe_id, component_id, servings)
		VALUES (?, ?, ?)
	`, c.RecipeID, c.ComponentID, c.Servings)
	if err != nil {
		return fmt.Errorf("add component: %w", err)
	}
	c.ID, _ = result.LastInsertId()
	return nil
}

// GetComponent returns a component edge by id, or nil if not found.
func (s *Store) GetComponent(id int64) (*RecipeComponent, error) {
	var c RecipeComponent
	err := s.q.QueryRow(`
		SELECT id, recipe_id, component_id, servings FROM recipe_components WHERE id = ?
	`, id).Scan(&c.ID, &c.RecipeID, &c.ComponentID, &c.Servings)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get component %d: %w", id, err)
	}
	return &c, nil
}

// DeleteComponent removes a component edge.
func (s *Store) DeleteComponent(id int64) error {
	if _, err := s.q.Exec("DELETE FROM recipe_components WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete component %d: %w", id, err)
	}
	return nil
}

// ComponentsFor returns a recipe's outgoing component edges.
func (s *Store) ComponentsFor(recipeID int64) ([]RecipeComponent, error) {
	rows, err := s.q.Query(`
		SELECT id, recipe_id, component_id, servings
		FROM recipe_components WHERE recipe_id = ? ORDER BY id
	`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("components for recipe %d: %w", recipeID, err)
	}
	defer rows.Close()
	return scanComponents(rows)
}

// ComponentEdges returns every component edge in the composition graph.
func (s *Store) ComponentEdges() ([]RecipeComponent, error) {
	rows, err := s.q.Query("SELECT id, recipe_id, component_id, servings FROM recipe_components ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("component edges: %w", err)
	}
	defer rows.Close()
	return scanComponents(rows)
}

func scanComponents(rows *sql.Rows) ([]RecipeComponent, error) {
	var edges []RecipeComponent
	for rows.Next() {
		var c RecipeComponent
		if err := rows.Scan(&c.ID, &c.RecipeID, &c.ComponentID, &c.Servings); err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		edges = append(edges, c)
	}
	return edges, rows.Err()
}

// RecipeIDsUsingFoods returns recipes with a direct ingredient edge to any
// of the given food items.
func (s *Store) RecipeIDsUsingFoods(foodIDs []int64) ([]int64, error) {
	if len(foodIDs) == 0 {
		return nil, nil
	}
	ph, args := inClause(foodIDs)
	rows, err := s.q.Query(
		"SELECT DISTINCT recipe_id FROM recipe_ingredients WHERE food_id IN ("+ph+")", args...)
	if err != nil {
		return nil, fmt.Errorf("recipes using foods: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// RecipeIDsUsingRecipes returns recipes with a component edge pointing at
// any of the given recipes, i.e. the direct parents in the composition graph.
func (s *Store) RecipeIDsUsingRecipes(recipeIDs []int64) ([]int64, error) {
	if len(recipeIDs) == 0 {
		return nil, nil
	}
	ph, args := inClause(recipeIDs)
	rows, err := s.q.Query(
		"SELECT DISTINCT recipe_id FROM recipe_components WHERE component_id IN ("+ph+")", args...)
	if err != nil {
		return nil, fmt.Errorf("recipes using recipes: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
