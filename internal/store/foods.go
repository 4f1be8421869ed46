package store

import (
	"database/sql"
	"fmt"
	"time"

	"larder/internal/nutrition"
)

// FoodItem is a leaf of the dependency graph: user-authored nutrition per
// serving, plus the conversion factors resolved when the item was created.
type FoodItem struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	ServingSize     float64          `json:"serving_size"`
	ServingUnit     string           `json:"serving_unit"`
	GramsPerServing float64          `json:"grams_per_serving,omitempty"`
	MLPerServing    float64          `json:"ml_per_serving,omitempty"`
	BaseUnitKind    string           `json:"base_unit_kind"`
	Nutrition       nutrition.Vector `json:"nutrition"`
	CreatedAt       int64            `json:"created_at"`
	UpdatedAt       int64            `json:"updated_at"`
}

const foodCols = "id, name, serving_size, serving_unit, grams_per_serving, ml_per_serving, base_unit_kind, " +
	nutritionCols + ", created_at, updated_at"

func scanFood(row interface{ Scan(...any) error }) (*FoodItem, error) {
	var f FoodItem
	dests := []any{&f.ID, &f.Name, &f.ServingSize, &f.ServingUnit,
		&f.GramsPerServing, &f.MLPerServing, &f.BaseUnitKind}
	dests = append(dests, nutritionDests(&f.Nutrition)...)
	dests = append(dests, &f.CreatedAt, &f.UpdatedAt)
	if err := row.Scan(dests...); err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateFood inserts a new food item.
func (s *Store) CreateFood(f *FoodItem) error {
	now := time.Now().UnixMilli()
	args := []any{f.Name, f.ServingSize, f.ServingUnit,
		f.GramsPerServing, f.MLPerServing, f.BaseUnitKind}
	args = append(args, nutritionArgs(f.Nutrition)...)
	args = append(args, now, now)

	result, err := s.q.Exec(`
		INSERT INTO food_items (name, serving_size, serving_unit, grams_per_serving, ml_per_serving, base_unit_kind,
			`+nutritionCols+`, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return fmt.Errorf("create food: %w", err)
	}

	f.ID, _ = result.LastInsertId()
	f.CreatedAt = now
	f.UpdatedAt = now
	return nil
}

// GetFood returns a food item by id, or nil if not found.
func (s *Store) GetFood(id int64) (*FoodItem, error) {
	f, err := scanFood(s.q.QueryRow("SELECT "+foodCols+" FROM food_items WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get food %d: %w", id, err)
	}
	return f, nil
}

// ListFoods returns every food item ordered by name.
func (s *Store) ListFoods() ([]FoodItem, error) {
	rows, err := s.q.Query("SELECT " + foodCols + " FROM food_items ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list foods: %w", err)
	}
	defer rows.Close()

	var foods []FoodItem
	for rows.Next() {
		f, err := scanFood(rows)
		if err != nil {
			return nil, fmt.Errorf("scan food: %w", err)
		}
		foods = append(foods, *f)
	}
	return foods, rows.Err()
}

// UpdateFood rewrites a food item's serving definition, conversion factors,
// and per-serving nutrition.
func (s *Store) UpdateFood(f *FoodItem) error {
	now := time.Now().UnixMilli()
	args := []any{f.Name, f.ServingSize, f.ServingUnit,
		f.GramsPerServing, f.MLPerServing, f.BaseUnitKind}
	args = append(args, nutritionArgs(f.Nutrition)...)
	args = append(args, now, f.ID)

	_, err := s.q.Exec(`
		UPDATE food_items SET name = ?, serving_size = ?, serving_unit = ?,
			grams_per_serving = ?, ml_per_serving = ?, base_unit_kind = ?,
			`+nutritionSet+`, updated_at = ?
		WHERE id = ?
	`, args...)
	if err != nil {
		return fmt.Errorf("update food %d: %w", f.ID, err)
	}
	f.UpdatedAt = now
	return nil
}

// DeleteFood removes a food item.
func (s *Store) DeleteFood(id int64) error {
	if _, err := s.q.Exec("DELETE FROM food_items WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete food %d: %w", id, err)
	}
	return nil
}

// FoodRefCount returns how many ingredient edges and meal entries still
// reference a food item. Deletion is refused while either is nonzero.
func (s *Store) FoodRefCount(id int64) (ingredients, meals int, err error) {
	err = s.q.QueryRow("SELECT COUNT(*) FROM recipe_ingredients WHERE food_id = ?", id).Scan(&ingredients)
	if err != nil {
		return 0, 0, fmt.Errorf("count ingredient refs: %w", err)
	}
	err = s.q.QueryRow("SELECT COUNT(*) FROM meal_entries WHERE food_id = ?", id).Scan(&meals)
	if err != nil {
		return 0, 0, fmt.Errorf("count meal refs: %w", err)
	}
	return ingredients, meals, nil
}
