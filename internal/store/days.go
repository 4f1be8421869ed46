package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"larder/internal/nutrition"
)

// Day is keyed by calendar date (YYYY-MM-DD). Its cached vector is the sum
// of its meal entries' cached vectors; calories_burned is the sum over its
// exercises. Both are maintained by the recalculation engine.
type Day struct {
	ID             int64            `json:"id"`
	Date           string           `json:"date"`
	Nutrition      nutrition.Vector `json:"nutrition"`
	CaloriesBurned float64          `json:"calories_burned"`
}

// MealEntry logs servings of exactly one source, a recipe or a food item,
// with its nutrition cached at write time.
type MealEntry struct {
	ID           string           `json:"id"`
	DayID        int64            `json:"day_id"`
	RecipeID     int64            `json:"recipe_id,omitempty"`
	FoodID       int64            `json:"food_id,omitempty"`
	Servings     float64          `json:"servings"`
	PercentEaten float64          `json:"percent_eaten"`
	Nutrition    nutrition.Vector `json:"nutrition"`
	CreatedAt    int64            `json:"created_at"`
}

const dayCols = "id, date, " + nutritionCols + ", calories_burned"

func scanDay(row interface{ Scan(...any) error }) (*Day, error) {
	var d Day
	dests := []any{&d.ID, &d.Date}
	dests = append(dests, nutritionDests(&d.Nutrition)...)
	dests = append(dests, &d.CaloriesBurned)
	if err := row.Scan(dests...); err != nil {
		return nil, err
	}
	return &d, nil
}

// DayByDate returns the day for a date, or nil if none exists yet.
func (s *Store) DayByDate(date string) (*Day, error) {
	d, err := scanDay(s.q.QueryRow("SELECT "+dayCols+" FROM days WHERE date = ?", date))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("day %s: %w", date, err)
	}
	return d, nil
}

// GetDay returns a day by id, or nil if not found.
func (s *Store) GetDay(id int64) (*Day, error) {
	d, err := scanDay(s.q.QueryRow("SELECT "+dayCols+" FROM days WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("day %d: %w", id, err)
	}
	return d, nil
}

// EnsureDay returns the day for a date, creating it if needed.
func (s *Store) EnsureDay(date string) (*Day, error) {
	if d, err := s.DayByDate(date); err != nil || d != nil {
		return d, err
	}
	result, err := s.q.Exec("INSERT INTO days (date) VALUES (?)", date)
	if err != nil {
		return nil, fmt.Errorf("create day %s: %w", date, err)
	}
	id, _ := result.LastInsertId()
	return &Day{ID: id, Date: date}, nil
}

// UpdateDayNutrition writes a freshly summed day total.
func (s *Store) UpdateDayNutrition(id int64, v nutrition.Vector) error {
	args := nutritionArgs(v)
	args = append(args, id)
	_, err := s.q.Exec("UPDATE days SET "+nutritionSet+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update day %d nutrition: %w", id, err)
	}
	return nil
}

// UpdateDayBurned writes a freshly summed calories-burned total.
func (s *Store) UpdateDayBurned(id int64, calories float64) error {
	_, err := s.q.Exec("UPDATE days SET calories_burned = ? WHERE id = ?", calories, id)
	if err != nil {
		return fmt.Errorf("update day %d burned: %w", id, err)
	}
	return nil
}

const mealCols = "id, day_id, recipe_id, food_id, servings, percent_eaten, " + nutritionCols + ", created_at"

func scanMeal(row interface{ Scan(...any) error }) (*MealEntry, error) {
	var m MealEntry
	var recipeID, foodID sql.NullInt64
	dests := []any{&m.ID, &m.DayID, &recipeID, &foodID, &m.Servings, &m.PercentEaten}
	dests = append(dests, nutritionDests(&m.Nutrition)...)
	dests = append(dests, &m.CreatedAt)
	if err := row.Scan(dests...); err != nil {
		return nil, err
	}
	m.RecipeID = recipeID.Int64
	m.FoodID = foodID.Int64
	return &m, nil
}

// CreateMealEntry inserts a meal entry, assigning a UUID if none is set.
// Exactly one of RecipeID/FoodID must be nonzero; the schema enforces it too.
func (s *Store) CreateMealEntry(m *MealEntry) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UnixMilli()
	args := []any{m.ID, m.DayID, nullID(m.RecipeID), nullID(m.FoodID), m.Servings, m.PercentEaten}
	args = append(args, nutritionArgs(m.Nutrition)...)
	args = append(args, now)

	_, err := s.q.Exec(`
		INSERT INTO meal_entries (id, day_id, recipe_id, food_id, servings, percent_eaten,
			`+nutritionCols+`, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return fmt.Errorf("create meal entry: %w", err)
	}
	m.CreatedAt = now
	return nil
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// GetMealEntry returns a meal entry by id, or nil if not found.
func (s *Store) GetMealEntry(id string) (*MealEntry, error) {
	m, err := scanMeal(s.q.QueryRow("SELECT "+mealCols+" FROM meal_entries WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get meal entry %s: %w", id, err)
	}
	return m, nil
}

// UpdateMealEntry rewrites a meal entry's servings, portion, and cached vector.
func (s *Store) UpdateMealEntry(m *MealEntry) error {
	args := []any{m.Servings, m.PercentEaten}
	args = append(args, nutritionArgs(m.Nutrition)...)
	args = append(args, m.ID)
	_, err := s.q.Exec(`
		UPDATE meal_entries SET servings = ?, percent_eaten = ?, `+nutritionSet+` WHERE id = ?
	`, args...)
	if err != nil {
		return fmt.Errorf("update meal entry %s: %w", m.ID, err)
	}
	return nil
}

// UpdateMealNutrition writes a freshly computed cached vector only.
func (s *Store) UpdateMealNutrition(id string, v nutrition.Vector) error {
	args := nutritionArgs(v)
	args = append(args, id)
	_, err := s.q.Exec("UPDATE meal_entries SET "+nutritionSet+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update meal entry %s nutrition: %w", id, err)
	}
	return nil
}

// DeleteMealEntry removes a meal entry.
func (s *Store) DeleteMealEntry(id string) error {
	if _, err := s.q.Exec("DELETE FROM meal_entries WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete meal entry %s: %w", id, err)
	}
	return nil
}

// MealEntriesFor returns a day's meal entries in insertion order.
func (s *Store) MealEntriesFor(dayID int64) ([]MealEntry, error) {
	rows, err := s.q.Query("SELECT "+mealCols+" FROM meal_entries WHERE day_id = ? ORDER BY created_at, id", dayID)
	if err != nil {
		return nil, fmt.Errorf("meal entries for day %d: %w", dayID, err)
	}
	defer rows.Close()

	var entries []MealEntry
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal entry: %w", err)
		}
		entries = append(entries, *m)
	}
	return entries, rows.Err()
}

// DayIDsReferencing returns days containing a meal entry that references any
// of the given recipes or food items.
func (s *Store) DayIDsReferencing(recipeIDs, foodIDs []int64) ([]int64, error) {
	if len(recipeIDs) == 0 && len(foodIDs) == 0 {
		return nil, nil
	}

	query := "SELECT DISTINCT day_id FROM meal_entries WHERE "
	var clauses []string
	var args []any
	if len(recipeIDs) > 0 {
		ph, a := inClause(recipeIDs)
		clauses = append(clauses, "recipe_id IN ("+ph+")")
		args = append(args, a...)
	}
	if len(foodIDs) > 0 {
		ph, a := inClause(foodIDs)
		clauses = append(clauses, "food_id IN ("+ph+")")
		args = append(args, a...)
	}
	for i, c := range clauses {
		if i > 0 {
			query += " OR "
		}
		query += c
	}

	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("days referencing: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}
