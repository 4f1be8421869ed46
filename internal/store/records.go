package store

import (
	"strings"

	"larder/internal/nutrition"
)

// nutritionCols is the column list shared by every table that embeds a
// nutrition vector. Order matches nutritionArgs and nutritionDests.
const nutritionCols = "calories, protein, carbs, fat, fiber, sodium, sugar, saturated_fat, cholesterol"

func nutritionArgs(v nutrition.Vector) []any {
	return []any{v.Calories, v.Protein, v.Carbs, v.Fat, v.Fiber,
		v.Sodium, v.Sugar, v.SaturatedFat, v.Cholesterol}
}

func nutritionDests(v *nutrition.Vector) []any {
	return []any{&v.Calories, &v.Protein, &v.Carbs, &v.Fat, &v.Fiber,
		&v.Sodium, &v.Sugar, &v.SaturatedFat, &v.Cholesterol}
}

// nutritionSet is the SET fragment for updating a cached vector in place.
const nutritionSet = "calories = ?, protein = ?, carbs = ?, fat = ?, fiber = ?, " +
	"sodium = ?, sugar = ?, saturated_fat = ?, cholesterol = ?"

// inClause builds a "?, ?, ?" placeholder list and its argument slice.
func inClause(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}
