// Package nutrition provides the value type shared by every record that
// carries nutrient totals.
package nutrition

// Vector is a fixed set of nutrient amounts. Calories are kcal, cholesterol
// and sodium are milligrams, everything else is grams.
//
// Vectors add component-wise and scale by a factor; the zero value is the
// additive identity. A Vector is never persisted on its own; it is embedded
// in the food, recipe, meal entry, and day records that own it.
type Vector struct {
	Calories     float64 `json:"calories"`
	Protein      float64 `json:"protein"`
	Carbs        float64 `json:"carbs"`
	Fat          float64 `json:"fat"`
	Fiber        float64 `json:"fiber"`
	Sodium       float64 `json:"sodium"`
	Sugar        float64 `json:"sugar"`
	SaturatedFat float64 `json:"saturated_fat"`
	Cholesterol  float64 `json:"cholesterol"`
}

// Add returns the component-wise sum of v and o.
func (v Vector) Add(o Vector) Vector {
	return Vector{
		Calories:     v.Calories + o.Calories,
		Protein:      v.Protein + o.Protein,
		Carbs:        v.Carbs + o.Carbs,
		Fat:          v.Fat + o.Fat,
		Fiber:        v.Fiber + o.Fiber,
		Sodium:       v.Sodium + o.Sodium,
		Sugar:        v.Sugar + o.Sugar,
		SaturatedFat: v.SaturatedFat + o.SaturatedFat,
		Cholesterol:  v.Cholesterol + o.Cholesterol,
	}
}

// Scale returns v with every component multiplied by f.
func (v Vector) Scale(f float64) Vector {
	return Vector{
		Calories:     v.Calories * f,
		Protein:      v.Protein * f,
		Carbs:        v.Carbs * f,
		Fat:          v.Fat * f,
		Fiber:        v.Fiber * f,
		Sodium:       v.Sodium * f,
		Sugar:        v.Sugar * f,
		SaturatedFat: v.SaturatedFat * f,
		Cholesterol:  v.Cholesterol * f,
	}
}

// IsZero reports whether every component is exactly zero.
func (v Vector) IsZero() bool {
	return v == Vector{}
}
