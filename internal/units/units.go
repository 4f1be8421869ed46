// Package units resolves human-entered measurement units and computes the
// nutrition multiplier for one ingredient usage.
//
// Units form a closed enumeration of canonical names (weight, volume, count)
// plus a custom variant for anything else. Free-text parsing happens once,
// when a unit string enters the system; recalculation works from the
// canonical base and the factors precomputed on the food item.
package units

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies a unit by what it measures.
type Kind string

const (
	Weight Kind = "weight"
	Volume Kind = "volume"
	Count  Kind = "count"
	Custom Kind = "custom"
)

// Unit is a parsed unit string: a canonical base name, its kind, and any
// gram/milliliter amount carried by a parenthetical annotation, e.g.
// "tbsp (16g)" has base "tbsp" and GramWeight 16.
type Unit struct {
	Base       string
	Kind       Kind
	GramWeight float64
	MLAmount   float64
}

type def struct {
	canon  string
	factor float64 // grams or milliliters per one unit
}

// Weight units, base gram.
var weightUnits = map[string]def{
	"g":         {"g", 1},
	"gram":      {"g", 1},
	"grams":     {"g", 1},
	"mg":        {"mg", 0.001},
	"kg":        {"kg", 1000},
	"kilogram":  {"kg", 1000},
	"kilograms": {"kg", 1000},
	"oz":        {"oz", 28.349523125},
	"ounce":     {"oz", 28.349523125},
	"ounces":    {"oz", 28.349523125},
	"lb":        {"lb", 453.59237},
	"lbs":       {"lb", 453.59237},
	"pound":     {"lb", 453.59237},
	"pounds":    {"lb", 453.59237},
}

// Volume units, base milliliter.
var volumeUnits = map[string]def{
	"ml":          {"ml", 1},
	"milliliter":  {"ml", 1},
	"milliliters": {"ml", 1},
	"l":           {"l", 1000},
	"liter":       {"l", 1000},
	"liters":      {"l", 1000},
	"tsp":         {"tsp", 4.92892159375},
	"teaspoon":    {"tsp", 4.92892159375},
	"teaspoons":   {"tsp", 4.92892159375},
	"tbsp":        {"tbsp", 14.78676478125},
	"tablespoon":  {"tbsp", 14.78676478125},
	"tablespoons": {"tbsp", 14.78676478125},
	"cup":         {"cup", 236.5882365},
	"cups":        {"cup", 236.5882365},
	"fl oz":       {"fl oz", 29.5735295625},
	"floz":        {"fl oz", 29.5735295625},
	"fluid ounce": {"fl oz", 29.5735295625},
	"pint":        {"pint", 473.176473},
	"pints":       {"pint", 473.176473},
	"quart":       {"quart", 946.352946},
	"quarts":      {"quart", 946.352946},
	"gallon":      {"gallon", 3785.411784},
	"gallons":     {"gallon", 3785.411784},
}

// Count units, canonicalized to their singular form.
var countUnits = map[string]string{
	"serving":  "serving",
	"servings": "serving",
	"each":     "each",
	"piece":    "piece",
	"pieces":   "piece",
	"slice":    "slice",
	"slices":   "slice",
	"item":     "item",
	"items":    "item",
	"whole":    "whole",
	"unit":     "unit",
	"units":    "unit",
}

var annotationRe = regexp.MustCompile(`\(\s*([0-9]*\.?[0-9]+)\s*(g|ml)\s*\)`)

// Parse resolves a free-text unit string. A parenthetical gram or milliliter
// annotation is stripped and recorded; the remainder is matched against the
// canonical tables, falling back to Custom with the text as its base.
func Parse(s string) Unit {
	raw := strings.ToLower(strings.TrimSpace(s))

	var u Unit
	if m := annotationRe.FindStringSubmatch(raw); m != nil {
		amount, _ := strconv.ParseFloat(m[1], 64)
		if m[2] == "g" {
			u.GramWeight = amount
		} else {
			u.MLAmount = amount
		}
		raw = strings.TrimSpace(annotationRe.ReplaceAllString(raw, ""))
	}

	if d, ok := weightUnits[raw]; ok {
		u.Base = d.canon
		u.Kind = Weight
		return u
	}
	if d, ok := volumeUnits[raw]; ok {
		u.Base = d.canon
		u.Kind = Volume
		return u
	}
	if canon, ok := countUnits[raw]; ok {
		u.Base = canon
		u.Kind = Count
		return u
	}

	u.Base = raw
	u.Kind = Custom
	return u
}

// Grams converts a quantity of this unit to grams. A per-unit gram annotation
// wins over the weight table. Returns false when the unit has no gram path.
func (u Unit) Grams(quantity float64) (float64, bool) {
	if u.GramWeight > 0 {
		return quantity * u.GramWeight, true
	}
	if u.Kind == Weight {
		return quantity * weightUnits[u.Base].factor, true
	}
	return 0, false
}

// Milliliters converts a quantity of this unit to milliliters.
func (u Unit) Milliliters(quantity float64) (float64, bool) {
	if u.MLAmount > 0 {
		return quantity * u.MLAmount, true
	}
	if u.Kind == Volume {
		return quantity * volumeUnits[u.Base].factor, true
	}
	return 0, false
}

// Resolved holds the conversion factors fixed for a food item when it is
// created, so the recalculation path never re-derives them.
type Resolved struct {
	GramsPerServing float64 // 0 when unknown
	MLPerServing    float64 // 0 when unknown
	Kind            Kind
}

// Resolve computes the stored conversion factors for a food item's serving.
// A parenthetical annotation on a serving unit describes the whole serving
// ("2 tbsp (16g)" means the serving weighs 16 g); without one the factors
// come from the unit tables.
func Resolve(servingSize float64, servingUnit string) Resolved {
	u := Parse(servingUnit)
	r := Resolved{Kind: u.Kind}

	switch {
	case u.GramWeight > 0:
		r.GramsPerServing = u.GramWeight
	case u.Kind == Weight:
		r.GramsPerServing = servingSize * weightUnits[u.Base].factor
	}

	switch {
	case u.MLAmount > 0:
		r.MLPerServing = u.MLAmount
	case u.Kind == Volume:
		r.MLPerServing = servingSize * volumeUnits[u.Base].factor
	}

	return r
}

// FoodRef is the slice of a food item the converter needs: its serving
// definition and the factors resolved at creation time.
type FoodRef struct {
	ServingSize     float64
	ServingUnit     string
	GramsPerServing float64
	MLPerServing    float64
}

// ConversionError reports that no conversion rule connects an ingredient
// unit to a food's serving definition. Fallback carries the lossy
// quantity-as-servings interpretation for callers that opt in to it.
type ConversionError struct {
	Quantity float64
	Unit     string
	Food     string
	Fallback float64
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("no conversion from %g %q to servings of %q", e.Quantity, e.Unit, e.Food)
}

// Multiplier computes the dimensionless factor that scales a food's
// per-serving nutrition to one ingredient usage. Rules are tried in order;
// the first match wins:
//
//  1. the ingredient unit is literally "serving(s)": the quantity is already
//     a serving count
//  2. ingredient and serving unit share a canonical base: quantity over
//     serving size
//  3. both sides have a gram path: grams over grams per serving
//  4. the ingredient is in grams and grams per serving is known
//  5. both sides have a milliliter path
//  6. the ingredient is in milliliters and milliliters per serving is known
//
// When nothing matches the result is a *ConversionError; there is no silent
// fallback.
func Multiplier(quantity float64, ingredientUnit string, food FoodRef) (float64, error) {
	if food.ServingSize <= 0 {
		return 0, fmt.Errorf("serving size must be positive, got %g", food.ServingSize)
	}

	ing := Parse(ingredientUnit)
	serving := Parse(food.ServingUnit)

	// Rule 1: explicit serving counts.
	if ing.Kind == Count && ing.Base == "serving" {
		return quantity, nil
	}

	// Rule 2: identical base units.
	if ing.Base != "" && ing.Base == serving.Base {
		return quantity / food.ServingSize, nil
	}

	// Factors missing from the ref are derived exactly as Resolve fixes them
	// at creation time, so an annotated serving unit still means the whole
	// serving.
	derived := Resolve(food.ServingSize, food.ServingUnit)

	gramsPerServing := food.GramsPerServing
	if gramsPerServing == 0 {
		gramsPerServing = derived.GramsPerServing
	}

	// Rule 3: weight to weight.
	if grams, ok := ing.Grams(quantity); ok && gramsPerServing > 0 {
		return grams / gramsPerServing, nil
	}

	// Rule 4: plain grams against a known serving weight.
	if ing.Base == "g" && gramsPerServing > 0 {
		return quantity / gramsPerServing, nil
	}

	mlPerServing := food.MLPerServing
	if mlPerServing == 0 {
		mlPerServing = derived.MLPerServing
	}

	// Rule 5: volume to volume.
	if ml, ok := ing.Milliliters(quantity); ok && mlPerServing > 0 {
		return ml / mlPerServing, nil
	}

	// Rule 6: plain milliliters against a known serving volume.
	if ing.Base == "ml" && mlPerServing > 0 {
		return quantity / mlPerServing, nil
	}

	return 0, &ConversionError{
		Quantity: quantity,
		Unit:     ingredientUnit,
		Food:     food.ServingUnit,
		Fallback: quantity,
	}
}
