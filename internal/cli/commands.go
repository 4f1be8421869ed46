package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"larder/internal/engine"
	"larder/internal/store"
)

// openDB is a helper that opens the database for CLI commands.
func openDB() (*store.DB, error) {
	dbPath := os.Getenv("LARDER_DB")
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(dbPath)
}

// --- foods command ---

var foodsCmd = &cobra.Command{
	Use:   "foods",
	Short: "List food items",
	RunE:  runFoods,
}

func runFoods(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	foods, err := db.Store().ListFoods()
	if err != nil {
		return fmt.Errorf("list foods: %w", err)
	}
	if len(foods) == 0 {
		fmt.Println("No food items yet.")
		return nil
	}
	for _, f := range foods {
		fmt.Printf("%4d  %-30s %g %s  %.0f cal\n",
			f.ID, f.Name, f.ServingSize, f.ServingUnit, f.Nutrition.Calories)
	}
	return nil
}

// --- recipes command ---

var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "List recipes with cached per-serving totals",
	RunE:  runRecipes,
}

func runRecipes(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	recipes, err := db.Store().ListRecipes()
	if err != nil {
		return fmt.Errorf("list recipes: %w", err)
	}
	if len(recipes) == 0 {
		fmt.Println("No recipes yet.")
		return nil
	}
	for _, r := range recipes {
		fmt.Printf("%4d  %-30s makes %g  %.0f cal/serving\n",
			r.ID, r.Name, r.ServingsProduced, r.Nutrition.Calories)
	}
	return nil
}

// --- day command ---

var dayCmd = &cobra.Command{
	Use:   "day [date]",
	Short: "Show a day's log and totals",
	Long:  "Show meals, exercises, and cached totals for a date (YYYY-MM-DD). Defaults to today.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDay,
}

func runDay(cmd *cobra.Command, args []string) error {
	date := time.Now().Format("2006-01-02")
	if len(args) > 0 {
		if _, err := time.Parse("2006-01-02", args[0]); err != nil {
			return fmt.Errorf("invalid date %q, want YYYY-MM-DD", args[0])
		}
		date = args[0]
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	st := db.Store()
	day, err := st.DayByDate(date)
	if err != nil {
		return fmt.Errorf("get day: %w", err)
	}
	if day == nil {
		fmt.Printf("Nothing logged on %s.\n", date)
		return nil
	}

	meals, err := st.MealEntriesFor(day.ID)
	if err != nil {
		return fmt.Errorf("list meals: %w", err)
	}
	exercises, err := st.ExercisesFor(day.ID)
	if err != nil {
		return fmt.Errorf("list exercises: %w", err)
	}

	fmt.Printf("## %s\n\n", date)
	for _, m := range meals {
		source := fmt.Sprintf("food %d", m.FoodID)
		if m.RecipeID != 0 {
			source = fmt.Sprintf("recipe %d", m.RecipeID)
		}
		fmt.Printf("  %g servings of %s (%.0f%% eaten): %.0f cal\n",
			m.Servings, source, m.PercentEaten, m.Nutrition.Calories)
	}
	for _, ex := range exercises {
		fmt.Printf("  exercise %s: %.1f cal burned\n", ex.Name, ex.CaloriesBurned)
	}
	fmt.Println()
	fmt.Printf("  eaten:  %.0f cal (%.1fg protein, %.1fg carbs, %.1fg fat)\n",
		day.Nutrition.Calories, day.Nutrition.Protein, day.Nutrition.Carbs, day.Nutrition.Fat)
	fmt.Printf("  burned: %.1f cal\n", day.CaloriesBurned)
	fmt.Printf("  net:    %.1f cal\n", day.Nutrition.Calories-day.CaloriesBurned)
	return nil
}

// --- recalc command ---

var recalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Recalculate every recipe and day from scratch",
	Long:  "Rebuild all cached nutrition by cascading from every food item. Useful after editing the database directly.",
	RunE:  runRecalc,
}

func runRecalc(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	foods, err := db.Store().ListFoods()
	if err != nil {
		return fmt.Errorf("list foods: %w", err)
	}
	if len(foods) == 0 {
		fmt.Println("Nothing to recalculate.")
		return nil
	}
	ids := make([]int64, len(foods))
	for i, f := range foods {
		ids[i] = f.ID
	}

	eng := engine.New(db)
	res, err := eng.CascadeFromFoodItems(ids)
	if err != nil {
		return fmt.Errorf("recalculate: %w", err)
	}

	fmt.Printf("Recalculated %d recipes and %d days.\n",
		res.RecipesRecalculated, res.DaysRecalculated)
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	return nil
}
