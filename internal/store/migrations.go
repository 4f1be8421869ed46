package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "food_items: the leaf records of the dependency graph",
		SQL: `
CREATE TABLE food_items (
    id                INTEGER PRIMARY KEY,
    name              TEXT NOT NULL,
    serving_size      REAL NOT NULL CHECK (serving_size > 0),
    serving_unit      TEXT NOT NULL,

    -- Conversion factors resolved once, when the item is created
    grams_per_serving REAL NOT NULL DEFAULT 0,
    ml_per_serving    REAL NOT NULL DEFAULT 0,
    base_unit_kind    TEXT NOT NULL DEFAULT 'custom'
        CHECK (base_unit_kind IN ('weight', 'volume', 'count', 'custom')),

    -- Per-serving nutrition
    calories          REAL NOT NULL DEFAULT 0,
    protein           REAL NOT NULL DEFAULT 0,
    carbs             REAL NOT NULL DEFAULT 0,
    fat               REAL NOT NULL DEFAULT 0,
    fiber             REAL NOT NULL DEFAULT 0,
    sodium            REAL NOT NULL DEFAULT 0,
    sugar             REAL NOT NULL DEFAULT 0,
    saturated_fat     REAL NOT NULL DEFAULT 0,
    cholesterol       REAL NOT NULL DEFAULT 0,

    created_at        INTEGER NOT NULL,
    updated_at        INTEGER NOT NULL
);
`,
	},
	{
		Version:     2,
		Description: "recipes, ingredient edges, component edges",
		SQL: `
CREATE TABLE recipes (
    id                INTEGER PRIMARY KEY,
    name              TEXT NOT NULL,
    servings_produced REAL NOT NULL CHECK (servings_produced > 0),

    -- Cached per-serving nutrition, owned by the recalculation engine
    calories          REAL NOT NULL DEFAULT 0,
    protein           REAL NOT NULL DEFAULT 0,
    carbs             REAL NOT NULL DEFAULT 0,
    fat               REAL NOT NULL DEFAULT 0,
    fiber             REAL NOT NULL DEFAULT 0,
    sodium            REAL NOT NULL DEFAULT 0,
    sugar             REAL NOT NULL DEFAULT 0,
    saturated_fat     REAL NOT NULL DEFAULT 0,
    cholesterol       REAL NOT NULL DEFAULT 0,

    created_at        INTEGER NOT NULL,
    updated_at        INTEGER NOT NULL
);

CREATE TABLE recipe_ingredients (
    id        INTEGER PRIMARY KEY,
    recipe_id INTEGER NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
    food_id   INTEGER NOT NULL REFERENCES food_items(id),
    quantity  REAL NOT NULL CHECK (quantity > 0),
    unit      TEXT NOT NULL
);

CREATE INDEX idx_ingredients_recipe ON recipe_ingredients(recipe_id);
CREATE INDEX idx_ingredients_food   ON recipe_ingredients(food_id);

CREATE TABLE recipe_components (
    id           INTEGER PRIMARY KEY,
    recipe_id    INTEGER NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
    component_id INTEGER NOT NULL REFERENCES recipes(id),
    servings     REAL NOT NULL CHECK (servings > 0),

    UNIQUE (recipe_id, component_id)
);

CREATE INDEX idx_components_recipe    ON recipe_components(recipe_id);
CREATE INDEX idx_components_component ON recipe_components(component_id);
`,
	},
	{
		Version:     3,
		Description: "days and meal entries",
		SQL: `
CREATE TABLE days (
    id              INTEGER PRIMARY KEY,
    date            TEXT NOT NULL UNIQUE,

    -- Cached totals, owned by the recalculation engine
    calories        REAL NOT NULL DEFAULT 0,
    protein         REAL NOT NULL DEFAULT 0,
    carbs           REAL NOT NULL DEFAULT 0,
    fat             REAL NOT NULL DEFAULT 0,
    fiber           REAL NOT NULL DEFAULT 0,
    sodium          REAL NOT NULL DEFAULT 0,
    sugar           REAL NOT NULL DEFAULT 0,
    saturated_fat   REAL NOT NULL DEFAULT 0,
    cholesterol     REAL NOT NULL DEFAULT 0,
    calories_burned REAL NOT NULL DEFAULT 0
);

CREATE TABLE meal_entries (
    id            TEXT PRIMARY KEY,
    day_id        INTEGER NOT NULL REFERENCES days(id) ON DELETE CASCADE,
    recipe_id     INTEGER REFERENCES recipes(id),
    food_id       INTEGER REFERENCES food_items(id),
    servings      REAL NOT NULL CHECK (servings > 0),
    percent_eaten REAL NOT NULL DEFAULT 100 CHECK (percent_eaten BETWEEN 0 AND 100),

    -- Cached nutrition, computed at write time
    calories      REAL NOT NULL DEFAULT 0,
    protein       REAL NOT NULL DEFAULT 0,
    carbs         REAL NOT NULL DEFAULT 0,
    fat           REAL NOT NULL DEFAULT 0,
    fiber         REAL NOT NULL DEFAULT 0,
    sodium        REAL NOT NULL DEFAULT 0,
    sugar         REAL NOT NULL DEFAULT 0,
    saturated_fat REAL NOT NULL DEFAULT 0,
    cholesterol   REAL NOT NULL DEFAULT 0,

    created_at    INTEGER NOT NULL,

    CHECK ((recipe_id IS NULL) != (food_id IS NULL))
);

CREATE INDEX idx_meals_day    ON meal_entries(day_id);
CREATE INDEX idx_meals_recipe ON meal_entries(recipe_id);
CREATE INDEX idx_meals_food   ON meal_entries(food_id);
`,
	},
	{
		Version:     4,
		Description: "exercises and segments",
		SQL: `
CREATE TABLE exercises (
    id              INTEGER PRIMARY KEY,
    day_id          INTEGER NOT NULL REFERENCES days(id) ON DELETE CASCADE,
    name            TEXT NOT NULL,
    calories_burned REAL NOT NULL DEFAULT 0,
    created_at      INTEGER NOT NULL
);

CREATE INDEX idx_exercises_day ON exercises(day_id);

CREATE TABLE exercise_segments (
    id              INTEGER PRIMARY KEY,
    exercise_id     INTEGER NOT NULL REFERENCES exercises(id) ON DELETE CASCADE,
    duration_min    REAL NOT NULL DEFAULT 0,
    speed_mph       REAL NOT NULL DEFAULT 0,
    distance_mi     REAL NOT NULL DEFAULT 0,
    incline_percent REAL NOT NULL DEFAULT 0,
    is_consistent   INTEGER NOT NULL DEFAULT 1,
    calories        REAL NOT NULL DEFAULT 0
);

CREATE INDEX idx_segments_exercise ON exercise_segments(exercise_id);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
