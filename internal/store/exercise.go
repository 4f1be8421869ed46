package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Exercise groups segments under a day; its calories_burned is the cached
// sum of its segments' calories.
type Exercise struct {
	ID             int64   `json:"id"`
	DayID          int64   `json:"day_id"`
	Name           string  `json:"name"`
	CaloriesBurned float64 `json:"calories_burned"`
	CreatedAt      int64   `json:"created_at"`
}

// ExerciseSegment is one stretch at a constant speed and incline. Calories
// and the consistency flag are derived at write time.
type ExerciseSegment struct {
	ID             int64   `json:"id"`
	ExerciseID     int64   `json:"exercise_id"`
	DurationMin    float64 `json:"duration_min"`
	SpeedMPH       float64 `json:"speed_mph"`
	DistanceMi     float64 `json:"distance_mi"`
	InclinePercent float64 `json:"incline_percent"`
	IsConsistent   bool    `json:"is_consistent"`
	Calories       float64 `json:"calories"`
}

// CreateExercise inserts an exercise under a day.
func (s *Store) CreateExercise(e *Exercise) error {
	now := time.Now().UnixMilli()
	result, err := s.q.Exec(`
		INSERT INTO exercises (day_id, name, created_at) VALUES (?, ?, ?)
	`, e.DayID, e.Name, now)
	if err != nil {
		return fmt.Errorf("create exercise: %w", err)
	}
	e.ID, _ = result.LastInsertId()
	e.CreatedAt = now
	return nil
}

// GetExercise returns an exercise by id, or nil if not found.
func (s *Store) GetExercise(id int64) (*Exercise, error) {
	var e Exercise
	err := s.q.QueryRow(`
		SELECT id, day_id, name, calories_burned, created_at FROM exercises WHERE id = ?
	`, id).Scan(&e.ID, &e.DayID, &e.Name, &e.CaloriesBurned, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get exercise %d: %w", id, err)
	}
	return &e, nil
}

// ExercisesFor returns a day's exercises in insertion order.
func (s *Store) ExercisesFor(dayID int64) ([]Exercise, error) {
	rows, err := s.q.Query(`
		SELECT id, day_id, name, calories_burned, created_at
		FROM exercises WHERE day_id = ? ORDER BY id
	`, dayID)
	if err != nil {
		return nil, fmt.Errorf("exercises for day %d: %w", dayID, err)
	}
	defer rows.Close()

	var exercises []Exercise
	for rows.Next() {
		var e Exercise
		if err := rows.Scan(&e.ID, &e.DayID, &e.Name, &e.CaloriesBurned, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		exercises = append(exercises, e)
	}
	return exercises, rows.Err()
}

// UpdateExerciseBurned writes a freshly summed calorie total.
func (s *Store) UpdateExerciseBurned(id int64, calories float64) error {
	_, err := s.q.Exec("UPDATE exercises SET calories_burned = ? WHERE id = ?", calories, id)
	if err != nil {
		return fmt.Errorf("update exercise %d burned: %w", id, err)
	}
	return nil
}

// DeleteExercise removes an exercise and its segments.
func (s *Store) DeleteExercise(id int64) error {
	if _, err := s.q.Exec("DELETE FROM exercises WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete exercise %d: %w", id, err)
	}
	return nil
}

// CreateSegment inserts a segment with its derived fields already filled in.
func (s *Store) CreateSegment(seg *ExerciseSegment) error {
	result, err := s.q.Exec(`
		INSERT INTO exercise_segments (exercise_id, duration_min, speed_mph, distance_mi,
			incline_percent, is_consistent, calories)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, seg.ExerciseID, seg.DurationMin, seg.SpeedMPH, seg.DistanceMi,
		seg.InclinePercent, boolInt(seg.IsConsistent), seg.Calories)
	if err != nil {
		return fmt.Errorf("create segment: %w", err)
	}
	seg.ID, _ = result.LastInsertId()
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// GetSegment returns a segment by id, or nil if not found.
func (s *Store) GetSegment(id int64) (*ExerciseSegment, error) {
	var seg ExerciseSegment
	var consistent int
	err := s.q.QueryRow(`
		SELECT id, exercise_id, duration_min, speed_mph, distance_mi, incline_percent, is_consistent, calories
		FROM exercise_segments WHERE id = ?
	`, id).Scan(&seg.ID, &seg.ExerciseID, &seg.DurationMin, &seg.SpeedMPH,
		&seg.DistanceMi, &seg.InclinePercent, &consistent, &seg.Calories)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get segment %d: %w", id, err)
	}
	seg.IsConsistent = consistent != 0
	return &seg, nil
}

// UpdateSegment rewrites a segment and its derived fields.
func (s *Store) UpdateSegment(seg *ExerciseSegment) error {
	_, err := s.q.Exec(`
		UPDATE exercise_segments SET duration_min = ?, speed_mph = ?, distance_mi = ?,
			incline_percent = ?, is_consistent = ?, calories = ?
		WHERE id = ?
	`, seg.DurationMin, seg.SpeedMPH, seg.DistanceMi,
		seg.InclinePercent, boolInt(seg.IsConsistent), seg.Calories, seg.ID)
	if err != nil {
		return fmt.Errorf("update segment %d: %w", seg.ID, err)
	}
	return nil
}

// DeleteSegment removes a segment.
func (s *Store) DeleteSegment(id int64) error {
	if _, err := s.q.Exec("DELETE FROM exercise_segments WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete segment %d: %w", id, err)
	}
	return nil
}

// SegmentsFor returns an exercise's segments in insertion order.
func (s *Store) SegmentsFor(exerciseID int64) ([]ExerciseSegment, error) {
	rows, err := s.q.Query(`
		SELECT id, exercise_id, duration_min, speed_mph, distance_mi, incline_percent, is_consistent, calories
		FROM exercise_segments WHERE exercise_id = ? ORDER BY id
	`, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("segments for exercise %d: %w", exerciseID, err)
	}
	defer rows.Close()

	var segments []ExerciseSegment
	for rows.Next() {
		var seg ExerciseSegment
		var consistent int
		if err := rows.Scan(&seg.ID, &seg.ExerciseID, &seg.DurationMin, &seg.SpeedMPH,
			&seg.DistanceMi, &seg.InclinePercent, &consistent, &seg.Calories); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		seg.IsConsistent = consistent != 0
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}
