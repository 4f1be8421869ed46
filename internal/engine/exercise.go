package engine

import (
	"fmt"
	"math"

	"larder/internal/store"
)

const (
	lbsPerKg         = 2.20462
	defaultWeightLbs = 150.0

	// consistencyTolerance is the relative error allowed between a supplied
	// distance and the one implied by speed × duration.
	consistencyTolerance = 0.01
)

// metTable maps treadmill speed (mph, upper bound inclusive) to its MET
// value, walking through running paces.
var metTable = []struct {
	maxSpeed float64
	met      float64
}{
	{2.0, 2.0},
	{2.5, 2.8},
	{3.0, 3.5},
	{3.5, 4.3},
	{4.0, 5.0},
	{5.0, 8.3},
	{6.0, 9.8},
	{7.0, 11.0},
	{8.0, 11.8},
	{10.0, 12.8},
}

func metForSpeed(mph float64) float64 {
	for _, step := range metTable {
		if mph <= step.maxSpeed {
			return step.met
		}
	}
	return 14.5
}

// DeriveSegment fills in whichever of duration, speed, and distance is
// missing from the other two via distance = speed × duration/60. With all
// three supplied, consistent reports whether the given distance is within
// tolerance of the implied one.
func DeriveSegment(durationMin, speedMPH, distanceMi float64) (duration, speed, distance float64, consistent bool) {
	duration, speed, distance = durationMin, speedMPH, distanceMi
	consistent = true

	switch {
	case duration > 0 && speed > 0 && distance > 0:
		expected := speed * duration / 60
		if expected > 0 {
			consistent = math.Abs(distance-expected)/expected < consistencyTolerance
		}
	case duration > 0 && speed > 0:
		distance = speed * duration / 60
	case duration > 0 && distance > 0:
		speed = distance / (duration / 60)
	case speed > 0 && distance > 0:
		duration = distance / speed * 60
	}
	return duration, speed, distance, consistent
}

// SegmentCalories computes calories burned for one segment: MET from the
// speed table plus 0.1 per incline percent, times body weight in kg, times
// hours, rounded to one decimal. Zero weight falls back to the default.
func SegmentCalories(durationMin, speedMPH, inclinePercent, weightLbs float64) float64 {
	if weightLbs <= 0 {
		weightLbs = defaultWeightLbs
	}
	met := metForSpeed(speedMPH) + inclinePercent*0.1
	kg := weightLbs / lbsPerKg
	calories := met * kg * durationMin / 60
	return math.Round(calories*10) / 10
}

// AddExercise creates an exercise on a date, creating the day as needed.
func (e *Engine) AddExercise(date, name string) (*store.Exercise, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: exercise name required", ErrValidation)
	}

	ex := &store.Exercise{Name: name}
	err := e.DB.Transact(func(s *store.Store) error {
		day, err := s.EnsureDay(date)
		if err != nil {
			return err
		}
		ex.DayID = day.ID
		return s.CreateExercise(ex)
	})
	if err != nil {
		return nil, err
	}
	return ex, nil
}

// DeleteExercise removes an exercise and re-sums its day's burned calories.
func (e *Engine) DeleteExercise(id int64) error {
	return e.DB.Transact(func(s *store.Store) error {
		ex, err := s.GetExercise(id)
		if err != nil {
			return err
		}
		if ex == nil {
			return fmt.Errorf("exercise %d: %w", id, ErrNotFound)
		}
		if err := s.DeleteExercise(id); err != nil {
			return err
		}
		return e.recalcDayBurned(s, ex.DayID)
	})
}

// AddSegment derives a segment's missing field and calories, stores it, and
// cascades the totals to its exercise and day.
func (e *Engine) AddSegment(exerciseID int64, seg *store.ExerciseSegment) (*store.ExerciseSegment, error) {
	if seg.DurationMin < 0 || seg.SpeedMPH < 0 || seg.DistanceMi < 0 {
		return nil, fmt.Errorf("%w: segment fields must be non-negative", ErrValidation)
	}

	err := e.DB.Transact(func(s *store.Store) error {
		ex, err := s.GetExercise(exerciseID)
		if err != nil {
			return err
		}
		if ex == nil {
			return fmt.Errorf("exercise %d: %w", exerciseID, ErrNotFound)
		}

		seg.ExerciseID = exerciseID
		e.deriveSegment(seg)
		if err := s.CreateSegment(seg); err != nil {
			return err
		}
		return e.recalcExercise(s, ex)
	})
	if err != nil {
		return nil, err
	}
	return seg, nil
}

// UpdateSegment rewrites a segment, re-derives its fields, and cascades.
func (e *Engine) UpdateSegment(seg *store.ExerciseSegment) (*store.ExerciseSegment, error) {
	if seg.DurationMin < 0 || seg.SpeedMPH < 0 || seg.DistanceMi < 0 {
		return nil, fmt.Errorf("%w: segment fields must be non-negative", ErrValidation)
	}

	err := e.DB.Transact(func(s *store.Store) error {
		existing, err := s.GetSegment(seg.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("segment %d: %w", seg.ID, ErrNotFound)
		}
		seg.ExerciseID = existing.ExerciseID

		ex, err := s.GetExercise(seg.ExerciseID)
		if err != nil {
			return err
		}

		e.deriveSegment(seg)
		if err := s.UpdateSegment(seg); err != nil {
			return err
		}
		return e.recalcExercise(s, ex)
	})
	if err != nil {
		return nil, err
	}
	return seg, nil
}

// DeleteSegment removes a segment and cascades the totals.
func (e *Engine) DeleteSegment(id int64) error {
	return e.DB.Transact(func(s *store.Store) error {
		seg, err := s.GetSegment(id)
		if err != nil {
			return err
		}
		if seg == nil {
			return fmt.Errorf("segment %d: %w", id, ErrNotFound)
		}
		ex, err := s.GetExercise(seg.ExerciseID)
		if err != nil {
			return err
		}
		if err := s.DeleteSegment(id); err != nil {
			return err
		}
		return e.recalcExercise(s, ex)
	})
}

// RecalculateExercise re-sums an exercise from its segments and cascades to
// its day, returning the exercise total.
func (e *Engine) RecalculateExercise(id int64) (float64, error) {
	var total float64
	err := e.DB.Transact(func(s *store.Store) error {
		ex, err := s.GetExercise(id)
		if err != nil {
			return err
		}
		if ex == nil {
			return fmt.Errorf("exercise %d: %w", id, ErrNotFound)
		}
		if err := e.recalcExercise(s, ex); err != nil {
			return err
		}
		fresh, err := s.GetExercise(id)
		if err != nil {
			return err
		}
		total = fresh.CaloriesBurned
		return nil
	})
	return total, err
}

func (e *Engine) deriveSegment(seg *store.ExerciseSegment) {
	seg.DurationMin, seg.SpeedMPH, seg.DistanceMi, seg.IsConsistent =
		DeriveSegment(seg.DurationMin, seg.SpeedMPH, seg.DistanceMi)
	seg.Calories = SegmentCalories(seg.DurationMin, seg.SpeedMPH, seg.InclinePercent, e.WeightLbs)
}

// recalcExercise re-sums segment calories into the exercise, then the day's
// exercises into its burned total.
func (e *Engine) recalcExercise(s *store.Store, ex *store.Exercise) error {
	segments, err := s.SegmentsFor(ex.ID)
	if err != nil {
		return err
	}
	var total float64
	for _, seg := range segments {
		total += seg.Calories
	}
	if err := s.UpdateExerciseBurned(ex.ID, total); err != nil {
		return err
	}
	return e.recalcDayBurned(s, ex.DayID)
}

func (e *Engine) recalcDayBurned(s *store.Store, dayID int64) error {
	exercises, err := s.ExercisesFor(dayID)
	if err != nil {
		return err
	}
	var total float64
	for _, ex := range exercises {
		total += ex.CaloriesBurned
	}
	return s.UpdateDayBurned(dayID, total)
}
