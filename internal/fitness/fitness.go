package fitness

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type UserProfile struct {
	ID           uuid.UUID `json:"id" validate:"required"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	JoinDate     time.Time `json:"joinDate"`
	ProfileImage *string   `json:"profileImage,omitempty"`
	// Height in cm.
	Height *float64 `json:"height,omitempty" validate:"omitempty,gte=0"`
	// Weight in kg.
	Weight       *float64 `json:"weight,omitempty" validate:"omitempty,gte=0"`
	FitnessGoals []string `json:"fitnessGoals"`
}

type Exercise struct {
	ID              uuid.UUID        `json:"id" validate:"required"`
	Name            string           `json:"name"`
	Category        ExerciseCategory `json:"category" validate:"fitnessenum"`
	MuscleGroups    []MuscleGroup    `json:"muscleGroups" validate:"dive,fitnessenum"`
	Description     string           `json:"description"`
	Instructions    []string         `json:"instructions"`
	DifficultyLevel Difficulty       `json:"difficultyLevel" validate:"fitnessenum"`
	Equipment       []Equipment      `json:"equipment" validate:"dive,fitnessenum"`
	ImageNames      []string         `json:"imageNames"`
}

type Workout struct {
	ID   uuid.UUID `json:"id" validate:"required"`
	Name string    `json:"name"`
	Date time.Time `json:"date"`
	// Duration in seconds.
	Duration    float64           `json:"duration" validate:"gte=0"`
	Exercises   []WorkoutExercise `json:"exercises" validate:"dive"`
	Notes       *string           `json:"notes,omitempty"`
	WorkoutType WorkoutType       `json:"workoutType" validate:"fitnessenum"`
}

// WorkoutExercise carries a snapshot of the exercise taken when the workout was logged.
type WorkoutExercise struct {
	ID       uuid.UUID     `json:"id" validate:"required"`
	Exercise Exercise      `json:"exercise"`
	Sets     []ExerciseSet `json:"sets" validate:"dive"`
	Notes    *string       `json:"notes,omitempty"`
}

// ExerciseSet fields are all optional; which of them make sense depends on
// the exercise category (reps+weight for strength, duration+distance for cardio),
// but that is left to the caller.
type ExerciseSet struct {
	ID       uuid.UUID `json:"id" validate:"required"`
	Reps     *int      `json:"reps,omitempty" validate:"omitempty,gte=0"`
	Weight   *float64  `json:"weight,omitempty" validate:"omitempty,gte=0"`
	Duration *float64  `json:"duration,omitempty" validate:"omitempty,gte=0"`
	Distance *float64  `json:"distance,omitempty" validate:"omitempty,gte=0"`
	// Completed marks the set as done.
	Completed bool `json:"completed"`
}

func NewUserProfile(username, email string, joinDate time.Time) UserProfile {
	return UserProfile{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		JoinDate:     joinDate.UTC(),
		FitnessGoals: []string{},
	}
}

// DefaultProfile is used when an identity exists without a profile document.
func DefaultProfile(email string, joinDate time.Time) UserProfile {
	return NewUserProfile(UsernameFromEmail(email), email, joinDate)
}

// UsernameFromEmail returns the part of the email before '@'.
func UsernameFromEmail(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

func NewExercise(
	name string,
	category ExerciseCategory,
	muscleGroups []MuscleGroup,
	description string,
	instructions []string,
	difficulty Difficulty,
	equipment []Equipment,
	imageNames []string,
) Exercise {
	return Exercise{
		ID:              uuid.New(),
		Name:            name,
		Category:        category,
		MuscleGroups:    muscleGroups,
		Description:     description,
		Instructions:    instructions,
		DifficultyLevel: difficulty,
		Equipment:       equipment,
		ImageNames:      imageNames,
	}.Normalized()
}

func NewWorkout(name string, date time.Time, workoutType WorkoutType) Workout {
	return Workout{
		ID:          uuid.New(),
		Name:        name,
		Date:        date.UTC(),
		Exercises:   []WorkoutExercise{},
		WorkoutType: workoutType,
	}
}

// NewWorkoutExercise copies the exercise by value, later edits to the
// library exercise do not show up in the logged workout.
func NewWorkoutExercise(exercise Exercise, sets ...ExerciseSet) WorkoutExercise {
	snapshot := exercise.Normalized()
	snapshot.MuscleGroups = append([]MuscleGroup{}, snapshot.MuscleGroups...)
	snapshot.Instructions = append([]string{}, snapshot.Instructions...)
	snapshot.Equipment = append([]Equipment{}, snapshot.Equipment...)
	snapshot.ImageNames = append([]string{}, snapshot.ImageNames...)
	if sets == nil {
		sets = []ExerciseSet{}
	}
	return WorkoutExercise{
		ID:       uuid.New(),
		Exercise: snapshot,
		Sets:     sets,
	}
}

func NewExerciseSet() ExerciseSet {
	return ExerciseSet{ID: uuid.New()}
}

func NewStrengthSet(reps int, weight float64) ExerciseSet {
	s := NewExerciseSet()
	s.Reps = &reps
	s.Weight = &weight
	return s
}

func NewCardioSet(duration, distance float64) ExerciseSet {
	s := NewExerciseSet()
	s.Duration = &duration
	s.Distance = &distance
	return s
}

// Normalized returns a copy with nil lists replaced by empty ones and the
// join date in UTC, so the stored document never carries null lists.
func (p UserProfile) Normalized() UserProfile {
	p.JoinDate = p.JoinDate.UTC()
	if p.FitnessGoals == nil {
		p.FitnessGoals = []string{}
	}
	return p
}

func (e Exercise) Normalized() Exercise {
	if e.MuscleGroups == nil {
		e.MuscleGroups = []MuscleGroup{}
	}
	if e.Instructions == nil {
		e.Instructions = []string{}
	}
	if e.Equipment == nil {
		e.Equipment = []Equipment{}
	}
	if e.ImageNames == nil {
		e.ImageNames = []string{}
	}
	return e
}

func (w Workout) Normalized() Workout {
	w.Date = w.Date.UTC()
	exercises := make([]WorkoutExercise, 0, len(w.Exercises))
	for _, we := range w.Exercises {
		we.Exercise = we.Exercise.Normalized()
		if we.Sets == nil {
			we.Sets = []ExerciseSet{}
		}
		exercises = append(exercises, we)
	}
	w.Exercises = exercises
	return w
}

// Clone returns a copy sharing no slices or pointers with p.
func (p UserProfile) Clone() UserProfile {
	p.Height = clonePtr(p.Height)
	p.Weight = clonePtr(p.Weight)
	p.FitnessGoals = slices.Clone(p.FitnessGoals)
	return p
}

func (e Exercise) Clone() Exercise {
	e.MuscleGroups = slices.Clone(e.MuscleGroups)
	e.Instructions = slices.Clone(e.Instructions)
	e.Equipment = slices.Clone(e.Equipment)
	e.ImageNames = slices.Clone(e.ImageNames)
	return e
}

func (s ExerciseSet) Clone() ExerciseSet {
	s.Reps = clonePtr(s.Reps)
	s.Weight = clonePtr(s.Weight)
	s.Duration = clonePtr(s.Duration)
	s.Distance = clonePtr(s.Distance)
	return s
}

func (we WorkoutExercise) Clone() WorkoutExercise {
	we.Exercise = we.Exercise.Clone()
	we.Notes = clonePtr(we.Notes)
	if we.Sets != nil {
		sets := make([]ExerciseSet, len(we.Sets))
		for i, set := range we.Sets {
			sets[i] = set.Clone()
		}
		we.Sets = sets
	}
	return we
}

func (w Workout) Clone() Workout {
	w.Notes = clonePtr(w.Notes)
	if w.Exercises != nil {
		exercises := make([]WorkoutExercise, len(w.Exercises))
		for i, we := range w.Exercises {
			exercises[i] = we.Clone()
		}
		w.Exercises = exercises
	}
	return w
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// SortWorkoutsByDateDesc orders newest first, keeping the relative order of equal dates.
func SortWorkoutsByDateDesc(workouts []Workout) {
	sort.SliceStable(workouts, func(i, j int) bool {
		return workouts[i].Date.After(workouts[j].Date)
	})
}
