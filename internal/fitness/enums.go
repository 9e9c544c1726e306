package fitness

import "strings"

type ExerciseCategory string

const (
	CategoryStrength    ExerciseCategory = "Strength"
	CategoryCardio      ExerciseCategory = "Cardio"
	CategoryFlexibility ExerciseCategory = "Flexibility"
	CategoryBalance     ExerciseCategory = "Balance"
	CategoryFunctional  ExerciseCategory = "Functional"
)

var AllCategories = []ExerciseCategory{
	CategoryStrength, CategoryCardio, CategoryFlexibility, CategoryBalance, CategoryFunctional,
}

func (c ExerciseCategory) IsValid() bool {
	return contains(AllCategories, c)
}

type MuscleGroup string

const (
	MuscleChest      MuscleGroup = "Chest"
	MuscleBack       MuscleGroup = "Back"
	MuscleShoulders  MuscleGroup = "Shoulders"
	MuscleBiceps     MuscleGroup = "Biceps"
	MuscleTriceps    MuscleGroup = "Triceps"
	MuscleForearms   MuscleGroup = "Forearms"
	MuscleAbs        MuscleGroup = "Abs"
	MuscleQuadriceps MuscleGroup = "Quadriceps"
	MuscleHamstrings MuscleGroup = "Hamstrings"
	MuscleGlutes     MuscleGroup = "Glutes"
	MuscleCalves     MuscleGroup = "Calves"
	MuscleFullBody   MuscleGroup = "Full Body"
)

var AllMuscleGroups = []MuscleGroup{
	MuscleChest, MuscleBack, MuscleShoulders, MuscleBiceps, MuscleTriceps, MuscleForearms,
	MuscleAbs, MuscleQuadriceps, MuscleHamstrings, MuscleGlutes, MuscleCalves, MuscleFullBody,
}

func (m MuscleGroup) IsValid() bool {
	return contains(AllMuscleGroups, m)
}

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
)

var AllDifficulties = []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

func (d Difficulty) IsValid() bool {
	return contains(AllDifficulties, d)
}

type Equipment string

const (
	EquipmentNone           Equipment = "None"
	EquipmentDumbbell       Equipment = "Dumbbell"
	EquipmentBarbell        Equipment = "Barbell"
	EquipmentKettlebell     Equipment = "Kettlebell"
	EquipmentResistanceBand Equipment = "Resistance Band"
	EquipmentMachine        Equipment = "Machine"
	EquipmentBodyWeight     Equipment = "Body Weight"
	EquipmentTreadmill      Equipment = "Treadmill"
	EquipmentBicycle        Equipment = "Bicycle"
	EquipmentJumpRope       Equipment = "Jump Rope"
	EquipmentOther          Equipment = "Other"
)

var AllEquipment = []Equipment{
	EquipmentNone, EquipmentDumbbell, EquipmentBarbell, EquipmentKettlebell, EquipmentResistanceBand,
	EquipmentMachine, EquipmentBodyWeight, EquipmentTreadmill, EquipmentBicycle, EquipmentJumpRope,
	EquipmentOther,
}

func (e Equipment) IsValid() bool {
	return contains(AllEquipment, e)
}

type WorkoutType string

const (
	WorkoutStrength    WorkoutType = "Strength"
	WorkoutCardio      WorkoutType = "Cardio"
	WorkoutHIIT        WorkoutType = "HIIT"
	WorkoutFlexibility WorkoutType = "Flexibility"
	WorkoutCustom      WorkoutType = "Custom"
)

var AllWorkoutTypes = []WorkoutType{
	WorkoutStrength, WorkoutCardio, WorkoutHIIT, WorkoutFlexibility, WorkoutCustom,
}

func (w WorkoutType) IsValid() bool {
	return contains(AllWorkoutTypes, w)
}

// ParseWorkoutType matches the tag case-insensitively, used by the CLI flags.
func ParseWorkoutType(s string) (WorkoutType, bool) {
	for _, wt := range AllWorkoutTypes {
		if strings.EqualFold(string(wt), s) {
			return wt, true
		}
	}
	return "", false
}

func contains[T comparable](all []T, v T) bool {
	for _, a := range all {
		if a == v {
			return true
		}
	}
	return false
}
