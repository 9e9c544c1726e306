package fitness

import "github.com/google/uuid"

var seedNamespace = uuid.MustParse("3f6c1a52-7d7e-4b1e-9a55-2c1f0f5b9e01")

// SampleExercises is the starter library used when the exercise collection is empty.
// Ids are derived from the names, so seeding twice overwrites rather than duplicates.
func SampleExercises() []Exercise {
	samples := []Exercise{
		{
			Name:         "Barbell Bench Press",
			Category:     CategoryStrength,
			MuscleGroups: []MuscleGroup{MuscleChest, MuscleShoulders, MuscleTriceps},
			Description:  "A compound exercise that targets the chest, shoulders, and triceps.",
			Instructions: []string{
				"Lie on a flat bench with your feet flat on the floor.",
				"Grip the barbell slightly wider than shoulder-width apart.",
				"Lower the barbell to your chest, keeping your elbows at a 45-degree angle.",
				"Press the barbell back up to the starting position.",
			},
			DifficultyLevel: DifficultyIntermediate,
			Equipment:       []Equipment{EquipmentBarbell},
			ImageNames:      []string{"bench_press_1", "bench_press_2"},
		},
		{
			Name:         "Pull-up",
			Category:     CategoryStrength,
			MuscleGroups: []MuscleGroup{MuscleBack, MuscleBiceps, MuscleForearms},
			Description:  "A bodyweight exercise that targets the back and arms.",
			Instructions: []string{
				"Hang from a pull-up bar with hands slightly wider than shoulder-width apart.",
				"Pull your body up until your chin is over the bar.",
				"Lower yourself back down with control.",
			},
			DifficultyLevel: DifficultyIntermediate,
			Equipment:       []Equipment{EquipmentBodyWeight},
			ImageNames:      []string{"pullup_1"},
		},
		{
			Name:         "Running",
			Category:     CategoryCardio,
			MuscleGroups: []MuscleGroup{MuscleQuadriceps, MuscleHamstrings, MuscleCalves, MuscleGlutes},
			Description:  "A cardiovascular exercise that improves endurance and burns calories.",
			Instructions: []string{
				"Start with a warm-up walk or light jog.",
				"Maintain good posture with a slight forward lean.",
				"Land midfoot and roll through to push off with your toes.",
				"Cool down with a walk at the end.",
			},
			DifficultyLevel: DifficultyBeginner,
			Equipment:       []Equipment{EquipmentNone, EquipmentTreadmill},
			ImageNames:      []string{"running_1"},
		},
	}

	for i := range samples {
		samples[i].ID = uuid.NewSHA1(seedNamespace, []byte(samples[i].Name))
	}
	return samples
}
