package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/program-generator/internal/domain"
	"alcyxob/program-generator/internal/repository/memory"
)

func newPersistence(store *memory.Store) PersistenceService {
	return NewPersistenceService(store.Programs(), store.WorkoutPlans(), store.Workouts(), store.WorkoutExercises(), store.ExerciseLibrary())
}

func testPhase(n int, exercises ...domain.PhaseExercise) *domain.ValidatedPhase {
	return &domain.ValidatedPhase{
		PhaseNumber:   n,
		Name:          "Phase",
		DurationWeeks: 4,
		Focus:         "Strength",
		SplitType:     "Full Body",
		KeyPoints:     []string{"Show up"},
		Workouts: []domain.PhaseWorkout{
			{DayNumber: 1, Name: "Day 1", Focus: "Legs", Exercises: exercises},
			{DayNumber: 3, Name: "Day 3", Focus: "Legs", Exercises: exercises},
		},
		Nutrition: domain.PhaseNutrition{DailyCalories: 2200, Protein: 150, Carbs: 220, Fats: 70},
	}
}

func squat() domain.PhaseExercise {
	return domain.PhaseExercise{
		Name: "Barbell Squat", Category: "primary", Sets: 4, Reps: 8,
		MeasureType: domain.MeasureReps, MeasureValue: 8, RestPeriod: 120, SortOrder: 1,
		Intensity: "RPE 8", Notes: "Control the descent",
	}
}

func TestPersistence_CreateProgramDefaults(t *testing.T) {
	store := memory.NewStore()
	p := newPersistence(store)

	program := &domain.Program{OwnerID: "u1", TotalPhases: 3}
	id, err := p.CreateProgram(context.Background(), program)
	require.NoError(t, err)

	got, err := store.Programs().GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultProgramName, got.Name)
	assert.Equal(t, domain.DefaultProgramDescription, got.Description)
	assert.Equal(t, 3, got.TotalPhases)
}

func TestPersistence_WritePhase(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	p := newPersistence(store)

	programID, err := p.CreateProgram(ctx, &domain.Program{OwnerID: "u1", TotalPhases: 2})
	require.NoError(t, err)

	planID, err := p.WritePhase(ctx, programID, testPhase(1, squat()), "u1")
	require.NoError(t, err)

	plans, err := store.WorkoutPlans().GetByProgramID(ctx, programID)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, planID, plans[0].ID)
	assert.Equal(t, 2, plans[0].DaysPerWeek)
	assert.Equal(t, 150, plans[0].ProteinGrams)
	assert.Equal(t, "u1", plans[0].OwnerID)

	workouts, err := store.Workouts().GetByPlanID(ctx, planID)
	require.NoError(t, err)
	require.Len(t, workouts, 2)

	rows, err := store.WorkoutExercises().GetByWorkoutID(ctx, workouts[0].ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Notes)
	assert.Equal(t, "RPE 8 Control the descent", *rows[0].Notes)
	assert.Equal(t, planID, rows[0].WorkoutPlanID)
}

func TestPersistence_LibraryIsSharedAcrossPhases(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	p := newPersistence(store)

	programID, err := p.CreateProgram(ctx, &domain.Program{OwnerID: "u1", TotalPhases: 2})
	require.NoError(t, err)

	_, err = p.WritePhase(ctx, programID, testPhase(1, squat()), "u1")
	require.NoError(t, err)

	renamed := squat()
	renamed.Name = "  barbell   SQUAT "
	_, err = p.WritePhase(ctx, programID, testPhase(2, renamed), "u1")
	require.NoError(t, err)

	counts := store.Counts()
	assert.Equal(t, 1, counts.Library)
	assert.Equal(t, 4, counts.Exercises)
	assert.Equal(t, 2, counts.Plans)
}

func TestPersistence_DuplicatePhaseFails(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	p := newPersistence(store)

	programID, err := p.CreateProgram(ctx, &domain.Program{OwnerID: "u1", TotalPhases: 2})
	require.NoError(t, err)
	_, err = p.WritePhase(ctx, programID, testPhase(1, squat()), "u1")
	require.NoError(t, err)

	_, err = p.WritePhase(ctx, programID, testPhase(1, squat()), "u1")
	assert.Error(t, err)
}

func TestJoinNotes(t *testing.T) {
	assert.Equal(t, "", joinNotes("", ""))
	assert.Equal(t, "RPE 7", joinNotes("RPE 7", ""))
	assert.Equal(t, "slow", joinNotes("", "slow"))
	assert.Equal(t, "RPE 7 slow", joinNotes("RPE 7", "slow"))
}
