package service

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/program-generator/internal/domain"
	"alcyxob/program-generator/internal/repository"
)

// PersistenceService writes programs and phases. Callers wrap it in a
// transaction; it opens none itself.
type PersistenceService interface {
	CreateProgram(ctx context.Context, program *domain.Program) (primitive.ObjectID, error)
	// WritePhase creates one WorkoutPlan with its Workouts and exercise
	// instances, resolving each exercise against the library.
	WritePhase(ctx context.Context, programID primitive.ObjectID, phase *domain.ValidatedPhase, ownerID string) (primitive.ObjectID, error)
}

type persistenceService struct {
	programRepo  repository.ProgramRepository
	planRepo     repository.WorkoutPlanRepository
	workoutRepo  repository.WorkoutRepository
	exerciseRepo repository.WorkoutExerciseRepository
	libraryRepo  repository.ExerciseLibraryRepository
}

// NewPersistenceService creates the persistence writer.
func NewPersistenceService(
	programRepo repository.ProgramRepository,
	planRepo repository.WorkoutPlanRepository,
	workoutRepo repository.WorkoutRepository,
	exerciseRepo repository.WorkoutExerciseRepository,
	libraryRepo repository.ExerciseLibraryRepository,
) PersistenceService {
	return &persistenceService{
		programRepo:  programRepo,
		planRepo:     planRepo,
		workoutRepo:  workoutRepo,
		exerciseRepo: exerciseRepo,
		libraryRepo:  libraryRepo,
	}
}

func (s *persistenceService) CreateProgram(ctx context.Context, program *domain.Program) (primitive.ObjectID, error) {
	if program.Name == "" {
		program.Name = domain.DefaultProgramName
	}
	if program.Description == "" {
		program.Description = domain.DefaultProgramDescription
	}
	return s.programRepo.Create(ctx, program)
}

func (s *persistenceService) WritePhase(ctx context.Context, programID primitive.ObjectID, phase *domain.ValidatedPhase, ownerID string) (primitive.ObjectID, error) {
	plan := &domain.WorkoutPlan{
		ProgramID:           programID,
		OwnerID:             ownerID,
		PhaseNumber:         phase.PhaseNumber,
		Name:                phase.Name,
		Focus:               phase.Focus,
		SplitType:           phase.SplitType,
		DurationWeeks:       phase.DurationWeeks,
		DaysPerWeek:         len(phase.Workouts),
		DailyCalories:       phase.Nutrition.DailyCalories,
		ProteinGrams:        phase.Nutrition.Protein,
		CarbGrams:           phase.Nutrition.Carbs,
		FatGrams:            phase.Nutrition.Fats,
		PhaseExplanation:    phase.Explanation,
		PhaseExpectations:   phase.Expectations,
		PhaseKeyPoints:      phase.KeyPoints,
		ProgressionProtocol: phase.ProgressionProtocol,
	}
	planID, err := s.planRepo.Create(ctx, plan)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("create workout plan: %w", err)
	}

	for i := range phase.Workouts {
		w := &phase.Workouts[i]
		workout := &domain.Workout{
			WorkoutPlanID: planID,
			ProgramID:     programID,
			Name:          w.Name,
			Focus:         w.Focus,
			DayNumber:     w.DayNumber,
			Warmup:        w.Warmup,
			Cooldown:      w.Cooldown,
		}
		workoutID, err := s.workoutRepo.Create(ctx, workout)
		if err != nil {
			return primitive.NilObjectID, fmt.Errorf("create workout %d: %w", w.DayNumber, err)
		}

		rows := make([]domain.WorkoutExercise, 0, len(w.Exercises))
		for _, ex := range w.Exercises {
			entry, err := s.libraryRepo.FindOrCreate(ctx, ex.Name, ex.Category)
			if err != nil {
				return primitive.NilObjectID, fmt.Errorf("resolve library entry %q: %w", ex.Name, err)
			}
			rows = append(rows, exerciseRow(ex, workoutID, planID, entry.ID))
		}
		if err := s.exerciseRepo.CreateMany(ctx, rows); err != nil {
			return primitive.NilObjectID, fmt.Errorf("create exercises for workout %d: %w", w.DayNumber, err)
		}
	}
	return planID, nil
}

// exerciseRow maps a validated exercise to its stored instance. Intensity is
// folded into the notes.
func exerciseRow(ex domain.PhaseExercise, workoutID, planID, libraryID primitive.ObjectID) domain.WorkoutExercise {
	row := domain.WorkoutExercise{
		WorkoutID:         workoutID,
		WorkoutPlanID:     planID,
		ExerciseLibraryID: libraryID,
		Name:              ex.Name,
		Sets:              ex.Sets,
		Reps:              ex.Reps,
		MeasureType:       ex.MeasureType,
		MeasureValue:      ex.MeasureValue,
		MeasureUnit:       ex.MeasureUnit,
		RestPeriod:        ex.RestPeriod,
		SortOrder:         ex.SortOrder,
		Instructions:      ex.Instructions,
	}
	if notes := joinNotes(ex.Intensity, ex.Notes); notes != "" {
		row.Notes = &notes
	}
	return row
}

func joinNotes(intensity, notes string) string {
	switch {
	case intensity != "" && notes != "":
		return intensity + " " + notes
	case intensity != "":
		return intensity
	default:
		return notes
	}
}
