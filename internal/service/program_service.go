package service

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"alcyxob/program-generator/internal/domain"
	"alcyxob/program-generator/internal/repository"
)

// ExerciseDetails is an exercise instance joined with its library entry.
type ExerciseDetails struct {
	domain.WorkoutExercise
	Category string `json:"category"`
}

// WorkoutDetails is a workout with its exercise instances in sort order.
type WorkoutDetails struct {
	domain.Workout
	Exercises []ExerciseDetails `json:"exercises"`
}

// PhaseDetails is a persisted phase with its workouts.
type PhaseDetails struct {
	domain.WorkoutPlan
	Workouts []WorkoutDetails `json:"workouts"`
}

// ProgramDetails is a program with every persisted phase.
type ProgramDetails struct {
	domain.Program
	Phases []PhaseDetails `json:"phases"`
}

// ProgramService reads generated programs back.
type ProgramService interface {
	// GetProgram returns the program if userID owns it.
	GetProgram(ctx context.Context, userID string, programID primitive.ObjectID) (*ProgramDetails, error)
}

type programService struct {
	programRepo  repository.ProgramRepository
	planRepo     repository.WorkoutPlanRepository
	workoutRepo  repository.WorkoutRepository
	exerciseRepo repository.WorkoutExerciseRepository
	libraryRepo  repository.ExerciseLibraryRepository
}

func NewProgramService(
	programRepo repository.ProgramRepository,
	planRepo repository.WorkoutPlanRepository,
	workoutRepo repository.WorkoutRepository,
	exerciseRepo repository.WorkoutExerciseRepository,
	libraryRepo repository.ExerciseLibraryRepository,
) ProgramService {
	return &programService{
		programRepo:  programRepo,
		planRepo:     planRepo,
		workoutRepo:  workoutRepo,
		exerciseRepo: exerciseRepo,
		libraryRepo:  libraryRepo,
	}
}

func (s *programService) GetProgram(ctx context.Context, userID string, programID primitive.ObjectID) (*ProgramDetails, error) {
	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}
	if program.OwnerID != userID {
		return nil, ErrProgramAccess
	}

	plans, err := s.planRepo.GetByProgramID(ctx, programID)
	if err != nil {
		return nil, err
	}

	categories := make(map[primitive.ObjectID]string)
	details := &ProgramDetails{Program: *program, Phases: make([]PhaseDetails, 0, len(plans))}
	for _, plan := range plans {
		workouts, err := s.workoutRepo.GetByPlanID(ctx, plan.ID)
		if err != nil {
			return nil, err
		}
		phase := PhaseDetails{WorkoutPlan: plan, Workouts: make([]WorkoutDetails, 0, len(workouts))}
		for _, w := range workouts {
			exercises, err := s.exerciseRepo.GetByWorkoutID(ctx, w.ID)
			if err != nil {
				return nil, err
			}
			wd := WorkoutDetails{Workout: w, Exercises: make([]ExerciseDetails, 0, len(exercises))}
			for _, ex := range exercises {
				category, err := s.category(ctx, categories, ex.ExerciseLibraryID)
				if err != nil {
					return nil, err
				}
				wd.Exercises = append(wd.Exercises, ExerciseDetails{WorkoutExercise: ex, Category: category})
			}
			phase.Workouts = append(phase.Workouts, wd)
		}
		details.Phases = append(details.Phases, phase)
	}
	return details, nil
}

// category resolves a library entry's category once per request. A missing
// entry yields the default category.
func (s *programService) category(ctx context.Context, cache map[primitive.ObjectID]string, id primitive.ObjectID) (string, error) {
	if c, ok := cache[id]; ok {
		return c, nil
	}
	c := domain.DefaultLibraryCategory
	entry, err := s.libraryRepo.GetByID(ctx, id)
	switch {
	case err == nil:
		c = entry.Category
	case !errors.Is(err, repository.ErrNotFound):
		return "", err
	}
	cache[id] = c
	return c, nil
}
