package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/program-generator/internal/domain"
)

func TestConvertIntake_Defaults(t *testing.T) {
	p := ConvertIntake(domain.IntakeData{})

	assert.Equal(t, "other", p.Sex)
	assert.Equal(t, "general fitness", p.TrainingGoal)
	assert.Equal(t, 150.0, p.Weight)
	assert.Equal(t, "beginner", p.ExperienceLevel)
	assert.Equal(t, 3, p.DaysAvailable)
	assert.Equal(t, 60, p.TimePerSession)
	assert.Equal(t, "gym", p.Environment.Primary)
	assert.Equal(t, "full-gym", p.Equipment.Type)
	assert.Empty(t, p.Injuries)
}

func TestConvertIntake_AlternativeKeys(t *testing.T) {
	p := ConvertIntake(domain.IntakeData{
		Sex:                 "male",
		Goals:               "run a marathon",
		Weight:              172,
		DaysPerWeek:         5,
		TimePerDay:          45,
		TrainingPreferences: []string{"running"},
	})

	assert.Equal(t, "male", p.Sex)
	assert.Equal(t, "run a marathon", p.TrainingGoal)
	assert.Equal(t, 172.0, p.Weight)
	assert.Equal(t, 5, p.DaysAvailable)
	assert.Equal(t, 45, p.TimePerSession)
	assert.Equal(t, []string{"running"}, p.Preferences)
}

func TestConvertIntake_PrimaryKeysWin(t *testing.T) {
	p := ConvertIntake(domain.IntakeData{
		Sex:           "Female",
		TrainingGoal:  "strength",
		Goals:         "ignored",
		DaysAvailable: 4,
		DaysPerWeek:   6,
		DailyBudget:   30,
		TimePerDay:    90,
	})

	// Unrecognized sex values fall back to other.
	assert.Equal(t, "other", p.Sex)
	assert.Equal(t, "strength", p.TrainingGoal)
	assert.Equal(t, 4, p.DaysAvailable)
	assert.Equal(t, 30, p.TimePerSession)
}

func TestConvertIntake_EnvironmentAndEquipment(t *testing.T) {
	p := ConvertIntake(domain.IntakeData{
		WorkoutEnvironment: &domain.Environment{Primary: "home", Secondary: "park", Limitations: []string{"no jumping"}},
		EquipmentAccess:    &domain.Equipment{Type: "bodyweight", Available: []string{"resistance bands"}},
		WorkoutStyle:       &domain.Style{Secondary: "conditioning"},
	})

	assert.Equal(t, "home", p.Environment.Primary)
	assert.Equal(t, "park", p.Environment.Secondary)
	assert.Equal(t, []string{"no jumping"}, p.Environment.Limitations)
	assert.Equal(t, "bodyweight", p.Equipment.Type)
	assert.Equal(t, []string{"resistance bands"}, p.Equipment.Available)
	require.NotNil(t, p.Style)
	assert.Equal(t, "strength", p.Style.Primary)
	assert.Equal(t, "conditioning", p.Style.Secondary)

	prompt := BuildPhasePrompt(PromptInput{Profile: p, PhaseNumber: 1, TotalPhases: 1}, 0)
	assert.Contains(t, prompt, "- Environment: home, sometimes park (limitations: no jumping)")
	assert.Contains(t, prompt, "- Equipment: bodyweight (resistance bands)")
	assert.Contains(t, prompt, "- Style: strength with conditioning")
	assert.Contains(t, prompt, "no jumping/high-impact")
	assert.NotContains(t, prompt, "full-gym")
}

func TestConvertIntake_EmptyNestedFallsBack(t *testing.T) {
	p := ConvertIntake(domain.IntakeData{
		WorkoutEnvironment: &domain.Environment{},
		EquipmentAccess:    &domain.Equipment{},
	})
	assert.Equal(t, "gym", p.Environment.Primary)
	assert.Equal(t, "full-gym", p.Equipment.Type)
	assert.Nil(t, p.Style)
}

func TestConvertIntake_ClampsSchedule(t *testing.T) {
	tests := []struct {
		name     string
		in       domain.IntakeData
		wantDays int
		wantTime int
	}{
		{"too many days", domain.IntakeData{DaysPerWeek: 10, TimePerDay: 500}, 7, 240},
		{"very short sessions", domain.IntakeData{DaysAvailable: 2, DailyBudget: 5}, 2, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ConvertIntake(tt.in)
			assert.Equal(t, tt.wantDays, p.DaysAvailable)
			assert.Equal(t, tt.wantTime, p.TimePerSession)
		})
	}

	prompt := BuildPhasePrompt(PromptInput{Profile: ConvertIntake(domain.IntakeData{DaysPerWeek: 10}), PhaseNumber: 1, TotalPhases: 1}, 0)
	assert.Contains(t, prompt, "- 7 workouts, dayNumber 1-7")
}
