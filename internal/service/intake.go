package service

import (
	"alcyxob/program-generator/internal/domain"
)

// Ranges the profile binding accepts. Intake answers are clamped into them so
// the prompt never asks for a shape the converter rejects.
const (
	minDaysAvailable  = 1
	maxDaysAvailable  = 7
	minSessionMinutes = 10
	maxSessionMinutes = 240
)

// ConvertIntake maps the legacy questionnaire onto a UserProfile, falling back
// through the alternative keys older clients send.
func ConvertIntake(in domain.IntakeData) domain.UserProfile {
	p := domain.UserProfile{
		Sex:             firstString(in.Sex, "other"),
		TrainingGoal:    firstString(in.TrainingGoal, in.Goals, "general fitness"),
		Weight:          in.Weight,
		Age:             in.Age,
		Height:          in.Height,
		ExperienceLevel: firstString(in.ExperienceLevel, "beginner"),
		DaysAvailable:   clamp(firstInt(in.DaysAvailable, in.DaysPerWeek, 3), minDaysAvailable, maxDaysAvailable),
		TimePerSession:  clamp(firstInt(in.DailyBudget, in.TimePerDay, 60), minSessionMinutes, maxSessionMinutes),
		Environment:     domain.Environment{Primary: "gym", Limitations: []string{}},
		Equipment:       domain.Equipment{Type: "full-gym", Available: []string{}},
		Preferences:     in.TrainingPreferences,
		Injuries:        []string{},
		AdditionalInfo:  in.AdditionalInfo,
	}
	if env := in.WorkoutEnvironment; env != nil {
		p.Environment.Primary = firstString(env.Primary, "gym")
		p.Environment.Secondary = env.Secondary
		if env.Limitations != nil {
			p.Environment.Limitations = env.Limitations
		}
	}
	if eq := in.EquipmentAccess; eq != nil {
		p.Equipment.Type = firstString(eq.Type, "full-gym")
		if eq.Available != nil {
			p.Equipment.Available = eq.Available
		}
	}
	if st := in.WorkoutStyle; st != nil {
		p.Style = &domain.Style{Primary: firstString(st.Primary, "strength"), Secondary: st.Secondary}
	}
	if p.Weight <= 0 {
		p.Weight = 150
	}
	switch p.Sex {
	case "male", "female", "other":
	default:
		p.Sex = "other"
	}
	return p
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstInt(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func clamp(n, lo, hi int) int {
	return max(lo, min(n, hi))
}
