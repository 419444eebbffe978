package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"alcyxob/program-generator/internal/domain"
	"alcyxob/program-generator/internal/repository"
)

// FeedbackService summarizes check-in history for regeneration prompts.
type FeedbackService interface {
	GetFeedback(ctx context.Context, userID string) (*domain.FeedbackContext, error)
	FormatForPrompt(fc *domain.FeedbackContext) string
}

const (
	feedbackCheckInWindow = 12
	noHistoryMessage      = "No previous check-in history available. Generate program based on intake profile only."
)

type feedbackService struct {
	checkInRepo    repository.CheckInRepository
	workoutLogRepo repository.WorkoutLogRepository
}

// NewFeedbackService creates the feedback aggregator.
func NewFeedbackService(checkInRepo repository.CheckInRepository, workoutLogRepo repository.WorkoutLogRepository) FeedbackService {
	return &feedbackService{checkInRepo: checkInRepo, workoutLogRepo: workoutLogRepo}
}

func (s *feedbackService) GetFeedback(ctx context.Context, userID string) (*domain.FeedbackContext, error) {
	checkIns, err := s.checkInRepo.ListByUser(ctx, userID, feedbackCheckInWindow)
	if err != nil {
		return nil, err
	}
	completed, err := s.workoutLogRepo.CountCompletedByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return SummarizeCheckIns(checkIns, completed), nil
}

// SummarizeCheckIns builds the feedback context from check-ins ordered newest first.
func SummarizeCheckIns(checkIns []domain.CheckIn, workoutsCompleted int64) *domain.FeedbackContext {
	fc := &domain.FeedbackContext{
		HasHistory: len(checkIns) > 0,
		Summary: domain.FeedbackSummary{
			TotalCheckIns:     len(checkIns),
			WorkoutsCompleted: workoutsCompleted,
			WeightTrend:       domain.TrendUnknown,
			Adherence:         domain.AdherenceNone,
		},
	}
	if !fc.HasHistory {
		fc.Recommendations = []string{}
		return fc
	}
	sum := &fc.Summary

	// Weight trend from the oldest to the newest reported weight.
	var start, current *float64
	for i := len(checkIns) - 1; i >= 0; i-- {
		if checkIns[i].Weight != nil {
			start = checkIns[i].Weight
			break
		}
	}
	for i := range checkIns {
		if checkIns[i].Weight != nil {
			current = checkIns[i].Weight
			break
		}
	}
	if start != nil && current != nil {
		sum.StartWeight, sum.CurrentWeight = start, current
		sum.WeightChange = round1(*current - *start)
		switch {
		case sum.WeightChange < -2:
			sum.WeightTrend = domain.TrendLosing
		case sum.WeightChange > 2:
			sum.WeightTrend = domain.TrendGaining
		default:
			sum.WeightTrend = domain.TrendMaintaining
		}
	}

	sum.Wellness = domain.WellnessAverages{
		SleepHours:   average(checkIns, func(c domain.CheckIn) *float64 { return c.SleepHours }),
		SleepQuality: average(checkIns, func(c domain.CheckIn) *float64 { return c.SleepQuality }),
		Energy:       average(checkIns, func(c domain.CheckIn) *float64 { return c.Energy }),
		Stress:       average(checkIns, func(c domain.CheckIn) *float64 { return c.Stress }),
		Soreness:     average(checkIns, func(c domain.CheckIn) *float64 { return c.Soreness }),
		Recovery:     average(checkIns, func(c domain.CheckIn) *float64 { return c.Recovery }),
	}

	sum.MeasurementDeltas = measurementDeltas(checkIns)
	sum.Adherence = adherence(checkIns)

	for _, c := range checkIns {
		if len(sum.RecentNotes) == 3 {
			break
		}
		if note, _, _ := SanitizeText(c.Notes); note != "" {
			sum.RecentNotes = append(sum.RecentNotes, note)
		}
	}

	fc.Recommendations = recommend(sum)
	return fc
}

func average(checkIns []domain.CheckIn, field func(domain.CheckIn) *float64) *float64 {
	var total float64
	n := 0
	for _, c := range checkIns {
		if v := field(c); v != nil {
			total += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := round1(total / float64(n))
	return &avg
}

var measurementFields = map[string]func(domain.CheckIn) *float64{
	"waist":      func(c domain.CheckIn) *float64 { return c.Waist },
	"chest":      func(c domain.CheckIn) *float64 { return c.Chest },
	"hips":       func(c domain.CheckIn) *float64 { return c.Hips },
	"bicepLeft":  func(c domain.CheckIn) *float64 { return c.BicepLeft },
	"bicepRight": func(c domain.CheckIn) *float64 { return c.BicepRight },
}

// measurementDeltas compares the oldest and newest value of each measurement.
func measurementDeltas(checkIns []domain.CheckIn) map[string]float64 {
	deltas := make(map[string]float64)
	for name, field := range measurementFields {
		var first, last *float64
		for i := len(checkIns) - 1; i >= 0; i-- {
			if v := field(checkIns[i]); v != nil {
				first = v
				break
			}
		}
		for i := range checkIns {
			if v := field(checkIns[i]); v != nil {
				last = v
				break
			}
		}
		if first != nil && last != nil && len(checkIns) > 1 {
			deltas[name] = round1(*last - *first)
		}
	}
	if len(deltas) == 0 {
		return nil
	}
	return deltas
}

// adherence compares check-ins to the number of weeks they span.
func adherence(checkIns []domain.CheckIn) string {
	if len(checkIns) == 0 {
		return domain.AdherenceNone
	}
	span := checkIns[0].Date.Sub(checkIns[len(checkIns)-1].Date)
	weeks := math.Ceil(span.Hours() / (24 * 7))
	if weeks < 1 {
		weeks = 1
	}
	if float64(len(checkIns))/weeks >= 0.7 {
		return domain.AdherenceRegular
	}
	return domain.AdherenceSporadic
}

func recommend(sum *domain.FeedbackSummary) []string {
	var recs []string
	if sum.StartWeight != nil {
		switch {
		case sum.WeightChange < -5:
			recs = append(recs, fmt.Sprintf("Significant weight loss (%.1f lbs); consider increasing calories or reducing training volume to preserve muscle", sum.WeightChange))
		case sum.WeightChange > 5:
			recs = append(recs, fmt.Sprintf("Weight up %.1f lbs; review nutrition targets and training intensity", sum.WeightChange))
		}
	}
	w := sum.Wellness
	if w.SleepHours != nil && *w.SleepHours < 6 {
		recs = append(recs, "Average sleep under 6 hours; prioritize recovery and avoid excessive volume")
	}
	if w.Energy != nil && *w.Energy < 4 {
		recs = append(recs, "Low energy levels; the user may need a deload or lower training volume")
	}
	if w.Soreness != nil && *w.Soreness > 7 {
		recs = append(recs, "High soreness reported; reduce volume and add recovery work")
	}
	if w.Stress != nil && *w.Stress > 7 {
		recs = append(recs, "High stress levels; favor lower-intensity training and shorter sessions")
	}
	if sum.Adherence == domain.AdherenceSporadic {
		recs = append(recs, "Check-ins are sporadic; encourage regular progress tracking")
	}
	waist, hasWaist := sum.MeasurementDeltas["waist"]
	if hasWaist && waist < -2 && (sum.MeasurementDeltas["bicepLeft"] > 0 || sum.MeasurementDeltas["bicepRight"] > 0) {
		recs = append(recs, "Waist down while arms are up; body recomposition is working, keep the current approach")
	}
	if len(recs) == 0 {
		recs = append(recs, "Progress looks steady; continue progressive overload")
	}
	return recs
}

func (s *feedbackService) FormatForPrompt(fc *domain.FeedbackContext) string {
	return FormatFeedback(fc)
}

// FormatFeedback renders a feedback context as a prompt section.
func FormatFeedback(fc *domain.FeedbackContext) string {
	if fc == nil || !fc.HasHistory {
		return noHistoryMessage
	}
	sum := fc.Summary
	var b strings.Builder
	b.WriteString("=== USER PROGRESS FEEDBACK ===\n")
	fmt.Fprintf(&b, "Check-ins: %d (adherence: %s), workouts completed: %d\n", sum.TotalCheckIns, sum.Adherence, sum.WorkoutsCompleted)

	if sum.StartWeight != nil && sum.CurrentWeight != nil {
		fmt.Fprintf(&b, "Weight: %s (%+.1f lbs, %.1f -> %.1f)\n", sum.WeightTrend, sum.WeightChange, *sum.StartWeight, *sum.CurrentWeight)
	} else {
		b.WriteString("Weight: no data\n")
	}

	var wellness []string
	add := func(label string, v *float64, unit string) {
		if v != nil {
			wellness = append(wellness, fmt.Sprintf("%s %.1f%s", label, *v, unit))
		}
	}
	add("sleep", sum.Wellness.SleepHours, "h")
	add("sleep quality", sum.Wellness.SleepQuality, "/10")
	add("energy", sum.Wellness.Energy, "/10")
	add("stress", sum.Wellness.Stress, "/10")
	add("soreness", sum.Wellness.Soreness, "/10")
	add("recovery", sum.Wellness.Recovery, "/10")
	if len(wellness) > 0 {
		b.WriteString("Wellness averages: " + strings.Join(wellness, ", ") + "\n")
	}

	if len(sum.MeasurementDeltas) > 0 {
		names := make([]string, 0, len(sum.MeasurementDeltas))
		for name := range sum.MeasurementDeltas {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s %+.1f", name, sum.MeasurementDeltas[name]))
		}
		b.WriteString("Measurement changes: " + strings.Join(parts, ", ") + "\n")
	}

	if len(sum.RecentNotes) > 0 {
		b.WriteString("Recent notes:\n")
		for _, n := range sum.RecentNotes {
			b.WriteString("- " + n + "\n")
		}
	}

	b.WriteString("Recommendations:\n")
	for _, r := range fc.Recommendations {
		b.WriteString("- " + r + "\n")
	}
	b.WriteString("=== END FEEDBACK ===")
	return b.String()
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
