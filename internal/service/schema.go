package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"alcyxob/program-generator/internal/domain"
)

// GeneratedPhase is the raw phase object the model returns. Pointer fields
// distinguish "absent" from zero; presence is checked only in Convert.
type GeneratedPhase struct {
	PhaseNumber         *int                `json:"phaseNumber"`
	Name                string              `json:"name"`
	DurationWeeks       *float64            `json:"durationWeeks"`
	Focus               string              `json:"focus"`
	Explanation         string              `json:"explanation"`
	Expectations        string              `json:"expectations"`
	KeyPoints           []string            `json:"keyPoints"`
	SplitType           string              `json:"splitType"`
	Workouts            []GeneratedWorkout  `json:"workouts"`
	Nutrition           *GeneratedNutrition `json:"nutrition"`
	ProgressionProtocol []string            `json:"progressionProtocol"`
}

type GeneratedWorkout struct {
	DayNumber *float64            `json:"dayNumber"`
	Name      string              `json:"name"`
	Focus     string              `json:"focus"`
	Warmup    *GeneratedBlock     `json:"warmup"`
	Cooldown  *GeneratedBlock     `json:"cooldown"`
	Exercises []GeneratedExercise `json:"exercises"`
}

type GeneratedBlock struct {
	Duration   *float64 `json:"duration"`
	Activities []string `json:"activities"`
}

type GeneratedExercise struct {
	Name         string            `json:"name"`
	Category     string            `json:"category"`
	Sets         *float64          `json:"sets"`
	Measure      *GeneratedMeasure `json:"measure"`
	RestPeriod   *float64          `json:"restPeriod"`
	Intensity    string            `json:"intensity"`
	Notes        string            `json:"notes"`
	Instructions []string          `json:"instructions"`
	Equipment    []string          `json:"equipment"`
	Alternatives []string          `json:"alternatives"`
}

type GeneratedMeasure struct {
	Type  string   `json:"type"`
	Value *float64 `json:"value"`
	Unit  string   `json:"unit"`
}

type GeneratedNutrition struct {
	DailyCalories *float64 `json:"dailyCalories"`
	Macros        *struct {
		Protein *float64 `json:"protein"`
		Carbs   *float64 `json:"carbs"`
		Fats    *float64 `json:"fats"`
	} `json:"macros"`
	MealTiming []string `json:"mealTiming"`
	Notes      string   `json:"notes"`
}

// SchemaError lists every structural or range violation found in one phase.
type SchemaError struct {
	Issues []string
}

func (e *SchemaError) Error() string {
	return "invalid phase: " + strings.Join(e.Issues, "; ")
}

// Ranges a validated phase must satisfy.
const (
	maxPhaseNumber      = 6
	maxDurationWeeks    = 12
	maxWorkouts         = 7
	maxExercises        = 15
	maxSets             = 10
	maxRestSeconds      = 600
	maxBlockMinutes     = 30
	maxKeyPoints        = 10
	maxInstructions     = 5
	minDailyCalories    = 1000
	maxDailyCalories    = 10000
	maxProteinGrams     = 500
	maxCarbGrams        = 1000
	maxFatGrams         = 500
	defaultRestSeconds  = 60
	defaultDurationWeek = 4
	unknownCategoryRank = 99
)

var unitMap = map[string]string{
	"seconds": domain.UnitSeconds,
	"minutes": domain.UnitSeconds,
	"meters":  domain.UnitMeters,
	"km":      domain.UnitKilometers,
	"miles":   domain.UnitMiles,
}

// PhaseConverter turns raw model output into a ValidatedPhase. It performs no
// I/O; the category ordering is supplied at construction.
type PhaseConverter struct {
	priority map[string]int
}

// NewPhaseConverter builds a converter. Category keys are matched case-insensitively.
func NewPhaseConverter(priority map[string]int) *PhaseConverter {
	p := make(map[string]int, len(priority))
	for k, v := range priority {
		p[strings.ToLower(k)] = v
	}
	return &PhaseConverter{priority: p}
}

// Rank returns the ordering weight of a category.
func (c *PhaseConverter) Rank(category string) int {
	if r, ok := c.priority[strings.ToLower(strings.TrimSpace(category))]; ok {
		return r
	}
	return unknownCategoryRank
}

// Convert validates g and normalizes it into the phase numbered phaseNumber.
// The requested phase number always wins over whatever the model wrote.
func (c *PhaseConverter) Convert(g *GeneratedPhase, phaseNumber int) (*domain.ValidatedPhase, error) {
	v := &validator{}
	if g == nil {
		v.add("phase object is missing")
		return nil, v.err()
	}
	if phaseNumber < 1 || phaseNumber > maxPhaseNumber {
		v.add("phaseNumber %d outside 1-%d", phaseNumber, maxPhaseNumber)
	}

	out := &domain.ValidatedPhase{
		PhaseNumber:         phaseNumber,
		Name:                strings.TrimSpace(g.Name),
		Focus:               strings.TrimSpace(g.Focus),
		SplitType:           strings.TrimSpace(g.SplitType),
		Explanation:         strings.TrimSpace(g.Explanation),
		Expectations:        strings.TrimSpace(g.Expectations),
		KeyPoints:           nonEmpty(g.KeyPoints),
		ProgressionProtocol: nonEmpty(g.ProgressionProtocol),
		DurationWeeks:       defaultDurationWeek,
	}
	if out.Name == "" {
		out.Name = fmt.Sprintf("Phase %d", phaseNumber)
	}
	if out.Focus == "" {
		v.add("focus is required")
	}
	if out.SplitType == "" {
		out.SplitType = "Full Body"
	}
	if g.DurationWeeks != nil {
		out.DurationWeeks = v.intIn("durationWeeks", *g.DurationWeeks, 1, maxDurationWeeks)
	}
	c.fillNarrative(out)
	if len(out.KeyPoints) > maxKeyPoints {
		out.KeyPoints = out.KeyPoints[:maxKeyPoints]
	}

	out.Nutrition = c.convertNutrition(v, g.Nutrition)

	switch n := len(g.Workouts); {
	case n == 0:
		v.add("at least one workout is required")
	case n > maxWorkouts:
		v.add("%d workouts exceeds %d", n, maxWorkouts)
	}
	out.Workouts = make([]domain.PhaseWorkout, 0, len(g.Workouts))
	for i := range g.Workouts {
		out.Workouts = append(out.Workouts, c.convertWorkout(v, &g.Workouts[i], i, out.Focus))
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return out, nil
}

// fillNarrative supplies the narrative fields a model sometimes omits.
func (c *PhaseConverter) fillNarrative(p *domain.ValidatedPhase) {
	if p.Explanation == "" {
		p.Explanation = fmt.Sprintf("%s builds on your previous training with a focus on %s.", p.Name, strings.ToLower(p.Focus))
	}
	if p.Expectations == "" {
		p.Expectations = fmt.Sprintf("Over %d weeks expect steady progress in %s as your body adapts.", p.DurationWeeks, strings.ToLower(p.Focus))
	}
	if len(p.KeyPoints) == 0 {
		p.KeyPoints = []string{
			"Prioritize proper form over load",
			"Progress gradually from week to week",
			"Recover well between sessions",
		}
	}
	if len(p.ProgressionProtocol) == 0 {
		p.ProgressionProtocol = []string{"Add one rep per set each week, then increase load and return to the bottom of the rep range"}
	}
}

func (c *PhaseConverter) convertNutrition(v *validator, n *GeneratedNutrition) domain.PhaseNutrition {
	var out domain.PhaseNutrition
	if n == nil {
		v.add("nutrition is required")
		return out
	}
	if n.DailyCalories == nil {
		v.add("nutrition.dailyCalories is required")
	} else {
		out.DailyCalories = v.intIn("nutrition.dailyCalories", *n.DailyCalories, minDailyCalories, maxDailyCalories)
	}
	if n.Macros != nil {
		if n.Macros.Protein != nil {
			out.Protein = v.intIn("nutrition.macros.protein", *n.Macros.Protein, 0, maxProteinGrams)
		}
		if n.Macros.Carbs != nil {
			out.Carbs = v.intIn("nutrition.macros.carbs", *n.Macros.Carbs, 0, maxCarbGrams)
		}
		if n.Macros.Fats != nil {
			out.Fats = v.intIn("nutrition.macros.fats", *n.Macros.Fats, 0, maxFatGrams)
		}
	}
	out.MealTiming = nonEmpty(n.MealTiming)
	out.Notes = strings.TrimSpace(n.Notes)
	return out
}

func (c *PhaseConverter) convertWorkout(v *validator, w *GeneratedWorkout, idx int, phaseFocus string) domain.PhaseWorkout {
	path := fmt.Sprintf("workouts[%d]", idx)
	out := domain.PhaseWorkout{
		DayNumber: idx + 1,
		Name:      strings.TrimSpace(w.Name),
		Focus:     strings.TrimSpace(w.Focus),
		Warmup:    c.convertBlock(v, path+".warmup", w.Warmup),
		Cooldown:  c.convertBlock(v, path+".cooldown", w.Cooldown),
	}
	if w.DayNumber != nil {
		out.DayNumber = v.intIn(path+".dayNumber", *w.DayNumber, 1, 7)
	}
	if out.Name == "" {
		out.Name = fmt.Sprintf("Day %d", out.DayNumber)
	}
	if out.Focus == "" {
		out.Focus = phaseFocus
	}

	switch n := len(w.Exercises); {
	case n == 0:
		v.add("%s has no exercises", path)
	case n > maxExercises:
		v.add("%s has %d exercises, max %d", path, n, maxExercises)
	}
	out.Exercises = make([]domain.PhaseExercise, 0, len(w.Exercises))
	for i := range w.Exercises {
		out.Exercises = append(out.Exercises, c.convertExercise(v, fmt.Sprintf("%s.exercises[%d]", path, i), &w.Exercises[i]))
	}

	// Deterministic order: by category rank, model order on ties.
	sort.SliceStable(out.Exercises, func(i, j int) bool {
		return c.Rank(out.Exercises[i].Category) < c.Rank(out.Exercises[j].Category)
	})
	for i := range out.Exercises {
		out.Exercises[i].SortOrder = i
	}
	return out
}

func (c *PhaseConverter) convertBlock(v *validator, path string, b *GeneratedBlock) domain.Block {
	out := domain.Block{Activities: nonEmpty(b.activities())}
	if b != nil && b.Duration != nil {
		out.Duration = v.intIn(path+".duration", *b.Duration, 0, maxBlockMinutes)
	}
	if out.Activities == nil {
		out.Activities = []string{}
	}
	return out
}

func (b *GeneratedBlock) activities() []string {
	if b == nil {
		return nil
	}
	return b.Activities
}

func (c *PhaseConverter) convertExercise(v *validator, path string, e *GeneratedExercise) domain.PhaseExercise {
	out := domain.PhaseExercise{
		Name:         strings.TrimSpace(e.Name),
		Category:     strings.ToLower(strings.TrimSpace(e.Category)),
		RestPeriod:   defaultRestSeconds,
		Intensity:    strings.TrimSpace(e.Intensity),
		Notes:        strings.TrimSpace(e.Notes),
		Instructions: nonEmpty(e.Instructions),
		Equipment:    nonEmpty(e.Equipment),
		Alternatives: nonEmpty(e.Alternatives),
	}
	if out.Name == "" {
		v.add("%s.name is required", path)
	}
	if e.Sets == nil {
		v.add("%s.sets is required", path)
	} else {
		out.Sets = v.intIn(path+".sets", *e.Sets, 1, maxSets)
	}
	if e.RestPeriod != nil {
		out.RestPeriod = v.intIn(path+".restPeriod", *e.RestPeriod, 0, maxRestSeconds)
	}
	if len(out.Instructions) > maxInstructions {
		out.Instructions = out.Instructions[:maxInstructions]
	}

	if e.Measure == nil {
		v.add("%s.measure is required", path)
		return out
	}
	if e.Measure.Value == nil || *e.Measure.Value <= 0 {
		v.add("%s.measure.value must be positive", path)
		return out
	}
	NormalizeMeasure(&out, e.Measure.Type, *e.Measure.Value, e.Measure.Unit)
	if out.MeasureType == "" {
		v.add("%s.measure.type %q is not one of reps, time, distance", path, e.Measure.Type)
	}
	return out
}

// NormalizeMeasure writes the stored measure fields for a raw measure.
// Minutes are stored as seconds; an unknown or missing unit is stored as nil.
// MeasureType is left empty for an unknown type.
func NormalizeMeasure(ex *domain.PhaseExercise, typ string, value float64, unit string) {
	typ = strings.ToLower(strings.TrimSpace(typ))
	unit = strings.ToLower(strings.TrimSpace(unit))

	switch typ {
	case "reps":
		ex.MeasureType = domain.MeasureReps
		ex.Reps = int(math.Round(value))
	case "time":
		ex.MeasureType = domain.MeasureTime
	case "distance":
		ex.MeasureType = domain.MeasureDistance
	default:
		return
	}

	ex.MeasureValue = value
	if mapped, ok := unitMap[unit]; ok {
		u := mapped
		ex.MeasureUnit = &u
		if unit == "minutes" {
			ex.MeasureValue = value * 60
		}
	}
}

// validator collects issues so one repair prompt can report all of them.
type validator struct {
	issues []string
}

func (v *validator) add(format string, args ...any) {
	v.issues = append(v.issues, fmt.Sprintf(format, args...))
}

func (v *validator) intIn(field string, f float64, lo, hi int) int {
	n := int(math.Round(f))
	if n < lo || n > hi {
		v.add("%s=%v outside %d-%d", field, f, lo, hi)
	}
	return n
}

func (v *validator) err() error {
	if len(v.issues) == 0 {
		return nil
	}
	return &SchemaError{Issues: v.issues}
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
