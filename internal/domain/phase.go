package domain

// ValidatedPhase is the normalized, fully-shaped phase produced by the schema
// converter. Every field is populated; nothing downstream re-checks presence.
type ValidatedPhase struct {
	PhaseNumber         int            `json:"phaseNumber"`
	Name                string         `json:"name"`
	DurationWeeks       int            `json:"durationWeeks"`
	Focus               string         `json:"focus"`
	Explanation         string         `json:"explanation"`
	Expectations        string         `json:"expectations"`
	KeyPoints           []string       `json:"keyPoints"`
	SplitType           string         `json:"splitType"`
	Workouts            []PhaseWorkout `json:"workouts"`
	Nutrition           PhaseNutrition `json:"nutrition"`
	ProgressionProtocol []string       `json:"progressionProtocol"`
}

type PhaseWorkout struct {
	DayNumber int             `json:"dayNumber"`
	Name      string          `json:"name"`
	Focus     string          `json:"focus"`
	Warmup    Block           `json:"warmup"`
	Cooldown  Block           `json:"cooldown"`
	Exercises []PhaseExercise `json:"exercises"`
}

type PhaseExercise struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Sets         int      `json:"sets"`
	Reps         int      `json:"reps"`
	MeasureType  string   `json:"measureType"`
	MeasureValue float64  `json:"measureValue"`
	MeasureUnit  *string  `json:"measureUnit"`
	RestPeriod   int      `json:"restPeriod"`
	SortOrder    int      `json:"sortOrder"`
	Intensity    string   `json:"intensity,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	Instructions []string `json:"instructions,omitempty"`
	Equipment    []string `json:"equipment,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
}

type PhaseNutrition struct {
	DailyCalories int      `json:"dailyCalories"`
	Protein       int      `json:"protein"`
	Carbs         int      `json:"carbs"`
	Fats          int      `json:"fats"`
	MealTiming    []string `json:"mealTiming,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// PhaseSummary is the handoff state a later phase needs about an earlier one.
type PhaseSummary struct {
	PhaseNumber int    `json:"phaseNumber"`
	Name        string `json:"name"`
	Focus       string `json:"focus"`
	SplitType   string `json:"splitType"`
}

func (p *ValidatedPhase) Summary() PhaseSummary {
	return PhaseSummary{PhaseNumber: p.PhaseNumber, Name: p.Name, Focus: p.Focus, SplitType: p.SplitType}
}

func (p *WorkoutPlan) Summary() PhaseSummary {
	return PhaseSummary{PhaseNumber: p.PhaseNumber, Name: p.Name, Focus: p.Focus, SplitType: p.SplitType}
}
