package domain

// UserProfile holds the attributes used to build a generation prompt.
// Free-text fields are sanitized before they reach the prompt.
type UserProfile struct {
	Sex             string      `bson:"sex" json:"sex" binding:"required,oneof=male female other"`
	TrainingGoal    string      `bson:"trainingGoal" json:"trainingGoal" binding:"required"`
	Weight          float64     `bson:"weight" json:"weight" binding:"required,gt=0"`
	Age             int         `bson:"age,omitempty" json:"age,omitempty" binding:"omitempty,gte=13,lte=100"`
	Height          float64     `bson:"height,omitempty" json:"height,omitempty"`
	ExperienceLevel string      `bson:"experienceLevel" json:"experienceLevel" binding:"omitempty,oneof=beginner intermediate advanced"`
	DaysAvailable   int         `bson:"daysAvailable" json:"daysAvailable" binding:"omitempty,gte=1,lte=7"`
	TimePerSession  int         `bson:"timePerSession" json:"timePerSession" binding:"omitempty,gte=10,lte=240"`
	Environment     Environment `bson:"environment" json:"environment"`
	Equipment       Equipment   `bson:"equipment" json:"equipment"`
	Style           *Style      `bson:"style,omitempty" json:"style,omitempty"`
	Preferences     []string    `bson:"preferences,omitempty" json:"preferences,omitempty"`
	Injuries        []string    `bson:"injuries,omitempty" json:"injuries,omitempty"`
	AdditionalInfo  string      `bson:"additionalInfo,omitempty" json:"additionalInfo,omitempty"`
}

type Environment struct {
	Primary     string   `bson:"primary" json:"primary"`
	Secondary   string   `bson:"secondary,omitempty" json:"secondary,omitempty"`
	Limitations []string `bson:"limitations,omitempty" json:"limitations,omitempty"`
}

type Equipment struct {
	Type      string   `bson:"type" json:"type"`
	Available []string `bson:"available,omitempty" json:"available,omitempty"`
}

// Style is the preferred training style, e.g. strength with conditioning.
type Style struct {
	Primary   string `bson:"primary" json:"primary"`
	Secondary string `bson:"secondary,omitempty" json:"secondary,omitempty"`
}

// IntakeData is the legacy questionnaire payload. Several answers arrive
// under alternative keys depending on the client version.
type IntakeData struct {
	Sex                 string   `json:"sex"`
	TrainingGoal        string   `json:"trainingGoal"`
	Goals               string   `json:"goals"`
	Weight              float64  `json:"weight"`
	Age                 int      `json:"age"`
	Height              float64  `json:"height"`
	ExperienceLevel     string   `json:"experienceLevel"`
	DaysAvailable       int      `json:"daysAvailable"`
	DaysPerWeek         int      `json:"daysPerWeek"`
	DailyBudget         int      `json:"dailyBudget"`
	TimePerDay          int      `json:"timePerDay"`
	TrainingPreferences []string `json:"trainingPreferences"`
	AdditionalInfo      string   `json:"additionalInfo"`

	WorkoutEnvironment *Environment `json:"workoutEnvironment"`
	EquipmentAccess    *Equipment   `json:"equipmentAccess"`
	WorkoutStyle       *Style       `json:"workoutStyle"`
}

// Generation types carried by a regeneration request.
const (
	GenerationNew        = "new"
	GenerationSimilar    = "similar"
	GenerationNewFocus   = "new_focus"
	GenerationFreshStart = "fresh_start"
)

// GenerationContext describes why a program is being (re)generated.
type GenerationContext struct {
	GenerationType   string   `json:"generationType" binding:"omitempty,oneof=new similar new_focus fresh_start"`
	PreviousPrograms []string `json:"previousPrograms,omitempty"`
	Modifications    string   `json:"modifications,omitempty"`
}

// IsRegeneration reports whether prior history should inform the prompt.
func (g *GenerationContext) IsRegeneration() bool {
	return g != nil && g.GenerationType != "" && g.GenerationType != GenerationNew
}
