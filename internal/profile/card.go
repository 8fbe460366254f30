package profile

// ConstraintSeverity classifies how strictly a food constraint applies.
type ConstraintSeverity string

const (
	SeverityAllergy     ConstraintSeverity = "allergy"
	SeverityIntolerance ConstraintSeverity = "intolerance"
	SeverityPreference  ConstraintSeverity = "preference"
)

// Constraint is a single food restriction with its severity class.
type Constraint struct {
	Keyword  string             `json:"keyword"`
	Severity ConstraintSeverity `json:"severity"`
}

// BiomarkerFlag marks a non-optimal lab marker with suggested interventions.
type BiomarkerFlag struct {
	Marker      string   `json:"marker"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"` // critical, high, medium
	Foods       []string `json:"foods"`
	Supplements []string `json:"supplements"`
}

// EcosystemInsight is a source-tagged observation derived from telemetry.
type EcosystemInsight struct {
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Value  float64 `json:"value,omitempty"`
}

// ComputedMetrics holds the deterministic metric outputs of the coordinator.
type ComputedMetrics struct {
	BMR            float64 `json:"bmr"`
	TDEE           float64 `json:"tdee"`
	TargetCalories float64 `json:"target_calories"`
	ProteinG       float64 `json:"protein_g"`
	CarbsG         float64 `json:"carbs_g"`
	FatG           float64 `json:"fat_g"`
	FiberG         float64 `json:"fiber_g"`
	WaterL         float64 `json:"water_l"`

	SleepScore     string `json:"sleep_score"`
	StressScore    string `json:"stress_score"`
	MetabolicScore string `json:"metabolic_score"`

	// RecoveryScore is the average of whichever telemetry recovery-type
	// scores are present; zero when no source reports one.
	RecoveryScore float64 `json:"recovery_score,omitempty"`
}

// DataAvailability records which optional raw inputs were present.
type DataAvailability struct {
	HasLabs      bool `json:"has_labs"`
	HasTelemetry bool `json:"has_telemetry"`
}

// ProfileCard is the immutable structured snapshot of a client built once
// per plan run. It is owned by the orchestrator for that run and shared
// read-only by all concurrent stages.
type ProfileCard struct {
	Age      int     `json:"age"`
	Gender   string  `json:"gender"`
	WeightKG float64 `json:"weight_kg"`
	HeightCM float64 `json:"height_cm"`
	BMI      float64 `json:"bmi"`

	ActivityLevel    string `json:"activity_level"`
	Goal             string `json:"goal"`
	Diet             string `json:"diet,omitempty"`
	PreferredProtein string `json:"preferred_protein,omitempty"`
	MealsPerDay      int    `json:"meals_per_day"`

	Metrics      ComputedMetrics    `json:"metrics"`
	Constraints  []Constraint       `json:"constraints,omitempty"`
	Flags        []BiomarkerFlag    `json:"biomarker_flags,omitempty"`
	Insights     []EcosystemInsight `json:"insights,omitempty"`
	Availability DataAvailability   `json:"availability"`
}

// AllergenKeywords returns the keywords of allergy and intolerance
// constraints, the set the matching engine must hard-exclude on.
func (c *ProfileCard) AllergenKeywords() []string {
	var out []string
	for _, con := range c.Constraints {
		if con.Severity == SeverityAllergy || con.Severity == SeverityIntolerance {
			out = append(out, con.Keyword)
		}
	}
	return out
}

// HealthConcerns returns the markers flagged on the card, used by the
// matching engine's biomarker scoring term.
func (c *ProfileCard) HealthConcerns() []BiomarkerFlag {
	return c.Flags
}
