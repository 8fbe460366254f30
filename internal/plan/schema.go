package plan

import "ai-wellness-planner/internal/shared"

// Meal plan sources.
const (
	SourceMatched   = "matched"   // deterministic corpus matching
	SourceGenerated = "generated" // generative fallback
	SourceTemplate  = "template"  // terminal templated skeleton
)

// Meal is one meal slot of one day.
type Meal struct {
	Slot        string  `json:"slot"`
	Name        string  `json:"name"`
	Calories    float64 `json:"calories"`
	ProteinG    float64 `json:"protein_g"`
	CarbsG      float64 `json:"carbs_g"`
	FatG        float64 `json:"fat_g"`
	Note        string  `json:"note,omitempty"`
	CandidateID string  `json:"candidate_id,omitempty"`
}

// DayMeals is the meal list for a single day.
type DayMeals struct {
	Day   string `json:"day"`
	Meals []Meal `json:"meals"`
}

// MealPlanDoc is the 7-day meal section of the final plan.
type MealPlanDoc struct {
	Days   []DayMeals `json:"days"`
	Source string     `json:"source"`
}

// NutritionFramework is the philosophy/approach section.
type NutritionFramework struct {
	Philosophy       string   `json:"philosophy"`
	KeyPrinciples    []string `json:"key_principles"`
	FoodsToEmphasize []string `json:"foods_to_emphasize"`
	FoodsToLimit     []string `json:"foods_to_limit"`
	MealTiming       string   `json:"meal_timing"`
}

// MarkerInsight is one interpreted lab marker in the biomarker section.
type MarkerInsight struct {
	Marker         string   `json:"marker"`
	Status         string   `json:"status"`
	Priority       string   `json:"priority"`
	Interpretation string   `json:"interpretation"`
	Foods          []string `json:"foods"`
	Supplements    []string `json:"supplements"`
}

// BiomarkerAnalysis is the lab interpretation section.
type BiomarkerAnalysis struct {
	Summary string          `json:"summary"`
	Markers []MarkerInsight `json:"markers"`
}

// Protocol is one lifestyle protocol (sleep, stress, movement, circadian).
type Protocol struct {
	Title           string   `json:"title"`
	Recommendations []string `json:"recommendations"`
}

// LifestyleProtocols is the lifestyle section.
type LifestyleProtocols struct {
	Sleep     Protocol `json:"sleep"`
	Stress    Protocol `json:"stress"`
	Movement  Protocol `json:"movement"`
	Circadian Protocol `json:"circadian"`
}

// Supplement is one recommended supplement.
type Supplement struct {
	Name      string `json:"name"`
	Dose      string `json:"dose"`
	Timing    string `json:"timing"`
	Rationale string `json:"rationale"`
	Priority  string `json:"priority"`
}

// MicronutrientPlan is the supplement/micronutrient section.
type MicronutrientPlan struct {
	Supplements []Supplement `json:"supplements"`
	FoodFirst   []string     `json:"food_first"`
}

// Substitution is an ingredient swap suggestion in the enrichment section.
type Substitution struct {
	Original    string `json:"original"`
	Alternative string `json:"alternative"`
	Reason      string `json:"reason"`
}

// Enrichment augments the meal plan with shopping and prep guidance.
type Enrichment struct {
	ShoppingList  []string       `json:"shopping_list"`
	PrepTips      []string       `json:"prep_tips"`
	Substitutions []Substitution `json:"substitutions"`
}

// FinalPlan is the union of all stage outputs plus confidence metadata.
// Invariant: every section present, no required field undefined.
type FinalPlan struct {
	Overview       string             `json:"overview"`
	Framework      NutritionFramework `json:"framework"`
	Biomarkers     BiomarkerAnalysis  `json:"biomarkers"`
	Lifestyle      LifestyleProtocols `json:"lifestyle"`
	Meals          MealPlanDoc        `json:"meals"`
	Micronutrients MicronutrientPlan  `json:"micronutrients"`
	Enrichment     Enrichment         `json:"enrichment"`
	NextSteps      []string           `json:"next_steps"`
	Confidence     float64            `json:"confidence"`
}

// ValidationReport is the output validator's diagnostics.
type ValidationReport struct {
	IsValid     bool     `json:"is_valid"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
	FixedFields []string `json:"fixed_fields"`
}

// RunMetadata accompanies every generated plan.
type RunMetadata struct {
	RunID     string             `json:"run_id"`
	Stages    []shared.StageMeta `json:"stages"`
	Validator ValidationReport   `json:"validator"`
}

// TotalCost sums the per-stage cost estimates.
func (m *RunMetadata) TotalCost() float64 {
	var total float64
	for _, s := range m.Stages {
		total += s.CostEstimate
	}
	return total
}

// FallbackCount reports how many stages settled via their fallback.
func (m *RunMetadata) FallbackCount() int {
	n := 0
	for _, s := range m.Stages {
		if s.FallbackUsed {
			n++
		}
	}
	return n
}
