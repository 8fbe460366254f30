package corpus

// MealType classifies a candidate by the meal slot it fits.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// Nutrients is the per-serving nutrient vector of a candidate.
type Nutrients struct {
	Calories        float64 `json:"calories"`
	ProteinG        float64 `json:"protein_g"`
	CarbsG          float64 `json:"carbs_g"`
	FatG            float64 `json:"fat_g"`
	FiberG          float64 `json:"fiber_g"`
	NutrientDensity float64 `json:"nutrient_density"` // 0-10
	SatietyIndex    float64 `json:"satiety_index"`    // 0-10
	GlycemicIndex   int     `json:"glycemic_index"`
}

// BiomarkerRelevance annotates a candidate with its expected effect on a lab marker.
type BiomarkerRelevance struct {
	Marker    string  `json:"marker"`
	Direction string  `json:"direction"` // "raise" or "lower"
	Impact    float64 `json:"impact"`    // 0-5
}

// Candidate is a single curated corpus item (a recipe).
// Candidates are immutable and shared read-only across runs.
type Candidate struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	MealType    MealType             `json:"meal_type"`
	Nutrients   Nutrients            `json:"nutrients"`
	Ingredients []string             `json:"ingredients"`
	Allergens   []string             `json:"allergens"`
	DietTags    []string             `json:"diet_tags"`
	GoalTags    []string             `json:"goal_tags"`
	Relevance   []BiomarkerRelevance `json:"relevance,omitempty"`
	PrepTime    string               `json:"prep_time,omitempty"`
	Servings    string               `json:"servings,omitempty"`
	UpdatedAt   string               `json:"updated_at,omitempty"`
}

// Snapshot is an immutable view of the loaded corpus.
type Snapshot struct {
	Version    string
	Candidates []Candidate
}

// ByMealType groups the snapshot's candidates per meal slot.
func (s *Snapshot) ByMealType() map[MealType][]Candidate {
	buckets := make(map[MealType][]Candidate)
	for _, c := range s.Candidates {
		buckets[c.MealType] = append(buckets[c.MealType], c)
	}
	return buckets
}

// Count returns the total number of candidates in the snapshot.
func (s *Snapshot) Count() int {
	return len(s.Candidates)
}
