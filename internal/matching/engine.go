package matching

import (
	"errors"
	"sort"
	"strings"

	"ai-wellness-planner/internal/corpus"
	"ai-wellness-planner/internal/profile"
)

// ErrInsufficientMatch reports that the corpus is too shallow to match
// from: some meal slot has too few distinct candidates after allergen
// filtering.
var ErrInsufficientMatch = errors.New("insufficient matching candidates in corpus")

// ScoredCandidate is a corpus candidate with its computed match score
// for one profile card. Scored candidates live only for the run.
type ScoredCandidate struct {
	Candidate corpus.Candidate
	Score     float64
	Reasons   []string
}

// Meal-slot proportions of the daily calorie/protein targets.
var slotProportions = map[corpus.MealType]float64{
	corpus.MealBreakfast: 0.28,
	corpus.MealLunch:     0.35,
	corpus.MealDinner:    0.37,
	corpus.MealSnack:     0.10,
}

// Rank filters and scores the corpus against a profile card, returning
// per-slot candidate lists ordered by score descending (ties broken by
// candidate ID ascending). The result is a pure function of the card
// and the corpus snapshot.
func Rank(card *profile.ProfileCard, snap *corpus.Snapshot) map[corpus.MealType][]ScoredCandidate {
	excluded := ExpandAllergens(card.AllergenKeywords())

	ranked := make(map[corpus.MealType][]ScoredCandidate)
	for _, cand := range snap.Candidates {
		if matchesAllergen(cand, excluded) {
			continue
		}
		sc := score(card, cand)
		ranked[cand.MealType] = append(ranked[cand.MealType], sc)
	}

	for slot := range ranked {
		list := ranked[slot]
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Score != list[j].Score {
				return list[i].Score > list[j].Score
			}
			return list[i].Candidate.ID < list[j].Candidate.ID
		})
	}
	return ranked
}

// matchesAllergen reports whether the candidate's allergen tags or
// ingredient text intersect the expanded exclusion set.
func matchesAllergen(cand corpus.Candidate, excluded []string) bool {
	for _, kw := range excluded {
		for _, tag := range cand.Allergens {
			if strings.Contains(strings.ToLower(tag), kw) {
				return true
			}
		}
		for _, ing := range cand.Ingredients {
			if strings.Contains(strings.ToLower(ing), kw) {
				return true
			}
		}
	}
	return false
}

func score(card *profile.ProfileCard, cand corpus.Candidate) ScoredCandidate {
	sc := ScoredCandidate{Candidate: cand}
	add := func(points float64, reason string) {
		if points == 0 {
			return
		}
		sc.Score += points
		sc.Reasons = append(sc.Reasons, reason)
	}

	if n := dietTagMatches(card, cand); n > 0 {
		add(float64(n)*3, "matches dietary preference")
	}
	if n := goalTagMatches(card, cand); n > 0 {
		add(float64(n)*2, "supports health goal")
	}
	if b := biomarkerScore(card, cand); b > 0 {
		add(b, "relevant to flagged biomarkers")
	}
	if m := macroFitScore(card, cand); m > 0 {
		add(m, "fits calorie and protein targets")
	}

	if cand.Nutrients.NutrientDensity >= 8 {
		add(1, "high nutrient density")
	}
	if cand.Nutrients.SatietyIndex >= 8 {
		add(0.5, "high satiety")
	}
	if cand.Nutrients.GlycemicIndex > 0 && cand.Nutrients.GlycemicIndex < 50 {
		add(0.5, "low glycemic index")
	}
	if preferredProteinMatch(card, cand) {
		add(1, "uses preferred protein source")
	}

	return sc
}

func dietTagMatches(card *profile.ProfileCard, cand corpus.Candidate) int {
	if card.Diet == "" {
		return 0
	}
	n := 0
	for _, tag := range cand.DietTags {
		if strings.Contains(strings.ToLower(tag), card.Diet) ||
			strings.Contains(card.Diet, strings.ToLower(tag)) {
			n++
		}
	}
	return n
}

// goalTagSets maps goal buckets onto the corpus goal tags they match.
var goalTagSets = []struct {
	keywords []string
	tags     []string
}{
	{[]string{"build", "muscle"}, []string{"muscle-gain", "high-protein", "performance"}},
	{[]string{"lose", "slim"}, []string{"weight-loss", "low-calorie", "lean"}},
	{[]string{""}, []string{"longevity", "anti-inflammatory", "heart-health"}},
}

func goalTagMatches(card *profile.ProfileCard, cand corpus.Candidate) int {
	var wanted []string
	for _, set := range goalTagSets {
		for _, kw := range set.keywords {
			if kw == "" || strings.Contains(card.Goal, kw) {
				wanted = set.tags
				break
			}
		}
		if wanted != nil {
			break
		}
	}

	n := 0
	for _, tag := range cand.GoalTags {
		lower := strings.ToLower(tag)
		for _, w := range wanted {
			if lower == w {
				n++
				break
			}
		}
	}
	return n
}

// biomarkerScore sums, over the card's flagged markers, impact x 2 when
// the candidate's relevance direction matches the direction the marker
// needs, and +0.5 when the candidate is tagged generally supportive of
// that marker.
func biomarkerScore(card *profile.ProfileCard, cand corpus.Candidate) float64 {
	var total float64
	for _, flag := range card.HealthConcerns() {
		required := requiredDirection(flag.Status)
		for _, rel := range cand.Relevance {
			if !markerMatches(flag.Marker, rel.Marker) {
				continue
			}
			if required != "" && rel.Direction == required {
				total += rel.Impact * 2
			} else if rel.Direction == "support" {
				total += 0.5
			}
		}
	}
	return total
}

func requiredDirection(status string) string {
	switch strings.ToLower(status) {
	case "low", "deficient", "borderline low":
		return "raise"
	case "high", "elevated", "borderline high", "critical":
		return "lower"
	default:
		return ""
	}
}

func markerMatches(flagMarker, relevanceMarker string) bool {
	a := strings.ToLower(flagMarker)
	b := strings.ToLower(relevanceMarker)
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// macroFitScore scores closeness of the candidate's calories and protein
// to the user's per-slot targets. A dimension only scores when within
// 30% of target; protein is weighted 1.5x calories.
func macroFitScore(card *profile.ProfileCard, cand corpus.Candidate) float64 {
	proportion, ok := slotProportions[cand.MealType]
	if !ok {
		return 0
	}

	var total float64
	calorieTarget := card.Metrics.TargetCalories * proportion
	if fit := closeness(cand.Nutrients.Calories, calorieTarget); fit > 0 {
		total += fit
	}
	proteinTarget := card.Metrics.ProteinG * proportion
	if fit := closeness(cand.Nutrients.ProteinG, proteinTarget); fit > 0 {
		total += fit * 1.5
	}
	return total
}

const macroTolerance = 0.30

// closeness returns 1 at a perfect match, falling linearly to 0 at the
// tolerance boundary; outside the tolerance it returns 0.
func closeness(value, target float64) float64 {
	if target <= 0 {
		return 0
	}
	deviation := (value - target) / target
	if deviation < 0 {
		deviation = -deviation
	}
	if deviation > macroTolerance {
		return 0
	}
	return 1 - deviation/macroTolerance
}

func preferredProteinMatch(card *profile.ProfileCard, cand corpus.Candidate) bool {
	if card.PreferredProtein == "" {
		return false
	}
	if strings.Contains(strings.ToLower(cand.Title), card.PreferredProtein) {
		return true
	}
	for _, ing := range cand.Ingredients {
		if strings.Contains(strings.ToLower(ing), card.PreferredProtein) {
			return true
		}
	}
	return false
}
