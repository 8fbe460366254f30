package matching

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-wellness-planner/internal/corpus"
	"ai-wellness-planner/internal/profile"
)

func testCard(t *testing.T, extra map[string]string) *profile.ProfileCard {
	t.Helper()
	answers := map[string]string{
		"age":            "30",
		"weight_kg":      "70",
		"height_cm":      "175",
		"gender":         "male",
		"activity_level": "moderate",
		"goal":           "lose weight",
	}
	for k, v := range extra {
		answers[k] = v
	}
	card, err := profile.BuildCard(profile.Intake{Answers: answers})
	require.NoError(t, err)
	return card
}

// testSnapshot builds a corpus with n candidates per meal type.
func testSnapshot(perSlot int) *corpus.Snapshot {
	snap := &corpus.Snapshot{Version: "test"}
	for _, mt := range []corpus.MealType{corpus.MealBreakfast, corpus.MealLunch, corpus.MealDinner, corpus.MealSnack} {
		for i := 0; i < perSlot; i++ {
			snap.Candidates = append(snap.Candidates, corpus.Candidate{
				ID:       fmt.Sprintf("%s-%02d", mt, i),
				Title:    fmt.Sprintf("%s dish %d", mt, i),
				MealType: mt,
				Nutrients: corpus.Nutrients{
					Calories: 500 + float64(i)*10,
					ProteinG: 30,
				},
				Ingredients: []string{"chicken", "rice", "olive oil"},
			})
		}
	}
	return snap
}

func TestExpandAllergens(t *testing.T) {
	expanded := ExpandAllergens([]string{"shellfish"})
	for _, want := range []string{"shellfish", "crustacean", "shrimp", "prawn", "crab"} {
		assert.Contains(t, expanded, want)
	}

	// Unknown keywords expand to themselves.
	assert.Equal(t, []string{"dragonfruit"}, ExpandAllergens([]string{"Dragonfruit"}))
}

func TestRankExcludesAllergens(t *testing.T) {
	card := testCard(t, map[string]string{"allergies": "shellfish"})
	snap := testSnapshot(8)
	snap.Candidates = append(snap.Candidates,
		corpus.Candidate{
			ID: "bad-1", Title: "Crab cakes", MealType: corpus.MealDinner,
			Allergens: []string{"shellfish"},
		},
		corpus.Candidate{
			ID: "bad-2", Title: "Garlic pasta", MealType: corpus.MealDinner,
			Ingredients: []string{"pasta", "shrimp", "garlic"},
		},
	)

	ranked := Rank(card, snap)
	for _, list := range ranked {
		for _, sc := range list {
			assert.NotContains(t, []string{"bad-1", "bad-2"}, sc.Candidate.ID,
				"allergen-matching candidates must never be scored")
		}
	}
}

func TestSelectedPlanNeverContainsAllergens(t *testing.T) {
	card := testCard(t, map[string]string{"allergies": "dairy"})
	snap := testSnapshot(10)
	// Sprinkle dairy into some candidates' ingredients.
	for i := range snap.Candidates {
		if i%4 == 0 {
			snap.Candidates[i].Ingredients = append(snap.Candidates[i].Ingredients, "cheese")
		}
	}

	doc, err := Select(card, snap, Options{})
	require.NoError(t, err)

	excluded := map[string]bool{}
	for i := range snap.Candidates {
		for _, ing := range snap.Candidates[i].Ingredients {
			if ing == "cheese" {
				excluded[snap.Candidates[i].ID] = true
			}
		}
	}
	for _, day := range doc.Days {
		for _, meal := range day.Meals {
			assert.False(t, excluded[meal.CandidateID],
				"selected meal %s contains an excluded candidate", meal.Name)
		}
	}
}

func TestRankDeterminism(t *testing.T) {
	card := testCard(t, map[string]string{"allergies": "peanuts"})
	snap := testSnapshot(9)

	first := Rank(card, snap)
	for i := 0; i < 5; i++ {
		again := Rank(card, snap)
		require.Equal(t, first, again, "ranking must be a pure function of card and snapshot")
	}

	plan1, err := Select(card, snap, Options{})
	require.NoError(t, err)
	plan2, err := Select(card, snap, Options{})
	require.NoError(t, err)
	assert.Equal(t, plan1, plan2, "selection must be deterministic")
}

func TestScoreTerms(t *testing.T) {
	card := testCard(t, map[string]string{
		"diet":              "mediterranean",
		"preferred_protein": "salmon",
	})

	base := corpus.Candidate{
		ID:       "c1",
		Title:    "Grilled salmon bowl",
		MealType: corpus.MealDinner,
		Nutrients: corpus.Nutrients{
			NutrientDensity: 9,
			SatietyIndex:    8,
			GlycemicIndex:   40,
		},
		DietTags:    []string{"mediterranean"},
		GoalTags:    []string{"weight-loss"},
		Ingredients: []string{"salmon", "quinoa"},
	}

	sc := score(card, base)
	// diet 3 + goal 2 + density 1 + satiety 0.5 + low GI 0.5 + protein match 1
	assert.Equal(t, 8.0, sc.Score)
	assert.NotEmpty(t, sc.Reasons)
}

func TestBiomarkerScoring(t *testing.T) {
	intake := profile.Intake{
		Answers: map[string]string{
			"age": "30", "weight_kg": "70", "height_cm": "175",
			"gender": "male", "activity_level": "moderate", "goal": "longevity",
		},
		Labs: &profile.LabPanel{Results: []profile.LabResult{
			{Marker: "Vitamin D", Status: "low"},
		}},
	}
	card, err := profile.BuildCard(intake)
	require.NoError(t, err)

	directional := corpus.Candidate{
		ID: "d", MealType: corpus.MealLunch,
		Relevance: []corpus.BiomarkerRelevance{{Marker: "vitamin d", Direction: "raise", Impact: 2}},
	}
	supportive := corpus.Candidate{
		ID: "s", MealType: corpus.MealLunch,
		Relevance: []corpus.BiomarkerRelevance{{Marker: "vitamin d", Direction: "support", Impact: 2}},
	}

	assert.Equal(t, 4.0, biomarkerScore(card, directional), "matching direction scores impact x 2")
	assert.Equal(t, 0.5, biomarkerScore(card, supportive), "generally beneficial scores +0.5")
}

func TestMacroFitWindow(t *testing.T) {
	card := testCard(t, nil) // target 2156 kcal, dinner proportion 0.37 => ~797.7 kcal

	perfect := corpus.Candidate{MealType: corpus.MealDinner, Nutrients: corpus.Nutrients{Calories: 797.7}}
	outside := corpus.Candidate{MealType: corpus.MealDinner, Nutrients: corpus.Nutrients{Calories: 1200}}

	assert.InDelta(t, 1.0, macroFitScore(card, perfect), 0.01)
	assert.Equal(t, 0.0, macroFitScore(card, outside), "candidates outside 30%% of target must not score")
}

func TestSelectInsufficientMatch(t *testing.T) {
	card := testCard(t, nil)
	snap := testSnapshot(3) // fewer than 7 per slot

	_, err := Select(card, snap, Options{})
	require.ErrorIs(t, err, ErrInsufficientMatch)

	// Relaxed thresholds accept the same corpus.
	doc, err := Select(card, snap, Options{MinPerSlot: 1})
	require.NoError(t, err)
	require.Len(t, doc.Days, 7)
}

func TestSelectRepeatsTopCandidateWhenExhausted(t *testing.T) {
	card := testCard(t, nil)
	snap := testSnapshot(7)

	doc, err := Select(card, snap, Options{})
	require.NoError(t, err)
	require.Len(t, doc.Days, 7)

	slots := 3 // breakfast, lunch, dinner for the default card
	for _, day := range doc.Days {
		require.Len(t, day.Meals, slots)
	}

	// With exactly 7 per slot, all 7 days use distinct candidates.
	seen := map[string]int{}
	for _, day := range doc.Days {
		for _, meal := range day.Meals {
			seen[meal.CandidateID]++
		}
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "candidate %s reused before exhaustion", id)
	}

	// With a shallower (relaxed) corpus the top candidate repeats.
	shallow := testSnapshot(2)
	doc, err = Select(card, shallow, Options{MinPerSlot: 1})
	require.NoError(t, err)
	counts := map[string]int{}
	for _, day := range doc.Days {
		counts[day.Meals[0].CandidateID]++
	}
	top := doc.Days[2].Meals[0].CandidateID // day 3 onward repeats the top pick
	assert.GreaterOrEqual(t, counts[top], 5)
}
