package matching

import (
	"fmt"

	"ai-wellness-planner/internal/corpus"
	"ai-wellness-planner/internal/plan"
	"ai-wellness-planner/internal/profile"
)

// Options tunes the deterministic selection thresholds.
type Options struct {
	// MinPerSlot is the minimum number of distinct scored candidates a
	// meal slot must have after filtering for a matched plan to be
	// accepted. Zero means the default of 7.
	MinPerSlot int
}

const defaultMinPerSlot = 7

// Select runs corpus matching end to end: filter, score and pick
// a 7-day plan. It returns ErrInsufficientMatch when any slot's bucket
// is shallower than the threshold. Given the same card and snapshot it
// always produces the identical plan.
func Select(card *profile.ProfileCard, snap *corpus.Snapshot, opts Options) (*plan.MealPlanDoc, error) {
	minPerSlot := opts.MinPerSlot
	if minPerSlot <= 0 {
		minPerSlot = defaultMinPerSlot
	}

	ranked := Rank(card, snap)
	slots := plan.MealSlots(card.MealsPerDay)

	for _, slot := range slots {
		if len(ranked[corpus.MealType(slot)]) < minPerSlot {
			return nil, fmt.Errorf("slot %q has %d candidates, need %d: %w",
				slot, len(ranked[corpus.MealType(slot)]), minPerSlot, ErrInsufficientMatch)
		}
	}

	// Per-slot cursor into the ranked list. Each day takes the next
	// unused candidate; once a slot's list is exhausted the top-ranked
	// candidate repeats for the remaining days, never a random one.
	cursors := make(map[corpus.MealType]int)

	doc := &plan.MealPlanDoc{Source: plan.SourceMatched}
	for _, day := range plan.Weekdays {
		dm := plan.DayMeals{Day: day}
		for _, slot := range slots {
			mealType := corpus.MealType(slot)
			list := ranked[mealType]

			var pick ScoredCandidate
			if cursors[mealType] < len(list) {
				pick = list[cursors[mealType]]
				cursors[mealType]++
			} else {
				pick = list[0]
			}

			dm.Meals = append(dm.Meals, plan.Meal{
				Slot:        slot,
				Name:        pick.Candidate.Title,
				Calories:    pick.Candidate.Nutrients.Calories,
				ProteinG:    pick.Candidate.Nutrients.ProteinG,
				CarbsG:      pick.Candidate.Nutrients.CarbsG,
				FatG:        pick.Candidate.Nutrients.FatG,
				Note:        firstReason(pick),
				CandidateID: pick.Candidate.ID,
			})
		}
		doc.Days = append(doc.Days, dm)
	}
	return doc, nil
}

func firstReason(sc ScoredCandidate) string {
	if len(sc.Reasons) == 0 {
		return ""
	}
	return sc.Reasons[0]
}
