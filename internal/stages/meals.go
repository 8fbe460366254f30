package stages

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"ai-wellness-planner/internal/llm"
	"ai-wellness-planner/internal/plan"
	"ai-wellness-planner/internal/profile"
	"ai-wellness-planner/internal/shared"
)

//go:embed meals_prompt.md
var mealsPrompt string

const StageMeals = "MealPlan"

type mealsPromptData struct {
	Profile     string
	Framework   string
	Biomarkers  string
	MealsPerDay int
	Slots       string
}

type rawMealPlan struct {
	Days []struct {
		Day   string `json:"day"`
		Meals []struct {
			Slot     string  `json:"slot"`
			Name     string  `json:"name"`
			Calories float64 `json:"calories"`
			ProteinG float64 `json:"protein_g"`
			CarbsG   float64 `json:"carbs_g"`
			FatG     float64 `json:"fat_g"`
			Note     string  `json:"note"`
		} `json:"meals"`
	} `json:"days"`
}

// RunGeneratedMeals is the generative meal planner used when corpus
// matching comes up short. Unlike the other stage instances it can
// reject its own result: a self-check
// requires every day to carry exactly the required meal count, and a
// short result is discarded with an error so the orchestrator can fall
// back to relaxed matching or the templated skeleton.
func RunGeneratedMeals(
	ctx context.Context,
	gen llm.TextGenerator,
	card *profile.ProfileCard,
	framework plan.NutritionFramework,
	biomarkers plan.BiomarkerAnalysis,
) (plan.MealPlanDoc, shared.StageMeta, error) {
	start := time.Now()
	meta := shared.StageMeta{StageName: StageMeals}

	slots := plan.MealSlots(card.MealsPerDay)
	prompt, err := renderPrompt("meals", mealsPrompt, mealsPromptData{
		Profile:     cardContext(card),
		Framework:   framework.Philosophy,
		Biomarkers:  biomarkerDigest(biomarkers),
		MealsPerDay: len(slots),
		Slots:       strings.Join(slots, ", "),
	})
	if err != nil {
		return plan.MealPlanDoc{}, finishMeta(meta, start), err
	}

	var raw rawMealPlan
	usage, err := invoke(ctx, gen, prompt, &raw)
	meta.Usage = usage
	if err != nil {
		return plan.MealPlanDoc{}, finishMeta(meta, start), err
	}

	doc := plan.MealPlanDoc{Source: plan.SourceGenerated}
	for i, day := range raw.Days {
		name := day.Day
		if name == "" && i < len(plan.Weekdays) {
			name = plan.Weekdays[i]
			meta.DefaultedFields = append(meta.DefaultedFields, fmt.Sprintf("days[%d].day", i))
		}
		dm := plan.DayMeals{Day: name}
		for j, meal := range day.Meals {
			slot := meal.Slot
			if slot == "" && j < len(slots) {
				slot = slots[j]
			}
			dm.Meals = append(dm.Meals, plan.Meal{
				Slot:     slot,
				Name:     meal.Name,
				Calories: meal.Calories,
				ProteinG: meal.ProteinG,
				CarbsG:   meal.CarbsG,
				FatG:     meal.FatG,
				Note:     meal.Note,
			})
		}
		doc.Days = append(doc.Days, dm)
	}

	if err := checkMealPlanShape(doc, len(slots)); err != nil {
		return plan.MealPlanDoc{}, finishMeta(meta, start), err
	}
	return doc, finishMeta(meta, start), nil
}

// checkMealPlanShape enforces the self-check: 7 days, each with exactly
// the required meal count.
func checkMealPlanShape(doc plan.MealPlanDoc, requiredMeals int) error {
	if len(doc.Days) != len(plan.Weekdays) {
		return fmt.Errorf("generated plan has %d days, need %d", len(doc.Days), len(plan.Weekdays))
	}
	for _, day := range doc.Days {
		if len(day.Meals) != requiredMeals {
			return fmt.Errorf("generated plan day %q has %d meals, need %d", day.Day, len(day.Meals), requiredMeals)
		}
	}
	return nil
}

func biomarkerDigest(analysis plan.BiomarkerAnalysis) string {
	if len(analysis.Markers) == 0 {
		return "none flagged"
	}
	var parts []string
	for _, m := range analysis.Markers {
		parts = append(parts, fmt.Sprintf("%s (%s)", m.Marker, m.Status))
	}
	return strings.Join(parts, ", ")
}
