package plan

import (
	"fmt"
	"math"
	"strings"

	"ai-wellness-planner/internal/profile"
)

// Weekday labels for the 7-day plan.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// MealSlots returns the meal slot names for a given meals-per-day count.
// Three main meals are always kept once the count allows; extra meals
// become snacks.
func MealSlots(mealsPerDay int) []string {
	switch {
	case mealsPerDay <= 1:
		return []string{"dinner"}
	case mealsPerDay == 2:
		return []string{"lunch", "dinner"}
	case mealsPerDay == 3:
		return []string{"breakfast", "lunch", "dinner"}
	default:
		slots := []string{"breakfast", "lunch", "dinner"}
		for i := 3; i < mealsPerDay; i++ {
			slots = append(slots, "snack")
		}
		return slots
	}
}

// FallbackFramework builds the nutrition framework section purely from
// the profile card. Used when the generator call fails and by the
// validator when the section arrives missing or malformed.
func FallbackFramework(card *profile.ProfileCard) NutritionFramework {
	goal := card.Goal
	if goal == "" {
		goal = "long-term health"
	}

	fw := NutritionFramework{
		Philosophy: fmt.Sprintf(
			"A whole-foods approach built around %.0f kcal per day with %.0f g of protein, tuned for %s.",
			card.Metrics.TargetCalories, card.Metrics.ProteinG, goal),
		KeyPrinciples: []string{
			fmt.Sprintf("Hit %.0f g protein daily, spread across meals", card.Metrics.ProteinG),
			fmt.Sprintf("Aim for %.0f g of fiber from vegetables, legumes and whole grains", card.Metrics.FiberG),
			fmt.Sprintf("Drink about %.1f L of water daily", card.Metrics.WaterL),
			"Prioritize minimally processed foods",
		},
		FoodsToEmphasize: []string{"leafy greens", "lean protein", "extra virgin olive oil", "berries", "legumes"},
		FoodsToLimit:     []string{"refined sugar", "ultra-processed snacks", "deep-fried foods", "sugary drinks"},
		MealTiming:       "Keep meals within a consistent 10-12 hour daytime window.",
	}

	for _, flag := range card.Flags {
		fw.FoodsToEmphasize = appendUnique(fw.FoodsToEmphasize, flag.Foods...)
	}
	return fw
}

// FallbackBiomarkers renders the card's flags directly into the section.
func FallbackBiomarkers(card *profile.ProfileCard) BiomarkerAnalysis {
	out := BiomarkerAnalysis{}
	if !card.Availability.HasLabs {
		out.Summary = "No lab panel was provided; recommendations are based on questionnaire data only."
		return out
	}
	if len(card.Flags) == 0 {
		out.Summary = "All provided lab markers are in their optimal ranges."
		return out
	}

	out.Summary = fmt.Sprintf("%d marker(s) need attention.", len(card.Flags))
	for _, flag := range card.Flags {
		out.Markers = append(out.Markers, MarkerInsight{
			Marker:         flag.Marker,
			Status:         flag.Status,
			Priority:       flag.Priority,
			Interpretation: fmt.Sprintf("%s is %s; dietary support is recommended.", flag.Marker, flag.Status),
			Foods:          flag.Foods,
			Supplements:    flag.Supplements,
		})
	}
	return out
}

// FallbackLifestyle derives lifestyle protocols from the card's
// qualitative scores.
func FallbackLifestyle(card *profile.ProfileCard) LifestyleProtocols {
	lp := LifestyleProtocols{
		Sleep: Protocol{
			Title: "Sleep foundation",
			Recommendations: []string{
				"Keep a fixed wake time, including weekends",
				"Dim screens and overhead lights 90 minutes before bed",
				"Keep the bedroom below 19°C",
			},
		},
		Stress: Protocol{
			Title: "Stress regulation",
			Recommendations: []string{
				"5 minutes of slow nasal breathing after lunch",
				"A 10-minute outdoor walk between work blocks",
			},
		},
		Movement: Protocol{
			Title: "Movement",
			Recommendations: []string{
				"2-3 resistance sessions per week",
				"A daily step target of 8,000-10,000",
			},
		},
		Circadian: Protocol{
			Title: "Circadian rhythm",
			Recommendations: []string{
				"10 minutes of outdoor light within an hour of waking",
				"Finish the last meal at least 3 hours before bed",
			},
		},
	}

	if card.Metrics.SleepScore == "poor" {
		lp.Sleep.Recommendations = append(lp.Sleep.Recommendations,
			"Consider a wind-down alarm one hour before target bedtime")
	}
	if card.Metrics.StressScore == "elevated" {
		lp.Stress.Recommendations = append(lp.Stress.Recommendations,
			"Block two meeting-free hours per day while load stays high")
	}
	return lp
}

// FallbackMealSkeleton is the terminal meal-plan fallback: a fully
// templated 7-day skeleton with macros divided evenly across slots.
func FallbackMealSkeleton(card *profile.ProfileCard) MealPlanDoc {
	slots := MealSlots(card.MealsPerDay)
	perMeal := float64(len(slots))

	doc := MealPlanDoc{Source: SourceTemplate}
	for _, day := range Weekdays {
		dm := DayMeals{Day: day}
		for _, slot := range slots {
			dm.Meals = append(dm.Meals, Meal{
				Slot:     slot,
				Name:     fmt.Sprintf("Balanced %s", slot),
				Calories: math.Round(card.Metrics.TargetCalories / perMeal),
				ProteinG: math.Round(card.Metrics.ProteinG / perMeal),
				CarbsG:   math.Round(card.Metrics.CarbsG / perMeal),
				FatG:     math.Round(card.Metrics.FatG / perMeal),
				Note:     "Template meal: protein source, vegetables and a whole-food carb.",
			})
		}
		doc.Days = append(doc.Days, dm)
	}
	return doc
}

// essentialSupplements is the fixed priority list used to top up the
// micronutrient section until the minimum count is reached.
var essentialSupplements = []Supplement{
	{Name: "Vitamin D3", Dose: "2000 IU", Timing: "with breakfast", Rationale: "Baseline support for most adults", Priority: "high"},
	{Name: "Omega-3 (EPA/DHA)", Dose: "1-2 g", Timing: "with a meal", Rationale: "Cardiovascular and inflammatory support", Priority: "high"},
	{Name: "Magnesium glycinate", Dose: "300 mg", Timing: "evening", Rationale: "Sleep quality and muscle recovery", Priority: "medium"},
	{Name: "Creatine monohydrate", Dose: "5 g", Timing: "any time", Rationale: "Strength and cognitive support", Priority: "medium"},
	{Name: "Electrolytes", Dose: "1 serving", Timing: "around training", Rationale: "Hydration on active days", Priority: "low"},
}

// MinEssentialSupplements is the minimum supplement count the section
// must carry after normalization.
const MinEssentialSupplements = 3

// FallbackMicronutrients builds the supplement section from the card's
// biomarker flags, topped up from the fixed priority list until the
// minimum count is reached.
func FallbackMicronutrients(card *profile.ProfileCard) MicronutrientPlan {
	out := MicronutrientPlan{}
	seen := make(map[string]struct{})

	for _, flag := range card.Flags {
		for _, supp := range flag.Supplements {
			key := strings.ToLower(supp)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out.Supplements = append(out.Supplements, Supplement{
				Name:      supp,
				Dose:      "per label",
				Timing:    "with a meal",
				Rationale: fmt.Sprintf("Targets %s (%s)", flag.Marker, flag.Status),
				Priority:  flag.Priority,
			})
		}
		out.FoodFirst = appendUnique(out.FoodFirst, flag.Foods...)
	}

	return TopUpSupplements(out, card)
}

// TopUpSupplements fills the supplement list from the fixed priority
// list until MinEssentialSupplements is reached, skipping names already
// present (matched loosely on the first word).
func TopUpSupplements(mp MicronutrientPlan, card *profile.ProfileCard) MicronutrientPlan {
	for _, essential := range essentialSupplements {
		if len(mp.Supplements) >= MinEssentialSupplements {
			break
		}
		if supplementListed(mp.Supplements, essential.Name) {
			continue
		}
		mp.Supplements = append(mp.Supplements, essential)
	}
	if len(mp.FoodFirst) == 0 {
		mp.FoodFirst = []string{"fatty fish twice a week", "a daily serving of leafy greens", "nuts or seeds most days"}
	}
	return mp
}

func supplementListed(list []Supplement, name string) bool {
	probe := strings.ToLower(strings.Fields(name)[0])
	for _, s := range list {
		if strings.Contains(strings.ToLower(s.Name), probe) {
			return true
		}
	}
	return false
}

// FallbackEnrichment derives shopping and prep guidance from the meal plan.
func FallbackEnrichment(card *profile.ProfileCard, meals MealPlanDoc) Enrichment {
	out := Enrichment{
		PrepTips: []string{
			"Batch-cook proteins and grains on Sunday and Wednesday",
			"Wash and chop vegetables right after shopping",
		},
	}
	for _, day := range meals.Days {
		for _, meal := range day.Meals {
			if meal.Name != "" {
				out.ShoppingList = appendUnique(out.ShoppingList, fmt.Sprintf("Ingredients for %s", meal.Name))
			}
		}
	}
	if len(out.ShoppingList) == 0 {
		out.ShoppingList = []string{"lean proteins", "seasonal vegetables", "whole grains", "olive oil"}
	}
	for _, con := range card.Constraints {
		if con.Severity == profile.SeverityPreference {
			out.Substitutions = append(out.Substitutions, Substitution{
				Original:    con.Keyword,
				Alternative: "a comparable ingredient you enjoy",
				Reason:      "listed as a dislike",
			})
		}
	}
	return out
}

// FallbackOverview builds the final narrative from the card alone.
func FallbackOverview(card *profile.ProfileCard) string {
	goal := card.Goal
	if goal == "" {
		goal = "overall health"
	}
	return fmt.Sprintf(
		"This plan targets %.0f kcal and %.0f g protein per day in support of %s. "+
			"It combines a 7-day meal plan with lifestyle and supplement protocols derived from your profile.",
		card.Metrics.TargetCalories, card.Metrics.ProteinG, goal)
}

// FallbackNextSteps is the default closing checklist.
func FallbackNextSteps(card *profile.ProfileCard) []string {
	steps := []string{
		"Review the weekly meal plan and swap any meal you dislike for another in the same slot",
		"Shop from the consolidated list before the week starts",
		"Re-test flagged lab markers in 8-12 weeks",
	}
	if !card.Availability.HasLabs {
		steps[2] = "Consider a baseline lab panel to unlock biomarker-driven recommendations"
	}
	return steps
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		dup := false
		for _, existing := range list {
			if strings.EqualFold(existing, item) {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, item)
		}
	}
	return list
}
