package plan

import (
	"fmt"

	"ai-wellness-planner/internal/profile"
)

// Validate performs the final structural completeness pass on an
// assembled plan. Missing or malformed sections are replaced with the
// same deterministic defaults the section generators fall back to, and
// every substitution is recorded as a fixed field. Validate never fails;
// callers always get back a structurally complete plan.
func Validate(card *profile.ProfileCard, p *FinalPlan) (*FinalPlan, ValidationReport) {
	report := ValidationReport{IsValid: true}
	fix := func(field, why string) {
		report.IsValid = false
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", field, why))
		report.FixedFields = append(report.FixedFields, field)
	}
	warn := func(field, why string) {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s", field, why))
	}

	if p == nil {
		p = &FinalPlan{}
		fix("plan", "missing entirely")
	}

	if p.Overview == "" {
		p.Overview = FallbackOverview(card)
		fix("overview", "empty")
	}

	if p.Framework.Philosophy == "" && len(p.Framework.KeyPrinciples) == 0 {
		p.Framework = FallbackFramework(card)
		fix("framework", "empty section")
	} else if len(p.Framework.FoodsToEmphasize) == 0 {
		p.Framework.FoodsToEmphasize = FallbackFramework(card).FoodsToEmphasize
		warn("framework.foods_to_emphasize", "filled with defaults")
	}

	if p.Biomarkers.Summary == "" && len(p.Biomarkers.Markers) == 0 {
		p.Biomarkers = FallbackBiomarkers(card)
		fix("biomarkers", "empty section")
	}

	if emptyProtocol(p.Lifestyle.Sleep) && emptyProtocol(p.Lifestyle.Stress) &&
		emptyProtocol(p.Lifestyle.Movement) && emptyProtocol(p.Lifestyle.Circadian) {
		p.Lifestyle = FallbackLifestyle(card)
		fix("lifestyle", "empty section")
	}

	requiredMeals := len(MealSlots(card.MealsPerDay))
	if !mealPlanComplete(p.Meals, requiredMeals) {
		p.Meals = FallbackMealSkeleton(card)
		fix("meals", fmt.Sprintf("incomplete: need %d days of %d meals", len(Weekdays), requiredMeals))
	}

	if len(p.Micronutrients.Supplements) < MinEssentialSupplements {
		before := len(p.Micronutrients.Supplements)
		p.Micronutrients = TopUpSupplements(p.Micronutrients, card)
		if before == 0 {
			fix("micronutrients", "empty section")
		} else {
			warn("micronutrients.supplements", "topped up to minimum count")
			report.FixedFields = append(report.FixedFields, "micronutrients.supplements")
		}
	}
	if len(p.Micronutrients.FoodFirst) == 0 {
		p.Micronutrients.FoodFirst = FallbackMicronutrients(card).FoodFirst
		warn("micronutrients.food_first", "filled with defaults")
		report.FixedFields = append(report.FixedFields, "micronutrients.food_first")
	}

	if len(p.Enrichment.ShoppingList) == 0 {
		p.Enrichment = FallbackEnrichment(card, p.Meals)
		fix("enrichment", "empty section")
	}

	if len(p.NextSteps) == 0 {
		p.NextSteps = FallbackNextSteps(card)
		fix("next_steps", "empty")
	}

	if p.Confidence <= 0 || p.Confidence > 1 {
		p.Confidence = 0.5
		warn("confidence", "out of range, reset to 0.5")
	}

	return p, report
}

func emptyProtocol(p Protocol) bool {
	return p.Title == "" && len(p.Recommendations) == 0
}

// mealPlanComplete checks the 7-day x meals-per-day shape.
func mealPlanComplete(doc MealPlanDoc, requiredMeals int) bool {
	if len(doc.Days) != len(Weekdays) {
		return false
	}
	for _, day := range doc.Days {
		if len(day.Meals) < requiredMeals {
			return false
		}
	}
	return true
}
