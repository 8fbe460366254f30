package telegram

import (
	"strings"
	"testing"

	"ai-wellness-planner/internal/plan"
)

func TestParseAnswers(t *testing.T) {
	text := "age: 34\nWeight kg = 78\n\nheight_cm: 180\ngoal: lose weight\n/plan\nnonsense line"
	answers := parseAnswers(text)

	if answers["age"] != "34" {
		t.Errorf("Expected age 34, got %q", answers["age"])
	}
	if answers["weight_kg"] != "78" {
		t.Errorf("Expected normalized weight_kg key, got %v", answers)
	}
	if answers["goal"] != "lose weight" {
		t.Errorf("Expected goal to keep its spaces, got %q", answers["goal"])
	}
	if _, ok := answers["/plan"]; ok {
		t.Error("Commands must not be parsed as answers")
	}
	if len(answers) != 4 {
		t.Errorf("Expected 4 answers, got %d: %v", len(answers), answers)
	}
}

func TestMissingEssentials(t *testing.T) {
	missing := missingEssentials(map[string]string{"age": "34", "goal": "sleep better"})
	if len(missing) != 2 {
		t.Fatalf("Expected 2 missing keys, got %v", missing)
	}
	for _, key := range []string{"weight_kg", "height_cm"} {
		found := false
		for _, m := range missing {
			if m == key {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected %s to be reported missing", key)
		}
	}
}

func TestFormatPlanMarkdownParts(t *testing.T) {
	p := &plan.FinalPlan{
		Overview: "A week focused on fat loss with high-protein meals.",
		Framework: plan.NutritionFramework{
			MealTiming: "Three meals, no snacking after dinner.",
		},
		Meals: plan.MealPlanDoc{
			Source: plan.SourceMatched,
			Days: []plan.DayMeals{
				{Day: "Monday", Meals: []plan.Meal{
					{Slot: "breakfast", Name: "Greek Yogurt Bowl", Calories: 550},
					{Slot: "dinner", Name: "Grilled Salmon", Calories: 800},
				}},
			},
		},
		Lifestyle: plan.LifestyleProtocols{
			Sleep: plan.Protocol{Title: "Sleep foundation", Recommendations: []string{"Lights out by 22:30"}},
		},
		Micronutrients: plan.MicronutrientPlan{
			Supplements: []plan.Supplement{
				{Name: "Vitamin D3", Dose: "2000 IU", Timing: "morning"},
			},
		},
		NextSteps: []string{"Retest labs in 12 weeks"},
	}

	planOutput, protocolOutput := formatPlanMarkdownParts(p)

	if !strings.Contains(planOutput, "📅 *Weekly Wellness Plan*") {
		t.Error("Missing plan header")
	}
	if !strings.Contains(planOutput, "*Monday*") {
		t.Error("Missing day heading")
	}
	if !strings.Contains(planOutput, "Grilled Salmon (800 kcal)") {
		t.Error("Missing meal line")
	}
	if !strings.Contains(protocolOutput, "*Sleep foundation*") {
		t.Error("Missing protocol title")
	}
	if !strings.Contains(protocolOutput, "• Vitamin D3 - 2000 IU, morning") {
		t.Error("Missing supplement line")
	}
	if !strings.Contains(protocolOutput, "Retest labs in 12 weeks") {
		t.Error("Missing next steps")
	}
}
