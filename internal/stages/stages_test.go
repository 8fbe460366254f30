package stages

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ai-wellness-planner/internal/llm"
	"ai-wellness-planner/internal/plan"
	"ai-wellness-planner/internal/profile"
)

type failingGenerator struct{}

func (m *failingGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	return llm.ContentResponse{}, errors.New("connection timed out")
}

type garbageGenerator struct{}

func (m *garbageGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	return llm.ContentResponse{Content: "I'm sorry, I can't produce JSON today."}, nil
}

type scriptedGenerator struct {
	content    string
	lastPrompt string
}

func (m *scriptedGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.lastPrompt = prompt
	return llm.ContentResponse{Content: m.content}, nil
}

func testCard(t *testing.T) *profile.ProfileCard {
	t.Helper()
	card, err := profile.BuildCard(profile.Intake{
		Answers: map[string]string{
			"age": "30", "weight_kg": "70", "height_cm": "175",
			"gender": "male", "activity_level": "moderate", "goal": "lose weight",
		},
		Labs: &profile.LabPanel{Results: []profile.LabResult{
			{Marker: "Vitamin D", Status: "deficient"},
		}},
	})
	if err != nil {
		t.Fatalf("BuildCard failed: %v", err)
	}
	return card
}

func TestFrameworkFallbackOnFailure(t *testing.T) {
	card := testCard(t)
	ctx := context.Background()

	for _, gen := range []llm.TextGenerator{&failingGenerator{}, &garbageGenerator{}} {
		fw, meta := RunFramework(ctx, gen, card)
		if !meta.FallbackUsed {
			t.Error("Expected FallbackUsed to be true")
		}
		if fw.Philosophy == "" || len(fw.KeyPrinciples) == 0 || fw.MealTiming == "" {
			t.Errorf("Fallback framework is not schema-complete: %+v", fw)
		}
	}
}

func TestFrameworkNormalizeFillsMissingFields(t *testing.T) {
	card := testCard(t)
	gen := &scriptedGenerator{content: `{"philosophy": "Eat real food.", "key_principles": ["protein first"]}`}

	fw, meta := RunFramework(context.Background(), gen, card)
	if meta.FallbackUsed {
		t.Error("Expected no fallback for a parseable response")
	}
	if fw.Philosophy != "Eat real food." {
		t.Errorf("Expected generated philosophy to survive, got %q", fw.Philosophy)
	}
	if len(fw.FoodsToEmphasize) == 0 || fw.MealTiming == "" {
		t.Error("Expected missing fields to be filled with defaults")
	}
	found := false
	for _, f := range meta.DefaultedFields {
		if f == "meal_timing" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected meal_timing in DefaultedFields, got %v", meta.DefaultedFields)
	}
}

func TestFrameworkAcceptsFencedJSON(t *testing.T) {
	card := testCard(t)
	gen := &scriptedGenerator{content: "```json\n{\"philosophy\": \"Simple.\", \"key_principles\": [\"x\"], \"foods_to_emphasize\": [\"y\"], \"foods_to_limit\": [\"z\"], \"meal_timing\": \"t\"}\n```"}

	fw, meta := RunFramework(context.Background(), gen, card)
	if meta.FallbackUsed {
		t.Error("Expected fenced JSON to parse")
	}
	if fw.Philosophy != "Simple." {
		t.Errorf("Unexpected philosophy %q", fw.Philosophy)
	}
}

func TestBiomarkersSkipCallWithoutLabs(t *testing.T) {
	card, err := profile.BuildCard(profile.Intake{Answers: map[string]string{
		"age": "30", "weight_kg": "70", "height_cm": "175",
		"gender": "male", "activity_level": "moderate", "goal": "longevity",
	}})
	if err != nil {
		t.Fatalf("BuildCard failed: %v", err)
	}

	out, meta := RunBiomarkers(context.Background(), &failingGenerator{}, card)
	if meta.FallbackUsed {
		t.Error("Skipping the call without labs is not a fallback")
	}
	if !strings.Contains(out.Summary, "No lab panel") {
		t.Errorf("Expected the no-labs summary, got %q", out.Summary)
	}
}

func TestBiomarkersFallbackKeepsFlags(t *testing.T) {
	card := testCard(t)
	out, meta := RunBiomarkers(context.Background(), &failingGenerator{}, card)

	if !meta.FallbackUsed {
		t.Error("Expected FallbackUsed to be true")
	}
	if len(out.Markers) != 1 || out.Markers[0].Marker != "Vitamin D" {
		t.Errorf("Expected the card's flag to survive into the section, got %+v", out.Markers)
	}
	if len(out.Markers[0].Supplements) == 0 {
		t.Error("Expected fallback marker insight to carry supplement suggestions")
	}
}

func TestLifestyleFallbackOnFailure(t *testing.T) {
	card := testCard(t)
	out, meta := RunLifestyle(context.Background(), &failingGenerator{}, card)

	if !meta.FallbackUsed {
		t.Error("Expected FallbackUsed to be true")
	}
	for name, p := range map[string]plan.Protocol{
		"sleep": out.Sleep, "stress": out.Stress, "movement": out.Movement, "circadian": out.Circadian,
	} {
		if p.Title == "" || len(p.Recommendations) == 0 {
			t.Errorf("Protocol %s is not schema-complete: %+v", name, p)
		}
	}
}

func TestGeneratedMealsSelfCheck(t *testing.T) {
	card := testCard(t)
	ctx := context.Background()
	fw := plan.FallbackFramework(card)
	bio := plan.FallbackBiomarkers(card)

	// Only one day generated: the self-check must discard the result.
	short := &scriptedGenerator{content: `{"days": [{"day": "Monday", "meals": [
		{"slot": "breakfast", "name": "Oats", "calories": 500, "protein_g": 30, "carbs_g": 60, "fat_g": 15},
		{"slot": "lunch", "name": "Bowl", "calories": 700, "protein_g": 50, "carbs_g": 70, "fat_g": 20},
		{"slot": "dinner", "name": "Salmon", "calories": 800, "protein_g": 55, "carbs_g": 60, "fat_g": 30}
	]}]}`}
	if _, _, err := RunGeneratedMeals(ctx, short, card, fw, bio); err == nil {
		t.Fatal("Expected a short plan to be discarded")
	}

	if _, _, err := RunGeneratedMeals(ctx, &failingGenerator{}, card, fw, bio); err == nil {
		t.Fatal("Expected a failing call to surface an error for the orchestrator")
	}
}

func TestMicronutrientsMinimumCount(t *testing.T) {
	card := testCard(t)
	gen := &scriptedGenerator{content: `{"supplements": [{"name": "Zinc", "dose": "15 mg", "timing": "evening", "priority": "low"}]}`}

	out, meta := RunMicronutrients(context.Background(), gen, card, plan.FallbackBiomarkers(card))
	if meta.FallbackUsed {
		t.Error("Expected no fallback for a parseable response")
	}
	if len(out.Supplements) < plan.MinEssentialSupplements {
		t.Errorf("Expected at least %d supplements after top-up, got %d",
			plan.MinEssentialSupplements, len(out.Supplements))
	}
	if out.Supplements[0].Name != "Zinc" {
		t.Errorf("Expected the generated supplement to stay first, got %q", out.Supplements[0].Name)
	}
}

func TestMicronutrientsConsumeBiomarkerAnalysis(t *testing.T) {
	card := testCard(t)
	gen := &scriptedGenerator{content: `{"supplements": [], "food_first": []}`}

	analysis := plan.BiomarkerAnalysis{
		Summary: "One deficiency flagged.",
		Markers: []plan.MarkerInsight{{
			Marker:      "Ferritin",
			Status:      "low",
			Priority:    "high",
			Supplements: []string{"Iron bisglycinate"},
		}},
	}

	RunMicronutrients(context.Background(), gen, card, analysis)

	for _, want := range []string{"Ferritin", "high priority", "Iron bisglycinate"} {
		if !strings.Contains(gen.lastPrompt, want) {
			t.Errorf("Expected the request to carry %q from the biomarker analysis", want)
		}
	}
}

func TestEnrichmentFallbackDerivesFromMeals(t *testing.T) {
	card := testCard(t)
	meals := plan.FallbackMealSkeleton(card)

	out, meta := RunEnrichment(context.Background(), &failingGenerator{}, card, meals)
	if !meta.FallbackUsed {
		t.Error("Expected FallbackUsed to be true")
	}
	if len(out.ShoppingList) == 0 || len(out.PrepTips) == 0 {
		t.Errorf("Fallback enrichment is not schema-complete: %+v", out)
	}
}

func TestAssemblyAlwaysCompletes(t *testing.T) {
	card := testCard(t)
	in := AssemblyInput{
		Framework:      plan.FallbackFramework(card),
		Biomarkers:     plan.FallbackBiomarkers(card),
		Lifestyle:      plan.FallbackLifestyle(card),
		Meals:          plan.FallbackMealSkeleton(card),
		Micronutrients: plan.FallbackMicronutrients(card),
		FallbackCount:  3,
	}

	out, meta := RunAssembly(context.Background(), &failingGenerator{}, card, in)
	if !meta.FallbackUsed {
		t.Error("Expected FallbackUsed to be true")
	}
	if out.Overview == "" || len(out.NextSteps) == 0 {
		t.Error("Fallback assembly is not schema-complete")
	}
	if out.Confidence <= 0 || out.Confidence > 1 {
		t.Errorf("Confidence out of range: %f", out.Confidence)
	}
	// Three upstream fallbacks plus a templated meal source: 0.9 - 0.3 - 0.1
	if out.Confidence != 0.5 {
		t.Errorf("Expected derived confidence 0.5, got %f", out.Confidence)
	}
}
