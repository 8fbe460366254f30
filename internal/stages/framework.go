package stages

import (
	"context"
	_ "embed"
	"time"

	"ai-wellness-planner/internal/llm"
	"ai-wellness-planner/internal/plan"
	"ai-wellness-planner/internal/profile"
	"ai-wellness-planner/internal/shared"
)

//go:embed framework_prompt.md
var frameworkPrompt string

const StageFramework = "NutritionFramework"

type frameworkPromptData struct {
	Profile string
}

type rawFramework struct {
	Philosophy       string   `json:"philosophy"`
	KeyPrinciples    []string `json:"key_principles"`
	FoodsToEmphasize []string `json:"foods_to_emphasize"`
	FoodsToLimit     []string `json:"foods_to_limit"`
	MealTiming       string   `json:"meal_timing"`
}

// RunFramework produces the nutrition framework section.
func RunFramework(ctx context.Context, gen llm.TextGenerator, card *profile.ProfileCard) (plan.NutritionFramework, shared.StageMeta) {
	start := time.Now()
	meta := shared.StageMeta{StageName: StageFramework}

	prompt, err := renderPrompt("framework", frameworkPrompt, frameworkPromptData{Profile: cardContext(card)})
	if err != nil {
		meta.FallbackUsed = true
		return plan.FallbackFramework(card), finishMeta(meta, start)
	}

	var raw rawFramework
	usage, err := invoke(ctx, gen, prompt, &raw)
	meta.Usage = usage
	if err != nil {
		meta.FallbackUsed = true
		return plan.FallbackFramework(card), finishMeta(meta, start)
	}

	out := normalizeFramework(raw, card, &meta.DefaultedFields)
	return out, finishMeta(meta, start)
}

// normalizeFramework accepts well-typed fields from the raw response and
// substitutes profile-derived defaults for the rest. It never rejects a
// response merely for missing optional fields.
func normalizeFramework(raw rawFramework, card *profile.ProfileCard, defaulted *[]string) plan.NutritionFramework {
	fb := plan.FallbackFramework(card)
	return plan.NutritionFramework{
		Philosophy:       takeString(raw.Philosophy, fb.Philosophy, "philosophy", defaulted),
		KeyPrinciples:    takeList(raw.KeyPrinciples, fb.KeyPrinciples, "key_principles", defaulted),
		FoodsToEmphasize: takeList(raw.FoodsToEmphasize, fb.FoodsToEmphasize, "foods_to_emphasize", defaulted),
		FoodsToLimit:     takeList(raw.FoodsToLimit, fb.FoodsToLimit, "foods_to_limit", defaulted),
		MealTiming:       takeString(raw.MealTiming, fb.MealTiming, "meal_timing", defaulted),
	}
}
