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

//go:embed enrichment_prompt.md
var enrichmentPrompt string

const StageEnrichment = "Enrichment"

type enrichmentPromptData struct {
	Profile string
	Meals   string
}

type rawEnrichment struct {
	ShoppingList  []string `json:"shopping_list"`
	PrepTips      []string `json:"prep_tips"`
	Substitutions []struct {
		Original    string `json:"original"`
		Alternative string `json:"alternative"`
		Reason      string `json:"reason"`
	} `json:"substitutions"`
}

// RunEnrichment augments the settled meal plan with shopping and prep
// guidance. It depends on the meal stage's output.
func RunEnrichment(ctx context.Context, gen llm.TextGenerator, card *profile.ProfileCard, meals plan.MealPlanDoc) (plan.Enrichment, shared.StageMeta) {
	start := time.Now()
	meta := shared.StageMeta{StageName: StageEnrichment}

	prompt, err := renderPrompt("enrichment", enrichmentPrompt, enrichmentPromptData{
		Profile: cardContext(card),
		Meals:   mealDigest(meals),
	})
	if err != nil {
		meta.FallbackUsed = true
		return plan.FallbackEnrichment(card, meals), finishMeta(meta, start)
	}

	var raw rawEnrichment
	usage, err := invoke(ctx, gen, prompt, &raw)
	meta.Usage = usage
	if err != nil {
		meta.FallbackUsed = true
		return plan.FallbackEnrichment(card, meals), finishMeta(meta, start)
	}

	out := normalizeEnrichment(raw, card, meals, &meta.DefaultedFields)
	return out, finishMeta(meta, start)
}

func normalizeEnrichment(raw rawEnrichment, card *profile.ProfileCard, meals plan.MealPlanDoc, defaulted *[]string) plan.Enrichment {
	fb := plan.FallbackEnrichment(card, meals)
	out := plan.Enrichment{
		ShoppingList: takeList(raw.ShoppingList, fb.ShoppingList, "shopping_list", defaulted),
		PrepTips:     takeList(raw.PrepTips, fb.PrepTips, "prep_tips", defaulted),
	}
	for _, s := range raw.Substitutions {
		if s.Original == "" || s.Alternative == "" {
			continue
		}
		out.Substitutions = append(out.Substitutions, plan.Substitution{
			Original:    s.Original,
			Alternative: s.Alternative,
			Reason:      s.Reason,
		})
	}
	if len(out.Substitutions) == 0 && len(fb.Substitutions) > 0 {
		*defaulted = append(*defaulted, "substitutions")
		out.Substitutions = fb.Substitutions
	}
	return out
}

func mealDigest(meals plan.MealPlanDoc) string {
	var b strings.Builder
	for _, day := range meals.Days {
		names := make([]string, 0, len(day.Meals))
		for _, m := range day.Meals {
			names = append(names, fmt.Sprintf("%s: %s", m.Slot, m.Name))
		}
		fmt.Fprintf(&b, "%s - %s\n", day.Day, strings.Join(names, "; "))
	}
	return b.String()
}
