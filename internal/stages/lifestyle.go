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

//go:embed lifestyle_prompt.md
var lifestylePrompt string

const StageLifestyle = "LifestyleProtocols"

type lifestylePromptData struct {
	Profile string
}

type rawProtocol struct {
	Title           string   `json:"title"`
	Recommendations []string `json:"recommendations"`
}

type rawLifestyle struct {
	Sleep     rawProtocol `json:"sleep"`
	Stress    rawProtocol `json:"stress"`
	Movement  rawProtocol `json:"movement"`
	Circadian rawProtocol `json:"circadian"`
}

// RunLifestyle produces the lifestyle protocols section.
func RunLifestyle(ctx context.Context, gen llm.TextGenerator, card *profile.ProfileCard) (plan.LifestyleProtocols, shared.StageMeta) {
	start := time.Now()
	meta := shared.StageMeta{StageName: StageLifestyle}

	prompt, err := renderPrompt("lifestyle", lifestylePrompt, lifestylePromptData{Profile: cardContext(card)})
	if err != nil {
		meta.FallbackUsed = true
		return plan.FallbackLifestyle(card), finishMeta(meta, start)
	}

	var raw rawLifestyle
	usage, err := invoke(ctx, gen, prompt, &raw)
	meta.Usage = usage
	if err != nil {
		meta.FallbackUsed = true
		return plan.FallbackLifestyle(card), finishMeta(meta, start)
	}

	out := normalizeLifestyle(raw, card, &meta.DefaultedFields)
	return out, finishMeta(meta, start)
}

func normalizeLifestyle(raw rawLifestyle, card *profile.ProfileCard, defaulted *[]string) plan.LifestyleProtocols {
	fb := plan.FallbackLifestyle(card)
	take := func(got rawProtocol, fallback plan.Protocol, field string) plan.Protocol {
		if len(got.Recommendations) == 0 {
			*defaulted = append(*defaulted, field)
			return fallback
		}
		p := plan.Protocol{Title: got.Title, Recommendations: got.Recommendations}
		if p.Title == "" {
			*defaulted = append(*defaulted, field+".title")
			p.Title = fallback.Title
		}
		return p
	}

	return plan.LifestyleProtocols{
		Sleep:     take(raw.Sleep, fb.Sleep, "sleep"),
		Stress:    take(raw.Stress, fb.Stress, "stress"),
		Movement:  take(raw.Movement, fb.Movement, "movement"),
		Circadian: take(raw.Circadian, fb.Circadian, "circadian"),
	}
}
