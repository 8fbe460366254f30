package stages

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"ai-wellness-planner/internal/llm"
	"ai-wellness-planner/internal/plan"
	"ai-wellness-planner/internal/profile"
	"ai-wellness-planner/internal/shared"
)

//go:embed biomarker_prompt.md
var biomarkerPrompt string

const StageBiomarkers = "BiomarkerAnalysis"

type biomarkerPromptData struct {
	Profile string
}

type rawBiomarkers struct {
	Summary string `json:"summary"`
	Markers []struct {
		Marker         string   `json:"marker"`
		Status         string   `json:"status"`
		Priority       string   `json:"priority"`
		Interpretation string   `json:"interpretation"`
		Foods          []string `json:"foods"`
		Supplements    []string `json:"supplements"`
	} `json:"markers"`
}

// RunBiomarkers produces the lab interpretation section.
func RunBiomarkers(ctx context.Context, gen llm.TextGenerator, card *profile.ProfileCard) (plan.BiomarkerAnalysis, shared.StageMeta) {
	start := time.Now()
	meta := shared.StageMeta{StageName: StageBiomarkers}

	// Without labs there is nothing to interpret; skip the external call.
	if !card.Availability.HasLabs || len(card.Flags) == 0 {
		return plan.FallbackBiomarkers(card), finishMeta(meta, start)
	}

	prompt, err := renderPrompt("biomarkers", biomarkerPrompt, biomarkerPromptData{Profile: cardContext(card)})
	if err != nil {
		meta.FallbackUsed = true
		return plan.FallbackBiomarkers(card), finishMeta(meta, start)
	}

	var raw rawBiomarkers
	usage, err := invoke(ctx, gen, prompt, &raw)
	meta.Usage = usage
	if err != nil {
		meta.FallbackUsed = true
		return plan.FallbackBiomarkers(card), finishMeta(meta, start)
	}

	out := normalizeBiomarkers(raw, card, &meta.DefaultedFields)
	return out, finishMeta(meta, start)
}

func normalizeBiomarkers(raw rawBiomarkers, card *profile.ProfileCard, defaulted *[]string) plan.BiomarkerAnalysis {
	fb := plan.FallbackBiomarkers(card)
	out := plan.BiomarkerAnalysis{
		Summary: takeString(raw.Summary, fb.Summary, "summary", defaulted),
	}

	if len(raw.Markers) == 0 {
		*defaulted = append(*defaulted, "markers")
		out.Markers = fb.Markers
		return out
	}

	// Per-marker: keep well-typed values, fill gaps from the card's flags.
	flagByMarker := make(map[string]profile.BiomarkerFlag)
	for _, f := range card.Flags {
		flagByMarker[f.Marker] = f
	}
	for i, m := range raw.Markers {
		insight := plan.MarkerInsight{
			Marker:         m.Marker,
			Status:         m.Status,
			Priority:       m.Priority,
			Interpretation: m.Interpretation,
			Foods:          m.Foods,
			Supplements:    m.Supplements,
		}
		if flag, ok := flagByMarker[m.Marker]; ok {
			field := fmt.Sprintf("markers[%d]", i)
			insight.Status = takeString(insight.Status, flag.Status, field+".status", defaulted)
			insight.Priority = takeString(insight.Priority, flag.Priority, field+".priority", defaulted)
			insight.Foods = takeList(insight.Foods, flag.Foods, field+".foods", defaulted)
			insight.Supplements = takeList(insight.Supplements, flag.Supplements, field+".supplements", defaulted)
		}
		out.Markers = append(out.Markers, insight)
	}
	return out
}
