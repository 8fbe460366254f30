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

//go:embed micronutrient_prompt.md
var micronutrientPrompt string

const StageMicronutrients = "MicronutrientPlan"

type micronutrientPromptData struct {
	Profile    string
	Biomarkers string
}

type rawMicronutrients struct {
	Supplements []struct {
		Name      string `json:"name"`
		Dose      string `json:"dose"`
		Timing    string `json:"timing"`
		Rationale string `json:"rationale"`
		Priority  string `json:"priority"`
	} `json:"supplements"`
	FoodFirst []string `json:"food_first"`
}

// RunMicronutrients produces the supplement section. It consumes the
// interpreted biomarker analysis, not just the card's raw flags, so a
// marker insight's supplement suggestions inform the protocol.
func RunMicronutrients(ctx context.Context, gen llm.TextGenerator, card *profile.ProfileCard, biomarkers plan.BiomarkerAnalysis) (plan.MicronutrientPlan, shared.StageMeta) {
	start := time.Now()
	meta := shared.StageMeta{StageName: StageMicronutrients}

	prompt, err := renderPrompt("micronutrients", micronutrientPrompt, micronutrientPromptData{
		Profile:    cardContext(card),
		Biomarkers: analysisDigest(biomarkers),
	})
	if err != nil {
		meta.FallbackUsed = true
		return plan.FallbackMicronutrients(card), finishMeta(meta, start)
	}

	var raw rawMicronutrients
	usage, err := invoke(ctx, gen, prompt, &raw)
	meta.Usage = usage
	if err != nil {
		meta.FallbackUsed = true
		return plan.FallbackMicronutrients(card), finishMeta(meta, start)
	}

	out := normalizeMicronutrients(raw, card, &meta.DefaultedFields)
	return out, finishMeta(meta, start)
}

func normalizeMicronutrients(raw rawMicronutrients, card *profile.ProfileCard, defaulted *[]string) plan.MicronutrientPlan {
	out := plan.MicronutrientPlan{}
	for i, s := range raw.Supplements {
		if s.Name == "" {
			*defaulted = append(*defaulted, fmt.Sprintf("supplements[%d]", i))
			continue
		}
		supp := plan.Supplement{
			Name:      s.Name,
			Dose:      takeString(s.Dose, "per label", fmt.Sprintf("supplements[%d].dose", i), defaulted),
			Timing:    takeString(s.Timing, "with a meal", fmt.Sprintf("supplements[%d].timing", i), defaulted),
			Rationale: s.Rationale,
			Priority:  takeString(s.Priority, "medium", fmt.Sprintf("supplements[%d].priority", i), defaulted),
		}
		out.Supplements = append(out.Supplements, supp)
	}

	// An unset or short essential list is filled from the fixed priority
	// list cross-referenced with the card's flags until the minimum count.
	if len(out.Supplements) < plan.MinEssentialSupplements {
		*defaulted = append(*defaulted, "supplements")
		out = plan.TopUpSupplements(out, card)
	}

	fb := plan.FallbackMicronutrients(card)
	out.FoodFirst = takeList(raw.FoodFirst, fb.FoodFirst, "food_first", defaulted)
	return out
}

// analysisDigest flattens the biomarker analysis into prompt context:
// the summary line plus each marker with its status, priority and the
// supplements the analysis already suggested for it.
func analysisDigest(a plan.BiomarkerAnalysis) string {
	var b strings.Builder
	b.WriteString(a.Summary)
	for _, m := range a.Markers {
		b.WriteString(fmt.Sprintf("\n- %s: %s, %s priority", m.Marker, m.Status, m.Priority))
		if len(m.Supplements) > 0 {
			b.WriteString("; suggested: " + strings.Join(m.Supplements, ", "))
		}
	}
	return b.String()
}
