package stages

import (
	"context"
	_ "embed"
	"strings"
	"time"

	"ai-wellness-planner/internal/llm"
	"ai-wellness-planner/internal/plan"
	"ai-wellness-planner/internal/profile"
	"ai-wellness-planner/internal/shared"
)

//go:embed assembly_prompt.md
var assemblyPrompt string

const StageAssembly = "FinalAssembly"

type assemblyPromptData struct {
	Profile          string
	Philosophy       string
	BiomarkerSummary string
	MealSource       string
	MealDays         int
	Supplements      string
}

type rawAssembly struct {
	Overview   string   `json:"overview"`
	NextSteps  []string `json:"next_steps"`
	Confidence float64  `json:"confidence"`
}

// AssemblyInput carries every upstream output into the final stage.
type AssemblyInput struct {
	Framework      plan.NutritionFramework
	Biomarkers     plan.BiomarkerAnalysis
	Lifestyle      plan.LifestyleProtocols
	Meals          plan.MealPlanDoc
	Micronutrients plan.MicronutrientPlan
	Enrichment     plan.Enrichment
	FallbackCount  int
}

// RunAssembly merges all stage outputs into the final plan and adds the
// closing narrative, next steps and confidence estimate.
func RunAssembly(ctx context.Context, gen llm.TextGenerator, card *profile.ProfileCard, in AssemblyInput) (*plan.FinalPlan, shared.StageMeta) {
	start := time.Now()
	meta := shared.StageMeta{StageName: StageAssembly}

	out := &plan.FinalPlan{
		Framework:      in.Framework,
		Biomarkers:     in.Biomarkers,
		Lifestyle:      in.Lifestyle,
		Meals:          in.Meals,
		Micronutrients: in.Micronutrients,
		Enrichment:     in.Enrichment,
	}

	prompt, err := renderPrompt("assembly", assemblyPrompt, assemblyPromptData{
		Profile:          cardContext(card),
		Philosophy:       in.Framework.Philosophy,
		BiomarkerSummary: in.Biomarkers.Summary,
		MealSource:       in.Meals.Source,
		MealDays:         len(in.Meals.Days),
		Supplements:      supplementDigest(in.Micronutrients),
	})
	if err != nil {
		fillAssemblyFallback(out, card, in)
		meta.FallbackUsed = true
		return out, finishMeta(meta, start)
	}

	var raw rawAssembly
	usage, err := invoke(ctx, gen, prompt, &raw)
	meta.Usage = usage
	if err != nil {
		fillAssemblyFallback(out, card, in)
		meta.FallbackUsed = true
		return out, finishMeta(meta, start)
	}

	out.Overview = takeString(raw.Overview, plan.FallbackOverview(card), "overview", &meta.DefaultedFields)
	out.NextSteps = takeList(raw.NextSteps, plan.FallbackNextSteps(card), "next_steps", &meta.DefaultedFields)
	out.Confidence = raw.Confidence
	if out.Confidence <= 0 || out.Confidence > 1 {
		meta.DefaultedFields = append(meta.DefaultedFields, "confidence")
		out.Confidence = deriveConfidence(in)
	}
	return out, finishMeta(meta, start)
}

func fillAssemblyFallback(out *plan.FinalPlan, card *profile.ProfileCard, in AssemblyInput) {
	out.Overview = plan.FallbackOverview(card)
	out.NextSteps = plan.FallbackNextSteps(card)
	out.Confidence = deriveConfidence(in)
}

// deriveConfidence starts high and decays with every upstream fallback
// and with a templated meal plan.
func deriveConfidence(in AssemblyInput) float64 {
	confidence := 0.9 - 0.1*float64(in.FallbackCount)
	if in.Meals.Source == plan.SourceTemplate {
		confidence -= 0.1
	}
	if confidence < 0.3 {
		confidence = 0.3
	}
	return confidence
}

func supplementDigest(mp plan.MicronutrientPlan) string {
	names := make([]string, 0, len(mp.Supplements))
	for _, s := range mp.Supplements {
		names = append(names, s.Name)
	}
	return strings.Join(names, ", ")
}
