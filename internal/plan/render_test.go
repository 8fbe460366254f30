package plan

import (
	"strings"
	"testing"
)

func TestRenderHTMLIncludesAllSections(t *testing.T) {
	card := testCard(t)

	meals := FallbackMealSkeleton(card)
	p := &FinalPlan{
		Overview:       FallbackOverview(card),
		Framework:      FallbackFramework(card),
		Biomarkers:     FallbackBiomarkers(card),
		Lifestyle:      FallbackLifestyle(card),
		Meals:          meals,
		Micronutrients: FallbackMicronutrients(card),
		Enrichment:     FallbackEnrichment(card, meals),
		NextSteps:      FallbackNextSteps(card),
		Confidence:     0.75,
	}

	html := RenderHTML(p)

	for _, want := range []string{
		"<h2>Nutrition Framework</h2>",
		"<h2>Weekly Meals</h2>",
		"<h3>Monday</h3>",
		"<h2>Lifestyle Protocols</h2>",
		"<h2>Supplements</h2>",
		"<h2>Next Steps</h2>",
		"<strong>Confidence:</strong> 75%",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("Rendered HTML is missing %q", want)
		}
	}

	if strings.Count(html, "<h3>") < 7+1 {
		t.Errorf("Expected a heading per day plus protocol headings, got %d", strings.Count(html, "<h3>"))
	}
}
