package stages

import (
	"fmt"
	"strings"

	"ai-wellness-planner/internal/profile"
)

// cardContext renders the profile card into the textual context block
// shared by every stage prompt.
func cardContext(card *profile.ProfileCard) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Age: %d | Gender: %s | Weight: %.1f kg | Height: %.1f cm | BMI: %.1f\n",
		card.Age, card.Gender, card.WeightKG, card.HeightCM, card.BMI)
	fmt.Fprintf(&b, "Goal: %s | Activity: %s | Diet: %s\n", orNone(card.Goal), card.ActivityLevel, orNone(card.Diet))
	fmt.Fprintf(&b, "Targets: %.0f kcal, %.0f g protein, %.0f g carbs, %.0f g fat, %.0f g fiber, %.1f L water\n",
		card.Metrics.TargetCalories, card.Metrics.ProteinG, card.Metrics.CarbsG, card.Metrics.FatG,
		card.Metrics.FiberG, card.Metrics.WaterL)
	fmt.Fprintf(&b, "Scores: sleep=%s stress=%s metabolic=%s\n",
		card.Metrics.SleepScore, card.Metrics.StressScore, card.Metrics.MetabolicScore)

	if len(card.Constraints) > 0 {
		b.WriteString("Constraints:")
		for _, c := range card.Constraints {
			fmt.Fprintf(&b, " %s(%s)", c.Keyword, c.Severity)
		}
		b.WriteString("\n")
	}
	if len(card.Flags) > 0 {
		b.WriteString("Flagged biomarkers:\n")
		for _, f := range card.Flags {
			fmt.Fprintf(&b, "- %s: %s (priority %s)\n", f.Marker, f.Status, f.Priority)
		}
	}
	if len(card.Insights) > 0 {
		b.WriteString("Device insights:\n")
		for _, ins := range card.Insights {
			fmt.Fprintf(&b, "- [%s] %s\n", ins.Source, ins.Text)
		}
	}
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "not specified"
	}
	return s
}
