package plan

import (
	"fmt"
	"strings"
)

// RenderHTML renders a final plan as the HTML document the library
// admin API accepts for publishing.
func RenderHTML(p *FinalPlan) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("<p><i>%s</i></p>", p.Overview))

	sb.WriteString("<h2>Nutrition Framework</h2>")
	sb.WriteString(fmt.Sprintf("<p>%s</p><ul>", p.Framework.Philosophy))
	for _, principle := range p.Framework.KeyPrinciples {
		sb.WriteString(fmt.Sprintf("<li>%s</li>", principle))
	}
	sb.WriteString("</ul>")

	sb.WriteString("<h2>Weekly Meals</h2>")
	for _, day := range p.Meals.Days {
		sb.WriteString(fmt.Sprintf("<h3>%s</h3><ul>", day.Day))
		for _, meal := range day.Meals {
			sb.WriteString(fmt.Sprintf("<li><strong>%s</strong>: %s (%.0f kcal, %.0fg protein)</li>",
				meal.Slot, meal.Name, meal.Calories, meal.ProteinG))
		}
		sb.WriteString("</ul>")
	}

	sb.WriteString("<h2>Lifestyle Protocols</h2>")
	for _, proto := range []Protocol{p.Lifestyle.Sleep, p.Lifestyle.Stress, p.Lifestyle.Movement, p.Lifestyle.Circadian} {
		if proto.Title == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("<h3>%s</h3><ul>", proto.Title))
		for _, rec := range proto.Recommendations {
			sb.WriteString(fmt.Sprintf("<li>%s</li>", rec))
		}
		sb.WriteString("</ul>")
	}

	sb.WriteString("<h2>Supplements</h2><ul>")
	for _, s := range p.Micronutrients.Supplements {
		sb.WriteString(fmt.Sprintf("<li><strong>%s</strong>: %s, %s</li>", s.Name, s.Dose, s.Timing))
	}
	sb.WriteString("</ul>")

	if len(p.NextSteps) > 0 {
		sb.WriteString("<h2>Next Steps</h2><ol>")
		for _, step := range p.NextSteps {
			sb.WriteString(fmt.Sprintf("<li>%s</li>", step))
		}
		sb.WriteString("</ol>")
	}

	sb.WriteString("<hr>")
	sb.WriteString(fmt.Sprintf("<p><strong>Confidence:</strong> %.0f%%</p>", p.Confidence*100))

	return sb.String()
}
