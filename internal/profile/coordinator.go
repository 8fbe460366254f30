package profile

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Activity-level multipliers for TDEE. Unknown levels fall back to moderate.
var activityMultipliers = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

const defaultActivityLevel = "moderate"

// BuildCard converts raw intake into a complete, immutable ProfileCard.
// It is the only stage whose failure is fatal to a run: without a valid
// card nothing downstream can proceed.
func BuildCard(intake Intake) (*ProfileCard, error) {
	if intake.Answers == nil {
		return nil, fmt.Errorf("intake has no answers")
	}

	age, err := parsePositiveInt(intake.Answers, "age")
	if err != nil {
		return nil, err
	}
	weight, err := parsePositiveFloat(intake.Answers, "weight_kg")
	if err != nil {
		return nil, err
	}
	height, err := parsePositiveFloat(intake.Answers, "height_cm")
	if err != nil {
		return nil, err
	}

	gender := strings.ToLower(strings.TrimSpace(intake.Answers["gender"]))
	activity := normalizeActivity(intake.Answers["activity_level"])
	goal := strings.ToLower(strings.TrimSpace(intake.Answers["goal"]))

	mealsPerDay := 3
	if raw := intake.Answers["meals_per_day"]; raw != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n >= 1 && n <= 6 {
			mealsPerDay = n
		}
	}

	card := &ProfileCard{
		Age:              age,
		Gender:           gender,
		WeightKG:         weight,
		HeightCM:         height,
		BMI:              round1(weight / math.Pow(height/100, 2)),
		ActivityLevel:    activity,
		Goal:             goal,
		Diet:             strings.ToLower(strings.TrimSpace(intake.Answers["diet"])),
		PreferredProtein: strings.ToLower(strings.TrimSpace(intake.Answers["preferred_protein"])),
		MealsPerDay:      mealsPerDay,
		Constraints:      parseConstraints(intake.Answers),
		Availability: DataAvailability{
			HasLabs:      intake.Labs != nil && len(intake.Labs.Results) > 0,
			HasTelemetry: intake.Telemetry != nil && len(intake.Telemetry.Providers) > 0,
		},
	}

	card.Metrics = computeMetrics(card)
	if card.Availability.HasLabs {
		card.Flags = deriveBiomarkerFlags(intake.Labs)
	}
	if card.Availability.HasTelemetry {
		merged := mergeTelemetry(intake.Telemetry)
		card.Insights = merged.Insights
		card.Metrics.RecoveryScore = merged.RecoveryScore
	}
	card.Metrics.SleepScore = sleepScore(card, intake)
	card.Metrics.StressScore = stressScore(card, intake)
	card.Metrics.MetabolicScore = metabolicScore(card)

	return card, nil
}

// computeMetrics derives BMR, TDEE and macro targets.
// BMR uses the Mifflin-St Jeor formula with a gender-conditioned constant.
func computeMetrics(card *ProfileCard) ComputedMetrics {
	bmr := 10*card.WeightKG + 6.25*card.HeightCM - 5*float64(card.Age)
	if card.Gender == "male" {
		bmr += 5
	} else {
		bmr -= 161
	}

	multiplier, ok := activityMultipliers[card.ActivityLevel]
	if !ok {
		multiplier = activityMultipliers[defaultActivityLevel]
	}
	tdee := bmr * multiplier

	adjustment, proteinPerKG := goalBucket(card.Goal)
	target := tdee + adjustment
	if target < 0 {
		target = 0
	}

	protein := card.WeightKG * proteinPerKG
	fat := target * 0.28 / 9
	carbs := (target - protein*4 - fat*9) / 4
	if carbs < 0 {
		carbs = 0
	}

	water := card.WeightKG * 0.033
	if card.ActivityLevel == "active" || card.ActivityLevel == "very_active" {
		water = card.WeightKG * 0.04
	}

	return ComputedMetrics{
		BMR:            math.Round(bmr),
		TDEE:           math.Round(tdee),
		TargetCalories: math.Round(target),
		ProteinG:       round1(protein),
		CarbsG:         round1(carbs),
		FatG:           round1(fat),
		FiberG:         round1(14 * target / 1000),
		WaterL:         round1(water),
	}
}

// goalBucket maps the free-text goal onto a calorie adjustment and a
// protein multiplier in grams per kg of body weight.
func goalBucket(goal string) (calorieAdjustment, proteinPerKG float64) {
	switch {
	case strings.Contains(goal, "build") || strings.Contains(goal, "muscle"):
		return 300, 2.0
	case strings.Contains(goal, "lose") || strings.Contains(goal, "slim"):
		return -400, 2.2
	default: // longevity and everything else
		return 0, 1.7
	}
}

func normalizeActivity(raw string) string {
	level := strings.ToLower(strings.TrimSpace(raw))
	level = strings.ReplaceAll(level, " ", "_")
	level = strings.ReplaceAll(level, "-", "_")
	if _, ok := activityMultipliers[level]; !ok {
		return defaultActivityLevel
	}
	return level
}

func parseConstraints(answers map[string]string) []Constraint {
	var out []Constraint
	appendAll := func(key string, severity ConstraintSeverity) {
		for _, kw := range strings.Split(answers[key], ",") {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				out = append(out, Constraint{Keyword: kw, Severity: severity})
			}
		}
	}
	appendAll("allergies", SeverityAllergy)
	appendAll("intolerances", SeverityIntolerance)
	appendAll("dislikes", SeverityPreference)
	return out
}

func sleepScore(card *ProfileCard, intake Intake) string {
	if intake.Telemetry != nil {
		if v, ok := firstMetric(intake.Telemetry, func(m ProviderMetrics) *float64 { return m.SleepScore }); ok {
			switch {
			case v >= 80:
				return "good"
			case v >= 60:
				return "fair"
			default:
				return "poor"
			}
		}
	}
	switch strings.ToLower(intake.Answers["sleep_quality"]) {
	case "good", "great", "excellent":
		return "good"
	case "poor", "bad":
		return "poor"
	default:
		return "fair"
	}
}

func stressScore(card *ProfileCard, intake Intake) string {
	if intake.Telemetry != nil {
		if v, ok := firstMetric(intake.Telemetry, func(m ProviderMetrics) *float64 { return m.MeetingHours }); ok && v > 6 {
			return "elevated"
		}
		if v, ok := firstMetric(intake.Telemetry, func(m ProviderMetrics) *float64 { return m.StrainScore }); ok && v >= 15 {
			return "elevated"
		}
	}
	switch strings.ToLower(intake.Answers["stress_level"]) {
	case "high", "very high":
		return "elevated"
	case "low":
		return "low"
	default:
		return "moderate"
	}
}

func metabolicScore(card *ProfileCard) string {
	for _, f := range card.Flags {
		m := strings.ToLower(f.Marker)
		if strings.Contains(m, "glucose") || strings.Contains(m, "hba1c") || strings.Contains(m, "a1c") {
			return "attention"
		}
	}
	if len(card.Flags) > 0 {
		return "fair"
	}
	return "good"
}

func parsePositiveInt(answers map[string]string, key string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(answers[key]))
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("intake field %q must be a positive number, got %q", key, answers[key])
	}
	return v, nil
}

func parsePositiveFloat(answers map[string]string, key string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(answers[key]), 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("intake field %q must be a positive number, got %q", key, answers[key])
	}
	return v, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
