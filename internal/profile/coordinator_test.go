package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseAnswers() map[string]string {
	return map[string]string{
		"age":            "30",
		"weight_kg":      "70",
		"height_cm":      "175",
		"gender":         "male",
		"activity_level": "moderate",
		"goal":           "lose weight",
	}
}

func TestBuildCardMetrics(t *testing.T) {
	card, err := BuildCard(Intake{Answers: baseAnswers()})
	require.NoError(t, err)

	// Mifflin-St Jeor: 10*70 + 6.25*175 - 5*30 + 5 = 1648.75
	assert.Equal(t, 1649.0, card.Metrics.BMR)
	// moderate multiplier 1.55
	assert.Equal(t, 2556.0, card.Metrics.TDEE)
	// "lose" goal: -400 kcal
	assert.Equal(t, 2156.0, card.Metrics.TargetCalories)
	// 2.2 g/kg protein
	assert.Equal(t, 154.0, card.Metrics.ProteinG)
}

func TestMacroCaloriesSumToTarget(t *testing.T) {
	cases := []map[string]string{
		baseAnswers(),
		{"age": "45", "weight_kg": "82", "height_cm": "180", "gender": "female", "activity_level": "active", "goal": "build muscle"},
		{"age": "60", "weight_kg": "55", "height_cm": "160", "gender": "female", "activity_level": "sedentary", "goal": "longevity"},
	}

	for _, answers := range cases {
		card, err := BuildCard(Intake{Answers: answers})
		require.NoError(t, err)

		m := card.Metrics
		assert.GreaterOrEqual(t, m.BMR, 0.0)
		assert.GreaterOrEqual(t, m.TDEE, 0.0)
		assert.GreaterOrEqual(t, m.TargetCalories, 0.0)
		assert.GreaterOrEqual(t, m.ProteinG, 0.0)
		assert.GreaterOrEqual(t, m.CarbsG, 0.0)
		assert.GreaterOrEqual(t, m.FatG, 0.0)

		sum := m.ProteinG*4 + m.CarbsG*4 + m.FatG*9
		assert.InEpsilon(t, m.TargetCalories, sum, 0.01,
			"macro calorie-equivalents must sum to within 1%% of target")
	}
}

func TestUnknownActivityDefaultsToModerate(t *testing.T) {
	answers := baseAnswers()
	answers["activity_level"] = "couch potato"

	card, err := BuildCard(Intake{Answers: answers})
	require.NoError(t, err)
	assert.Equal(t, "moderate", card.ActivityLevel)
	assert.Equal(t, 2556.0, card.Metrics.TDEE)
}

func TestWaterTargetScalesWithActivity(t *testing.T) {
	answers := baseAnswers()
	card, err := BuildCard(Intake{Answers: answers})
	require.NoError(t, err)
	assert.Equal(t, 2.3, card.Metrics.WaterL) // 70 * 0.033

	answers["activity_level"] = "very active"
	card, err = BuildCard(Intake{Answers: answers})
	require.NoError(t, err)
	assert.Equal(t, 2.8, card.Metrics.WaterL) // 70 * 0.04
}

func TestBuildCardRejectsInvalidIntake(t *testing.T) {
	for _, bad := range []map[string]string{
		nil,
		{"age": "0", "weight_kg": "70", "height_cm": "175"},
		{"age": "30", "weight_kg": "-1", "height_cm": "175"},
		{"age": "30", "weight_kg": "70", "height_cm": "abc"},
	} {
		_, err := BuildCard(Intake{Answers: bad})
		assert.Error(t, err)
	}
}

func TestConstraintParsing(t *testing.T) {
	answers := baseAnswers()
	answers["allergies"] = "Shellfish, Peanuts"
	answers["intolerances"] = "lactose"
	answers["dislikes"] = "cilantro"

	card, err := BuildCard(Intake{Answers: answers})
	require.NoError(t, err)

	require.Len(t, card.Constraints, 4)
	assert.Equal(t, Constraint{Keyword: "shellfish", Severity: SeverityAllergy}, card.Constraints[0])
	assert.Equal(t, Constraint{Keyword: "lactose", Severity: SeverityIntolerance}, card.Constraints[2])
	assert.Equal(t, []string{"shellfish", "peanuts", "lactose"}, card.AllergenKeywords())
}

func TestBiomarkerFlags(t *testing.T) {
	intake := Intake{
		Answers: baseAnswers(),
		Labs: &LabPanel{Results: []LabResult{
			{Marker: "Vitamin D (25-OH)", Status: "deficient"},
			{Marker: "Fasting Glucose", Status: "high"},
			{Marker: "Ferritin", Status: "low", Critical: true},
			{Marker: "HDL", Status: "optimal"},
		}},
	}

	card, err := BuildCard(intake)
	require.NoError(t, err)
	require.Len(t, card.Flags, 3, "optimal markers must not be flagged")

	byMarker := map[string]BiomarkerFlag{}
	for _, f := range card.Flags {
		byMarker[f.Marker] = f
	}

	assert.Equal(t, "high", byMarker["Vitamin D (25-OH)"].Priority)
	assert.NotEmpty(t, byMarker["Vitamin D (25-OH)"].Supplements)
	assert.Equal(t, "high", byMarker["Fasting Glucose"].Priority)
	assert.Equal(t, "critical", byMarker["Ferritin"].Priority)
	assert.True(t, card.Availability.HasLabs)
	assert.Equal(t, "attention", card.Metrics.MetabolicScore)
}

func TestTelemetryMergePriority(t *testing.T) {
	hrvWhoop, hrvOura := 62.0, 55.0
	recWhoop, recOura := 70.0, 90.0
	sleepOura := 85.0

	intake := Intake{
		Answers: baseAnswers(),
		Telemetry: &Telemetry{Providers: map[string]ProviderMetrics{
			"whoop": {HRV: &hrvWhoop, RecoveryScore: &recWhoop},
			"oura":  {HRV: &hrvOura, RecoveryScore: &recOura, SleepScore: &sleepOura},
		}},
	}

	card, err := BuildCard(intake)
	require.NoError(t, err)
	require.True(t, card.Availability.HasTelemetry)

	// HRV comes from whoop (higher priority), sleep from oura (only source).
	var hrvInsight *EcosystemInsight
	for i := range card.Insights {
		if card.Insights[i].Value == hrvWhoop {
			hrvInsight = &card.Insights[i]
		}
	}
	require.NotNil(t, hrvInsight, "expected an HRV insight from whoop")
	assert.Equal(t, "whoop", hrvInsight.Source)

	// Combined recovery is the average of the present scores.
	assert.Equal(t, 80.0, card.Metrics.RecoveryScore)
	assert.Equal(t, "good", card.Metrics.SleepScore)
}
