package profile

import (
	"fmt"
	"math"
)

// sourcePriority orders telemetry providers for per-metric fallback:
// the first provider reporting a metric wins.
var sourcePriority = []string{"whoop", "oura", "garmin", "apple_health", "calendar"}

type mergedTelemetry struct {
	Insights      []EcosystemInsight
	RecoveryScore float64
}

// firstMetric returns the highest-priority provider's value for one metric.
func firstMetric(t *Telemetry, pick func(ProviderMetrics) *float64) (float64, bool) {
	for _, source := range sourcePriority {
		m, ok := t.Providers[source]
		if !ok {
			continue
		}
		if v := pick(m); v != nil {
			return *v, true
		}
	}
	// Providers outside the known priority list are still consulted,
	// in no particular order, so unknown devices are not silently dropped.
	for source, m := range t.Providers {
		if isKnownSource(source) {
			continue
		}
		if v := pick(m); v != nil {
			return *v, true
		}
	}
	return 0, false
}

func firstMetricSource(t *Telemetry, pick func(ProviderMetrics) *float64) (float64, string, bool) {
	for _, source := range sourcePriority {
		m, ok := t.Providers[source]
		if !ok {
			continue
		}
		if v := pick(m); v != nil {
			return *v, source, true
		}
	}
	for source, m := range t.Providers {
		if isKnownSource(source) {
			continue
		}
		if v := pick(m); v != nil {
			return *v, source, true
		}
	}
	return 0, "", false
}

func isKnownSource(source string) bool {
	for _, s := range sourcePriority {
		if s == source {
			return true
		}
	}
	return false
}

// mergeTelemetry folds all provider metrics into source-tagged insights
// and a combined recovery score (the average of whichever recovery-type
// scores are present across providers).
func mergeTelemetry(t *Telemetry) mergedTelemetry {
	var out mergedTelemetry

	addInsight := func(label, unit string, pick func(ProviderMetrics) *float64) {
		if v, source, ok := firstMetricSource(t, pick); ok {
			out.Insights = append(out.Insights, EcosystemInsight{
				Source: source,
				Text:   fmt.Sprintf("%s: %.0f%s", label, v, unit),
				Value:  v,
			})
		}
	}

	addInsight("HRV", " ms", func(m ProviderMetrics) *float64 { return m.HRV })
	addInsight("Resting heart rate", " bpm", func(m ProviderMetrics) *float64 { return m.RestingHR })
	addInsight("Sleep score", "", func(m ProviderMetrics) *float64 { return m.SleepScore })
	addInsight("Strain", "", func(m ProviderMetrics) *float64 { return m.StrainScore })
	addInsight("Meeting load", " h", func(m ProviderMetrics) *float64 { return m.MeetingHours })

	var sum float64
	var n int
	for _, m := range t.Providers {
		if m.RecoveryScore != nil {
			sum += *m.RecoveryScore
			n++
		}
	}
	if n > 0 {
		out.RecoveryScore = math.Round(sum/float64(n)*10) / 10
	}
	return out
}
