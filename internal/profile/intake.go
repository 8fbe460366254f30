package profile

// Intake is the raw client input for one plan-generation run: an open
// key-value bag of onboarding answers plus optional lab and telemetry data.
type Intake struct {
	Answers   map[string]string `json:"answers"`
	Labs      *LabPanel         `json:"labs,omitempty"`
	Telemetry *Telemetry        `json:"telemetry,omitempty"`
}

// LabPanel is an optional structured lab-panel document.
type LabPanel struct {
	CollectedAt string      `json:"collected_at,omitempty"`
	Results     []LabResult `json:"results"`
}

// LabResult is a single lab marker reading.
type LabResult struct {
	Marker   string  `json:"marker"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit,omitempty"`
	Status   string  `json:"status"` // optimal, borderline, low, high, deficient
	Critical bool    `json:"critical,omitempty"`
}

// Telemetry is an optional bag of wearable/calendar metrics keyed by provider.
type Telemetry struct {
	Providers map[string]ProviderMetrics `json:"providers"`
}

// ProviderMetrics holds the metrics one device or calendar source reports.
// Nil fields mean the source does not report that metric.
type ProviderMetrics struct {
	HRV           *float64 `json:"hrv,omitempty"`
	RestingHR     *float64 `json:"resting_hr,omitempty"`
	SleepScore    *float64 `json:"sleep_score,omitempty"`
	RecoveryScore *float64 `json:"recovery_score,omitempty"`
	StrainScore   *float64 `json:"strain_score,omitempty"`
	MeetingHours  *float64 `json:"meeting_hours,omitempty"`
}
