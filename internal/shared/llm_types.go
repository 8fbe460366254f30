package shared

import (
	"strings"
	"time"
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// StageMeta holds operational metadata for one pipeline stage execution.
type StageMeta struct {
	StageName    string
	Usage        TokenUsage
	Latency      time.Duration
	FallbackUsed bool
	CostEstimate float64

	// DefaultedFields lists response fields the stage's normalizer had
	// to fill from profile-derived defaults.
	DefaultedFields []string
}

// Approximate USD rates per 1K tokens, keyed by model name substring.
// Unknown models fall through to the flat default rate.
var costPer1K = []struct {
	model      string
	prompt     float64
	completion float64
}{
	{"gemini-1.5-pro", 0.00125, 0.005},
	{"gemini", 0.000075, 0.0003},
	{"llama", 0.00059, 0.00079},
}

const defaultCostPer1K = 0.0005

// EstimateCost converts token usage into an approximate USD cost.
func EstimateCost(u TokenUsage) float64 {
	for _, r := range costPer1K {
		if strings.Contains(u.Model, r.model) {
			return float64(u.PromptTokens)/1000*r.prompt +
				float64(u.CompletionTokens)/1000*r.completion
		}
	}
	return float64(u.PromptTokens+u.CompletionTokens) / 1000 * defaultCostPer1K
}
