// Package stages implements the content-generation stages of the plan
// pipeline. Every stage follows the same contract: render the profile
// card (and any upstream outputs) into a prompt, issue one request to
// the reasoning service, normalize the parsed response field by field,
// and on any failure construct the same-shaped output from deterministic
// profile-derived templates. A stage always returns a schema-complete
// output and never panics past its own boundary.
package stages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"ai-wellness-planner/internal/llm"
	"ai-wellness-planner/internal/shared"
)

// renderPrompt executes an embedded prompt template with the given data.
func renderPrompt(name, promptTemplate string, data any) (string, error) {
	tmpl, err := template.New(name).Parse(promptTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// invoke issues one reasoning-service request and unmarshals the JSON
// response into out. Markdown code fences around the JSON are tolerated.
// Any error (network, timeout, non-JSON content) is returned for the
// caller to convert into its deterministic fallback; invoke never
// retries the external service.
func invoke(ctx context.Context, gen llm.TextGenerator, prompt string, out any) (shared.TokenUsage, error) {
	resp, err := gen.GenerateContent(ctx, prompt)
	if err != nil {
		return resp.Usage, fmt.Errorf("generation failed: %w", err)
	}

	content := stripFences(resp.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return resp.Usage, fmt.Errorf("failed to parse response JSON: %w. Response: %s", err, resp.Content)
	}
	return resp.Usage, nil
}

func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}

// finishMeta stamps latency and cost on a stage's metadata.
func finishMeta(meta shared.StageMeta, start time.Time) shared.StageMeta {
	meta.Latency = time.Since(start)
	meta.CostEstimate = shared.EstimateCost(meta.Usage)
	return meta
}

// takeString accepts a well-typed non-empty value or substitutes the
// default, recording the field name in defaulted.
func takeString(value, fallback, field string, defaulted *[]string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	*defaulted = append(*defaulted, field)
	return fallback
}

// takeList accepts a non-empty list or substitutes the default.
func takeList[T any](value, fallback []T, field string, defaulted *[]string) []T {
	if len(value) > 0 {
		return value
	}
	*defaulted = append(*defaulted, field)
	return fallback
}
