package ingest

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ai-wellness-planner/internal/corpus"
	"ai-wellness-planner/internal/library"
	"ai-wellness-planner/internal/llm"
	"ai-wellness-planner/internal/shared"
)

//go:embed extractor_prompt.md
var extractorPrompt string

// ExtractorResult pairs the normalized candidate with its call metadata.
type ExtractorResult struct {
	Candidate corpus.Candidate
	Meta      shared.StageMeta
}

// ExtractCandidate normalizes a raw library entry into a corpus
// candidate via the text generator.
func ExtractCandidate(ctx context.Context, textGen llm.TextGenerator, entry library.Entry) (ExtractorResult, error) {
	start := time.Now()

	content, err := cleanHTML(entry.HTML)
	if err != nil {
		return ExtractorResult{}, fmt.Errorf("failed to clean entry html: %w", err)
	}

	prompt, err := buildExtractorPrompt(entry.Title, content)
	if err != nil {
		return ExtractorResult{}, err
	}

	llmResp, err := textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return ExtractorResult{}, fmt.Errorf("failed to get LLM response: %w", err)
	}

	meta := shared.StageMeta{
		StageName: "CorpusExtractor",
		Usage:     llmResp.Usage,
		Latency:   time.Since(start),
	}
	meta.CostEstimate = shared.EstimateCost(llmResp.Usage)

	var cand corpus.Candidate
	if err := json.Unmarshal([]byte(llmResp.Content), &cand); err != nil {
		return ExtractorResult{Meta: meta}, fmt.Errorf("failed to unmarshal LLM response: %w", err)
	}

	cand.ID = entry.ID
	cand.UpdatedAt = entry.UpdatedAt
	if cand.Title == "" {
		cand.Title = entry.Title
	}
	if !validMealType(cand.MealType) {
		cand.MealType = corpus.MealDinner
	}

	return ExtractorResult{Candidate: cand, Meta: meta}, nil
}

func validMealType(mt corpus.MealType) bool {
	switch mt {
	case corpus.MealBreakfast, corpus.MealLunch, corpus.MealDinner, corpus.MealSnack:
		return true
	}
	return false
}

// cleanHTML strips markup noise so the prompt spends tokens on the
// entry itself.
func cleanHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	return strings.TrimSpace(doc.Find("body").Text()), nil
}

func buildExtractorPrompt(title, content string) (string, error) {
	tmpl, err := template.New("extractor").Parse(extractorPrompt)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct {
		Title   string
		Content string
	}{Title: title, Content: content})
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}
