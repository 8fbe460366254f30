package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"ai-wellness-planner/internal/corpus"
	"ai-wellness-planner/internal/database"
	"ai-wellness-planner/internal/library"
	"ai-wellness-planner/internal/llm"
)

type mockLibrary struct {
	entries []library.Entry
	err     error
}

func (m *mockLibrary) FetchEntries(ctx context.Context) ([]library.Entry, error) {
	return m.entries, m.err
}

func (m *mockLibrary) PublishPlan(ctx context.Context, title, html string, publish bool) (*library.Entry, error) {
	return nil, errors.New("not implemented")
}

type mockGenerator struct {
	content string
	err     error
	calls   int
}

func (m *mockGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.calls++
	return llm.ContentResponse{Content: m.content}, m.err
}

const candidateJSON = `{
	"title": "Grilled Salmon with Quinoa",
	"meal_type": "dinner",
	"nutrients": {"calories": 650, "protein_g": 45, "carbs_g": 48, "fat_g": 28, "fiber_g": 6, "nutrient_density": 8.5, "satiety_index": 8.0, "glycemic_index": 40},
	"ingredients": ["salmon", "quinoa", "olive oil", "lemon"],
	"allergens": ["fish"],
	"diet_tags": ["mediterranean", "high-protein"],
	"goal_tags": ["heart-health"],
	"relevance": [{"marker": "omega-3", "direction": "raise", "impact": 3.0}],
	"prep_time": "25 mins",
	"servings": "2 people"
}`

func newTestRepo(t *testing.T) *corpus.Repository {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return corpus.NewRepository(db.SQL)
}

func TestExtractCandidate(t *testing.T) {
	entry := library.Entry{
		ID:        "e1",
		Title:     "Salmon",
		HTML:      `<h1>Grilled Salmon</h1><script>track()</script><p>A heart-healthy dinner.</p>`,
		UpdatedAt: "2026-05-27T10:00:00Z",
	}

	result, err := ExtractCandidate(context.Background(), &mockGenerator{content: candidateJSON}, entry)
	if err != nil {
		t.Fatalf("ExtractCandidate failed: %v", err)
	}

	cand := result.Candidate
	if cand.ID != "e1" || cand.UpdatedAt != entry.UpdatedAt {
		t.Errorf("Expected entry identity to carry over, got %+v", cand)
	}
	if cand.MealType != corpus.MealDinner {
		t.Errorf("Expected dinner, got %s", cand.MealType)
	}
	if cand.Nutrients.ProteinG != 45 {
		t.Errorf("Expected 45g protein, got %f", cand.Nutrients.ProteinG)
	}
	if len(cand.Relevance) != 1 || cand.Relevance[0].Marker != "omega-3" {
		t.Errorf("Expected biomarker relevance to survive, got %+v", cand.Relevance)
	}
}

func TestExtractCandidateDefaultsBadMealType(t *testing.T) {
	entry := library.Entry{ID: "e1", Title: "Mystery", HTML: "<p>food</p>"}
	gen := &mockGenerator{content: `{"title": "Mystery", "meal_type": "brunch"}`}

	result, err := ExtractCandidate(context.Background(), gen, entry)
	if err != nil {
		t.Fatalf("ExtractCandidate failed: %v", err)
	}
	if result.Candidate.MealType != corpus.MealDinner {
		t.Errorf("Expected unknown meal type to default, got %s", result.Candidate.MealType)
	}
}

func TestRunSavesAndSkips(t *testing.T) {
	repo := newTestRepo(t)
	entries := []library.Entry{
		{ID: "e1", Title: "Salmon", HTML: "<p>salmon dinner</p>", UpdatedAt: "2026-05-27T10:00:00Z"},
	}
	gen := &mockGenerator{content: candidateJSON}
	ing := NewIngestor(&mockLibrary{entries: entries}, gen, repo, nil, zap.NewNop())

	report, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Saved != 1 || report.Skipped != 0 {
		t.Errorf("Expected 1 saved, got %+v", report)
	}

	// A second pass over unchanged entries must not call the generator.
	gen.calls = 0
	report, err = ing.Run(context.Background())
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if report.Skipped != 1 || gen.calls != 0 {
		t.Errorf("Expected the unchanged entry to be skipped, got %+v with %d calls", report, gen.calls)
	}
}

func TestRunContinuesPastBadEntries(t *testing.T) {
	repo := newTestRepo(t)
	entries := []library.Entry{
		{ID: "e1", Title: "Bad", HTML: "<p>x</p>", UpdatedAt: "2026-05-27T10:00:00Z"},
		{ID: "e2", Title: "Good", HTML: "<p>salmon</p>", UpdatedAt: "2026-05-27T11:00:00Z"},
	}

	calls := 0
	gen := &flakyGenerator{&calls}
	ing := NewIngestor(&mockLibrary{entries: entries}, gen, repo, nil, zap.NewNop())

	report, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Failed != 1 || report.Saved != 1 {
		t.Errorf("Expected one failure and one save, got %+v", report)
	}
}

// flakyGenerator fails the first call and answers the rest.
type flakyGenerator struct {
	calls *int
}

func (f *flakyGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	*f.calls++
	if *f.calls == 1 {
		return llm.ContentResponse{}, errors.New("rate limited")
	}
	return llm.ContentResponse{Content: candidateJSON}, nil
}
