package metrics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ai-wellness-planner/internal/database"
	"ai-wellness-planner/internal/shared"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db.SQL)
}

func TestRecordAndDailyUsage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	metas := []shared.StageMeta{
		{
			StageName:    "NutritionFramework",
			Usage:        shared.TokenUsage{PromptTokens: 900, CompletionTokens: 400, Model: "gemini-1.5-flash"},
			Latency:      800 * time.Millisecond,
			CostEstimate: 0.0002,
		},
		{
			StageName:    "LifestyleProtocols",
			FallbackUsed: true,
			Latency:      50 * time.Millisecond,
		},
	}
	for _, m := range metas {
		if err := store.Record(ctx, "run-1", m); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	usage, err := store.GetDailyUsage(ctx, 7)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(usage) != 1 {
		t.Fatalf("Expected one day of usage, got %d", len(usage))
	}
	day := usage[0]
	if day.TotalStages != 2 {
		t.Errorf("Expected 2 stages, got %d", day.TotalStages)
	}
	if day.TotalPrompt != 900 || day.TotalCompletion != 400 {
		t.Errorf("Unexpected token totals: %+v", day)
	}
	if day.Fallbacks != 1 {
		t.Errorf("Expected 1 fallback, got %d", day.Fallbacks)
	}
}

func TestCleanup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, "run-1", shared.StageMeta{StageName: "MealPlan"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	deleted, err := store.Cleanup(ctx, -1) // threshold in the future
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted row, got %d", deleted)
	}

	usage, err := store.GetDailyUsage(ctx, 7)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(usage) != 0 {
		t.Errorf("Expected no usage after cleanup, got %+v", usage)
	}
}
