// Package ingest builds the candidate corpus from the meal library:
// fetch entries, clean their HTML, normalize each one into a candidate
// record via the text generator, and persist the result.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ai-wellness-planner/internal/corpus"
	"ai-wellness-planner/internal/library"
	"ai-wellness-planner/internal/llm"
	"ai-wellness-planner/internal/metrics"
)

// Ingestor drives a full corpus ingestion pass.
type Ingestor struct {
	client  library.Client
	textGen llm.TextGenerator
	repo    *corpus.Repository
	metrics *metrics.Store
	logger  *zap.Logger
}

func NewIngestor(client library.Client, textGen llm.TextGenerator, repo *corpus.Repository, store *metrics.Store, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		client:  client,
		textGen: textGen,
		repo:    repo,
		metrics: store,
		logger:  logger,
	}
}

// Report summarizes one ingestion pass.
type Report struct {
	Fetched int
	Skipped int
	Saved   int
	Failed  int
}

// Run fetches all library entries and normalizes the new or changed
// ones. A single bad entry never aborts the pass.
func (in *Ingestor) Run(ctx context.Context) (Report, error) {
	var report Report

	entries, err := in.client.FetchEntries(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to fetch library entries: %w", err)
	}
	report.Fetched = len(entries)
	in.logger.Info("fetched library entries", zap.Int("count", len(entries)))

	for _, entry := range entries {
		log := in.logger.With(zap.String("entry_id", entry.ID), zap.String("title", entry.Title))

		existing, err := in.repo.Get(ctx, entry.ID)
		if err == nil && existing != nil && existing.UpdatedAt == entry.UpdatedAt {
			report.Skipped++
			log.Debug("entry up to date, skipping")
			continue
		}

		result, err := ExtractCandidate(ctx, in.textGen, entry)
		if result.Meta.StageName != "" && in.metrics != nil {
			if recErr := in.metrics.Record(ctx, "ingest", result.Meta); recErr != nil {
				log.Warn("failed to record extraction metrics", zap.Error(recErr))
			}
		}
		if err != nil {
			report.Failed++
			log.Warn("failed to normalize entry", zap.Error(err))
			continue
		}

		if err := in.repo.Save(ctx, result.Candidate); err != nil {
			report.Failed++
			log.Warn("failed to save candidate", zap.Error(err))
			continue
		}
		report.Saved++
		log.Info("candidate saved", zap.String("meal_type", string(result.Candidate.MealType)))
	}

	return report, nil
}
