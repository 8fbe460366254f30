// Package pipeline orchestrates a full plan-generation run: it builds
// the profile card, fans the independent stages out, drives the meal
// path chain, assembles the final plan and validates it. A run only
// fails for configuration problems; every stage-level failure is
// absorbed by that stage's fallback.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ai-wellness-planner/internal/corpus"
	"ai-wellness-planner/internal/llm"
	"ai-wellness-planner/internal/matching"
	"ai-wellness-planner/internal/plan"
	"ai-wellness-planner/internal/profile"
	"ai-wellness-planner/internal/shared"
	"ai-wellness-planner/internal/stages"
)

// StageMatching names the deterministic meal-matching pass in run
// metadata, alongside the generator stage names.
const StageMatching = "MealMatching"

const defaultStageTimeout = 60 * time.Second

// ConfigError marks the only error class that aborts a run: the input
// or the environment is unusable, so no fallback can help.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// StageRecorder persists per-stage telemetry. Recording failures are
// logged and never affect the run.
type StageRecorder interface {
	Record(ctx context.Context, runID string, meta shared.StageMeta) error
}

// Engine wires the profile coordinator, the candidate corpus and the
// stage instances into a single entry point.
type Engine struct {
	corpus  *corpus.Cache
	gen     llm.TextGenerator
	logger  *zap.Logger
	metrics StageRecorder

	matchOpts    matching.Options
	stageTimeout time.Duration
}

// Option adjusts engine construction.
type Option func(*Engine)

// WithMetrics attaches a telemetry sink for per-stage metadata.
func WithMetrics(rec StageRecorder) Option {
	return func(e *Engine) { e.metrics = rec }
}

// WithStageTimeout bounds each external stage call. A stage that runs
// past the deadline settles via its fallback; siblings are unaffected.
func WithStageTimeout(d time.Duration) Option {
	return func(e *Engine) { e.stageTimeout = d }
}

// WithMatchOptions overrides the deterministic matcher's defaults.
func WithMatchOptions(opts matching.Options) Option {
	return func(e *Engine) { e.matchOpts = opts }
}

func NewEngine(cache *corpus.Cache, gen llm.TextGenerator, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		corpus:       cache,
		gen:          gen,
		logger:       logger,
		stageTimeout: defaultStageTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// runStage bounds a single stage call with the per-stage timeout. The
// generator errors out once the deadline passes and the stage settles
// via its fallback, so the bound never aborts the run.
func runStage[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, shared.StageMeta)) (T, shared.StageMeta) {
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(sctx)
}

// GeneratePlan runs the full pipeline for one intake. It returns a
// schema-complete plan and the run's metadata, or a *ConfigError when
// the intake or the corpus is unusable.
func (e *Engine) GeneratePlan(ctx context.Context, intake profile.Intake) (*plan.FinalPlan, *plan.RunMetadata, error) {
	runID := uuid.NewString()
	log := e.logger.With(zap.String("run_id", runID))
	started := time.Now()

	card, err := profile.BuildCard(intake)
	if err != nil {
		return nil, nil, &ConfigError{Reason: "invalid intake", Err: err}
	}

	snap, err := e.corpus.Snapshot(ctx)
	if err != nil {
		return nil, nil, &ConfigError{Reason: "candidate corpus unavailable", Err: err}
	}
	if snap.Count() == 0 {
		return nil, nil, &ConfigError{Reason: "candidate corpus is empty"}
	}

	log.Info("starting plan generation",
		zap.String("goal", card.Goal),
		zap.Int("corpus_candidates", snap.Count()),
		zap.Int("biomarker_flags", len(card.Flags)))

	var (
		framework plan.NutritionFramework
		fwMeta    shared.StageMeta

		biomarkers plan.BiomarkerAnalysis
		bioMeta    shared.StageMeta

		lifestyle plan.LifestyleProtocols
		lifeMeta  shared.StageMeta

		micro     plan.MicronutrientPlan
		microMeta shared.StageMeta

		meals     plan.MealPlanDoc
		mealMetas []shared.StageMeta

		enrichment plan.Enrichment
		enrMeta    shared.StageMeta
	)

	// Dependency graph: framework, biomarkers and lifestyle only need
	// the card and run in parallel. Micronutrients waits for the
	// biomarker analysis; meals waits for framework and biomarkers;
	// enrichment waits for meals. Stages never error and never cancel
	// their siblings, so a plain group is joined rather than a
	// cancelling one.
	fwDone := make(chan struct{})
	bioDone := make(chan struct{})
	mealsDone := make(chan struct{})

	var g errgroup.Group
	g.Go(func() error {
		defer close(fwDone)
		framework, fwMeta = runStage(ctx, e.stageTimeout, func(sctx context.Context) (plan.NutritionFramework, shared.StageMeta) {
			return stages.RunFramework(sctx, e.gen, card)
		})
		return nil
	})
	g.Go(func() error {
		defer close(bioDone)
		biomarkers, bioMeta = runStage(ctx, e.stageTimeout, func(sctx context.Context) (plan.BiomarkerAnalysis, shared.StageMeta) {
			return stages.RunBiomarkers(sctx, e.gen, card)
		})
		return nil
	})
	g.Go(func() error {
		lifestyle, lifeMeta = runStage(ctx, e.stageTimeout, func(sctx context.Context) (plan.LifestyleProtocols, shared.StageMeta) {
			return stages.RunLifestyle(sctx, e.gen, card)
		})
		return nil
	})
	g.Go(func() error {
		<-bioDone
		micro, microMeta = runStage(ctx, e.stageTimeout, func(sctx context.Context) (plan.MicronutrientPlan, shared.StageMeta) {
			return stages.RunMicronutrients(sctx, e.gen, card, biomarkers)
		})
		return nil
	})
	g.Go(func() error {
		defer close(mealsDone)
		<-fwDone
		<-bioDone
		meals, mealMetas = e.runMealChain(ctx, log, card, snap, framework, biomarkers)
		return nil
	})
	g.Go(func() error {
		<-mealsDone
		enrichment, enrMeta = runStage(ctx, e.stageTimeout, func(sctx context.Context) (plan.Enrichment, shared.StageMeta) {
			return stages.RunEnrichment(sctx, e.gen, card, meals)
		})
		return nil
	})
	_ = g.Wait()

	metas := []shared.StageMeta{fwMeta, bioMeta, lifeMeta}
	metas = append(metas, mealMetas...)
	metas = append(metas, microMeta, enrMeta)

	fallbacks := 0
	for _, m := range metas {
		if m.FallbackUsed {
			fallbacks++
		}
	}

	assembled, asmMeta := runStage(ctx, e.stageTimeout, func(sctx context.Context) (*plan.FinalPlan, shared.StageMeta) {
		return stages.RunAssembly(sctx, e.gen, card, stages.AssemblyInput{
			Framework:      framework,
			Biomarkers:     biomarkers,
			Lifestyle:      lifestyle,
			Meals:          meals,
			Micronutrients: micro,
			Enrichment:     enrichment,
			FallbackCount:  fallbacks,
		})
	})
	metas = append(metas, asmMeta)

	final, report := plan.Validate(card, assembled)

	meta := &plan.RunMetadata{RunID: runID, Stages: metas, Validator: report}
	e.record(ctx, log, runID, metas)

	log.Info("plan generation finished",
		zap.Duration("elapsed", time.Since(started)),
		zap.String("meal_source", final.Meals.Source),
		zap.Int("fallbacks", meta.FallbackCount()),
		zap.Float64("cost_estimate", meta.TotalCost()),
		zap.Float64("confidence", final.Confidence),
		zap.Strings("fixed_fields", report.FixedFields))

	return final, meta, nil
}

// runMealChain drives the meal path order: deterministic matching
// first, the generative path when the corpus is too thin, relaxed
// matching when the generated plan fails its own shape check, and the
// templated skeleton as the terminal step. Every attempted path leaves
// its own metadata entry.
func (e *Engine) runMealChain(
	ctx context.Context,
	log *zap.Logger,
	card *profile.ProfileCard,
	snap *corpus.Snapshot,
	framework plan.NutritionFramework,
	biomarkers plan.BiomarkerAnalysis,
) (plan.MealPlanDoc, []shared.StageMeta) {
	start := time.Now()
	matchMeta := shared.StageMeta{StageName: StageMatching}

	doc, err := matching.Select(card, snap, e.matchOpts)
	matchMeta.Latency = time.Since(start)
	if err == nil {
		return *doc, []shared.StageMeta{matchMeta}
	}
	if errors.Is(err, matching.ErrInsufficientMatch) {
		log.Info("corpus too thin for strict matching, switching to generative path", zap.Error(err))
	} else {
		log.Warn("meal matching failed", zap.Error(err))
	}
	matchMeta.FallbackUsed = true

	sctx, cancel := context.WithTimeout(ctx, e.stageTimeout)
	defer cancel()
	generated, genMeta, genErr := stages.RunGeneratedMeals(sctx, e.gen, card, framework, biomarkers)
	if genErr == nil {
		return generated, []shared.StageMeta{matchMeta, genMeta}
	}
	log.Warn("generated meal plan rejected", zap.Error(genErr))
	genMeta.FallbackUsed = true

	relaxed, relErr := matching.Select(card, snap, matching.Options{MinPerSlot: 1})
	if relErr == nil {
		log.Info("relaxed matching produced a plan")
		return *relaxed, []shared.StageMeta{matchMeta, genMeta}
	}

	log.Warn("all meal paths exhausted, using templated skeleton", zap.Error(relErr))
	return plan.FallbackMealSkeleton(card), []shared.StageMeta{matchMeta, genMeta}
}

func (e *Engine) record(ctx context.Context, log *zap.Logger, runID string, metas []shared.StageMeta) {
	if e.metrics == nil {
		return
	}
	for _, m := range metas {
		if err := e.metrics.Record(ctx, runID, m); err != nil {
			log.Warn("failed to record stage metrics",
				zap.String("stage", m.StageName), zap.Error(err))
		}
	}
}
