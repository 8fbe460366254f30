package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"ai-wellness-planner/internal/config"
	"ai-wellness-planner/internal/corpus"
	"ai-wellness-planner/internal/database"
	"ai-wellness-planner/internal/ingest"
	"ai-wellness-planner/internal/library"
	"ai-wellness-planner/internal/llm"
	"ai-wellness-planner/internal/metrics"
	"ai-wellness-planner/internal/pipeline"
	"ai-wellness-planner/internal/plan"
	"ai-wellness-planner/internal/profile"
)

func main() {
	ctx := context.Background()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.NewFromEnv()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	db, err := database.NewDB(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	textGen, closeGen, err := newTextGenerator(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize text generator", zap.Error(err))
	}
	defer closeGen()

	corpusRepo := corpus.NewRepository(db.SQL)
	planRepo := plan.NewRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		generateCmd := flag.NewFlagSet("generate", flag.ExitOnError)
		intakePath := generateCmd.String("intake", "", "Path to the intake JSON file (defaults to stdin)")
		userID := generateCmd.String("user", "cli", "User ID to store the plan under")
		generateCmd.Parse(os.Args[2:])

		intake, err := readIntake(*intakePath)
		if err != nil {
			logger.Fatal("failed to read intake", zap.Error(err))
		}

		cache := corpus.NewCache(corpusRepo)
		engine := pipeline.NewEngine(cache, textGen, logger, pipeline.WithMetrics(metricsStore))

		final, meta, err := engine.GeneratePlan(ctx, intake)
		if err != nil {
			logger.Fatal("plan generation failed", zap.Error(err))
		}

		if _, err := planRepo.Save(ctx, *userID, final); err != nil {
			logger.Warn("failed to save plan", zap.Error(err))
		}

		out, err := json.MarshalIndent(struct {
			Plan     *plan.FinalPlan   `json:"plan"`
			Metadata *plan.RunMetadata `json:"metadata"`
		}{final, meta}, "", "  ")
		if err != nil {
			logger.Fatal("failed to encode plan", zap.Error(err))
		}
		fmt.Println(string(out))

	case "ingest":
		libraryClient := library.NewClient(cfg)
		ingestor := ingest.NewIngestor(libraryClient, textGen, corpusRepo, metricsStore, logger)

		report, err := ingestor.Run(ctx)
		if err != nil {
			logger.Fatal("ingestion failed", zap.Error(err))
		}
		fmt.Printf("Ingestion finished: %d fetched, %d saved, %d skipped, %d failed.\n",
			report.Fetched, report.Saved, report.Skipped, report.Failed)

	case "publish":
		publishCmd := flag.NewFlagSet("publish", flag.ExitOnError)
		userID := publishCmd.String("user", "cli", "User whose latest plan to publish")
		title := publishCmd.String("title", "Weekly Wellness Plan", "Title for the published post")
		draft := publishCmd.Bool("draft", false, "Publish as a draft instead of going live")
		publishCmd.Parse(os.Args[2:])

		stored, err := planRepo.ListRecentByUserID(ctx, *userID, 1)
		if err != nil {
			logger.Fatal("failed to load stored plans", zap.Error(err))
		}
		if len(stored) == 0 {
			logger.Fatal("no stored plan to publish", zap.String("user", *userID))
		}

		var final plan.FinalPlan
		if err := json.Unmarshal(stored[0].PlanData, &final); err != nil {
			logger.Fatal("failed to decode stored plan", zap.Error(err))
		}

		libraryClient := library.NewClient(cfg)
		posted, err := libraryClient.PublishPlan(ctx, *title, plan.RenderHTML(&final), !*draft)
		if err != nil {
			logger.Fatal("failed to publish plan", zap.Error(err))
		}
		fmt.Printf("Published plan #%d for user %s as %q.\n", stored[0].ID, *userID, posted.Title)

	case "metrics":
		metricsCmd := flag.NewFlagSet("metrics", flag.ExitOnError)
		days := metricsCmd.Int("days", 7, "Report usage for the last N days")
		metricsCmd.Parse(os.Args[2:])

		usage, err := metricsStore.GetDailyUsage(ctx, *days)
		if err != nil {
			logger.Fatal("failed to read metrics", zap.Error(err))
		}
		if len(usage) == 0 {
			fmt.Println("No usage recorded.")
		}
		for _, d := range usage {
			fmt.Printf("%s: %d prompt + %d completion tokens, %d stages, %d fallbacks, $%.4f\n",
				d.Date, d.TotalPrompt, d.TotalCompletion, d.TotalStages, d.Fallbacks, d.TotalCost)
		}

		health := metrics.GetSysHealth("data")
		fmt.Printf("RAM: %dMB alloc / %dMB sys | Goroutines: %d | Data: %s\n",
			health.AllocMB, health.SysMB, health.Goroutines, health.DataDiskSize)

	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		affected, err := metricsStore.Cleanup(ctx, *days)
		if err != nil {
			logger.Fatal("cleanup failed", zap.Error(err))
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func newTextGenerator(ctx context.Context, cfg *config.Config) (llm.TextGenerator, func(), error) {
	if cfg.Provider == "groq" {
		return llm.NewGroqClient(cfg), func() {}, nil
	}

	gemini, err := llm.NewGeminiClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if closer, ok := gemini.(llm.Closer); ok {
			closer.Close()
		}
	}
	return gemini, closeFn, nil
}

func readIntake(path string) (profile.Intake, error) {
	var intake profile.Intake

	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return intake, err
	}

	if err := json.Unmarshal(data, &intake); err != nil {
		return intake, fmt.Errorf("failed to parse intake JSON: %w", err)
	}
	return intake, nil
}

func printUsage() {
	fmt.Println("Usage: ai-wellness-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  generate           Generate a plan from an intake JSON (stdin or -intake)")
	fmt.Println("  ingest             Fetch and normalize meal entries from the library")
	fmt.Println("  publish            Push a user's latest stored plan to the library")
	fmt.Println("  metrics            Show recent usage and system health")
	fmt.Println("  metrics-cleanup    Remove old metric records")
}
