package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ai-wellness-planner/internal/config"
	"ai-wellness-planner/internal/corpus"
	"ai-wellness-planner/internal/database"
	"ai-wellness-planner/internal/llm"
	"ai-wellness-planner/internal/metrics"
	"ai-wellness-planner/internal/pipeline"
	"ai-wellness-planner/internal/plan"
	"ai-wellness-planner/internal/telegram"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.NewFromEnv()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	db, err := database.NewDB(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	var textGen llm.TextGenerator
	if cfg.Provider == "groq" {
		textGen = llm.NewGroqClient(cfg)
	} else {
		gemini, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			logger.Fatal("failed to create Gemini client", zap.Error(err))
		}
		textGen = gemini
	}
	defer func() {
		if closer, ok := textGen.(llm.Closer); ok {
			closer.Close()
		}
	}()

	corpusRepo := corpus.NewRepository(db.SQL)
	corpusCache := corpus.NewCache(corpusRepo)
	planRepo := plan.NewRepository(db.SQL)
	sessionRepo := telegram.NewSessionRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)

	engine := pipeline.NewEngine(corpusCache, textGen, logger, pipeline.WithMetrics(metricsStore))

	bot, err := telegram.NewBot(cfg, engine, corpusCache, sessionRepo, planRepo, metricsStore, logger)
	if err != nil {
		logger.Fatal("failed to initialize telegram bot", zap.Error(err))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	bot.RegisterHandlers()

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	go func() {
		logger.Info("telegram bot server listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
