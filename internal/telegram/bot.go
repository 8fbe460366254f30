package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"ai-wellness-planner/internal/config"
	"ai-wellness-planner/internal/corpus"
	"ai-wellness-planner/internal/metrics"
	"ai-wellness-planner/internal/pipeline"
	"ai-wellness-planner/internal/plan"
	"ai-wellness-planner/internal/profile"
)

const helpText = `Send me your details as "key: value" lines, then /plan.

Example:
age: 34
weight_kg: 78
height_cm: 180
gender: male
activity_level: moderate
goal: lose weight
allergies: dairy, shellfish

Commands:
/plan - generate your weekly plan
/reset - start a fresh intake
/metrics - usage report
/reload - refresh the meal corpus`

// Bot wraps the Telegram API around the plan pipeline.
type Bot struct {
	api          *tgbotapi.BotAPI
	engine       *pipeline.Engine
	corpusCache  *corpus.Cache
	sessions     *SessionRepository
	planRepo     *plan.Repository
	metricsStore *metrics.Store
	cfg          *config.Config
	logger       *zap.Logger
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	engine *pipeline.Engine,
	corpusCache *corpus.Cache,
	sessions *SessionRepository,
	planRepo *plan.Repository,
	metricsStore *metrics.Store,
	logger *zap.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	logger.Info("telegram bot authorized", zap.String("account", api.Self.UserName))

	wh, _ := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	logger.Info("webhook set", zap.String("response", resp.Description))

	return &Bot{
		api:          api,
		engine:       engine,
		corpusCache:  corpusCache,
		sessions:     sessions,
		planRepo:     planRepo,
		metricsStore: metricsStore,
		cfg:          cfg,
		logger:       logger,
	}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.logger.Warn("failed to parse update", zap.Error(err))
		return
	}

	if update.Message == nil {
		return
	}

	if update.Message.From.ID != b.cfg.TelegramAllowUserID {
		b.logger.Warn("unauthorized access attempt",
			zap.Int64("user_id", update.Message.From.ID),
			zap.String("username", update.Message.From.UserName))
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	switch {
	case msg.Text == "/start" || msg.Text == "/help":
		b.send(msg.Chat.ID, helpText)
	case msg.Text == "/plan":
		b.handlePlanRequest(msg)
	case msg.Text == "/reset":
		b.handleReset(msg)
	case msg.Text == "/metrics":
		b.handleMetricsCommand(msg.Chat.ID)
	case msg.Text == "/reload":
		b.handleReload(msg)
	default:
		b.handleAnswers(msg)
	}
}

// handleAnswers folds "key: value" lines into the user's intake session.
func (b *Bot) handleAnswers(msg *tgbotapi.Message) {
	answers := parseAnswers(msg.Text)
	if len(answers) == 0 {
		b.send(msg.Chat.ID, "I couldn't read that. Send details as `key: value` lines, or /help for an example.")
		return
	}

	ctx := context.Background()
	merged, err := b.sessions.Merge(ctx, fmt.Sprintf("%d", msg.From.ID), answers)
	if err != nil {
		b.logger.Error("failed to save intake session", zap.Error(err))
		b.send(msg.Chat.ID, "❌ Couldn't save that, please try again.")
		return
	}

	missing := missingEssentials(merged)
	if len(missing) > 0 {
		b.send(msg.Chat.ID, fmt.Sprintf("Noted %d detail(s). Still missing: %s.", len(answers), strings.Join(missing, ", ")))
		return
	}
	b.send(msg.Chat.ID, fmt.Sprintf("Noted %d detail(s). Everything I need is here - send /plan when ready.", len(answers)))
}

func (b *Bot) handleReset(msg *tgbotapi.Message) {
	if err := b.sessions.Clear(context.Background(), fmt.Sprintf("%d", msg.From.ID)); err != nil {
		b.logger.Error("failed to clear intake session", zap.Error(err))
	}
	b.send(msg.Chat.ID, "Intake cleared. Send your details to start over.")
}

func (b *Bot) handlePlanRequest(msg *tgbotapi.Message) {
	statusMsg := tgbotapi.NewMessage(msg.Chat.ID, "🧬 *Building your plan...*\n(Matching meals and assembling protocols)")
	statusMsg.ParseMode = "Markdown"
	sent, err := b.api.Send(statusMsg)
	if err != nil {
		b.logger.Warn("failed to send initial reply", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	userID := fmt.Sprintf("%d", msg.From.ID)
	session, err := b.sessions.Get(ctx, userID)
	if err != nil || session == nil {
		b.edit(msg.Chat.ID, sent.MessageID, "No intake yet. Send your details first, or /help for an example.")
		return
	}

	final, meta, err := b.engine.GeneratePlan(ctx, profile.Intake{Answers: session.Answers})
	if err != nil {
		b.logger.Error("plan generation failed", zap.Error(err))
		safeErr := strings.ReplaceAll(err.Error(), "`", "'")
		b.edit(msg.Chat.ID, sent.MessageID, fmt.Sprintf("❌ *Couldn't generate a plan:*\n```\n%v\n```", safeErr))
		return
	}

	if _, err := b.planRepo.Save(ctx, userID, final); err != nil {
		b.logger.Warn("failed to save plan", zap.String("user_id", userID), zap.Error(err))
	}

	planText, protocolText := formatPlanMarkdownParts(final)
	b.edit(msg.Chat.ID, sent.MessageID, planText)
	b.send(msg.Chat.ID, protocolText)

	b.logger.Info("plan delivered",
		zap.String("run_id", meta.RunID),
		zap.Int("fallbacks", meta.FallbackCount()))
}

// handleReload swaps in a fresh corpus snapshot after an ingestion pass.
func (b *Bot) handleReload(msg *tgbotapi.Message) {
	snap, err := b.corpusCache.Reload(context.Background())
	if err != nil {
		b.logger.Error("corpus reload failed", zap.Error(err))
		b.send(msg.Chat.ID, "❌ Corpus reload failed.")
		return
	}
	b.send(msg.Chat.ID, fmt.Sprintf("🔄 Corpus reloaded: %d candidates (version %s).", snap.Count(), snap.Version))
}

func (b *Bot) handleMetricsCommand(chatID int64) {
	usage, err := b.metricsStore.GetDailyUsage(context.Background(), 7)
	if err != nil {
		b.send(chatID, "❌ Error fetching metrics.")
		return
	}

	health := metrics.GetSysHealth("data")

	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Pipeline Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens, %d stages, %d fallbacks ($%.4f)\n",
			d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalStages, d.Fallbacks, d.TotalCost))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))

	b.send(chatID, sb.String())
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("failed to send message", zap.Error(err))
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = "Markdown"
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Warn("failed to edit message", zap.Error(err))
	}
}

// parseAnswers reads "key: value" or "key=value" lines into intake
// answers. Keys are lowercased with spaces collapsed to underscores.
func parseAnswers(text string) map[string]string {
	answers := map[string]string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "/") {
			continue
		}

		sep := strings.IndexAny(line, ":=")
		if sep <= 0 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(line[:sep]))
		key = strings.ReplaceAll(key, " ", "_")
		value := strings.TrimSpace(line[sep+1:])
		if key == "" || value == "" {
			continue
		}
		answers[key] = value
	}
	return answers
}

func missingEssentials(answers map[string]string) []string {
	var missing []string
	for _, key := range []string{"age", "weight_kg", "height_cm", "goal"} {
		if answers[key] == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

func formatPlanMarkdownParts(p *plan.FinalPlan) (string, string) {
	var pb strings.Builder
	pb.WriteString("📅 *Weekly Wellness Plan*\n\n")
	pb.WriteString(p.Overview)
	pb.WriteString("\n\n")
	if p.Framework.MealTiming != "" {
		pb.WriteString(fmt.Sprintf("⏰ _%s_\n\n", p.Framework.MealTiming))
	}

	for _, day := range p.Meals.Days {
		pb.WriteString(fmt.Sprintf("*%s*\n", day.Day))
		for _, meal := range day.Meals {
			pb.WriteString(fmt.Sprintf("  • _%s_: %s (%.0f kcal)\n", meal.Slot, meal.Name, meal.Calories))
		}
	}

	var sb strings.Builder
	sb.WriteString("🧘 *Protocols & Supplements*\n\n")
	for _, proto := range []plan.Protocol{p.Lifestyle.Sleep, p.Lifestyle.Stress, p.Lifestyle.Movement, p.Lifestyle.Circadian} {
		if proto.Title == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("*%s*\n", proto.Title))
		for _, rec := range proto.Recommendations {
			sb.WriteString(fmt.Sprintf("• %s\n", rec))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("💊 *Supplements*\n")
	for _, s := range p.Micronutrients.Supplements {
		sb.WriteString(fmt.Sprintf("• %s - %s, %s\n", s.Name, s.Dose, s.Timing))
	}

	if len(p.NextSteps) > 0 {
		sb.WriteString("\n➡️ *Next Steps*\n")
		for _, step := range p.NextSteps {
			sb.WriteString(fmt.Sprintf("• %s\n", step))
		}
	}

	return pb.String(), sb.String()
}
