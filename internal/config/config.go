package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the configuration for the application.
type Config struct {
	LibraryURL        string
	LibraryContentKey string
	LibraryAdminKey   string
	GeminiAPIKey      string
	GroqAPIKey        string

	// Provider selects the text generator used by the pipeline ("gemini" or "groq").
	Provider string

	// DBPath is the SQLite file holding the candidate corpus, run metrics and saved plans.
	DBPath string

	// Telegram Config
	TelegramBotToken    string
	TelegramWebhookURL  string
	TelegramAllowUserID int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	libraryURL := os.Getenv("LIBRARY_API_URL")
	if libraryURL == "" {
		return nil, fmt.Errorf("LIBRARY_API_URL environment variable not set")
	}

	libraryContentKey := os.Getenv("LIBRARY_CONTENT_API_KEY")
	if libraryContentKey == "" {
		return nil, fmt.Errorf("LIBRARY_CONTENT_API_KEY environment variable not set")
	}

	libraryAdminKey := os.Getenv("LIBRARY_ADMIN_API_KEY")
	if libraryAdminKey == "" {
		// Fallback to content key if only one is provided
		libraryAdminKey = libraryContentKey
	}

	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	if geminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	groqAPIKey := os.Getenv("GROQ_API_KEY")
	if groqAPIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY environment variable not set")
	}

	provider := os.Getenv("PLANNER_TEXT_PROVIDER")
	if provider == "" {
		provider = "gemini"
	}
	if provider != "gemini" && provider != "groq" {
		return nil, fmt.Errorf("PLANNER_TEXT_PROVIDER must be \"gemini\" or \"groq\", got %q", provider)
	}

	dbPath := os.Getenv("PLANNER_DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join("data", "planner.db")
	}

	// Telegram Config (Optional for CLI, required for Bot)
	telegramBotToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	telegramWebhookURL := os.Getenv("TELEGRAM_WEBHOOK_URL")
	telegramAllowUserIDStr := os.Getenv("TELEGRAM_ALLOW_USER_ID")
	var telegramAllowUserID int64
	if telegramAllowUserIDStr != "" {
		fmt.Sscanf(telegramAllowUserIDStr, "%d", &telegramAllowUserID)
	}

	return &Config{
		LibraryURL:          libraryURL,
		LibraryContentKey:   libraryContentKey,
		LibraryAdminKey:     libraryAdminKey,
		GeminiAPIKey:        geminiAPIKey,
		GroqAPIKey:          groqAPIKey,
		Provider:            provider,
		DBPath:              dbPath,
		TelegramBotToken:    telegramBotToken,
		TelegramWebhookURL:  telegramWebhookURL,
		TelegramAllowUserID: telegramAllowUserID,
	}, nil
}
