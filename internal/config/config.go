package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	// Game server
	GameServerURL string `env:"GAME_SERVER_URL,required"`
	GameAPIKey    string `env:"GAME_API_KEY,required"`
	BotName       string `env:"BOT_NAME" envDefault:"FourMind"`
	Language      string `env:"BOT_LANGUAGE" envDefault:"en"`

	// LLM settings
	LLMProvider           string  `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey          string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL         string  `env:"OPENAI_BASE_URL"`
	AnalysisModel         string  `env:"ANALYSIS_MODEL" envDefault:"gpt-4o-mini"`
	AnalysisTemperature   float32 `env:"ANALYSIS_TEMPERATURE" envDefault:"0.45"`
	GenerationModel       string  `env:"GENERATION_MODEL" envDefault:"gpt-4o-mini"`
	GenerationTemperature float32 `env:"GENERATION_TEMPERATURE" envDefault:"0.70"`
	YandexOAuthToken      string  `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID        string  `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Pacing
	SessionLifetime   time.Duration `env:"SESSION_LIFETIME" envDefault:"20m"`
	ProactivePoll     time.Duration `env:"PROACTIVE_POLL_INTERVAL" envDefault:"4s"`
	EarlySilence      time.Duration `env:"EARLY_SILENCE_THRESHOLD" envDefault:"10s"`
	LateSilence       time.Duration `env:"LATE_SILENCE_THRESHOLD" envDefault:"30s"`
	AnalysisTimeout   time.Duration `env:"ANALYSIS_TIMEOUT" envDefault:"30s"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"30s"`

	// Storage
	PersistChats bool   `env:"PERSIST_CHATS" envDefault:"false"`
	DataDir      string `env:"DATA_DIR" envDefault:"data"`

	// Daily reports (optional)
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	AdminChatID      int64  `env:"ADMIN_CHAT_ID"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
