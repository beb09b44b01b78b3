package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// botConfig is the explicit configuration struct built once at startup and
// passed into constructors; nothing downstream reads viper directly.
type botConfig struct {
	DiscordToken   string
	TypingInterval time.Duration
	QueueSize      int

	GeminiAPIKey   string
	GeminiEndpoint string
	GeminiModel    string
	RequestTimeout time.Duration

	SystemPrompt string

	MaxConcurrency int
}

// loadBotConfig resolves secrets and the persona file. Any missing piece is
// a startup failure, reported before a connection is attempted.
func loadBotConfig() (*botConfig, error) {
	cfg := &botConfig{
		DiscordToken:   strings.TrimSpace(viper.GetString("discord.token")),
		TypingInterval: viper.GetDuration("discord.typing_interval"),
		QueueSize:      viper.GetInt("discord.queue_size"),
		GeminiAPIKey:   strings.TrimSpace(viper.GetString("gemini.api_key")),
		GeminiEndpoint: strings.TrimSpace(viper.GetString("gemini.endpoint")),
		GeminiModel:    strings.TrimSpace(viper.GetString("gemini.model")),
		RequestTimeout: viper.GetDuration("gemini.request_timeout"),
		MaxConcurrency: viper.GetInt("serve.max_concurrency"),
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 3
	}

	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("discord token is not set (discord.token / GEMBIRD_DISCORD_TOKEN / TOKEN)")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("gemini api key is not set (gemini.api_key / GEMBIRD_GEMINI_API_KEY / GEMINI_API_KEY)")
	}

	promptFile := strings.TrimSpace(viper.GetString("system_prompt_file"))
	if promptFile == "" {
		return nil, fmt.Errorf("system_prompt_file is not set")
	}
	prompt, err := os.ReadFile(promptFile)
	if err != nil {
		return nil, fmt.Errorf("read system prompt file %s: %w", promptFile, err)
	}
	cfg.SystemPrompt = strings.TrimSpace(string(prompt))
	if cfg.SystemPrompt == "" {
		return nil, fmt.Errorf("system prompt file %s is empty", promptFile)
	}

	return cfg, nil
}
