package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Discord gateway
	viper.SetDefault("discord.token", "")
	viper.SetDefault("discord.typing_interval", 8*time.Second)
	viper.SetDefault("discord.queue_size", 64)

	// Gemini
	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("gemini.endpoint", "")
	viper.SetDefault("gemini.model", "gemini-2.5-flash")
	viper.SetDefault("gemini.request_timeout", 90*time.Second)

	// Persona / system instruction
	viper.SetDefault("system_prompt_file", "system_prompt.txt")

	// Dispatcher
	viper.SetDefault("serve.max_concurrency", 3)
}
