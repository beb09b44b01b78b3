package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/quailyquaily/gembird/internal/chunk"
	"github.com/quailyquaily/gembird/internal/dispatch"
	discordgw "github.com/quailyquaily/gembird/internal/gateway/discord"
	"github.com/quailyquaily/gembird/internal/logutil"
	"github.com/quailyquaily/gembird/providers/gemini"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and relay $question commands to Gemini",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}

			if f := flagOrViperString(cmd, "system-prompt-file", "system_prompt_file"); f != "" {
				viper.Set("system_prompt_file", f)
			}
			if m := flagOrViperString(cmd, "gemini-model", "gemini.model"); m != "" {
				viper.Set("gemini.model", m)
			}
			if n := flagOrViperInt(cmd, "max-concurrency", "serve.max_concurrency"); n > 0 {
				viper.Set("serve.max_concurrency", n)
			}

			cfg, err := loadBotConfig()
			if err != nil {
				logger.Error("config_error", "error", err.Error())
				return err
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(sigCtx)
			defer cancel()

			client, err := gemini.New(ctx, gemini.Config{
				APIKey:            cfg.GeminiAPIKey,
				Endpoint:          cfg.GeminiEndpoint,
				Model:             cfg.GeminiModel,
				SystemInstruction: cfg.SystemPrompt,
				RequestTimeout:    cfg.RequestTimeout,
			})
			if err != nil {
				logger.Error("gemini_error", "error", err.Error())
				return err
			}
			defer func() { _ = client.Close() }()

			events := make(chan dispatch.Event, cfg.QueueSize)

			gw, err := discordgw.New(discordgw.Options{
				Token:          cfg.DiscordToken,
				Logger:         logger,
				Events:         events,
				MessageLimit:   chunk.MessageLimit,
				TypingInterval: cfg.TypingInterval,
			})
			if err != nil {
				logger.Error("discord_error", "error", err.Error())
				return err
			}

			d, err := dispatch.New(dispatch.Options{
				Logger:         logger,
				Client:         client,
				Sender:         gw,
				Events:         events,
				MessageLimit:   chunk.MessageLimit,
				MaxConcurrency: cfg.MaxConcurrency,
			})
			if err != nil {
				return err
			}

			logger.Info("gembird_start",
				"model", cfg.GeminiModel,
				"max_concurrency", cfg.MaxConcurrency,
				"message_limit", chunk.MessageLimit,
			)

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				d.Run(ctx)
			}()

			runErr := gw.Run(ctx)

			// Stop intake, then let in-flight generations finish.
			cancel()
			wg.Wait()

			if runErr != nil {
				logger.Error("discord_error", "error", runErr.Error())
				return runErr
			}
			logger.Info("gembird_stop")
			return nil
		},
	}

	cmd.Flags().String("system-prompt-file", "", "Path to the persona/system instruction file.")
	cmd.Flags().String("gemini-model", "", "Gemini model name (defaults to gemini-2.5-flash).")
	cmd.Flags().Int("max-concurrency", 0, "Max concurrent generation calls.")

	return cmd
}
