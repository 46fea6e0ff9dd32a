// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paperviz CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/paperviz/internal/completion"
	"github.com/pdiddy/paperviz/internal/logging"
	"github.com/pdiddy/paperviz/internal/secrets"
	"github.com/pdiddy/paperviz/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the paperviz CLI.
var rootCmd = &cobra.Command{
	Use:   "paperviz",
	Short: "Turn research papers into slides, posters, diagrams, and analyses",
	Long: `paperviz sends paper text or a PDF to a generative model and turns the
streamed answer into a structured document: a slide deck, a poster, a
concept diagram, a citation map, or a free-form analysis.

Subcommands cover single generations, manifest-driven batches, an
interactive research chat, and the local archive of past results.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paperviz.yaml or ~/.config/paperviz/config.yaml)")
	rootCmd.PersistentFlags().String("provider", "", "completion service: gemini or openai")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log encoding: console or json")

	_ = viper.BindPFlag("ai.provider", rootCmd.PersistentFlags().Lookup("provider"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	viper.SetDefault("ai.provider", string(types.ProviderGemini))
	viper.SetDefault("archive.dir", "archive")
	viper.SetDefault("archive.enabled", true)
	viper.SetDefault("archive.max_results", 20)
	viper.SetDefault("batch.parallelism", 4)
	viper.SetDefault("batch.output_dir", "output")
	viper.SetDefault("log.level", "warn")
	viper.SetDefault("log.format", "console")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paperviz")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paperviz"))
		}
	}

	viper.SetEnvPrefix("PAPERVIZ")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig assembles the settings from viper. The API key falls back to
// the provider's entry in .secrets/ and then to the provider's conventional
// environment variable, which .env may set.
func loadConfig() types.Config {
	cfg := types.Config{
		AI: types.AIConfig{
			Provider: types.Provider(viper.GetString("ai.provider")),
			APIKey:   viper.GetString("ai.api_key"),
			BaseURL:  viper.GetString("ai.base_url"),
		},
		Generation: types.GenerationConfig{
			FastModel:       viper.GetString("generation.fast_model"),
			ReasoningModel:  viper.GetString("generation.reasoning_model"),
			ReasoningBudget: viper.GetInt32("generation.reasoning_budget"),
			Timeout:         viper.GetDuration("generation.timeout"),
		},
		Archive: types.ArchiveConfig{
			Dir:        viper.GetString("archive.dir"),
			Enabled:    viper.GetBool("archive.enabled"),
			MaxResults: viper.GetInt("archive.max_results"),
		},
		Batch: types.BatchConfig{
			Parallelism: viper.GetInt("batch.parallelism"),
			OutputDir:   viper.GetString("batch.output_dir"),
		},
		Log: types.LogConfig{
			Level:  viper.GetString("log.level"),
			Format: viper.GetString("log.format"),
		},
	}
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = secrets.APIKey(loadedSecrets, cfg.AI.Provider)
	}
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv(providerEnv(cfg.AI.Provider))
	}
	return cfg
}

// newLogger builds the structured logger for cfg.
func newLogger(cfg types.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Format)
}

// newService connects to the configured completion service.
func newService(ctx context.Context, cfg types.Config, logger *zap.Logger) (completion.Service, error) {
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("no API key for %s: set ai.api_key, PAPERVIZ_AI_API_KEY, or .secrets/%s",
			cfg.AI.Provider, secretName(cfg.AI.Provider))
	}
	return completion.New(ctx, cfg.AI, logger)
}

func providerEnv(p types.Provider) string {
	if p == types.ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return "GEMINI_API_KEY"
}

func secretName(p types.Provider) string {
	if p == types.ProviderOpenAI {
		return secrets.OpenAIAPIKey
	}
	return secrets.GeminiAPIKey
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
