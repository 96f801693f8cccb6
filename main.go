package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rpupo63/round/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type contextKey string

const cfgKey contextKey = "cfg"

var rootCmd = &cobra.Command{
	Use:   "round",
	Short: "Round issue tracker server and client",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		cfg, err := loadConfig(cmd.Context(), envFile)
		if err != nil {
			return err
		}
		setupLogging(cfg)
		cmd.SetContext(context.WithValue(cmd.Context(), cfgKey, cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("env-file", "", "Load environment variables from this file instead of .env")
	rootCmd.SilenceUsage = true
	rootCmd.AddCommand(serveCmd, migrateCmd, generateCmd, issueCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func getCfg(cmd *cobra.Command) map[string]string {
	cfg, _ := cmd.Context().Value(cfgKey).(map[string]string)
	return cfg
}

// loadConfig reads .env, snapshots the environment and, when
// AWS_SSM_PARAMETER_PATH is set, overlays parameters from SSM.
func loadConfig(ctx context.Context, envFile string) (map[string]string, error) {
	if envFile != "" {
		config.LoadDotEnv(envFile)
	} else {
		config.LoadDotEnv()
	}
	cfg := config.New()

	if prefix := config.GetString(cfg, "AWS_SSM_PARAMETER_PATH", ""); prefix != "" {
		client, err := config.NewSSMClient(ctx)
		if err != nil {
			return nil, err
		}
		n, err := config.LoadSSM(ctx, client, cfg, prefix)
		if err != nil {
			return nil, err
		}
		log.Info().Int("parameters", n).Str("path", prefix).Msg("Loaded SSM parameters")
	}
	return cfg, nil
}

// setupLogging applies LOG_LEVEL and LOG_FORMAT to the global logger.
func setupLogging(cfg map[string]string) {
	level, err := zerolog.ParseLevel(strings.ToLower(config.GetString(cfg, "LOG_LEVEL", "info")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if config.GetString(cfg, "LOG_FORMAT", "console") == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
