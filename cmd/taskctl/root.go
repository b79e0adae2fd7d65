package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskmind-backend/internal/ai"
	"taskmind-backend/internal/config"
	"taskmind-backend/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "taskctl",
	Short: "Operator tooling for the taskmind backend",
	Long: `taskctl runs the task drafting pipeline and storage chores from the
command line, using the same configuration as the API server.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (defaults to $CONFIG_FILE)")

	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(migrateCmd)
}

// loadSource reads the configuration and builds a console logger quiet
// enough for terminal use.
func loadSource() (*config.Source, *zap.Logger, error) {
	src, err := config.NewSource(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	level := src.Config().LogLevel
	if !strings.EqualFold(level, "debug") {
		level = "error"
	}
	log, err := logging.New(level, "console")
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	src.SetLogger(log)
	return src, log, nil
}

func newGenerator(src *config.Source, log *zap.Logger) *ai.Generator {
	cfg := src.Config()
	client := ai.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiTimeout, nil)
	return ai.NewGenerator(client, ai.ConfigFunc(func() ai.ModelConfig {
		m := src.Model()
		return ai.ModelConfig{APIKey: m.APIKey, Model: m.Model}
	}), log, nil)
}

func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Fprintf(os.Stderr, "%s %s\n", c.Sprint(symbol), message)
}
