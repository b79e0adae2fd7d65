package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"taskmind-backend/internal/ai"
)

var modelsOutput string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models visible to the configured credential",
	RunE:  runModels,
}

func init() {
	modelsCmd.Flags().StringVarP(&modelsOutput, "output", "o", formatJSON, "output format: json or yaml")
}

func runModels(cmd *cobra.Command, args []string) error {
	src, log, err := loadSource()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), src.Config().GeminiTimeout)
	defer cancel()

	catalog, err := newGenerator(src, log).ListModels(ctx)
	if err != nil {
		printStatus("✗", "model listing failed", color.FgRed)
		_ = render(os.Stdout, modelsOutput, ai.FailurePayload(err))
		return err
	}
	if catalog.Error != "" {
		printStatus("⚠", fmt.Sprintf("listing refused: %s", catalog.Error), color.FgYellow)
	} else {
		printStatus("✓", fmt.Sprintf("%d models", len(catalog.Models)), color.FgGreen)
	}
	return render(os.Stdout, modelsOutput, catalog)
}
