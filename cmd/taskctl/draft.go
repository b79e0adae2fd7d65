package main

import (
	"errors"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"taskmind-backend/internal/ai"
	"taskmind-backend/internal/tasks"
)

var (
	draftName   string
	draftOutput string
	draftTask   bool
)

var draftCmd = &cobra.Command{
	Use:   "draft GOAL...",
	Short: "Draft a task from a free-form goal",
	Long: `Runs the same pipeline as POST /ai/generate-task and prints the draft.
With --task the draft is shown as the task that would be stored.

Exits non-zero with the API failure payload when generation fails.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDraft,
}

func init() {
	draftCmd.Flags().StringVar(&draftName, "name", "", "requester name used in the prompt")
	draftCmd.Flags().StringVarP(&draftOutput, "output", "o", formatJSON, "output format: json or yaml")
	draftCmd.Flags().BoolVar(&draftTask, "task", false, "print the task built from the draft")
}

func runDraft(cmd *cobra.Command, args []string) error {
	goal := strings.TrimSpace(strings.Join(args, " "))
	if goal == "" {
		return errors.New("goal must not be blank")
	}

	src, log, err := loadSource()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	draft, err := newGenerator(src, log).GenerateTaskDraft(ctx, draftName, goal)
	if err != nil {
		printStatus("✗", "generation failed: "+ai.KindOf(err), color.FgRed)
		_ = render(os.Stdout, draftOutput, ai.FailurePayload(err))
		return err
	}

	printStatus("✓", "draft generated", color.FgGreen)
	if draftTask {
		t := tasks.FromDraft(draft, goal)
		return render(os.Stdout, draftOutput, t)
	}
	return render(os.Stdout, draftOutput, draft)
}
