package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/studydeck/internal/common"
	"github.com/joseph-ayodele/studydeck/internal/generate"
	"github.com/joseph-ayodele/studydeck/internal/llm/openai"
)

type app struct {
	cfg     *common.Config
	logger  *slog.Logger
	verbose bool
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{stdout: os.Stdout, stderr: os.Stderr}

	root := &cobra.Command{
		Use:           "studygen",
		Short:         "Generate study decks from course transcripts",
		Long:          "studygen analyzes transcripts, generates flashcards and multiple-choice questions, and extracts transcript text from PDFs.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.cfg = common.LoadConfig()
			level := a.cfg.LogLevel
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(a.logger)
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		a.analyzeCmd(),
		a.flashcardsCmd(),
		a.mcqsCmd(),
		a.extractCmd(),
		a.statusCmd(),
	)
	return root
}

func (a *app) generator() *generate.Service {
	client := openai.NewClient(openai.Config{
		APIKey:  a.cfg.LLM.APIKey,
		BaseURL: a.cfg.LLM.BaseURL,
		Model:   a.cfg.LLM.Model,
		Timeout: a.cfg.LLM.Timeout,
	}, a.logger)
	return generate.NewService(client, a.cfg.Limits, a.logger)
}

func (a *app) progress(batch, total int) {
	fmt.Fprintf(a.stderr, "batch %d/%d\n", batch, total)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readTranscript(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("--file is required")
	}
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return string(b), nil
}
