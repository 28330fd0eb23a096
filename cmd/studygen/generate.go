package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/studydeck/constants"
	"github.com/joseph-ayodele/studydeck/internal/export"
	"github.com/joseph-ayodele/studydeck/internal/generate"
)

type deckFlags struct {
	file       string
	lang       string
	count      int
	difficulty int
	subject    string
	outline    []string
	xlsx       string
}

func (f *deckFlags) register(cmd *cobra.Command, defaultCount int) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "transcript file, - for stdin (required)")
	cmd.Flags().StringVar(&f.lang, "lang", "en", "output language (en, fr)")
	cmd.Flags().IntVarP(&f.count, "count", "n", defaultCount, "number of items to generate")
	cmd.Flags().IntVarP(&f.difficulty, "difficulty", "d", 3, "difficulty level 1-5")
	cmd.Flags().StringVar(&f.subject, "subject", "", "course subject; the transcript is analyzed when empty")
	cmd.Flags().StringSliceVar(&f.outline, "outline", nil, "course outline topics")
	cmd.Flags().StringVar(&f.xlsx, "xlsx", "", "also write the deck to this XLSX file")
	_ = cmd.MarkFlagRequired("file")
}

func (a *app) analyzeCmd() *cobra.Command {
	var file, lang string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Detect the subject and outline of a transcript",
		RunE: func(cmd *cobra.Command, _ []string) error {
			transcript, err := readTranscript(file)
			if err != nil {
				return err
			}
			out, err := a.generator().Analyze(cmd.Context(), transcript, constants.ParseLanguage(lang))
			if err != nil {
				return err
			}
			return a.printJSON(out)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "transcript file, - for stdin (required)")
	cmd.Flags().StringVar(&lang, "lang", "en", "output language (en, fr)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) flashcardsCmd() *cobra.Command {
	var f deckFlags
	cmd := &cobra.Command{
		Use:   "flashcards",
		Short: "Generate flashcards from a transcript",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			gen := a.generator()
			transcript, course, err := a.courseFor(ctx, gen, f)
			if err != nil {
				return err
			}
			set, err := gen.GenerateFlashcards(ctx, generate.FlashcardRequest{
				Course:     course,
				Transcript: transcript,
				Count:      f.count,
				Difficulty: f.difficulty,
				Language:   constants.ParseLanguage(f.lang),
			}, a.progress)
			if err != nil {
				return err
			}
			a.reportMeta(set.Meta)
			if f.xlsx != "" {
				b, err := export.NewService(a.logger).FlashcardsXLSX(set.Flashcards)
				if err != nil {
					return err
				}
				if err := writeFile(f.xlsx, b); err != nil {
					return err
				}
			}
			return a.printJSON(set)
		},
	}
	f.register(cmd, 10)
	return cmd
}

func (a *app) mcqsCmd() *cobra.Command {
	var f deckFlags
	cmd := &cobra.Command{
		Use:   "mcqs",
		Short: "Generate multiple-choice questions from a transcript",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			gen := a.generator()
			transcript, course, err := a.courseFor(ctx, gen, f)
			if err != nil {
				return err
			}
			set, err := gen.GenerateMCQs(ctx, generate.MCQRequest{
				Course:     course,
				Transcript: transcript,
				Count:      f.count,
				Difficulty: f.difficulty,
				Language:   constants.ParseLanguage(f.lang),
			}, a.progress)
			if err != nil {
				return err
			}
			a.reportMeta(set.Meta)
			if f.xlsx != "" {
				b, err := export.NewService(a.logger).MCQsXLSX(set.MCQs)
				if err != nil {
					return err
				}
				if err := writeFile(f.xlsx, b); err != nil {
					return err
				}
			}
			return a.printJSON(set)
		},
	}
	f.register(cmd, 10)
	return cmd
}

// courseFor reads the transcript and returns the course context, analyzing the transcript
// when no subject was given.
func (a *app) courseFor(ctx context.Context, gen *generate.Service, f deckFlags) (string, generate.CourseData, error) {
	transcript, err := readTranscript(f.file)
	if err != nil {
		return "", generate.CourseData{}, err
	}
	if f.subject != "" {
		return transcript, generate.CourseData{Subject: f.subject, Outline: f.outline}, nil
	}
	fmt.Fprintln(a.stderr, "analyzing transcript...")
	course, err := gen.Analyze(ctx, transcript, constants.ParseLanguage(f.lang))
	if err != nil {
		return "", generate.CourseData{}, fmt.Errorf("analyze transcript: %w", err)
	}
	fmt.Fprintf(a.stderr, "subject: %s\n", course.Subject)
	return transcript, course, nil
}

func (a *app) reportMeta(m generate.GenerationMeta) {
	fmt.Fprintf(a.stderr, "delivered %d of %d (%d/%d batches)\n", m.Delivered, m.Requested, m.BatchesSucceeded, m.Batches)
	if m.Truncated {
		fmt.Fprintln(a.stderr, "warning: result is partial")
	}
}

func writeFile(path string, b []byte) error {
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
