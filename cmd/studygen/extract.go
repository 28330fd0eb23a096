package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/studydeck/constants"
	"github.com/joseph-ayodele/studydeck/internal/async"
	"github.com/joseph-ayodele/studydeck/internal/jobs"
	"github.com/joseph-ayodele/studydeck/internal/pdf"
)

const pollInterval = time.Second

func (a *app) extractCmd() *cobra.Command {
	var pdfPath, output, backend string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract transcript text from a PDF through a job",
		Long: "extract validates the PDF, runs it through the extraction worker in-process and polls the " +
			"job store every second until the job completes or fails.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(pdfPath)
			if err != nil {
				return fmt.Errorf("read pdf: %w", err)
			}

			storeCfg := a.cfg.Store
			if backend != "" {
				storeCfg.Backend = backend
			}
			store := jobs.Open(ctx, storeCfg, a.logger)
			defer store.Close() //nolint:errcheck

			extractor, err := pdf.NewExtractor(a.cfg.PDF, a.logger)
			if err != nil {
				return err
			}
			queue := async.NewWorkerPool(a.logger,
				async.WithWorkers(1),
				async.WithQueueSize(1),
				async.WithProcessTimeout(a.cfg.PDF.ProcessTimeout),
			)
			defer queue.Shutdown(context.WithoutCancel(ctx))

			svc := pdf.NewService(store, queue, pdf.NewWorker(store, extractor, a.logger), a.cfg.Limits.MaxFileSizeBytes(), a.logger)
			id, err := svc.Submit(ctx, pdf.Upload{
				Filename:    filepath.Base(pdfPath),
				ContentType: constants.PDFContentType,
				Data:        data,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stderr, "job %s queued\n", id)

			job, err := a.waitForJob(ctx, svc, id)
			if err != nil {
				return err
			}
			if job.Status == constants.JobStatusFailed {
				return fmt.Errorf("job %s failed: %s", id, job.Error)
			}
			fmt.Fprintf(a.stderr, "extracted %d pages\n", job.Pages)
			if output != "" {
				return writeFile(output, []byte(job.Result))
			}
			_, err = fmt.Fprintln(a.stdout, job.Result)
			return err
		},
	}
	cmd.Flags().StringVarP(&pdfPath, "pdf", "p", "", "path to the PDF file (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the extracted text here instead of stdout")
	cmd.Flags().StringVar(&backend, "store", "", "override JOB_STORE (redis, sqlite, postgres, memory)")
	_ = cmd.MarkFlagRequired("pdf")
	return cmd
}

// waitForJob polls the job until it reaches a terminal status, printing progress changes.
func (a *app) waitForJob(ctx context.Context, svc *pdf.Service, id string) (jobs.Job, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	last := -1
	for {
		job, err := svc.Status(ctx, id)
		if err != nil {
			return jobs.Job{}, fmt.Errorf("poll job %s: %w", id, err)
		}
		if job.Progress != last {
			fmt.Fprintf(a.stderr, "%s %d%%\n", job.Status, job.Progress)
			last = job.Progress
		}
		if job.Status.IsTerminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return jobs.Job{}, errors.Join(fmt.Errorf("stopped waiting for job %s", id), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (a *app) statusCmd() *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "status <jobId>",
		Short: "Print the stored record of an extraction job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storeCfg := a.cfg.Store
			if backend != "" {
				storeCfg.Backend = backend
			}
			store := jobs.Open(cmd.Context(), storeCfg, a.logger)
			defer store.Close() //nolint:errcheck

			job, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("job %s: %w", args[0], err)
			}
			return a.printJSON(job)
		},
	}
	cmd.Flags().StringVar(&backend, "store", "", "override JOB_STORE (redis, sqlite, postgres)")
	return cmd
}
