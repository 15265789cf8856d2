package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"samplevault/internal/errors"
	"samplevault/internal/runner"
	"samplevault/internal/store"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List and manage batch jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listJobs(cmd)
		},
	}
	cmd.AddCommand(newJobsResumeCmd())
	return cmd
}

func listJobs(cmd *cobra.Command) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	stats, err := e.store.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Library: %d files, %d indexed, %d tagged, %d translated, %d renamed\n\n",
		stats.Files, stats.Indexed, stats.Tagged, stats.Translated, stats.Renamed)

	jobs, err := e.store.ListJobs(ctx, "")
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No jobs yet")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tPROGRESS\tFAILED\tCREATED\tERROR")
	for _, job := range jobs {
		progress := fmt.Sprintf("%d/%d", job.Processed+job.Failed, job.Total)
		if job.Total == 0 {
			progress = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			job.ID, job.Type, job.Status, progress, job.Failed,
			job.CreatedAt.Format("2006-01-02 15:04"), truncate(job.Error, 40))
	}
	return w.Flush()
}

// truncate caps s at max runes, not bytes, so multibyte names in error
// messages are never cut mid-rune.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

func newJobsResumeCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "resume [job-id...]",
		Short: "Resume paused or failed jobs from their checkpoints",
		Long: `Resume one or more jobs from their last committed checkpoint.

A single job runs in the foreground with progress output. Multiple jobs,
or --all, run concurrently on the configured number of slots.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New(errors.ErrCodeInvalidInput,
					"--all and explicit job ids are mutually exclusive", nil)
			}
			if !all && len(args) == 0 {
				return errors.New(errors.ErrCodeInvalidInput,
					"pass one or more job ids, or --all", nil)
			}

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			jobs, err := resumableJobs(cmd, e, args, all)
			if err != nil {
				return err
			}
			switch len(jobs) {
			case 0:
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to resume")
				return nil
			case 1:
				job := jobs[0]
				fmt.Fprintf(cmd.OutOrStdout(), "Resuming %s job %d from checkpoint %d\n",
					job.Type, job.ID, job.Checkpoint)
				return runExisting(ctx, cmd, e, job)
			}
			return resumeConcurrently(cmd, e, jobs)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "resume every paused or failed job")
	return cmd
}

// resumableJobs resolves the resume targets: the explicit ids, or with
// --all every PAUSED and FAILED job, oldest first.
func resumableJobs(cmd *cobra.Command, e *env, args []string, all bool) ([]*store.Job, error) {
	ctx := cmd.Context()
	if all {
		var jobs []*store.Job
		for _, status := range []store.JobStatus{store.StatusPaused, store.StatusFailed} {
			batch, err := e.store.ListJobs(ctx, status)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, batch...)
		}
		// ListJobs returns newest first; resume in creation order.
		for i, j := 0, len(jobs)-1; i < j; i, j = i+1, j-1 {
			jobs[i], jobs[j] = jobs[j], jobs[i]
		}
		return jobs, nil
	}

	jobs := make([]*store.Job, 0, len(args))
	for _, arg := range args {
		jobID, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, errors.New(errors.ErrCodeInvalidInput, "job id must be a number", err)
		}
		job, err := e.store.GetJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.Status == store.StatusDone {
			fmt.Fprintf(cmd.OutOrStdout(), "Job %d is already done\n", jobID)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// resumeConcurrently drives the jobs through the scheduler, bounded by
// the configured slot count. Ctrl-C pauses every running job at its
// next batch boundary.
func resumeConcurrently(cmd *cobra.Command, e *env, jobs []*store.Job) error {
	ctx := cmd.Context()
	sched := runner.NewScheduler(runner.New(e.store, e.cfg.Jobs.BatchSize, nil), e.cfg.Jobs.Slots)
	fmt.Fprintf(cmd.OutOrStdout(), "Resuming %d jobs on %d slots\n", len(jobs), e.cfg.Jobs.Slots)

	for _, job := range jobs {
		w, err := e.buildWorker(job)
		if err != nil {
			return err
		}
		if err := sched.Launch(ctx, job.ID, w); err != nil {
			_ = w.Close()
			return err
		}
	}
	runErrs := sched.Wait()

	for _, job := range jobs {
		final, err := e.store.GetJob(ctx, job.ID)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("Job %d (%s): %s", final.ID, final.Type, final.Status)
		if runErr, ok := runErrs[final.ID]; ok {
			line += ": " + runErr.Error()
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	if len(runErrs) > 0 {
		return errors.New(errors.ErrCodeInternal,
			fmt.Sprintf("%d of %d jobs failed", len(runErrs), len(jobs)), nil)
	}
	return nil
}
