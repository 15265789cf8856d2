package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"samplevault/internal/selection"
	"samplevault/internal/store"
)

// createAndRun creates a job record and runs it in the foreground.
// Cancellation (Ctrl-C) pauses the job; the printed hint tells the user
// how to resume it.
func createAndRun(ctx context.Context, cmd *cobra.Command, e *env,
	typ store.JobType, sel *selection.Selection, params jobParams) error {

	encoded, err := encodeParams(params)
	if err != nil {
		return err
	}
	job, err := e.store.CreateJob(ctx, typ, sel, encoded)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s job %d\n", typ, job.ID)
	return runExisting(ctx, cmd, e, job)
}

func runExisting(ctx context.Context, cmd *cobra.Command, e *env, job *store.Job) error {
	w, err := e.buildWorker(job)
	if err != nil {
		return err
	}
	if err := e.runner().Run(ctx, job.ID, w); err != nil {
		return err
	}

	final, err := e.store.GetJob(ctx, job.ID)
	if err != nil {
		return err
	}
	if final.Status == store.StatusPaused {
		fmt.Fprintf(cmd.OutOrStdout(),
			"Job %d paused at %d/%d. Resume with: samplevault jobs resume %d\n",
			job.ID, final.Processed+final.Failed, final.Total, job.ID)
	}
	return nil
}
