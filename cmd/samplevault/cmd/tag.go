package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"samplevault/internal/errors"
	"samplevault/internal/store"
)

func newTagCmd() *cobra.Command {
	var files []string
	var folders []string
	var labels []string
	var threshold float64
	var topK int
	var clear bool

	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Classify files by similarity to label prompts",
		Long: `Score each indexed file against the label prompts and record the
labels whose cosine similarity clears the threshold, best first, capped
at top-k. A file below the threshold for every label is still processed
and ends up with zero tags.

Labels are embedded with the same model as the files and displayed
through the translation backend when one is configured.

--clear drops the recorded tags for the selection instead of running a
job, so a later tag run re-scores the files from scratch.

Examples:
  samplevault tag --labels kick,snare,hat,pad
  samplevault tag --labels "kick drum","snare drum" --threshold 0.3
  samplevault tag --labels kick --folders drums
  samplevault tag --clear --folders drums`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if clear && len(labels) > 0 {
				return errors.New(errors.ErrCodeInvalidParams,
					"--clear and --labels are mutually exclusive", nil)
			}
			if !clear && len(labels) == 0 {
				return errors.New(errors.ErrCodeInvalidParams, "--labels is required", nil)
			}
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			sel, err := selectionFromFlags(files, folders)
			if err != nil {
				return err
			}
			if clear {
				cleared, err := e.store.ClearTags(cmd.Context(), sel)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared tags on %d files\n", cleared)
				return nil
			}
			if threshold == 0 {
				threshold = e.cfg.Jobs.TagThreshold
			}
			if topK == 0 {
				topK = e.cfg.Jobs.TagTopK
			}
			params := jobParams{
				Labels:     labels,
				Threshold:  threshold,
				TopK:       topK,
				TargetLang: e.cfg.Translation.TargetLang,
			}
			return createAndRun(cmd.Context(), cmd, e, store.JobTypeTag, sel, params)
		},
	}

	cmd.Flags().StringSliceVar(&labels, "labels", nil, "Label prompts to classify against (required)")
	cmd.Flags().BoolVar(&clear, "clear", false, "Clear recorded tags for the selection instead of tagging")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum cosine similarity (default from config)")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Maximum tags per file (default from config)")
	cmd.Flags().StringSliceVar(&files, "files", nil, "Limit to specific files (repeatable)")
	cmd.Flags().StringSliceVar(&folders, "folders", nil, "Limit to folder subtrees (repeatable)")
	return cmd
}
