package cmd

import (
	"github.com/spf13/cobra"

	"samplevault/internal/store"
)

func newApplyCmd() *cobra.Command {
	var files []string
	var folders []string
	var targetLang string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Rename files to their translated names",
		Long: `Rename library files on disk to the translated names a previous
translate job recorded, and update their library rows to the new paths.
Files without a recorded translation fail individually; the job keeps
going.

Examples:
  samplevault apply
  samplevault apply --folders 采样/鼓`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			sel, err := selectionFromFlags(files, folders)
			if err != nil {
				return err
			}
			if targetLang == "" {
				targetLang = e.cfg.Translation.TargetLang
			}
			params := jobParams{TargetLang: targetLang}
			return createAndRun(cmd.Context(), cmd, e, store.JobTypeApply, sel, params)
		},
	}

	cmd.Flags().StringVar(&targetLang, "to", "", "Translation generation to apply (default from config)")
	cmd.Flags().StringSliceVar(&files, "files", nil, "Limit to specific files (repeatable)")
	cmd.Flags().StringSliceVar(&folders, "folders", nil, "Limit to folder subtrees (repeatable)")
	return cmd
}
