package cmd

import (
	"github.com/spf13/cobra"

	"samplevault/internal/store"
)

func newTranslateCmd() *cobra.Command {
	var files []string
	var folders []string
	var targetLang string

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate file names",
		Long: `Send file names to the translation backend and record the sanitized
results. Nothing is renamed on disk; 'samplevault apply' does that in a
separate step.

Examples:
  samplevault translate
  samplevault translate --to en --folders 采样/鼓`,
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
			return createAndRun(cmd.Context(), cmd, e, store.JobTypeTranslate, sel, params)
		},
	}

	cmd.Flags().StringVar(&targetLang, "to", "", "Target language (default from config)")
	cmd.Flags().StringSliceVar(&files, "files", nil, "Limit to specific files (repeatable)")
	cmd.Flags().StringSliceVar(&folders, "folders", nil, "Limit to folder subtrees (repeatable)")
	return cmd
}
