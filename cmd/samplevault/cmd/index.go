package cmd

import (
	"github.com/spf13/cobra"

	"samplevault/internal/store"
)

func newIndexCmd() *cobra.Command {
	var files []string
	var folders []string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build embeddings for library files",
		Long: `Embed library files and append their vectors to the chunked index.
Files already embedded with the current model are skipped, so rerunning
after adding samples only processes the new ones.

Examples:
  samplevault index
  samplevault index --folders drums/kicks
  samplevault index --files "samples/kick.wav"`,
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
			return createAndRun(cmd.Context(), cmd, e, store.JobTypeIndex, sel, jobParams{})
		},
	}

	cmd.Flags().StringSliceVar(&files, "files", nil, "Limit to specific files (repeatable)")
	cmd.Flags().StringSliceVar(&folders, "folders", nil, "Limit to folder subtrees (repeatable)")
	return cmd
}
