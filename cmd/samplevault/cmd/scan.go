package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"samplevault/internal/library"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <folder>...",
		Short: "Register audio files from library folders",
		Long: `Walk the given folders and register every audio file with the
library. Known files keep their row; new files are assigned the next
ordinal. Extensions are configurable (library.extensions).

Examples:
  samplevault scan ~/Samples
  samplevault scan /mnt/drums /mnt/synths`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := library.Scan(cmd.Context(), e.store, args, e.cfg.Library.Extensions)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d audio files, %d new\n", res.Walked, res.Inserted)
			return nil
		},
	}
	return cmd
}
