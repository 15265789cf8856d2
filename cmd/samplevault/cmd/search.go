package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"samplevault/internal/embed"
	"samplevault/internal/search"
	"samplevault/internal/selection"
	"samplevault/internal/shard"
)

func newSearchCmd() *cobra.Command {
	var limit int
	var folders []string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find samples similar to a text query",
		Long: `Embed the query text and rank indexed files by cosine similarity.

Examples:
  samplevault search "deep kick drum"
  samplevault search "warm analog pad" -n 5 --folders pads`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			embedder, err := embed.New(e.cfg.Embeddings)
			if err != nil {
				return err
			}
			defer embedder.Close()

			vec, err := embedder.Embed(cmd.Context(), query)
			if err != nil {
				return err
			}

			manifest, err := shard.LoadManifest(e.cfg.Index.Dir, e.cfg.Index.BaseName)
			if err != nil {
				return err
			}

			var matcher *selection.Matcher
			if len(folders) > 0 {
				matcher = selection.NewMatcher(selection.ForFolders(folders))
			}
			if limit <= 0 {
				limit = e.cfg.Jobs.MaxResults
			}
			results, err := search.Search(e.cfg.Index.Dir, manifest, vec, matcher, search.Options{
				TopPerShard: e.cfg.Jobs.TopPerShard,
				MaxResults:  limit,
			})
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No results. Is the library indexed?")
				return nil
			}
			for i, res := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %.4f  %s\n", i+1, res.Score, res.Key)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringSliceVar(&folders, "folders", nil, "Limit to folder subtrees (repeatable)")
	return cmd
}
