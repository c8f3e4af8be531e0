package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumisearch/lumi/internal/corpus"
	"github.com/lumisearch/lumi/internal/engine"
)

func newBuildCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <corpus-dir>",
		Short: "Rebuild the index from a directory of .txt files",
		Long: `Build replaces the whole index. Files are numbered from 1 in
sorted name order. For a Postgres corpus run cmd/indexer with -source postgres.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := engine.Build(cmd.Context(), g.cfg, corpus.DirSource{Dir: args[0]}, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "built index: %d documents, %d terms, %d postings in %d shards (%s)\n",
				stats.Documents, stats.Terms, stats.Postings, stats.Shards, stats.Duration)
			return nil
		},
	}
	return cmd
}
